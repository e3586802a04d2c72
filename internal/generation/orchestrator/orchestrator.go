// Package orchestrator drives one lesson's content generation: it creates the
// lesson record when needed, generates each content type in a fixed order,
// persists every success as its own field update and finally extends the
// lesson's visible sections.
//
// A failed content type never stops the job. Only a missing title or a
// lesson that cannot be created or loaded aborts it, and both happen before
// any generation call.
package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/Kamibony/AI-Sensei-CZU-Pilot-sub001/internal/data/db"
	"github.com/Kamibony/AI-Sensei-CZU-Pilot-sub001/internal/domain/lessons"
	"github.com/Kamibony/AI-Sensei-CZU-Pilot-sub001/internal/generation/client"
	"github.com/Kamibony/AI-Sensei-CZU-Pilot-sub001/internal/observability"
	"github.com/Kamibony/AI-Sensei-CZU-Pilot-sub001/internal/platform/dbctx"
	"github.com/Kamibony/AI-Sensei-CZU-Pilot-sub001/internal/platform/logger"
)

var (
	ErrMissingTitle = errors.New("lesson title is required")
	ErrNoLessonID   = errors.New("could not obtain a lesson id")
)

const tracerName = "github.com/Kamibony/AI-Sensei-CZU-Pilot-sub001/internal/generation/orchestrator"

// LessonStore is the document store the orchestrator writes through.
type LessonStore interface {
	Create(dbc dbctx.Context, lesson *lessons.Lesson) (*lessons.Lesson, error)
	GetByID(dbc dbctx.Context, id uuid.UUID) (*lessons.Lesson, error)
	UpdateFields(dbc dbctx.Context, id uuid.UUID, updates map[string]interface{}) error
}

// ConfigSource supplies admin generation settings. Errors are tolerated: the
// returned config is still used, so a source can hand back its own defaults
// alongside the reason the stored values were unavailable.
type ConfigSource interface {
	GenerationConfig(ctx context.Context) (lessons.GenerationConfig, error)
}

// Draft describes the lesson to generate for. LessonID is zero for a lesson
// that has not been saved yet.
type Draft struct {
	LessonID        uuid.UUID
	OwnerUserID     uuid.UUID
	Title           string
	Subtitle        string
	Language        string
	ContextFileRefs []string
	// Overrides beats the admin config for any positive count.
	Overrides lessons.GenerationConfig
	// Types restricts the run; empty means every content type.
	Types []lessons.ContentType
}

type Options struct {
	CallTimeout time.Duration // default 120s
	Persist     RetryPolicy   // default 3 attempts on transient errors
	Language    string        // default "cs"
}

type Orchestrator struct {
	log    *logger.Logger
	store  LessonStore
	gen    client.GenerationClient
	config ConfigSource
	opts   Options
	tracer trace.Tracer
}

func New(log *logger.Logger, store LessonStore, gen client.GenerationClient, config ConfigSource, opts Options) *Orchestrator {
	if opts.CallTimeout <= 0 {
		opts.CallTimeout = 120 * time.Second
	}
	if opts.Persist.MaxAttempts <= 0 {
		opts.Persist.MaxAttempts = 3
	}
	if opts.Persist.Retryable == nil {
		opts.Persist.Retryable = db.IsTransient
	}
	if strings.TrimSpace(opts.Language) == "" {
		opts.Language = "cs"
	}
	return &Orchestrator{
		log:    log.With("service", "GenerationOrchestrator"),
		store:  store,
		gen:    gen,
		config: config,
		opts:   opts,
		tracer: observability.Tracer(tracerName),
	}
}

// Run executes a new job for draft and blocks until it finishes.
func (o *Orchestrator) Run(ctx context.Context, draft Draft, sink Sink) (*Result, error) {
	return o.Execute(ctx, NewJob(draft.Types), draft, sink)
}

// Execute runs a prepared job. The returned error is non-nil only when the
// job aborted during setup; the Result is returned in every case.
func (o *Orchestrator) Execute(ctx context.Context, job *Job, draft Draft, sink Sink) (*Result, error) {
	ctx, span := o.tracer.Start(ctx, "generation.job", trace.WithAttributes(
		attribute.String("job.id", job.ID().String()),
	))
	defer span.End()

	lesson, cfg, err := o.setup(ctx, job, draft, sink)
	if err != nil {
		job.update(func(j *Job) { j.err = err.Error() })
		o.emit(job, sink, Event{State: EventAborted, Message: "Generation aborted", Error: err.Error()})
		job.finish(JobAborted)
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return job.Snapshot(), err
	}
	span.SetAttributes(attribute.String("lesson.id", lesson.ID.String()))

	job.update(func(j *Job) { j.state = JobRunning })
	in := stepInput{
		title:    firstNonEmpty(draft.Title, lesson.Title),
		subtitle: firstNonEmpty(draft.Subtitle, lesson.Subtitle),
		language: firstNonEmpty(draft.Language, lesson.Language, o.opts.Language),
		refs:     draft.ContextFileRefs,
		config:   cfg,
	}
	if len(in.refs) == 0 {
		in.refs = lesson.FileRefs()
	}

	var generated []lessons.ContentType
	steps := job.Snapshot().Steps
	for i, st := range steps {
		if ctx.Err() != nil {
			o.cancelRemaining(job, sink, steps[i:])
			break
		}
		if o.runStep(ctx, job, lesson.ID, st.ContentType, in, sink) {
			generated = append(generated, st.ContentType)
		}
	}
	job.update(func(j *Job) { j.generated = generated })

	// visibility is reconciled even for cancelled jobs so saved sections show up
	o.reconcileVisibility(context.WithoutCancel(ctx), job, lesson.ID, generated, sink)

	res := job.Snapshot()
	msg := fmt.Sprintf("Generation finished: %d done, %d failed", len(res.Generated), len(res.Failed()))
	if res.Cancelled {
		msg = fmt.Sprintf("Generation cancelled: %d done, %d failed", len(res.Generated), len(res.Failed()))
	}
	o.emit(job, sink, Event{State: EventCompleted, Message: msg})
	job.finish(JobCompleted)
	span.SetAttributes(
		attribute.Int("generation.done", len(res.Generated)),
		attribute.Int("generation.failed", len(res.Failed())),
		attribute.Bool("generation.cancelled", res.Cancelled),
	)
	o.log.Info("Generation job finished",
		"job_id", job.ID(),
		"lesson_id", lesson.ID,
		"done", len(res.Generated),
		"failed", len(res.Failed()),
		"cancelled", res.Cancelled,
	)
	return job.Snapshot(), nil
}

func (o *Orchestrator) setup(ctx context.Context, job *Job, draft Draft, sink Sink) (*lessons.Lesson, lessons.GenerationConfig, error) {
	var lesson *lessons.Lesson
	if draft.LessonID != uuid.Nil {
		l, err := o.store.GetByID(dbctx.New(ctx), draft.LessonID)
		if err != nil {
			return nil, lessons.GenerationConfig{}, fmt.Errorf("%w: load lesson %s: %v", ErrNoLessonID, draft.LessonID, err)
		}
		lesson = l
	}

	title := strings.TrimSpace(draft.Title)
	if title == "" && lesson != nil {
		title = strings.TrimSpace(lesson.Title)
	}
	if title == "" {
		return nil, lessons.GenerationConfig{}, ErrMissingTitle
	}

	if lesson == nil {
		created, err := o.store.Create(dbctx.New(ctx), &lessons.Lesson{
			OwnerUserID:     draft.OwnerUserID,
			Title:           title,
			Subtitle:        strings.TrimSpace(draft.Subtitle),
			Language:        firstNonEmpty(draft.Language, o.opts.Language),
			Status:          lessons.StatusDraft,
			ContextFileRefs: lessons.StringsJSON(draft.ContextFileRefs),
		})
		if err != nil {
			return nil, lessons.GenerationConfig{}, fmt.Errorf("%w: %v", ErrNoLessonID, err)
		}
		if created == nil || created.ID == uuid.Nil {
			return nil, lessons.GenerationConfig{}, ErrNoLessonID
		}
		lesson = created
	}
	job.update(func(j *Job) { j.lessonID = lesson.ID })

	cfg := lessons.DefaultGenerationConfig()
	if o.config != nil {
		stored, err := o.config.GenerationConfig(ctx)
		if err != nil {
			o.log.Debug("Admin generation config unavailable, using defaults", "error", err)
		}
		cfg = stored.Merge(cfg)
	}
	cfg = draft.Overrides.Merge(cfg)

	o.emit(job, sink, Event{State: EventSetup, Message: fmt.Sprintf("Generating content for %q", title)})
	return lesson, cfg, nil
}

func (o *Orchestrator) cancelRemaining(job *Job, sink Sink, rest []StepState) {
	job.update(func(j *Job) { j.cancelled = true })
	for _, st := range rest {
		ct := st.ContentType
		job.update(func(j *Job) { markFinished(j.step(ct), StepFailed, "cancelled") })
		o.emit(job, sink, Event{ContentType: ct, State: EventFailed, Message: ct.Label() + " skipped", Error: "cancelled"})
	}
}

func (o *Orchestrator) reconcileVisibility(ctx context.Context, job *Job, lessonID uuid.UUID, generated []lessons.ContentType, sink Sink) {
	visible, err := o.applyVisibility(ctx, lessonID, generated)
	if err != nil {
		o.log.Warn("Visible sections update failed", "job_id", job.ID(), "lesson_id", lessonID, "error", err)
		o.emit(job, sink, Event{State: EventFailed, Message: "Updating visible sections failed", Error: err.Error()})
		return
	}
	job.update(func(j *Job) { j.visible = visible })
}

func (o *Orchestrator) emit(job *Job, sink Sink, e Event) {
	e.JobID = job.ID()
	e.LessonID = job.LessonID()
	if e.At.IsZero() {
		e.At = time.Now().UTC()
	}
	sink.emit(job.record(e))
}

func (j *Job) step(ct lessons.ContentType) *StepState {
	for _, s := range j.steps {
		if s.ContentType == ct {
			return s
		}
	}
	return nil
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if s := strings.TrimSpace(v); s != "" {
			return s
		}
	}
	return ""
}
