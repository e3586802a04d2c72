package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/Kamibony/AI-Sensei-CZU-Pilot-sub001/internal/domain/lessons"
	"github.com/Kamibony/AI-Sensei-CZU-Pilot-sub001/internal/generation/client"
	"github.com/Kamibony/AI-Sensei-CZU-Pilot-sub001/internal/generation/normalize"
	"github.com/Kamibony/AI-Sensei-CZU-Pilot-sub001/internal/generation/prompts"
	"github.com/Kamibony/AI-Sensei-CZU-Pilot-sub001/internal/generation/visibility"
	"github.com/Kamibony/AI-Sensei-CZU-Pilot-sub001/internal/platform/dbctx"
	"github.com/Kamibony/AI-Sensei-CZU-Pilot-sub001/internal/platform/httpx"
)

type stepInput struct {
	title    string
	subtitle string
	language string
	refs     []string
	config   lessons.GenerationConfig
}

// runStep generates, normalizes and saves one content type. It reports
// whether the field was saved; every failure is absorbed into the job log.
func (o *Orchestrator) runStep(ctx context.Context, job *Job, lessonID uuid.UUID, ct lessons.ContentType, in stepInput, sink Sink) bool {
	ctx, span := o.tracer.Start(ctx, "generation.step", trace.WithAttributes(
		attribute.String("generation.content_type", string(ct)),
	))
	defer span.End()

	start := time.Now()
	log := o.log.With("job_id", job.ID(), "lesson_id", lessonID, "content_type", ct)

	job.update(func(j *Job) {
		ss := j.step(ct)
		ss.Status = StepRunning
		markStarted(ss)
	})
	o.emit(job, sink, Event{ContentType: ct, State: EventStarted, Message: fmt.Sprintf("Generating %s...", ct.Label())})

	fail := func(msg string) bool {
		job.update(func(j *Job) { markFinished(j.step(ct), StepFailed, msg) })
		o.emit(job, sink, Event{ContentType: ct, State: EventFailed, Message: ct.Label() + " failed", Error: msg})
		span.SetStatus(codes.Error, msg)
		log.Warn("Generation step failed", "error", msg, "duration", time.Since(start).String())
		return false
	}

	p, err := prompts.Build(ct, prompts.Input{
		Title:    in.title,
		Subtitle: in.subtitle,
		Language: in.language,
		Config:   in.config,
	})
	if err != nil {
		return fail(err.Error())
	}
	hash := p.Fingerprint()
	job.update(func(j *Job) {
		ss := j.step(ct)
		ss.PromptVersion = p.Version
		ss.PromptHash = hash
	})
	span.SetAttributes(
		attribute.Int("prompt.version", p.Version),
		attribute.String("prompt.hash", hash),
	)

	res := o.generate(ctx, ct, p, in.refs)
	if res.Failed() {
		return fail(res.Error)
	}

	content, err := normalize.Parse(ct, res.Data)
	if err != nil {
		return fail(err.Error())
	}
	column, value, err := lessons.FieldUpdate(content)
	if err != nil {
		return fail(err.Error())
	}

	// once content exists the write ignores cancellation
	tries, err := o.persist(context.WithoutCancel(ctx), lessonID, map[string]interface{}{column: value})
	job.update(func(j *Job) { j.step(ct).PersistTries = tries })
	if err != nil {
		return fail(fmt.Sprintf("save failed after %d attempt(s): %v", tries, err))
	}

	job.update(func(j *Job) { markFinished(j.step(ct), StepDone, "") })
	o.emit(job, sink, Event{ContentType: ct, State: EventDone, Message: ct.Label() + " saved"})
	span.SetAttributes(attribute.Int("persist.tries", tries))
	log.Info("Generation step done", "duration", time.Since(start).String())
	return true
}

// generate calls the client under the per-call deadline. A client that
// ignores its context is abandoned when the deadline passes.
func (o *Orchestrator) generate(ctx context.Context, ct lessons.ContentType, p prompts.Prompt, refs []string) client.Result {
	cctx, cancel := context.WithTimeout(ctx, o.opts.CallTimeout)
	defer cancel()

	ch := make(chan client.Result, 1)
	go func() {
		defer func() {
			if r := recover(); r != nil {
				ch <- client.Fail(fmt.Sprintf("generation client panic: %v", r))
			}
		}()
		ch <- o.gen.Generate(cctx, ct, p, refs)
	}()

	select {
	case res := <-ch:
		return res
	case <-cctx.Done():
		if errors.Is(ctx.Err(), context.Canceled) {
			return client.Fail("cancelled")
		}
		return client.Fail(fmt.Sprintf("generation timed out after %s", o.opts.CallTimeout))
	}
}

// persist writes updates, retrying transient store errors with backoff.
func (o *Orchestrator) persist(ctx context.Context, lessonID uuid.UUID, updates map[string]interface{}) (int, error) {
	attempts := 0
	for {
		attempts++
		err := o.store.UpdateFields(dbctx.New(ctx), lessonID, updates)
		if err == nil {
			return attempts, nil
		}
		if !shouldRetry(o.opts.Persist, attempts, err) {
			return attempts, err
		}
		delay := computeBackoff(o.opts.Persist, attempts)
		o.log.Debug("Retrying lesson update", "lesson_id", lessonID, "attempt", attempts, "delay", delay.String(), "error", err)
		if serr := httpx.Sleep(ctx, delay); serr != nil {
			return attempts, err
		}
	}
}

// applyVisibility re-reads the lesson so concurrent edits to
// visible_sections are merged rather than overwritten.
func (o *Orchestrator) applyVisibility(ctx context.Context, lessonID uuid.UUID, generated []lessons.ContentType) ([]lessons.ContentType, error) {
	lesson, err := o.store.GetByID(dbctx.New(ctx), lessonID)
	if err != nil {
		return nil, fmt.Errorf("reload lesson: %w", err)
	}
	next := visibility.Reconcile(lesson, generated)
	if !visibility.Changed(lesson, next) {
		return next, nil
	}
	if _, err := o.persist(ctx, lessonID, map[string]interface{}{"visible_sections": lessons.SectionsJSON(next)}); err != nil {
		return nil, err
	}
	return next, nil
}
