// Package runner owns generation jobs started from request handlers: each job
// runs on its own goroutine under a context that outlives the request, can be
// cancelled by id and is kept for a while after it finishes so clients can
// still read its log.
package runner

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/Kamibony/AI-Sensei-CZU-Pilot-sub001/internal/generation/orchestrator"
	"github.com/Kamibony/AI-Sensei-CZU-Pilot-sub001/internal/platform/ctxutil"
	"github.com/Kamibony/AI-Sensei-CZU-Pilot-sub001/internal/platform/logger"
)

var (
	ErrJobActive    = errors.New("a generation job is already running for this lesson")
	ErrJobNotFound  = errors.New("generation job not found")
	ErrShuttingDown = errors.New("generation runner is shutting down")
)

// Executor runs one prepared job to completion.
type Executor interface {
	Execute(ctx context.Context, job *orchestrator.Job, draft orchestrator.Draft, sink orchestrator.Sink) (*orchestrator.Result, error)
}

// Notifier receives every job event, in order.
type Notifier interface {
	JobEvent(e orchestrator.Event)
}

type Options struct {
	Retention time.Duration // how long finished jobs stay readable; default 30m
}

type entry struct {
	job      *orchestrator.Job
	lessonID uuid.UUID // from the draft; the job learns it during setup
	cancel   context.CancelFunc
	done     chan struct{}
	result   *orchestrator.Result
	err      error
	finished time.Time
}

type Runner struct {
	log    *logger.Logger
	exec   Executor
	notify Notifier
	opts   Options
	now    func() time.Time

	root     context.Context
	stopRoot context.CancelFunc
	wg       sync.WaitGroup

	mu      sync.Mutex
	jobs    map[uuid.UUID]*entry
	closing bool
}

func New(log *logger.Logger, exec Executor, notify Notifier, opts Options) *Runner {
	if opts.Retention <= 0 {
		opts.Retention = 30 * time.Minute
	}
	root, stop := context.WithCancel(context.Background())
	return &Runner{
		log:      log.With("component", "GenerationRunner"),
		exec:     exec,
		notify:   notify,
		opts:     opts,
		now:      time.Now,
		root:     root,
		stopRoot: stop,
		jobs:     make(map[uuid.UUID]*entry),
	}
}

// Start launches a job for draft and returns its initial snapshot. A draft
// with neither a lesson id nor a title is rejected before a job exists.
func (r *Runner) Start(ctx context.Context, draft orchestrator.Draft) (*orchestrator.Result, error) {
	if draft.LessonID == uuid.Nil && strings.TrimSpace(draft.Title) == "" {
		return nil, orchestrator.ErrMissingTitle
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	r.mu.Lock()
	if r.closing {
		r.mu.Unlock()
		return nil, ErrShuttingDown
	}
	r.pruneLocked()
	if draft.LessonID != uuid.Nil {
		for _, e := range r.jobs {
			if e.result == nil && (e.lessonID == draft.LessonID || e.job.LessonID() == draft.LessonID) {
				r.mu.Unlock()
				return nil, fmt.Errorf("%w: job %s", ErrJobActive, e.job.ID())
			}
		}
	}
	job := orchestrator.NewJob(draft.Types)
	jctx, cancel := context.WithCancel(r.root)
	e := &entry{job: job, lessonID: draft.LessonID, cancel: cancel, done: make(chan struct{})}
	r.jobs[job.ID()] = e
	r.wg.Add(1)
	r.mu.Unlock()

	fields := []interface{}{"job_id", job.ID(), "lesson_id", draft.LessonID}
	if scope := ctxutil.Scope(ctx); scope != nil {
		fields = append(fields, "request_id", scope.RequestID(), "trace_id", scope.TraceID())
	}
	r.log.Info("Generation job accepted", fields...)
	go r.run(jctx, e, draft)
	return job.Snapshot(), nil
}

func (r *Runner) run(ctx context.Context, e *entry, draft orchestrator.Draft) {
	defer r.wg.Done()
	defer e.cancel()

	var (
		res *orchestrator.Result
		err error
	)
	func() {
		defer func() {
			if rec := recover(); rec != nil {
				r.log.Error("Generation job panic", "job_id", e.job.ID(), "panic", rec)
				err = fmt.Errorf("generation job panic: %v", rec)
				if ev, ok := e.job.Abort(err.Error()); ok && r.notify != nil {
					r.notify.JobEvent(ev)
				}
			}
		}()
		res, err = r.exec.Execute(ctx, e.job, draft, r.sink())
	}()
	if res == nil {
		res = e.job.Snapshot()
	}

	r.mu.Lock()
	e.result = res
	e.err = err
	e.finished = r.now()
	r.mu.Unlock()
	close(e.done)
}

func (r *Runner) sink() orchestrator.Sink {
	if r.notify == nil {
		return nil
	}
	return r.notify.JobEvent
}

// Get returns the current snapshot of a job.
func (r *Runner) Get(jobID uuid.UUID) (*orchestrator.Result, error) {
	e, err := r.lookup(jobID)
	if err != nil {
		return nil, err
	}
	return e.job.Snapshot(), nil
}

// Cancel asks a running job to stop before its next content type. Cancelling
// a finished job is a no-op.
func (r *Runner) Cancel(jobID uuid.UUID) (*orchestrator.Result, error) {
	e, err := r.lookup(jobID)
	if err != nil {
		return nil, err
	}
	e.cancel()
	r.log.Info("Generation job cancel requested", "job_id", jobID)
	return e.job.Snapshot(), nil
}

// Wait blocks until the job finishes or ctx ends. The error is the job's
// setup error, if any.
func (r *Runner) Wait(ctx context.Context, jobID uuid.UUID) (*orchestrator.Result, error) {
	e, err := r.lookup(jobID)
	if err != nil {
		return nil, err
	}
	select {
	case <-e.done:
	case <-ctx.Done():
		return nil, ctx.Err()
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	return e.result, e.err
}

// Shutdown stops accepting jobs, cancels running ones and waits for them.
func (r *Runner) Shutdown(ctx context.Context) error {
	r.mu.Lock()
	r.closing = true
	r.mu.Unlock()
	r.stopRoot()

	done := make(chan struct{})
	go func() {
		r.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (r *Runner) lookup(jobID uuid.UUID) (*entry, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.pruneLocked()
	e, ok := r.jobs[jobID]
	if !ok {
		return nil, ErrJobNotFound
	}
	return e, nil
}

func (r *Runner) pruneLocked() {
	cutoff := r.now().Add(-r.opts.Retention)
	for id, e := range r.jobs {
		if e.result != nil && e.finished.Before(cutoff) {
			delete(r.jobs, id)
		}
	}
}
