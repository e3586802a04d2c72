package runner

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"

	lessonrepo "github.com/Kamibony/AI-Sensei-CZU-Pilot-sub001/internal/data/repos/lessons"
	"github.com/Kamibony/AI-Sensei-CZU-Pilot-sub001/internal/data/repos/testutil"
	"github.com/Kamibony/AI-Sensei-CZU-Pilot-sub001/internal/domain/lessons"
	"github.com/Kamibony/AI-Sensei-CZU-Pilot-sub001/internal/generation/client"
	"github.com/Kamibony/AI-Sensei-CZU-Pilot-sub001/internal/generation/orchestrator"
)

// blockingExec runs until released or cancelled.
type blockingExec struct {
	release   chan struct{}
	cancelled chan struct{}
	once      sync.Once
}

func newBlockingExec() *blockingExec {
	return &blockingExec{release: make(chan struct{}), cancelled: make(chan struct{})}
}

func (b *blockingExec) Execute(ctx context.Context, job *orchestrator.Job, _ orchestrator.Draft, _ orchestrator.Sink) (*orchestrator.Result, error) {
	select {
	case <-b.release:
		return job.Snapshot(), nil
	case <-ctx.Done():
		b.once.Do(func() { close(b.cancelled) })
		res := job.Snapshot()
		res.Cancelled = true
		return res, nil
	}
}

type execFunc func(ctx context.Context, job *orchestrator.Job, draft orchestrator.Draft, sink orchestrator.Sink) (*orchestrator.Result, error)

func (f execFunc) Execute(ctx context.Context, job *orchestrator.Job, draft orchestrator.Draft, sink orchestrator.Sink) (*orchestrator.Result, error) {
	return f(ctx, job, draft, sink)
}

type eventLog struct {
	mu     sync.Mutex
	events []orchestrator.Event
}

func (l *eventLog) JobEvent(e orchestrator.Event) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.events = append(l.events, e)
}

func (l *eventLog) all() []orchestrator.Event {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]orchestrator.Event(nil), l.events...)
}

func waitCtx(t *testing.T) context.Context {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	t.Cleanup(cancel)
	return ctx
}

func TestStartRejectsDraftWithoutTitle(t *testing.T) {
	r := New(testutil.Logger(t), newBlockingExec(), nil, Options{})
	if _, err := r.Start(context.Background(), orchestrator.Draft{Title: "   "}); !errors.Is(err, orchestrator.ErrMissingTitle) {
		t.Fatalf("expected ErrMissingTitle, got %v", err)
	}
}

func TestStartRunsJobAndNotifies(t *testing.T) {
	db := testutil.DB(t)
	repo := lessonrepo.NewLessonRepo(db, testutil.Logger(t))
	backend := client.NewService(testutil.Logger(t), client.NewMockBackend(), nil)
	orch := orchestrator.New(testutil.Logger(t), repo, backend, nil, orchestrator.Options{})

	events := &eventLog{}
	r := New(testutil.Logger(t), orch, events, Options{})

	snap, err := r.Start(context.Background(), orchestrator.Draft{Title: "Photosynthesis"})
	if err != nil {
		t.Fatalf("Start: %v", err)
	}
	res, err := r.Wait(waitCtx(t), snap.JobID)
	if err != nil {
		t.Fatalf("Wait: %v", err)
	}
	if res.State != orchestrator.JobCompleted {
		t.Fatalf("state: %s", res.State)
	}
	if len(res.Generated) != len(lessons.GenerationOrder) {
		t.Fatalf("generated: %v (failed %v)", res.Generated, res.Failed())
	}

	got := events.all()
	if len(got) != len(res.Log) {
		t.Fatalf("notified %d events, log has %d", len(got), len(res.Log))
	}
	for i, e := range got {
		if e.Seq != i+1 {
			t.Fatalf("event %d has seq %d", i, e.Seq)
		}
	}
	if !got[len(got)-1].Terminal() {
		t.Fatalf("last event not terminal: %+v", got[len(got)-1])
	}
}

func TestCancelStopsRunningJob(t *testing.T) {
	exec := newBlockingExec()
	r := New(testutil.Logger(t), exec, nil, Options{})

	snap, err := r.Start(context.Background(), orchestrator.Draft{Title: "Volcanoes"})
	if err != nil {
		t.Fatalf("Start: %v", err)
	}
	if _, err := r.Cancel(snap.JobID); err != nil {
		t.Fatalf("Cancel: %v", err)
	}
	select {
	case <-exec.cancelled:
	case <-time.After(5 * time.Second):
		t.Fatalf("executor context was not cancelled")
	}
	res, err := r.Wait(waitCtx(t), snap.JobID)
	if err != nil {
		t.Fatalf("Wait: %v", err)
	}
	if !res.Cancelled {
		t.Fatalf("expected cancelled result")
	}
	if _, err := r.Cancel(snap.JobID); err != nil {
		t.Fatalf("cancel after finish: %v", err)
	}
}

func TestStartRequestContextDoesNotCancelJob(t *testing.T) {
	exec := newBlockingExec()
	r := New(testutil.Logger(t), exec, nil, Options{})

	reqCtx, cancelReq := context.WithCancel(context.Background())
	snap, err := r.Start(reqCtx, orchestrator.Draft{Title: "Tides"})
	if err != nil {
		t.Fatalf("Start: %v", err)
	}
	cancelReq()

	select {
	case <-exec.cancelled:
		t.Fatalf("job cancelled with the request")
	case <-time.After(50 * time.Millisecond):
	}
	close(exec.release)
	res, err := r.Wait(waitCtx(t), snap.JobID)
	if err != nil || res.Cancelled {
		t.Fatalf("Wait: res=%+v err=%v", res, err)
	}
}

func TestOneActiveJobPerLesson(t *testing.T) {
	exec := newBlockingExec()
	r := New(testutil.Logger(t), exec, nil, Options{})
	lessonID := uuid.New()

	first, err := r.Start(context.Background(), orchestrator.Draft{LessonID: lessonID})
	if err != nil {
		t.Fatalf("first Start: %v", err)
	}
	if _, err := r.Start(context.Background(), orchestrator.Draft{LessonID: lessonID}); !errors.Is(err, ErrJobActive) {
		t.Fatalf("expected ErrJobActive, got %v", err)
	}
	if _, err := r.Start(context.Background(), orchestrator.Draft{LessonID: uuid.New()}); err != nil {
		t.Fatalf("other lesson: %v", err)
	}

	close(exec.release)
	if _, err := r.Wait(waitCtx(t), first.JobID); err != nil {
		t.Fatalf("Wait: %v", err)
	}
	if _, err := r.Start(context.Background(), orchestrator.Draft{LessonID: lessonID}); err != nil {
		t.Fatalf("Start after finish: %v", err)
	}
}

func TestUnknownJob(t *testing.T) {
	r := New(testutil.Logger(t), newBlockingExec(), nil, Options{})
	if _, err := r.Get(uuid.New()); !errors.Is(err, ErrJobNotFound) {
		t.Fatalf("Get: %v", err)
	}
	if _, err := r.Cancel(uuid.New()); !errors.Is(err, ErrJobNotFound) {
		t.Fatalf("Cancel: %v", err)
	}
	if _, err := r.Wait(context.Background(), uuid.New()); !errors.Is(err, ErrJobNotFound) {
		t.Fatalf("Wait: %v", err)
	}
}

func TestFinishedJobsExpire(t *testing.T) {
	exec := execFunc(func(_ context.Context, job *orchestrator.Job, _ orchestrator.Draft, _ orchestrator.Sink) (*orchestrator.Result, error) {
		return job.Snapshot(), nil
	})
	r := New(testutil.Logger(t), exec, nil, Options{Retention: time.Minute})
	now := time.Now()
	var mu sync.Mutex
	r.now = func() time.Time {
		mu.Lock()
		defer mu.Unlock()
		return now
	}

	snap, err := r.Start(context.Background(), orchestrator.Draft{Title: "Rivers"})
	if err != nil {
		t.Fatalf("Start: %v", err)
	}
	if _, err := r.Wait(waitCtx(t), snap.JobID); err != nil {
		t.Fatalf("Wait: %v", err)
	}
	if _, err := r.Get(snap.JobID); err != nil {
		t.Fatalf("Get within retention: %v", err)
	}

	mu.Lock()
	now = now.Add(2 * time.Minute)
	mu.Unlock()
	if _, err := r.Get(snap.JobID); !errors.Is(err, ErrJobNotFound) {
		t.Fatalf("expected expired job, got %v", err)
	}
}

func TestExecutorPanicIsRecovered(t *testing.T) {
	exec := execFunc(func(context.Context, *orchestrator.Job, orchestrator.Draft, orchestrator.Sink) (*orchestrator.Result, error) {
		panic("boom")
	})
	events := &eventLog{}
	r := New(testutil.Logger(t), exec, events, Options{})

	snap, err := r.Start(context.Background(), orchestrator.Draft{Title: "Glaciers"})
	if err != nil {
		t.Fatalf("Start: %v", err)
	}
	res, err := r.Wait(waitCtx(t), snap.JobID)
	if err == nil || !strings.Contains(err.Error(), "panic") {
		t.Fatalf("expected panic error, got %v", err)
	}
	if res == nil || res.JobID != snap.JobID {
		t.Fatalf("expected a snapshot for the panicked job")
	}
	if res.State != orchestrator.JobAborted {
		t.Fatalf("state = %s, want aborted", res.State)
	}
	for _, st := range res.Steps {
		if st.Status != orchestrator.StepFailed {
			t.Fatalf("%s left %s after panic", st.ContentType, st.Status)
		}
	}
	got := events.all()
	if len(got) != 1 || !got[0].Terminal() || got[0].State != orchestrator.EventAborted || got[0].JobID != snap.JobID {
		t.Fatalf("expected one terminal aborted event, got %+v", got)
	}
}

func TestShutdownCancelsJobsAndRejectsNew(t *testing.T) {
	exec := newBlockingExec()
	r := New(testutil.Logger(t), exec, nil, Options{})

	snap, err := r.Start(context.Background(), orchestrator.Draft{Title: "Deserts"})
	if err != nil {
		t.Fatalf("Start: %v", err)
	}
	if err := r.Shutdown(waitCtx(t)); err != nil {
		t.Fatalf("Shutdown: %v", err)
	}
	res, err := r.Wait(waitCtx(t), snap.JobID)
	if err != nil || !res.Cancelled {
		t.Fatalf("job after shutdown: res=%+v err=%v", res, err)
	}
	if _, err := r.Start(context.Background(), orchestrator.Draft{Title: "Forests"}); !errors.Is(err, ErrShuttingDown) {
		t.Fatalf("expected ErrShuttingDown, got %v", err)
	}
}
