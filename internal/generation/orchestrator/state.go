package orchestrator

import (
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/Kamibony/AI-Sensei-CZU-Pilot-sub001/internal/domain/lessons"
)

type JobState string

const (
	JobSetup     JobState = "setup"
	JobRunning   JobState = "running"
	JobCompleted JobState = "completed"
	JobAborted   JobState = "aborted"
)

type StepStatus string

const (
	StepPending StepStatus = "pending"
	StepRunning StepStatus = "running"
	StepDone    StepStatus = "done"
	StepFailed  StepStatus = "failed"
)

type StepState struct {
	ContentType   lessons.ContentType `json:"content_type"`
	Status        StepStatus          `json:"status"`
	PersistTries  int                 `json:"persist_tries,omitempty"`
	StartedAt     *time.Time          `json:"started_at,omitempty"`
	FinishedAt    *time.Time          `json:"finished_at,omitempty"`
	LastError     string              `json:"last_error,omitempty"`
	PromptVersion int                 `json:"prompt_version,omitempty"`
	PromptHash    string              `json:"prompt_hash,omitempty"`
}

// Result is a point-in-time view of a job.
type Result struct {
	JobID      uuid.UUID             `json:"job_id"`
	LessonID   uuid.UUID             `json:"lesson_id"`
	State      JobState              `json:"state"`
	Steps      []StepState           `json:"steps"`
	Log        []Event               `json:"log"`
	Generated  []lessons.ContentType `json:"generated"`
	Visible    []lessons.ContentType `json:"visible_sections,omitempty"`
	Cancelled  bool                  `json:"cancelled"`
	Error      string                `json:"error,omitempty"`
	StartedAt  time.Time             `json:"started_at"`
	FinishedAt *time.Time            `json:"finished_at,omitempty"`
}

// Failed lists the content types whose step ended failed.
func (r *Result) Failed() []lessons.ContentType {
	var out []lessons.ContentType
	for _, s := range r.Steps {
		if s.Status == StepFailed {
			out = append(out, s.ContentType)
		}
	}
	return out
}

// Job is the in-memory state of one run. It is written by the job's
// goroutine and read through Snapshot from anywhere.
type Job struct {
	mu sync.RWMutex

	id         uuid.UUID
	lessonID   uuid.UUID
	state      JobState
	steps      []*StepState
	log        []Event
	generated  []lessons.ContentType
	visible    []lessons.ContentType
	cancelled  bool
	err        string
	startedAt  time.Time
	finishedAt *time.Time
}

// NewJob prepares a job over types, or over every content type when types is empty.
func NewJob(types []lessons.ContentType) *Job {
	if len(types) == 0 {
		types = lessons.GenerationOrder
	}
	j := &Job{
		id:        uuid.New(),
		state:     JobSetup,
		startedAt: time.Now().UTC(),
	}
	for _, ct := range orderTypes(types) {
		j.steps = append(j.steps, &StepState{ContentType: ct, Status: StepPending})
	}
	return j
}

func (j *Job) ID() uuid.UUID { return j.id }

func (j *Job) LessonID() uuid.UUID {
	j.mu.RLock()
	defer j.mu.RUnlock()
	return j.lessonID
}

func (j *Job) Snapshot() *Result {
	j.mu.RLock()
	defer j.mu.RUnlock()
	out := &Result{
		JobID:     j.id,
		LessonID:  j.lessonID,
		State:     j.state,
		Steps:     make([]StepState, 0, len(j.steps)),
		Log:       append([]Event(nil), j.log...),
		Generated: append([]lessons.ContentType(nil), j.generated...),
		Visible:   append([]lessons.ContentType(nil), j.visible...),
		Cancelled: j.cancelled,
		Error:     j.err,
		StartedAt: j.startedAt,
	}
	for _, s := range j.steps {
		out.Steps = append(out.Steps, *s)
	}
	if j.finishedAt != nil {
		t := *j.finishedAt
		out.FinishedAt = &t
	}
	return out
}

func (j *Job) update(fn func(j *Job)) {
	j.mu.Lock()
	defer j.mu.Unlock()
	fn(j)
}

func (j *Job) record(e Event) Event {
	j.mu.Lock()
	defer j.mu.Unlock()
	e.Seq = len(j.log) + 1
	j.log = append(j.log, e)
	return e
}

func (j *Job) finish(state JobState) {
	now := time.Now().UTC()
	j.update(func(j *Job) {
		j.state = state
		j.finishedAt = &now
	})
}

// Abort ends a job that stopped without reaching a terminal state, failing
// its unfinished steps and recording an aborted event. It reports false when
// the job had already finished.
func (j *Job) Abort(reason string) (Event, bool) {
	j.mu.Lock()
	defer j.mu.Unlock()
	if j.finishedAt != nil {
		return Event{}, false
	}
	for _, ss := range j.steps {
		if ss.Status == StepPending || ss.Status == StepRunning {
			markFinished(ss, StepFailed, reason)
		}
	}
	now := time.Now().UTC()
	e := Event{
		JobID:    j.id,
		LessonID: j.lessonID,
		State:    EventAborted,
		Message:  "Generation aborted",
		Error:    reason,
		At:       now,
		Seq:      len(j.log) + 1,
	}
	j.log = append(j.log, e)
	j.err = reason
	j.state = JobAborted
	j.finishedAt = &now
	return e, true
}

// orderTypes keeps the fixed generation order and drops unknown or repeated types.
func orderTypes(types []lessons.ContentType) []lessons.ContentType {
	want := make(map[lessons.ContentType]bool, len(types))
	for _, ct := range types {
		want[ct] = true
	}
	out := make([]lessons.ContentType, 0, len(want))
	for _, ct := range lessons.GenerationOrder {
		if want[ct] {
			out = append(out, ct)
		}
	}
	return out
}

func markStarted(ss *StepState) {
	if ss == nil || ss.StartedAt != nil {
		return
	}
	now := time.Now().UTC()
	ss.StartedAt = &now
}

func markFinished(ss *StepState, status StepStatus, lastErr string) {
	if ss == nil {
		return
	}
	now := time.Now().UTC()
	ss.Status = status
	ss.FinishedAt = &now
	if lastErr != "" {
		ss.LastError = lastErr
	}
}
