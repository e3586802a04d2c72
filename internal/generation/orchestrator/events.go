package orchestrator

import (
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/Kamibony/AI-Sensei-CZU-Pilot-sub001/internal/domain/lessons"
)

type EventState string

const (
	EventSetup     EventState = "setup"
	EventStarted   EventState = "started"
	EventDone      EventState = "done"
	EventFailed    EventState = "failed"
	EventCompleted EventState = "completed"
	EventAborted   EventState = "aborted"
)

// Event is one job log entry. Seq numbers a job's entries from 1;
// ContentType is empty for job-level entries.
type Event struct {
	Seq         int                 `json:"seq"`
	JobID       uuid.UUID           `json:"job_id"`
	LessonID    uuid.UUID           `json:"lesson_id"`
	ContentType lessons.ContentType `json:"content_type,omitempty"`
	State       EventState          `json:"state"`
	Message     string              `json:"message"`
	Error       string              `json:"error,omitempty"`
	At          time.Time           `json:"at"`
}

// Terminal reports whether no further events follow for the job.
func (e Event) Terminal() bool {
	return e.ContentType == "" && (e.State == EventCompleted || e.State == EventAborted)
}

// Line renders the entry as a human-readable progress line.
func (e Event) Line() string {
	if e.Error != "" {
		return fmt.Sprintf("%s: %s", e.Message, e.Error)
	}
	return e.Message
}

// Sink receives events in order from the job's goroutine. It must not block for long.
type Sink func(Event)

func (s Sink) emit(e Event) {
	if s != nil {
		s(e)
	}
}
