package ctxutil

import (
	"context"
	"sync"

	"github.com/google/uuid"
)

type scopeKey struct{}

// RequestScope holds the identifiers an API request is about. Job and lesson
// ids are attached by handlers once known, so readers such as the request
// logger see them after the handler chain returns. All methods accept a nil
// receiver.
type RequestScope struct {
	mu        sync.RWMutex
	traceID   string
	requestID string
	jobID     uuid.UUID
	lessonID  uuid.UUID
}

func NewRequestScope(traceID, requestID string) *RequestScope {
	return &RequestScope{traceID: traceID, requestID: requestID}
}

func WithRequestScope(ctx context.Context, s *RequestScope) context.Context {
	return context.WithValue(ctx, scopeKey{}, s)
}

// Scope returns the request scope of ctx, or nil.
func Scope(ctx context.Context) *RequestScope {
	if ctx == nil {
		return nil
	}
	s, _ := ctx.Value(scopeKey{}).(*RequestScope)
	return s
}

func (s *RequestScope) TraceID() string {
	if s == nil {
		return ""
	}
	return s.traceID
}

func (s *RequestScope) RequestID() string {
	if s == nil {
		return ""
	}
	return s.requestID
}

// SetJob records the job and lesson a request touched. Nil ids leave the
// current value in place.
func (s *RequestScope) SetJob(jobID, lessonID uuid.UUID) {
	if s == nil {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if jobID != uuid.Nil {
		s.jobID = jobID
	}
	if lessonID != uuid.Nil {
		s.lessonID = lessonID
	}
}

func (s *RequestScope) Job() (jobID, lessonID uuid.UUID) {
	if s == nil {
		return uuid.Nil, uuid.Nil
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.jobID, s.lessonID
}

// Fields returns the non-empty identifiers as logger key/value pairs.
func (s *RequestScope) Fields() []interface{} {
	if s == nil {
		return nil
	}
	var out []interface{}
	if s.traceID != "" {
		out = append(out, "trace_id", s.traceID)
	}
	if s.requestID != "" {
		out = append(out, "request_id", s.requestID)
	}
	jobID, lessonID := s.Job()
	if jobID != uuid.Nil {
		out = append(out, "job_id", jobID.String())
	}
	if lessonID != uuid.Nil {
		out = append(out, "lesson_id", lessonID.String())
	}
	return out
}
