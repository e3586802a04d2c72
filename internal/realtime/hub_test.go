package realtime

import (
	"context"
	"errors"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/Kamibony/AI-Sensei-CZU-Pilot-sub001/internal/domain/lessons"
	"github.com/Kamibony/AI-Sensei-CZU-Pilot-sub001/internal/generation/orchestrator"
	"github.com/Kamibony/AI-Sensei-CZU-Pilot-sub001/internal/platform/logger"
)

func mustTestLogger(t *testing.T) *logger.Logger {
	t.Helper()
	log, err := logger.New("development")
	if err != nil {
		t.Fatalf("logger.New: %v", err)
	}
	t.Cleanup(log.Sync)
	return log
}

func recvMessage(t *testing.T, ch <-chan SSEMessage, timeout time.Duration) SSEMessage {
	t.Helper()
	select {
	case msg := <-ch:
		return msg
	case <-time.After(timeout):
		t.Fatalf("timed out waiting for SSE message")
	}
	return SSEMessage{}
}

func TestSSEHubOrderingAndReconnect(t *testing.T) {
	hub := NewSSEHub(mustTestLogger(t))
	channel := JobChannel(uuid.New())

	clientA := hub.NewSSEClient(0)
	hub.AddChannel(clientA, channel)

	hub.Broadcast(SSEMessage{Channel: channel, Event: SSEEventGenerationProgress, Data: map[string]any{"seq": 1}})
	hub.Broadcast(SSEMessage{Channel: channel, Event: SSEEventGenerationCompleted, Data: map[string]any{"seq": 2}})

	if got := recvMessage(t, clientA.Outbound, time.Second); got.Event != SSEEventGenerationProgress {
		t.Fatalf("first event: got=%s", got.Event)
	}
	if got := recvMessage(t, clientA.Outbound, time.Second); got.Event != SSEEventGenerationCompleted {
		t.Fatalf("second event: got=%s", got.Event)
	}

	hub.CloseClient(clientA)
	hub.CloseClient(clientA) // idempotent
	if _, ok := <-clientA.Outbound; ok {
		t.Fatalf("clientA outbound should be closed after disconnect")
	}
	if n := hub.Subscribers(channel); n != 0 {
		t.Fatalf("subscribers after close: %d", n)
	}

	clientB := hub.NewSSEClient(0)
	hub.AddChannel(clientB, channel)
	hub.Broadcast(SSEMessage{Channel: channel, Event: SSEEventGenerationAborted})
	if got := recvMessage(t, clientB.Outbound, time.Second); got.Event != SSEEventGenerationAborted {
		t.Fatalf("reconnect event: got=%s", got.Event)
	}
}

func TestSSEHubDropsWhenBufferFull(t *testing.T) {
	hub := NewSSEHub(mustTestLogger(t))
	client := hub.NewSSEClient(1)
	hub.AddChannel(client, "c")

	hub.Broadcast(SSEMessage{Channel: "c", Event: SSEEventGenerationProgress})
	hub.Broadcast(SSEMessage{Channel: "c", Event: SSEEventGenerationCompleted})

	if got := recvMessage(t, client.Outbound, time.Second); got.Event != SSEEventGenerationProgress {
		t.Fatalf("got=%s", got.Event)
	}
	select {
	case msg := <-client.Outbound:
		t.Fatalf("expected overflow message to be dropped, got %s", msg.Event)
	default:
	}
}

func TestStreamStopsAtTerminalMessage(t *testing.T) {
	hub := NewSSEHub(mustTestLogger(t))
	client := hub.NewSSEClient(0)
	client.Outbound <- SSEMessage{Channel: "c", Event: SSEEventGenerationProgress, Data: map[string]any{"message": "Generating Text..."}}
	client.Outbound <- SSEMessage{Channel: "c", Event: SSEEventGenerationCompleted}
	client.Outbound <- SSEMessage{Channel: "c", Event: SSEEventGenerationProgress, Data: map[string]any{"message": "never sent"}}

	rec := httptest.NewRecorder()
	req := httptest.NewRequest("GET", "/events", nil)
	hub.Stream(rec, req, client, StreamOptions{Stop: IsTerminal})

	body := rec.Body.String()
	if rec.Header().Get("Content-Type") != "text/event-stream" {
		t.Fatalf("content type: %q", rec.Header().Get("Content-Type"))
	}
	if !strings.Contains(body, "event: GenerationProgress") || !strings.Contains(body, "event: GenerationCompleted") {
		t.Fatalf("body: %s", body)
	}
	if strings.Contains(body, "never sent") {
		t.Fatalf("stream continued past terminal message: %s", body)
	}
}

type fakePublisher struct {
	mu   sync.Mutex
	err  error
	msgs []SSEMessage
}

func (p *fakePublisher) Publish(_ context.Context, msg SSEMessage) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.msgs = append(p.msgs, msg)
	return p.err
}

func TestNotifierRoutesJobAndLessonChannels(t *testing.T) {
	hub := NewSSEHub(mustTestLogger(t))
	jobID, lessonID := uuid.New(), uuid.New()
	jobClient := hub.NewSSEClient(0)
	hub.AddChannel(jobClient, JobChannel(jobID))
	lessonClient := hub.NewSSEClient(0)
	hub.AddChannel(lessonClient, LessonChannel(lessonID))

	n := NewNotifier(mustTestLogger(t), hub, nil)
	n.JobEvent(orchestrator.Event{JobID: jobID, LessonID: lessonID, ContentType: lessons.ContentQuiz, State: orchestrator.EventDone})
	n.JobEvent(orchestrator.Event{JobID: jobID, LessonID: lessonID, State: orchestrator.EventCompleted})

	if got := recvMessage(t, jobClient.Outbound, time.Second); got.Event != SSEEventGenerationProgress {
		t.Fatalf("job channel: %s", got.Event)
	}
	if got := recvMessage(t, jobClient.Outbound, time.Second); !IsTerminal(got) {
		t.Fatalf("job channel terminal: %s", got.Event)
	}
	if got := recvMessage(t, lessonClient.Outbound, time.Second); got.Event != SSEEventGenerationProgress {
		t.Fatalf("lesson channel: %s", got.Event)
	}
}

func TestNotifierFallsBackToHubWhenPublishFails(t *testing.T) {
	hub := NewSSEHub(mustTestLogger(t))
	jobID := uuid.New()
	client := hub.NewSSEClient(0)
	hub.AddChannel(client, JobChannel(jobID))

	pub := &fakePublisher{err: errors.New("redis down")}
	n := NewNotifier(mustTestLogger(t), hub, pub)
	n.JobEvent(orchestrator.Event{JobID: jobID, State: orchestrator.EventAborted})

	if got := recvMessage(t, client.Outbound, time.Second); got.Event != SSEEventGenerationAborted {
		t.Fatalf("fallback: %s", got.Event)
	}
	if len(pub.msgs) != 1 {
		t.Fatalf("publish attempts: %d", len(pub.msgs))
	}
}

func TestStreamSkipsFilteredMessages(t *testing.T) {
	hub := NewSSEHub(mustTestLogger(t))
	client := hub.NewSSEClient(0)
	client.Outbound <- SSEMessage{Channel: "c", Event: SSEEventGenerationProgress, Data: orchestrator.Event{Seq: 1, Message: "replayed already"}}
	client.Outbound <- SSEMessage{Channel: "c", Event: SSEEventGenerationProgress, Data: map[string]any{"seq": float64(2), "message": "Quiz saved"}}
	client.Outbound <- SSEMessage{Channel: "c", Event: SSEEventGenerationCompleted, Data: orchestrator.Event{Seq: 3}}

	rec := httptest.NewRecorder()
	hub.Stream(rec, httptest.NewRequest("GET", "/events", nil), client, StreamOptions{
		Skip: func(m SSEMessage) bool { return EventSeq(m) <= 1 },
		Stop: IsTerminal,
	})

	body := rec.Body.String()
	if strings.Contains(body, "replayed already") {
		t.Fatalf("skipped message was written: %s", body)
	}
	if !strings.Contains(body, "Quiz saved") || !strings.Contains(body, "event: GenerationCompleted") {
		t.Fatalf("body: %s", body)
	}
}
