package realtime

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/Kamibony/AI-Sensei-CZU-Pilot-sub001/internal/generation/orchestrator"
	"github.com/Kamibony/AI-Sensei-CZU-Pilot-sub001/internal/platform/logger"
)

// Publisher fans a message out to every API replica.
type Publisher interface {
	Publish(ctx context.Context, msg SSEMessage) error
}

func JobChannel(jobID uuid.UUID) string { return "generation:" + jobID.String() }

func LessonChannel(lessonID uuid.UUID) string { return "lesson:" + lessonID.String() }

// Notifier turns generation events into SSE messages. With a Publisher the
// messages travel through it (and come back to the hub via the forwarder);
// without one they go straight to the local hub.
type Notifier struct {
	hub *SSEHub
	pub Publisher
	log *logger.Logger
}

func NewNotifier(log *logger.Logger, hub *SSEHub, pub Publisher) *Notifier {
	return &Notifier{hub: hub, pub: pub, log: log.With("component", "GenerationNotifier")}
}

func (n *Notifier) JobEvent(e orchestrator.Event) {
	msgs := []SSEMessage{{Channel: JobChannel(e.JobID), Event: EventName(e), Data: e}}
	if e.LessonID != uuid.Nil {
		msgs = append(msgs, SSEMessage{Channel: LessonChannel(e.LessonID), Event: EventName(e), Data: e})
	}
	for _, msg := range msgs {
		n.send(msg)
	}
}

func (n *Notifier) send(msg SSEMessage) {
	if n.pub == nil {
		n.hub.Broadcast(msg)
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := n.pub.Publish(ctx, msg); err != nil {
		n.log.Warn("Publish failed; delivering locally", "channel", msg.Channel, "error", err)
		n.hub.Broadcast(msg)
	}
}

func EventName(e orchestrator.Event) SSEEvent {
	switch {
	case e.ContentType == "" && e.State == orchestrator.EventCompleted:
		return SSEEventGenerationCompleted
	case e.ContentType == "" && e.State == orchestrator.EventAborted:
		return SSEEventGenerationAborted
	default:
		return SSEEventGenerationProgress
	}
}

// IsTerminal reports whether msg ends a job stream.
func IsTerminal(msg SSEMessage) bool {
	return msg.Event == SSEEventGenerationCompleted || msg.Event == SSEEventGenerationAborted
}

// EventSeq returns the job log sequence number carried by msg, or 0. Messages
// that crossed the bus carry their event decoded as a map.
func EventSeq(msg SSEMessage) int {
	switch d := msg.Data.(type) {
	case orchestrator.Event:
		return d.Seq
	case *orchestrator.Event:
		if d != nil {
			return d.Seq
		}
	case map[string]any:
		if f, ok := d["seq"].(float64); ok {
			return int(f)
		}
	}
	return 0
}
