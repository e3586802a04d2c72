package bus

import (
	"context"

	"github.com/Kamibony/AI-Sensei-CZU-Pilot-sub001/internal/realtime"
)

type Bus interface {
	Publish(ctx context.Context, msg realtime.SSEMessage) error
	StartForwarder(ctx context.Context, onMsg func(m realtime.SSEMessage)) error
	Close() error
}
