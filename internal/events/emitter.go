package events

import (
	"context"
	"time"

	"skillswap/pkg/logger"
)

// Emitter stamps and publishes events on behalf of services. A failed
// publish is logged and never fails the calling operation.
type Emitter struct {
	pub    Publisher
	logger logger.Logger
	now    func() time.Time
}

func NewEmitter(pub Publisher, log logger.Logger) *Emitter {
	return &Emitter{
		pub:    pub,
		logger: log,
		now:    func() time.Time { return time.Now().UTC() },
	}
}

func (e *Emitter) Emit(ctx context.Context, eventType string, subjects []string, payload map[string]any) {
	if e == nil || e.pub == nil {
		return
	}

	event := Event{
		Type:       eventType,
		SubjectIDs: subjects,
		Timestamp:  e.now(),
		Payload:    payload,
	}
	if err := e.pub.Publish(ctx, event); err != nil {
		e.logger.Warn(ctx, "failed to publish event",
			logger.Field{Key: "type", Value: eventType},
			logger.Field{Key: "error", Value: err},
		)
	}
}
