package realtime

import (
	"context"

	"go.uber.org/zap"
)

// Sink receives every change.
type Sink interface {
	Name() string
	Publish(ctx context.Context, c Change) error
}

// Hub fans changes out to sinks. A failing sink is logged and skipped.
type Hub struct {
	sinks []Sink
	log   *zap.Logger
}

// NewHub constructs a Hub. Nil sinks are ignored.
func NewHub(log *zap.Logger, sinks ...Sink) *Hub {
	h := &Hub{log: log}
	for _, s := range sinks {
		if s != nil {
			h.sinks = append(h.sinks, s)
		}
	}
	return h
}

// Dispatch delivers c to every sink in order.
func (h *Hub) Dispatch(ctx context.Context, c Change) {
	for _, s := range h.sinks {
		if err := s.Publish(ctx, c); err != nil {
			h.log.Warn("change delivery failed",
				zap.String("sink", s.Name()),
				zap.String("table", c.Table),
				zap.String("op", c.Op),
				zap.String("id", c.ID),
				zap.Error(err),
			)
		}
	}
}
