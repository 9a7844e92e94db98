package events

import (
	"context"

	"github.com/gxo-labs/playmetrics/pkg/playmetrics/v1/events"
)

// NoOpEventBus is a Bus that discards every event. It is the fallback when
// metrics collection is disabled, so emitting call sites never need a nil
// check.
type NoOpEventBus struct{}

// NewNoOpEventBus creates a new instance of the NoOpEventBus.
func NewNoOpEventBus() events.Bus {
	return &NoOpEventBus{}
}

// Emit implements the events.Bus interface method and does nothing.
func (n *NoOpEventBus) Emit(ctx context.Context, event events.Event) error { return nil }

var _ events.Bus = (*NoOpEventBus)(nil)
