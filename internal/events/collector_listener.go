package events

import (
	"context"

	pmerrors "github.com/gxo-labs/playmetrics/pkg/playmetrics/v1/errors"
	"github.com/gxo-labs/playmetrics/pkg/playmetrics/v1/events"
	pmlog "github.com/gxo-labs/playmetrics/pkg/playmetrics/v1/log"
)

// Handler consumes lifecycle events. The collector implements it.
type Handler interface {
	Handle(event events.Event) error
}

// CollectorListener drains a ChannelEventBus and feeds each event to a
// Handler. It preserves emission order, which the collector's state machine
// depends on.
type CollectorListener struct {
	bus     *ChannelEventBus
	handler Handler
	log     pmlog.Logger
}

// NewCollectorListener creates a new listener. Panics if any dependency is nil.
func NewCollectorListener(bus *ChannelEventBus, handler Handler, log pmlog.Logger) *CollectorListener {
	if bus == nil || handler == nil || log == nil {
		panic("CollectorListener requires a non-nil ChannelEventBus, Handler, and Logger")
	}
	return &CollectorListener{
		bus:     bus,
		handler: handler,
		log:     log.With("component", "CollectorListener"),
	}
}

// Start consumes events until the bus channel is closed or the context is
// cancelled. Consistency violations (unknown task, protocol violation) stop
// consumption immediately; a snapshot write failure is reported but does not
// interrupt draining, and is returned once the stream ends.
func (l *CollectorListener) Start(ctx context.Context) error {
	l.log.Debugf("Starting collector event listener...")
	var deferred error
	for {
		select {
		case event, ok := <-l.bus.GetChannel():
			if !ok {
				l.log.Debugf("Event bus channel closed, stopping listener.")
				return deferred
			}
			if err := l.handler.Handle(event); err != nil {
				if pmerrors.IsWriteError(err) {
					l.log.Errorf("Metrics snapshot could not be written: %v", err)
					if deferred == nil {
						deferred = err
					}
					continue
				}
				l.log.Errorf("Event handling failed for type '%s': %v", event.Type(), err)
				return err
			}
		case <-ctx.Done():
			l.log.Debugf("Context cancelled, stopping collector event listener.")
			return ctx.Err()
		}
	}
}
