package events

import (
	"context"

	"github.com/gxo-labs/playmetrics/pkg/playmetrics/v1/events"
	pmlog "github.com/gxo-labs/playmetrics/pkg/playmetrics/v1/log"
)

// ChannelEventBus implements the public events.Bus interface using a
// buffered Go channel. It decouples the event producer (the stream decoder
// or an embedding engine) from the collector consuming the events. The bus
// carries the run's aggregation input, so it never drops: when the buffer is
// full Emit blocks the producer until the consumer drains or the producer's
// context is cancelled.
type ChannelEventBus struct {
	channel chan events.Event
	log     pmlog.Logger
}

// NewChannelEventBus creates a bus with the given buffer size (a default is
// applied for non-positive sizes). Panics if the logger is nil.
func NewChannelEventBus(bufferSize int, log pmlog.Logger) *ChannelEventBus {
	const defaultBufferSize = 256
	if bufferSize <= 0 {
		bufferSize = defaultBufferSize
	}
	if log == nil {
		panic("ChannelEventBus requires a non-nil logger")
	}
	bus := &ChannelEventBus{
		channel: make(chan events.Event, bufferSize),
		log:     log.With("component", "ChannelEventBus"),
	}
	bus.log.Debugf("ChannelEventBus initialized with buffer size %d", bufferSize)
	return bus
}

// Emit sends an event onto the internal buffered channel, blocking while the
// buffer is full. A cancelled context unblocks a stalled send and is reported
// to the producer; the event is not delivered in that case.
func (c *ChannelEventBus) Emit(ctx context.Context, event events.Event) error {
	select {
	case c.channel <- event:
		c.log.Debugf("Emitted event type '%s'", event.Type())
		return nil
	case <-ctx.Done():
		c.log.Warnf("Context cancelled while emitting event type '%s'", event.Type())
		return ctx.Err()
	}
}

// GetChannel returns the underlying event channel for consumers. It is not
// part of the public events.Bus interface; in-process listeners use it to
// drain events directly. The returned channel is read-only.
func (c *ChannelEventBus) GetChannel() <-chan events.Event {
	return c.channel
}

// Close closes the underlying event channel, signaling consumers that no
// more events will be sent.
func (c *ChannelEventBus) Close() {
	c.log.Debugf("Closing ChannelEventBus channel.")
	close(c.channel)
}

var _ events.Bus = (*ChannelEventBus)(nil)
