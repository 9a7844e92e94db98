// Package events defines the lifecycle event types emitted by an
// orchestration run and consumed by the playmetrics collector.
package events

import "context"

// EventType represents the type of a run lifecycle event.
type EventType string

// Standard Lifecycle Event Types
const (
	TypePlaybookStart EventType = "PlaybookStart" // Run begins; carries playbook file name.
	TypePlayStart     EventType = "PlayStart"     // A play begins; carries play name.
	TypeTaskStart     EventType = "TaskStart"     // A task is first observed.
	TypeTaskResult    EventType = "TaskResult"    // One host finished one task.
	TypePlaybookStats EventType = "PlaybookStats" // Run is over; triggers the snapshot.
)

// Status is the raw per-host task outcome as reported by the engine.
type Status string

const (
	StatusOK      Status = "ok"
	StatusFailed  Status = "failed"
	StatusSkipped Status = "skipped"
	// StatusChanged is never a raw result status; it is the additional
	// counter series recorded alongside the final status when a task
	// reported a change.
	StatusChanged Status = "changed"
)

// Event is the sealed sum of all lifecycle events. The collector dispatches
// on the concrete type with an exhaustive switch; anything else is rejected.
type Event interface {
	// Type returns the event's type tag, used for logging and protocol
	// error reporting.
	Type() EventType
}

// PlaybookStart marks the beginning of a run.
type PlaybookStart struct {
	// FileName is the path of the playbook file being executed. Only its
	// base name is recorded in the playbook info metric.
	FileName string
}

func (PlaybookStart) Type() EventType { return TypePlaybookStart }

// PlayStart marks the beginning of a named play. Subsequent task starts are
// tagged with this play name until the next PlayStart arrives.
type PlayStart struct {
	Name string
}

func (PlayStart) Type() EventType { return TypePlayStart }

// TaskStart marks the first observation of a task. The engine may emit one
// start shared across hosts or one per host; the collector keys strictly on
// TaskID and treats re-starts as no-ops.
type TaskStart struct {
	// TaskID is an opaque identifier supplied by the engine, stable for
	// the task's lifetime within the run.
	TaskID string
	// Action is the task's action/module name (e.g. "debug", "setup").
	Action string
}

func (TaskStart) Type() EventType { return TypeTaskStart }

// TaskResult reports the outcome of one task on one host. Results may be
// delivered concurrently from multiple worker threads.
type TaskResult struct {
	TaskID string
	Host   string
	// Status is the raw outcome: ok, failed or skipped.
	Status Status
	// Changed reports whether the task changed the host.
	Changed bool
	// IgnoreErrors reports whether the task was marked to ignore errors.
	IgnoreErrors bool
}

func (TaskResult) Type() EventType { return TypeTaskResult }

// PlaybookStats marks the end of the run. The engine emits it only after all
// hosts have reported, so handling it happens-after all result processing.
type PlaybookStats struct{}

func (PlaybookStats) Type() EventType { return TypePlaybookStats }

// Bus defines the interface for publishing lifecycle events. Every event
// reaching the bus is part of the run's aggregation input, so delivery is
// lossless: Emit blocks under backpressure rather than dropping, and the
// context is the producer's escape hatch when the consumer has stopped.
type Bus interface {
	// Emit publishes an event to the bus. It returns the context's error
	// if ctx is cancelled before the event is accepted.
	Emit(ctx context.Context, event Event) error
}
