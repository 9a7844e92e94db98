// Package registry tracks in-flight task metadata so a later per-host result
// can be correlated back to when and where the task began.
package registry

import (
	"sync"
	"time"

	pmerrors "github.com/gxo-labs/playmetrics/pkg/playmetrics/v1/errors"
)

// TaskRun identifies one task instance within one play.
type TaskRun struct {
	// ID is the opaque identifier supplied by the orchestration engine.
	ID string
	// Play is the owning play's name. May be empty if no play context was
	// known when the task started.
	Play string
	// Action is the task's action/module name.
	Action string
	// StartTime is captured when the task is first observed.
	StartTime time.Time
}

// TaskRegistry is a thread-safe map from task id to TaskRun. Entries are
// never evicted; the registry lives exactly as long as one run.
type TaskRegistry struct {
	tasks map[string]TaskRun
	mu    sync.RWMutex
	now   func() time.Time
}

// NewTaskRegistry creates an empty registry using the real clock.
func NewTaskRegistry() *TaskRegistry {
	return NewTaskRegistryWithClock(time.Now)
}

// NewTaskRegistryWithClock creates an empty registry with an injectable
// clock for tests. Panics if now is nil.
func NewTaskRegistryWithClock(now func() time.Time) *TaskRegistry {
	if now == nil {
		panic("TaskRegistry requires a non-nil clock")
	}
	return &TaskRegistry{
		tasks: make(map[string]TaskRun),
		now:   now,
	}
}

// Begin inserts a TaskRun for taskID with StartTime set to now, unless the
// id is already present. The engine may emit one start event shared across
// hosts or one per host; keying strictly on the id and ignoring re-starts
// tolerates either, and a duplicate Begin preserves the original StartTime.
func (r *TaskRegistry) Begin(taskID, play, action string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.tasks[taskID]; exists {
		return
	}
	r.tasks[taskID] = TaskRun{
		ID:        taskID,
		Play:      play,
		Action:    action,
		StartTime: r.now(),
	}
}

// Lookup returns the TaskRun for taskID. A missing id means the upstream
// engine violated its ordering contract (result before start); this is
// surfaced as an UnknownTaskError, never silently defaulted.
func (r *TaskRegistry) Lookup(taskID string) (TaskRun, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	run, exists := r.tasks[taskID]
	if !exists {
		return TaskRun{}, pmerrors.NewUnknownTaskError(taskID)
	}
	return run, nil
}

// Len returns the number of registered tasks.
func (r *TaskRegistry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.tasks)
}
