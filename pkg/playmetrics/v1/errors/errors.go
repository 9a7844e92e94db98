package errors

import (
	"errors"
	"fmt"
)

// --- Playmetrics Core Error Types ---

// ConfigError represents an error encountered during the loading, parsing,
// or validation of the collector configuration.
type ConfigError struct {
	Message string
	Cause   error
}

func NewConfigError(message string, cause error) *ConfigError {
	return &ConfigError{Message: message, Cause: cause}
}
func (e *ConfigError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("configuration error: %s: %v", e.Message, e.Cause)
	}
	return fmt.Sprintf("configuration error: %s", e.Message)
}
func (e *ConfigError) Unwrap() error { return e.Cause }

// ValidationError indicates that some input (e.g., configuration file
// structure, schema version) failed validation checks.
type ValidationError struct {
	Message string
	Cause   error
}

func NewValidationError(message string, cause error) *ValidationError {
	return &ValidationError{Message: message, Cause: cause}
}
func (e *ValidationError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("validation error: %s: %v", e.Message, e.Cause)
	}
	return fmt.Sprintf("validation error: %s", e.Message)
}
func (e *ValidationError) Unwrap() error { return e.Cause }

// UnknownTaskError signifies that a task result referenced a task id that was
// never registered via a preceding task start event. This is an internal
// consistency violation of the upstream callback contract, not a user error.
type UnknownTaskError struct {
	TaskID string
}

func NewUnknownTaskError(taskID string) *UnknownTaskError {
	return &UnknownTaskError{TaskID: taskID}
}
func (e *UnknownTaskError) Error() string {
	return fmt.Sprintf("unknown task id: %s (result received before task start)", e.TaskID)
}

// IsUnknownTask checks if an error is an UnknownTaskError using errors.As.
func IsUnknownTask(err error) bool {
	var utErr *UnknownTaskError
	return errors.As(err, &utErr)
}

// ProtocolError indicates that a lifecycle event arrived in a run state that
// has no transition for it (e.g., any event after playbook stats). The
// coordinator is single-use per process; it never returns to idle.
type ProtocolError struct {
	Event string // Event type name as received.
	State string // Coordinator state at the time of receipt.
}

func NewProtocolError(event, state string) *ProtocolError {
	return &ProtocolError{Event: event, State: state}
}
func (e *ProtocolError) Error() string {
	return fmt.Sprintf("protocol violation: event '%s' received in state '%s'", e.Event, e.State)
}

// WriteError represents a failure to commit the metrics snapshot to its
// destination. It is reported to the operator but never retried; metrics are
// a side channel and the run's outcome is unaffected.
type WriteError struct {
	Destination string
	Cause       error
}

func NewWriteError(destination string, cause error) *WriteError {
	return &WriteError{Destination: destination, Cause: cause}
}
func (e *WriteError) Error() string {
	if e.Destination == "" {
		return fmt.Sprintf("snapshot write failed: %v", e.Cause)
	}
	return fmt.Sprintf("snapshot write to '%s' failed: %v", e.Destination, e.Cause)
}
func (e *WriteError) Unwrap() error { return e.Cause }

// IsWriteError checks if an error is a WriteError using errors.As.
func IsWriteError(err error) bool {
	var wErr *WriteError
	return errors.As(err, &wErr)
}
