// Package stream decodes the NDJSON lifecycle event stream produced by the
// orchestration engine's callback and republishes it on an event bus.
package stream

import (
	"bufio"
	"context"
	"encoding/json"
	"io"

	"github.com/google/uuid"

	"github.com/gxo-labs/playmetrics/pkg/playmetrics/v1/events"
	pmlog "github.com/gxo-labs/playmetrics/pkg/playmetrics/v1/log"
)

// Wire event names carried in the "_event" discriminator field.
const (
	wirePlaybookStart = "playbook_start"
	wirePlayStart     = "play_start"
	wireTaskStart     = "task_start"
	wireTaskResult    = "task_result"
	wirePlaybookStats = "playbook_stats"
)

// envelope holds the discriminator plus the nested payloads of every event
// shape; only the fields matching the event name are populated.
type envelope struct {
	Event    string `json:"_event"`
	Playbook struct {
		FileName string `json:"file_name"`
	} `json:"playbook"`
	Play struct {
		Name string `json:"name"`
	} `json:"play"`
	Task struct {
		ID     string `json:"id"`
		Action string `json:"action"`
	} `json:"task"`
	Host struct {
		Name string `json:"name"`
	} `json:"host"`
	Status       string `json:"status"`
	Changed      bool   `json:"changed"`
	IgnoreErrors bool   `json:"ignore_errors"`
}

// Decoder reads one JSON object per line and emits the corresponding
// lifecycle events. Unknown event names and malformed lines are skipped with
// a warning; the stream is an external surface and a single bad line must
// not abort aggregation of the rest of the run.
type Decoder struct {
	scanner *bufio.Scanner
	log     pmlog.Logger
	runID   string
}

// NewDecoder creates a Decoder over r. Each decoding session gets a fresh
// run id used to correlate log entries across components.
func NewDecoder(r io.Reader, log pmlog.Logger) *Decoder {
	if log == nil {
		panic("Decoder requires a non-nil logger")
	}
	runID := uuid.NewString()
	scanner := bufio.NewScanner(r)
	// Result payloads can be large; allow lines up to 1 MiB.
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	return &Decoder{
		scanner: scanner,
		log:     log.With("component", "Decoder", "run_id", runID),
		runID:   runID,
	}
}

// RunID returns the identifier assigned to this decoding session.
func (d *Decoder) RunID() string {
	return d.runID
}

// Decode consumes the stream until EOF or context cancellation, emitting one
// event per well-formed line onto the bus. The reader error, if any, is
// returned; parse failures are not errors.
func (d *Decoder) Decode(ctx context.Context, bus events.Bus) error {
	line := 0
	for d.scanner.Scan() {
		line++
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}
		raw := d.scanner.Bytes()
		if len(raw) == 0 {
			continue
		}
		event, ok := d.decodeLine(raw, line)
		if !ok {
			continue
		}
		if err := bus.Emit(ctx, event); err != nil {
			return err
		}
	}
	if err := d.scanner.Err(); err != nil {
		// The run host closes the input to interrupt a blocked read once
		// the context is cancelled; report the cancellation, not the
		// closed-reader artifact it produces.
		if ctx.Err() != nil {
			return ctx.Err()
		}
		return err
	}
	return nil
}

// decodeLine maps one raw line to its event struct.
func (d *Decoder) decodeLine(raw []byte, line int) (events.Event, bool) {
	var env envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		d.log.Warnf("Skipping malformed event on line %d: %v", line, err)
		return nil, false
	}
	switch env.Event {
	case wirePlaybookStart:
		return events.PlaybookStart{FileName: env.Playbook.FileName}, true
	case wirePlayStart:
		return events.PlayStart{Name: env.Play.Name}, true
	case wireTaskStart:
		if env.Task.ID == "" {
			d.log.Warnf("Skipping task start without id on line %d", line)
			return nil, false
		}
		return events.TaskStart{TaskID: env.Task.ID, Action: env.Task.Action}, true
	case wireTaskResult:
		status := events.Status(env.Status)
		switch status {
		case events.StatusOK, events.StatusFailed, events.StatusSkipped:
		default:
			d.log.Warnf("Skipping task result with unknown status '%s' on line %d", env.Status, line)
			return nil, false
		}
		return events.TaskResult{
			TaskID:       env.Task.ID,
			Host:         env.Host.Name,
			Status:       status,
			Changed:      env.Changed,
			IgnoreErrors: env.IgnoreErrors,
		}, true
	case wirePlaybookStats:
		return events.PlaybookStats{}, true
	case "":
		d.log.Warnf("Skipping event without '_event' field on line %d", line)
		return nil, false
	default:
		d.log.Warnf("Skipping unknown event '%s' on line %d", env.Event, line)
		return nil, false
	}
}
