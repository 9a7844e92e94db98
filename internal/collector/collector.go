// Package collector wires run lifecycle events to metric updates. It owns
// the mutable run state and drives the snapshot write at run end.
package collector

import (
	"context"
	"path/filepath"
	"runtime"
	"sync"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/gxo-labs/playmetrics/internal/classify"
	"github.com/gxo-labs/playmetrics/internal/config"
	"github.com/gxo-labs/playmetrics/internal/metrics"
	"github.com/gxo-labs/playmetrics/internal/registry"
	"github.com/gxo-labs/playmetrics/internal/textfile"
	pmerrors "github.com/gxo-labs/playmetrics/pkg/playmetrics/v1/errors"
	"github.com/gxo-labs/playmetrics/pkg/playmetrics/v1/events"
	pmlog "github.com/gxo-labs/playmetrics/pkg/playmetrics/v1/log"
	pmmetrics "github.com/gxo-labs/playmetrics/pkg/playmetrics/v1/metrics"
	pmtracing "github.com/gxo-labs/playmetrics/pkg/playmetrics/v1/tracing"
)

// State names the coordinator's position in the run lifecycle.
type State string

const (
	// StateIdle is the initial state; only PlaybookStart is valid.
	StateIdle State = "Idle"
	// StatePlaybookRunning accepts play, task and result events.
	StatePlaybookRunning State = "PlaybookRunning"
	// StatePlaybookFinished is terminal; every further event is a
	// protocol violation.
	StatePlaybookFinished State = "PlaybookFinished"
)

const tracerName = "playmetrics"

// RuntimeInfo describes the runtime environment recorded in the info metric.
type RuntimeInfo struct {
	// Version is the collector/engine version.
	Version string
	// EnvironmentVersion is the interpreter or language runtime version.
	EnvironmentVersion string
}

// Collector accumulates per-task, per-host, per-status counters and duration
// gauges over one run and commits a snapshot when the run ends. It is
// single-use: after PlaybookStats it never returns to idle.
//
// A single mutex serializes all event handling. Task results may arrive
// concurrently from many workers; the coarse lock guarantees per-key
// increments are never lost, and event rates are far too low for it to
// matter.
type Collector struct {
	mu sync.Mutex

	state       State
	currentPlay string
	startTime   time.Time

	cfg      config.Config
	tasks    *registry.TaskRegistry
	run      *metrics.RunMetrics
	provider pmmetrics.RegistryProvider
	snapshot textfile.Snapshotter
	log      pmlog.Logger
	now      func() time.Time

	tracer  trace.Tracer
	runSpan trace.Span

	runtimeInfo RuntimeInfo
	disabled    bool
}

// Option configures a Collector.
type Option func(*Collector)

// WithClock injects a clock, primarily for tests.
func WithClock(now func() time.Time) Option {
	return func(c *Collector) {
		if now != nil {
			c.now = now
		}
	}
}

// WithTracerProvider attaches a tracer provider; the collector spans the
// whole run from PlaybookStart to PlaybookStats.
func WithTracerProvider(provider pmtracing.TracerProvider) Option {
	return func(c *Collector) {
		if provider != nil {
			c.tracer = provider.GetTracer(tracerName)
		}
	}
}

// WithRuntimeInfo overrides the runtime environment recorded in the info
// metric.
func WithRuntimeInfo(info RuntimeInfo) Option {
	return func(c *Collector) {
		c.runtimeInfo = info
	}
}

// New creates a Collector against the given metrics registry provider and
// snapshot destination. A nil provider yields a disabled collector: a single
// startup warning is logged and every subsequent event is a no-op. This
// mirrors the soft-disable of the original callback when its metrics library
// is unavailable.
func New(cfg config.Config, provider pmmetrics.RegistryProvider, snapshot textfile.Snapshotter, log pmlog.Logger, opts ...Option) *Collector {
	if log == nil {
		panic("Collector requires a non-nil logger")
	}
	c := &Collector{
		state:    StateIdle,
		cfg:      cfg,
		snapshot: snapshot,
		log:      log.With("component", "Collector"),
		now:      time.Now,
		runtimeInfo: RuntimeInfo{
			Version:            "dev",
			EnvironmentVersion: runtime.Version(),
		},
	}
	for _, opt := range opts {
		opt(c)
	}
	if provider == nil {
		c.disabled = true
		c.log.Warnf("No metrics registry provider configured. Disabling the metrics collector; all run events will be ignored.")
		return c
	}
	c.provider = provider
	c.tasks = registry.NewTaskRegistryWithClock(c.now)
	c.run = metrics.NewRunMetrics(provider.Registry())
	return c
}

// Disabled reports whether the collector ignores all events.
func (c *Collector) Disabled() bool {
	return c.disabled
}

// State returns the coordinator's current lifecycle state.
func (c *Collector) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Handle dispatches one lifecycle event. Events must arrive in emission
// order for start events; results may be delivered concurrently. An event
// with no transition from the current state returns a ProtocolError.
func (c *Collector) Handle(event events.Event) error {
	if c.disabled {
		return nil
	}
	c.mu.Lock()
	defer c.mu.Unlock()

	switch ev := event.(type) {
	case events.PlaybookStart:
		return c.handlePlaybookStart(ev)
	case events.PlayStart:
		return c.handlePlayStart(ev)
	case events.TaskStart:
		return c.handleTaskStart(ev)
	case events.TaskResult:
		return c.handleTaskResult(ev)
	case events.PlaybookStats:
		return c.handlePlaybookStats(ev)
	default:
		return pmerrors.NewProtocolError(string(event.Type()), string(c.state))
	}
}

func (c *Collector) handlePlaybookStart(ev events.PlaybookStart) error {
	if c.state != StateIdle {
		return pmerrors.NewProtocolError(string(ev.Type()), string(c.state))
	}
	c.startTime = c.now()
	c.run.SetRuntimeInfo(c.runtimeInfo.Version, c.runtimeInfo.EnvironmentVersion)
	name := ""
	if ev.FileName != "" {
		name = filepath.Base(ev.FileName)
	}
	c.run.SetPlaybookInfo(name)
	if c.tracer != nil {
		_, c.runSpan = c.tracer.Start(context.Background(), "playbook_run",
			trace.WithAttributes(attribute.String("playbook.file", ev.FileName)))
	}
	c.state = StatePlaybookRunning
	c.log.Debugf("Playbook '%s' started", ev.FileName)
	return nil
}

func (c *Collector) handlePlayStart(ev events.PlayStart) error {
	if c.state != StatePlaybookRunning {
		return pmerrors.NewProtocolError(string(ev.Type()), string(c.state))
	}
	c.currentPlay = ev.Name
	if c.runSpan != nil {
		c.runSpan.AddEvent("play_start", trace.WithAttributes(attribute.String("play.name", ev.Name)))
	}
	c.log.Debugf("Play '%s' started", ev.Name)
	return nil
}

func (c *Collector) handleTaskStart(ev events.TaskStart) error {
	if c.state != StatePlaybookRunning {
		return pmerrors.NewProtocolError(string(ev.Type()), string(c.state))
	}
	// Begin is idempotent; a re-start for a known id keeps the original
	// play tag and start time.
	c.tasks.Begin(ev.TaskID, c.currentPlay, ev.Action)
	return nil
}

func (c *Collector) handleTaskResult(ev events.TaskResult) error {
	if c.state != StatePlaybookRunning {
		return pmerrors.NewProtocolError(string(ev.Type()), string(c.state))
	}
	run, err := c.tasks.Lookup(ev.TaskID)
	if err != nil {
		return err
	}

	// Setup-category results are dropped entirely, status and duration,
	// when setup tasks are excluded from the report.
	if classify.IsSetupAction(run.Action) && !c.cfg.IncludeSetupTasks {
		return nil
	}

	final := classify.Final(ev.Status, ev.Changed, ev.IgnoreErrors, classify.Options{
		FailOnChange: c.cfg.FailOnChange,
		FailOnIgnore: c.cfg.FailOnIgnore,
	})
	c.run.RecordTaskStatus(run.Play, ev.Host, final)
	// The changed increment is additive and uses the original flag,
	// regardless of any reclassification above.
	if ev.Changed {
		c.run.RecordTaskChanged(run.Play, ev.Host)
	}
	c.run.AccumulateTaskDuration(run.Play, ev.Host, int64(c.now().Sub(run.StartTime).Seconds()))
	return nil
}

func (c *Collector) handlePlaybookStats(ev events.PlaybookStats) error {
	if c.state != StatePlaybookRunning {
		return pmerrors.NewProtocolError(string(ev.Type()), string(c.state))
	}
	elapsed := int64(c.now().Sub(c.startTime).Seconds())
	c.run.SetPlaybookDuration(elapsed)
	c.state = StatePlaybookFinished
	if c.runSpan != nil {
		c.runSpan.SetAttributes(attribute.Int64("playbook.duration_seconds", elapsed))
		c.runSpan.End()
	}
	c.log.Infof("Playbook finished after %ds, writing metrics snapshot", elapsed)
	if c.snapshot != nil {
		if err := c.snapshot.Write(c.provider.Registry()); err != nil {
			// The run itself already completed; the failed side-channel
			// write is surfaced to the caller but never retried.
			return err
		}
	}
	return nil
}
