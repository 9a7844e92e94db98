package metrics

import (
	"github.com/prometheus/client_golang/prometheus"

	"github.com/gxo-labs/playmetrics/pkg/playmetrics/v1/events"
)

// Metric family names, compatible with the node exporter textfile collector
// conventions used by existing dashboards.
const (
	familyRuntimeInfo      = "ansible_info"
	familyPlaybookInfo     = "ansible_playbook_info"
	familyPlaybookDuration = "ansible_playbook_duration_seconds"
	familyTasksDuration    = "ansible_tasks_duration_seconds"
	familyTasksStatus      = "ansible_tasks_status"
)

// RunMetrics holds the aggregation counters and gauges for a single run.
// All label values are treated as opaque strings; an empty play name is a
// valid, distinct series key. The underlying Prometheus vectors provide
// per-key atomicity, so concurrent result recording never loses increments.
type RunMetrics struct {
	runtimeInfo      *prometheus.GaugeVec
	playbookInfo     *prometheus.GaugeVec
	playbookDuration prometheus.Gauge
	tasksDuration    *prometheus.GaugeVec
	tasksStatus      *prometheus.GaugeVec
}

// NewRunMetrics creates the run's metric families and registers them with
// the given registry. Registration failures indicate duplicate construction
// against one registry and are programming errors, hence MustRegister.
func NewRunMetrics(registry *prometheus.Registry) *RunMetrics {
	m := &RunMetrics{
		runtimeInfo: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: familyRuntimeInfo,
			Help: "Information on the ansible runtime environment",
		}, []string{"version", "python_version"}),
		playbookInfo: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: familyPlaybookInfo,
			Help: "Information on the ansible playbook being executed",
		}, []string{"name"}),
		playbookDuration: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: familyPlaybookDuration,
			Help: "Time spend in seconds for ansible playbook to complete",
		}),
		tasksDuration: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: familyTasksDuration,
			Help: "Time spend in seconds executing ansible play tasks",
		}, []string{"play", "host"}),
		tasksStatus: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: familyTasksStatus,
			Help: "Cumulative number of task status of each ansible play",
		}, []string{"play", "host", "status"}),
	}
	registry.MustRegister(
		m.runtimeInfo,
		m.playbookInfo,
		m.playbookDuration,
		m.tasksDuration,
		m.tasksStatus,
	)
	return m
}

// RecordTaskStatus increments the status counter for the (play, host, status)
// series by one. Monotonic within a run, never reset.
func (m *RunMetrics) RecordTaskStatus(play, host string, status events.Status) {
	m.tasksStatus.WithLabelValues(play, host, string(status)).Inc()
}

// RecordTaskChanged increments the additional "changed" series for the
// (play, host) pair. It is layered on top of the primary status, not a
// replacement for it.
func (m *RunMetrics) RecordTaskChanged(play, host string) {
	m.tasksStatus.WithLabelValues(play, host, string(events.StatusChanged)).Inc()
}

// AccumulateTaskDuration adds seconds (truncated wall-clock elapsed, never
// negative) to the (play, host) duration gauge.
func (m *RunMetrics) AccumulateTaskDuration(play, host string, seconds int64) {
	if seconds < 0 {
		seconds = 0
	}
	m.tasksDuration.WithLabelValues(play, host).Add(float64(seconds))
}

// SetPlaybookDuration records the wall-clock span of the whole run. Called
// at most once, at run end.
func (m *RunMetrics) SetPlaybookDuration(seconds int64) {
	if seconds < 0 {
		seconds = 0
	}
	m.playbookDuration.Set(float64(seconds))
}

// SetPlaybookInfo records the playbook name as a labeled info series.
func (m *RunMetrics) SetPlaybookInfo(name string) {
	m.playbookInfo.WithLabelValues(name).Set(1)
}

// SetRuntimeInfo records runtime and interpreter environment versions as a
// labeled info series. Present for operator context, never aggregated.
func (m *RunMetrics) SetRuntimeInfo(runtimeVersion, environmentVersion string) {
	m.runtimeInfo.WithLabelValues(runtimeVersion, environmentVersion).Set(1)
}
