package collector_test

import (
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gxo-labs/playmetrics/internal/collector"
	"github.com/gxo-labs/playmetrics/internal/config"
	"github.com/gxo-labs/playmetrics/internal/logger"
	"github.com/gxo-labs/playmetrics/internal/metrics"
	"github.com/gxo-labs/playmetrics/internal/textfile"
	pmerrors "github.com/gxo-labs/playmetrics/pkg/playmetrics/v1/errors"
	"github.com/gxo-labs/playmetrics/pkg/playmetrics/v1/events"
)

func setupCollector(t *testing.T, cfg config.Config, snapshot textfile.Snapshotter, opts ...collector.Option) (*collector.Collector, *prometheus.Registry) {
	t.Helper()
	log := logger.NewLogger("debug", "text", os.Stderr)
	provider := metrics.NewPrometheusRegistryProvider()
	coll := collector.New(cfg, provider, snapshot, log, opts...)
	return coll, provider.Registry()
}

func statusValue(t *testing.T, reg *prometheus.Registry, play, host, status string) float64 {
	t.Helper()
	return gaugeValue(t, reg, "ansible_tasks_status", map[string]string{"play": play, "host": host, "status": status})
}

func gaugeValue(t *testing.T, reg *prometheus.Registry, family string, want map[string]string) float64 {
	t.Helper()
	families, err := reg.Gather()
	require.NoError(t, err)
	for _, mf := range families {
		if mf.GetName() != family {
			continue
		}
		for _, m := range mf.GetMetric() {
			labels := map[string]string{}
			for _, lp := range m.GetLabel() {
				labels[lp.GetName()] = lp.GetValue()
			}
			matches := true
			for k, v := range want {
				if labels[k] != v {
					matches = false
					break
				}
			}
			if matches {
				return m.GetGauge().GetValue()
			}
		}
	}
	return 0
}

func runTask(t *testing.T, coll *collector.Collector, id, action string, result events.TaskResult) {
	t.Helper()
	require.NoError(t, coll.Handle(events.TaskStart{TaskID: id, Action: action}))
	result.TaskID = id
	require.NoError(t, coll.Handle(result))
}

func TestCollector_EndToEndSnapshot(t *testing.T) {
	dest := filepath.Join(t.TempDir(), "ansible.prom")
	cfg := config.Default()
	cfg.OutputFile = dest
	coll, _ := setupCollector(t, cfg, textfile.NewWriter(dest))

	require.NoError(t, coll.Handle(events.PlaybookStart{FileName: "playbooks/site.yml"}))
	require.NoError(t, coll.Handle(events.PlayStart{Name: "site"}))
	runTask(t, coll, "t1", "debug", events.TaskResult{Host: "h1", Status: events.StatusOK})
	require.NoError(t, coll.Handle(events.PlaybookStats{}))

	assert.Equal(t, collector.StatePlaybookFinished, coll.State())

	content, err := os.ReadFile(dest)
	require.NoError(t, err)
	text := string(content)
	assert.Contains(t, text, `ansible_tasks_status{host="h1",play="site",status="ok"} 1`)
	assert.Contains(t, text, `ansible_playbook_info{name="site.yml"} 1`)
	assert.Contains(t, text, "ansible_playbook_duration_seconds 0")
}

func TestCollector_PlaybookDurationFromClock(t *testing.T) {
	clock := newStubClock(time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC))
	coll, reg := setupCollector(t, config.Default(), nil, collector.WithClock(clock.Now))

	require.NoError(t, coll.Handle(events.PlaybookStart{FileName: "site.yml"}))
	clock.Advance(2*time.Minute + 5*time.Second)
	require.NoError(t, coll.Handle(events.PlaybookStats{}))

	assert.Equal(t, 125.0, gaugeValue(t, reg, "ansible_playbook_duration_seconds", nil))
}

func TestCollector_TaskDurationAccumulates(t *testing.T) {
	clock := newStubClock(time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC))
	coll, reg := setupCollector(t, config.Default(), nil, collector.WithClock(clock.Now))

	require.NoError(t, coll.Handle(events.PlaybookStart{FileName: "site.yml"}))
	require.NoError(t, coll.Handle(events.PlayStart{Name: "site"}))
	require.NoError(t, coll.Handle(events.TaskStart{TaskID: "t1", Action: "command"}))
	clock.Advance(3500 * time.Millisecond)
	require.NoError(t, coll.Handle(events.TaskResult{TaskID: "t1", Host: "h1", Status: events.StatusOK}))
	require.NoError(t, coll.Handle(events.TaskResult{TaskID: "t1", Host: "h2", Status: events.StatusOK}))

	// Elapsed wall-clock is truncated to whole seconds per host.
	assert.Equal(t, 3.0, gaugeValue(t, reg, "ansible_tasks_duration_seconds", map[string]string{"play": "site", "host": "h1"}))
	assert.Equal(t, 3.0, gaugeValue(t, reg, "ansible_tasks_duration_seconds", map[string]string{"play": "site", "host": "h2"}))
}

func TestCollector_ChangedIsAdditive(t *testing.T) {
	coll, reg := setupCollector(t, config.Default(), nil)

	require.NoError(t, coll.Handle(events.PlaybookStart{FileName: "site.yml"}))
	require.NoError(t, coll.Handle(events.PlayStart{Name: "site"}))
	runTask(t, coll, "t1", "copy", events.TaskResult{Host: "h1", Status: events.StatusOK, Changed: true})

	assert.Equal(t, 1.0, statusValue(t, reg, "site", "h1", "ok"))
	assert.Equal(t, 1.0, statusValue(t, reg, "site", "h1", "changed"))
}

func TestCollector_IgnoredFailureBecomesOKAndKeepsChanged(t *testing.T) {
	coll, reg := setupCollector(t, config.Default(), nil)

	require.NoError(t, coll.Handle(events.PlaybookStart{FileName: "site.yml"}))
	require.NoError(t, coll.Handle(events.PlayStart{Name: "site"}))
	runTask(t, coll, "t1", "command", events.TaskResult{
		Host: "h1", Status: events.StatusFailed, Changed: true, IgnoreErrors: true,
	})

	assert.Equal(t, 1.0, statusValue(t, reg, "site", "h1", "ok"))
	assert.Equal(t, 0.0, statusValue(t, reg, "site", "h1", "failed"))
	assert.Equal(t, 1.0, statusValue(t, reg, "site", "h1", "changed"),
		"changed increment is independent of the failed-to-ok reclassification")
}

func TestCollector_FailOnChangeReclassifies(t *testing.T) {
	cfg := config.Default()
	cfg.FailOnChange = true
	coll, reg := setupCollector(t, cfg, nil)

	require.NoError(t, coll.Handle(events.PlaybookStart{FileName: "site.yml"}))
	require.NoError(t, coll.Handle(events.PlayStart{Name: "site"}))
	runTask(t, coll, "t1", "copy", events.TaskResult{Host: "h1", Status: events.StatusOK, Changed: true})

	assert.Equal(t, 1.0, statusValue(t, reg, "site", "h1", "failed"))
	assert.Equal(t, 0.0, statusValue(t, reg, "site", "h1", "ok"))
	assert.Equal(t, 1.0, statusValue(t, reg, "site", "h1", "changed"))
}

func TestCollector_UnknownTaskResult(t *testing.T) {
	coll, _ := setupCollector(t, config.Default(), nil)

	require.NoError(t, coll.Handle(events.PlaybookStart{FileName: "site.yml"}))
	err := coll.Handle(events.TaskResult{TaskID: "never-started", Host: "h1", Status: events.StatusOK})
	require.Error(t, err)
	assert.True(t, pmerrors.IsUnknownTask(err))
}

func TestCollector_SetupTasksExcluded(t *testing.T) {
	cfg := config.Default()
	cfg.IncludeSetupTasks = false
	coll, reg := setupCollector(t, cfg, nil)

	require.NoError(t, coll.Handle(events.PlaybookStart{FileName: "site.yml"}))
	require.NoError(t, coll.Handle(events.PlayStart{Name: "site"}))
	runTask(t, coll, "t1", "setup", events.TaskResult{Host: "h1", Status: events.StatusOK, Changed: true})

	assert.Equal(t, 0.0, statusValue(t, reg, "site", "h1", "ok"))
	assert.Equal(t, 0.0, statusValue(t, reg, "site", "h1", "changed"))
	assert.Equal(t, 0.0, gaugeValue(t, reg, "ansible_tasks_duration_seconds", map[string]string{"play": "site", "host": "h1"}))
}

func TestCollector_SetupTasksIncludedByDefault(t *testing.T) {
	coll, reg := setupCollector(t, config.Default(), nil)

	require.NoError(t, coll.Handle(events.PlaybookStart{FileName: "site.yml"}))
	require.NoError(t, coll.Handle(events.PlayStart{Name: "site"}))
	runTask(t, coll, "t1", "setup", events.TaskResult{Host: "h1", Status: events.StatusOK})

	assert.Equal(t, 1.0, statusValue(t, reg, "site", "h1", "ok"))
}

func TestCollector_EmptyPlayName(t *testing.T) {
	coll, reg := setupCollector(t, config.Default(), nil)

	// Task starts before any play start; the empty play name is a valid,
	// distinct series key.
	require.NoError(t, coll.Handle(events.PlaybookStart{FileName: "site.yml"}))
	runTask(t, coll, "t1", "debug", events.TaskResult{Host: "h1", Status: events.StatusOK})

	assert.Equal(t, 1.0, statusValue(t, reg, "", "h1", "ok"))
}

func TestCollector_ConcurrentResultsSameKey(t *testing.T) {
	coll, reg := setupCollector(t, config.Default(), nil)

	require.NoError(t, coll.Handle(events.PlaybookStart{FileName: "site.yml"}))
	require.NoError(t, coll.Handle(events.PlayStart{Name: "site"}))
	require.NoError(t, coll.Handle(events.TaskStart{TaskID: "t1", Action: "debug"}))

	const workers = 16
	const perWorker = 100
	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < perWorker; j++ {
				assert.NoError(t, coll.Handle(events.TaskResult{TaskID: "t1", Host: "h1", Status: events.StatusOK}))
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, float64(workers*perWorker), statusValue(t, reg, "site", "h1", "ok"))
}

func TestCollector_ProtocolViolations(t *testing.T) {
	coll, _ := setupCollector(t, config.Default(), nil)

	// Nothing but PlaybookStart is valid while idle.
	err := coll.Handle(events.PlayStart{Name: "site"})
	require.Error(t, err)
	var protoErr *pmerrors.ProtocolError
	require.ErrorAs(t, err, &protoErr)
	assert.Equal(t, string(collector.StateIdle), protoErr.State)

	require.NoError(t, coll.Handle(events.PlaybookStart{FileName: "site.yml"}))

	// A second start is a violation; the coordinator is single-use.
	require.Error(t, coll.Handle(events.PlaybookStart{FileName: "site.yml"}))

	require.NoError(t, coll.Handle(events.PlaybookStats{}))

	// The finished state is terminal.
	err = coll.Handle(events.PlayStart{Name: "late"})
	require.ErrorAs(t, err, &protoErr)
	assert.Equal(t, string(collector.StatePlaybookFinished), protoErr.State)
}

func TestCollector_SnapshotWriteFailureSurfaced(t *testing.T) {
	dest := filepath.Join(t.TempDir(), "missing-subdir", "ansible.prom")
	coll, _ := setupCollector(t, config.Default(), textfile.NewWriter(dest))

	require.NoError(t, coll.Handle(events.PlaybookStart{FileName: "site.yml"}))
	err := coll.Handle(events.PlaybookStats{})
	require.Error(t, err)
	assert.True(t, pmerrors.IsWriteError(err))
	// The run is still over; the failed write does not reopen it.
	assert.Equal(t, collector.StatePlaybookFinished, coll.State())
}

func TestCollector_DisabledIsNoOp(t *testing.T) {
	log := logger.NewLogger("debug", "text", os.Stderr)
	coll := collector.New(config.Default(), nil, nil, log)

	require.True(t, coll.Disabled())
	assert.NoError(t, coll.Handle(events.PlaybookStart{FileName: "site.yml"}))
	assert.NoError(t, coll.Handle(events.TaskResult{TaskID: "never-started", Host: "h1", Status: events.StatusOK}))
	assert.NoError(t, coll.Handle(events.PlaybookStats{}))
}

type stubClock struct {
	mu  sync.Mutex
	now time.Time
}

func newStubClock(start time.Time) *stubClock {
	return &stubClock{now: start}
}

func (c *stubClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *stubClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}
