package config_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/gxo-labs/playmetrics/internal/config"
)

func TestDefault(t *testing.T) {
	cfg := config.Default()
	assert.Equal(t, "/var/lib/prometheus/node_exporter/ansible.prom", cfg.OutputFile)
	assert.False(t, cfg.FailOnChange)
	assert.False(t, cfg.FailOnIgnore)
	assert.True(t, cfg.IncludeSetupTasks)
	assert.Equal(t, "info", cfg.LogLevel)
	assert.Equal(t, "text", cfg.LogFormat)
}

func TestParseBool_Permissive(t *testing.T) {
	truthy := []string{"true", "True", "TRUE", "1", "yes", "YES", "on", " true "}
	for _, v := range truthy {
		assert.True(t, config.ParseBool(v), "expected %q to parse true", v)
	}
	falsy := []string{"false", "False", "0", "no", "off", "", "banana", "truee"}
	for _, v := range falsy {
		assert.False(t, config.ParseBool(v), "expected %q to parse false", v)
	}
}

func TestApplyEnv(t *testing.T) {
	env := map[string]string{
		config.EnvOutputFile:        "/tmp/metrics/out.prom",
		config.EnvFailOnChange:      "true",
		config.EnvFailOnIgnore:      "not-a-bool",
		config.EnvIncludeSetupTasks: "false",
		config.EnvLogLevel:          "debug",
	}
	lookup := func(key string) (string, bool) {
		v, ok := env[key]
		return v, ok
	}

	cfg := config.Default()
	cfg.ApplyEnv(lookup)

	assert.Equal(t, "/tmp/metrics/out.prom", cfg.OutputFile)
	assert.True(t, cfg.FailOnChange)
	assert.False(t, cfg.FailOnIgnore, "invalid boolean strings take the falsy interpretation")
	assert.False(t, cfg.IncludeSetupTasks)
	assert.Equal(t, "debug", cfg.LogLevel)
	assert.Equal(t, "text", cfg.LogFormat, "unset variables leave the current value untouched")
}

func TestApplyEnv_UnsetLeavesDefaults(t *testing.T) {
	cfg := config.Default()
	cfg.ApplyEnv(func(string) (string, bool) { return "", false })
	assert.Equal(t, config.Default(), cfg)
}
