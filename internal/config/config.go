package config

import (
	"strings"
)

// Default values for collector options.
const (
	DefaultOutputFile = "/var/lib/prometheus/node_exporter/ansible.prom"
	DefaultLogLevel   = "info"
	DefaultLogFormat  = "text"
)

// Environment variable names recognized by ApplyEnv. They mirror the options
// of the original callback plugin so existing deployments keep working.
const (
	EnvOutputFile        = "PROMETHEUS_OUTPUT_FILE"
	EnvFailOnChange      = "PROMETHEUS_FAIL_ON_CHANGE"
	EnvFailOnIgnore      = "PROMETHEUS_FAIL_ON_IGNORE"
	EnvIncludeSetupTasks = "PROMETHEUS_INCLUDE_SETUP_TASKS"
	EnvLogLevel          = "PROMETHEUS_LOG_LEVEL"
	EnvLogFormat         = "PROMETHEUS_LOG_FORMAT"
)

// Config is the collector configuration, constructed once at startup and
// injected into the core. The core itself never reads the environment.
type Config struct {
	// OutputFile is the textfile collector destination for the snapshot.
	OutputFile string
	// FailOnChange counts tasks reporting "changed" as failures.
	FailOnChange bool
	// FailOnIgnore counts failed tasks as failures even when the task was
	// marked to ignore errors.
	FailOnIgnore bool
	// IncludeSetupTasks includes the setup task category in the report.
	IncludeSetupTasks bool
	// LogLevel and LogFormat configure the host process logger.
	LogLevel  string
	LogFormat string
}

// Default returns the configuration with all options at their defaults.
func Default() Config {
	return Config{
		OutputFile:        DefaultOutputFile,
		FailOnChange:      false,
		FailOnIgnore:      false,
		IncludeSetupTasks: true,
		LogLevel:          DefaultLogLevel,
		LogFormat:         DefaultLogFormat,
	}
}

// LookupFunc resolves an environment variable, reporting whether it is set.
// os.LookupEnv satisfies it.
type LookupFunc func(key string) (string, bool)

// ApplyEnv overrides options from the environment. Unset variables leave the
// current value untouched. Boolean values are parsed permissively.
func (c *Config) ApplyEnv(lookup LookupFunc) {
	if v, ok := lookup(EnvOutputFile); ok && v != "" {
		c.OutputFile = v
	}
	if v, ok := lookup(EnvFailOnChange); ok {
		c.FailOnChange = ParseBool(v)
	}
	if v, ok := lookup(EnvFailOnIgnore); ok {
		c.FailOnIgnore = ParseBool(v)
	}
	if v, ok := lookup(EnvIncludeSetupTasks); ok {
		c.IncludeSetupTasks = ParseBool(v)
	}
	if v, ok := lookup(EnvLogLevel); ok && v != "" {
		c.LogLevel = v
	}
	if v, ok := lookup(EnvLogFormat); ok && v != "" {
		c.LogFormat = v
	}
}

// ParseBool converts a free-form configuration string to a boolean.
// "true", "1", "yes" and "on" (case-insensitive, trimmed) are true; any
// other value, including invalid input, is the falsy interpretation rather
// than an error.
func ParseBool(value string) bool {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "true", "1", "yes", "on":
		return true
	default:
		return false
	}
}
