package config

import (
	"fmt"
	"os"
	"strings"

	"golang.org/x/mod/semver"
	"gopkg.in/yaml.v3"

	pmerrors "github.com/gxo-labs/playmetrics/pkg/playmetrics/v1/errors"
)

// SupportedSchemaVersionConstraint defines the major schema version this
// collector accepts in configuration files.
const SupportedSchemaVersionConstraint = "v1"

// fileConfig is the on-disk YAML shape. The three toggles accept either a
// YAML boolean or a free-form string; both go through the permissive boolean
// coercion.
type fileConfig struct {
	SchemaVersion     string      `yaml:"schemaVersion"`
	OutputFile        string      `yaml:"output_file,omitempty"`
	FailOnChange      interface{} `yaml:"fail_on_change,omitempty"`
	FailOnIgnore      interface{} `yaml:"fail_on_ignore,omitempty"`
	IncludeSetupTasks interface{} `yaml:"include_setup_tasks,omitempty"`
	LogLevel          string      `yaml:"log_level,omitempty"`
	LogFormat         string      `yaml:"log_format,omitempty"`
}

// Load parses, schema-validates and version-checks a configuration document,
// returning the defaults overlaid with its contents.
func Load(configYAML []byte, filePathHint string) (Config, error) {
	cfg := Default()
	if len(configYAML) == 0 {
		return cfg, pmerrors.NewConfigError("configuration content cannot be empty", nil)
	}

	// Step 1: Validate against the JSON Schema for basic structure and types.
	if err := ValidateWithSchema(configYAML); err != nil {
		return cfg, pmerrors.NewConfigError(fmt.Sprintf("configuration '%s' failed schema validation", filePathHint), err)
	}

	// Step 2: Unmarshal using strict decoding to catch unknown fields.
	var fc fileConfig
	if err := yamlUnmarshalStrict(configYAML, &fc); err != nil {
		return cfg, pmerrors.NewConfigError(fmt.Sprintf("failed to parse configuration YAML '%s'", filePathHint), err)
	}

	// Step 3: Check schema version compatibility.
	if fc.SchemaVersion == "" {
		return cfg, pmerrors.NewValidationError(fmt.Sprintf("configuration '%s' is missing required 'schemaVersion' field", filePathHint), nil)
	}
	schemaSemVer := fc.SchemaVersion
	if !strings.HasPrefix(schemaSemVer, "v") {
		schemaSemVer = "v" + schemaSemVer
	}
	if !semver.IsValid(schemaSemVer) {
		return cfg, pmerrors.NewValidationError(fmt.Sprintf("configuration '%s' has invalid 'schemaVersion' format: '%s'", filePathHint, fc.SchemaVersion), nil)
	}
	if semver.Major(schemaSemVer) != SupportedSchemaVersionConstraint {
		return cfg, pmerrors.NewValidationError(
			fmt.Sprintf("configuration '%s' schemaVersion '%s' is not compatible with requirement '%s'",
				filePathHint, fc.SchemaVersion, SupportedSchemaVersionConstraint),
			nil,
		)
	}

	// Step 4: Overlay file values onto the defaults.
	if fc.OutputFile != "" {
		cfg.OutputFile = fc.OutputFile
	}
	if fc.FailOnChange != nil {
		cfg.FailOnChange = coerceBool(fc.FailOnChange)
	}
	if fc.FailOnIgnore != nil {
		cfg.FailOnIgnore = coerceBool(fc.FailOnIgnore)
	}
	if fc.IncludeSetupTasks != nil {
		cfg.IncludeSetupTasks = coerceBool(fc.IncludeSetupTasks)
	}
	if fc.LogLevel != "" {
		cfg.LogLevel = fc.LogLevel
	}
	if fc.LogFormat != "" {
		cfg.LogFormat = fc.LogFormat
	}
	return cfg, nil
}

// LoadFromFile is a convenience function to read a configuration from disk.
func LoadFromFile(filePath string) (Config, error) {
	if filePath == "" {
		return Default(), pmerrors.NewConfigError("configuration file path cannot be empty", nil)
	}
	content, err := os.ReadFile(filePath)
	if err != nil {
		return Default(), pmerrors.NewConfigError(fmt.Sprintf("failed to read configuration file '%s'", filePath), err)
	}
	return Load(content, filePath)
}

// coerceBool applies the permissive boolean interpretation to a YAML value
// that may already be a bool or a free-form string.
func coerceBool(value interface{}) bool {
	switch v := value.(type) {
	case bool:
		return v
	case string:
		return ParseBool(v)
	default:
		return false
	}
}

// yamlUnmarshalStrict decodes YAML while rejecting fields unknown to the
// target struct, so typos in option names surface as errors instead of being
// silently dropped.
func yamlUnmarshalStrict(in []byte, out interface{}) error {
	dec := yaml.NewDecoder(strings.NewReader(string(in)))
	dec.KnownFields(true)
	if err := dec.Decode(out); err != nil {
		return err
	}
	return nil
}
