// Package config provides shared configuration types and the layered
// configuration loader. Precedence (highest to lowest):
// flags > environment variables > config file > defaults.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/veriq-labs/veriq/internal/adapter"
)

// TargetConfig holds database target configuration for the ephemeral
// relational view.
type TargetConfig struct {
	Type string `koanf:"type"` // duckdb
	Path string `koanf:"path"` // file path or :memory:
}

// Config holds the full runtime configuration.
type Config struct {
	// Data is the path to the dataset file (.csv or .json).
	Data string `koanf:"data"`
	// Suite is the path to the expectation suite file (.json or .yaml).
	Suite string `koanf:"suite"`

	// TableName is the alias custom SQL queries resolve the snapshot under.
	TableName string `koanf:"table_name"`
	// Workers bounds the evaluation pool (0 means one per rule, capped).
	Workers int `koanf:"workers"`
	// RuleTimeout is the per-rule evaluation timeout, as a duration string.
	RuleTimeout string `koanf:"rule_timeout"`

	// Sample enables snapshot sampling before validation.
	Sample bool `koanf:"sample"`
	// SampleSize is the number of rows kept when sampling.
	SampleSize int `koanf:"sample_size"`
	// SampleSeed seeds the sampling so repeated runs pick the same rows.
	SampleSeed int64 `koanf:"sample_seed"`

	// Output is an optional path for the validation run JSON report.
	Output string `koanf:"output"`
	// FailedRecords is an optional path for the failed-records CSV export.
	FailedRecords string `koanf:"failed_records"`

	// Verbose enables debug logging.
	Verbose bool `koanf:"verbose"`

	// Target selects and configures the database adapter.
	Target *TargetConfig `koanf:"target"`
}

// RuleTimeoutDuration parses the configured rule timeout.
func (c *Config) RuleTimeoutDuration() (time.Duration, error) {
	if c.RuleTimeout == "" {
		return 0, nil
	}
	d, err := time.ParseDuration(c.RuleTimeout)
	if err != nil {
		return 0, fmt.Errorf("invalid rule_timeout %q: %w", c.RuleTimeout, err)
	}
	if d <= 0 {
		return 0, fmt.Errorf("rule_timeout must be positive, got %q", c.RuleTimeout)
	}
	return d, nil
}

// AdapterConfig converts the target into an adapter configuration.
func (c *Config) AdapterConfig() adapter.Config {
	if c.Target == nil {
		return adapter.Config{Type: DefaultTargetType, Path: DefaultTargetPath}
	}
	return adapter.Config{Type: c.Target.Type, Path: c.Target.Path}
}

// Validate checks the target configuration against the adapter
// registry.
func (t *TargetConfig) Validate() error {
	if t == nil || t.Type == "" {
		return fmt.Errorf("target type is required")
	}
	if !adapter.IsRegistered(strings.ToLower(t.Type)) {
		return &adapter.UnknownAdapterError{
			Type:      t.Type,
			Available: adapter.List(),
		}
	}
	return nil
}
