// Package config defines the engine-wide configuration surface: worker count, the nested-circuit
// iteration cap, strict input validation, and the trace compaction interval.
package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Config holds the engine's tunables. Default returns the documented defaults, and Load starts
// from them and overrides only the fields the file sets, so a caller who only cares about
// overriding one field can leave the rest out of the file. A numeric field the file sets to zero
// is kept as zero, not replaced by its default, and Validate then rejects it.
type Config struct {
	// Workers is the number of circuit replicas sharing the data-parallel partition. Default 1.
	Workers int `yaml:"workers"`
	// IterationCap bounds a nested circuit's fixed-point iterations before it is reported as
	// diverged. Default 10000.
	IterationCap int `yaml:"iterationCap"`
	// StrictInputValidation makes the change manager reject a delta that deletes more copies
	// of a document than are known to be present. Default false.
	StrictInputValidation bool `yaml:"strictInputValidation"`
	// TraceCompactionInterval is how many ticks elapse between trace-storage compaction
	// passes. Default 16.
	TraceCompactionInterval int `yaml:"traceCompactionInterval"`
}

// Default returns the documented default configuration.
func Default() Config {
	return Config{
		Workers:                 1,
		IterationCap:            10_000,
		StrictInputValidation:   false,
		TraceCompactionInterval: 16,
	}
}

// Load reads a YAML configuration file, starting from Default and overriding only the fields the
// file sets.
func Load(path string) (Config, error) {
	cfg := Default()
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("config: read %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("config: parse %s: %w", path, err)
	}
	return cfg, cfg.Validate()
}

// Validate rejects configuration values that cannot correspond to a running engine.
func (c Config) Validate() error {
	if c.Workers < 1 {
		return fmt.Errorf("config: workers must be at least 1, got %d", c.Workers)
	}
	if c.IterationCap < 1 {
		return fmt.Errorf("config: iterationCap must be at least 1, got %d", c.IterationCap)
	}
	if c.TraceCompactionInterval < 1 {
		return fmt.Errorf("config: traceCompactionInterval must be at least 1, got %d", c.TraceCompactionInterval)
	}
	return nil
}
