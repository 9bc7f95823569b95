// Package config loads workmill configuration from config files and
// command-line flags, with flags taking precedence.
package config

import (
	"fmt"
	"time"
)

// TracingConfig controls OTLP span export.
type TracingConfig struct {
	ServiceName string
	Endpoint    string
	Protocol    string // "grpc" or "http"
	SampleRate  float64
	Insecure    bool
}

// Enabled reports whether spans should be exported.
func (t TracingConfig) Enabled() bool {
	return t.Endpoint != ""
}

// Config is the fully-resolved CLI configuration.
type Config struct {
	BatchFile   string
	Concurrency int
	Tolerance   int // negative disables the abort policy
	Rate        int
	Timeout     time.Duration
	Retries     int
	Verbose     bool
	JSONOutput  bool
	OutputFile  string
	Tracing     TracingConfig
	ConfigFile  string
}

// Validate checks the resolved configuration.
func (c *Config) Validate() error {
	if c.BatchFile == "" {
		return fmt.Errorf("a batch file is required (--batch)")
	}
	if c.Concurrency < 1 {
		return fmt.Errorf("concurrency must be at least 1, got %d", c.Concurrency)
	}
	if c.Rate < 0 {
		return fmt.Errorf("rate must not be negative, got %d", c.Rate)
	}
	if c.Timeout <= 0 {
		return fmt.Errorf("timeout must be positive, got %s", c.Timeout)
	}
	if c.Retries < 0 {
		return fmt.Errorf("retries must not be negative, got %d", c.Retries)
	}
	if c.Tracing.SampleRate < 0 || c.Tracing.SampleRate > 1.0 {
		return fmt.Errorf("tracing sample rate must be between 0.0 and 1.0, got %g", c.Tracing.SampleRate)
	}
	return nil
}
