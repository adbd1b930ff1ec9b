// Package config loads and hot-reloads the YAML configuration for a
// creditstream deployment: buffer budgets, hardware acceleration flags,
// audit sink settings, and metrics labeling — the same struct-of-structs
// shape the gateway this module grew out of uses for its own config.
package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// HardwareConfig controls whether AES hardware acceleration is reported
// as active, independent of whether the CPU actually supports it; see
// cipher.IsHardwareAccelerationEnabled.
type HardwareConfig struct {
	EnableAESNI    bool `yaml:"enable_aesni"`
	EnableARMv8AES bool `yaml:"enable_armv8_aes"`
}

// SinkConfig configures where audit events are written.
type SinkConfig struct {
	Type          string            `yaml:"type"` // "stdout", "file", or "http"
	Endpoint      string            `yaml:"endpoint,omitempty"`
	Headers       map[string]string `yaml:"headers,omitempty"`
	FilePath      string            `yaml:"file_path,omitempty"`
	BatchSize     int               `yaml:"batch_size,omitempty"`
	FlushInterval time.Duration     `yaml:"flush_interval,omitempty"`
	RetryCount    int               `yaml:"retry_count,omitempty"`
	RetryBackoff  time.Duration     `yaml:"retry_backoff,omitempty"`
}

// AuditConfig controls the session lifecycle audit trail.
type AuditConfig struct {
	Enabled             bool     `yaml:"enabled"`
	MaxEvents           int      `yaml:"max_events"`
	RedactMetadataKeys  []string `yaml:"redact_metadata_keys,omitempty"`
	Sink                SinkConfig `yaml:"sink"`
}

// MetricsConfig is stored on metrics.Metrics. No exported metric carries a
// bucket label, so EnableBucketLabel does not change any exported series.
type MetricsConfig struct {
	EnableBucketLabel bool `yaml:"enable_bucket_label"`
}

// DebugConfig controls which workers get verbose trace logging, matched
// by glob against the worker's debug name.
type DebugConfig struct {
	TraceWorkerGlobs []string `yaml:"trace_worker_globs,omitempty"`
}

// BufferConfig holds the credit protocol's default buffer budget, which the
// demo gateway passes to NewByteStream. AckUnitMin is loaded but not read
// by creditstream, whose ack_unit floor is fixed at 2.
type BufferConfig struct {
	DefaultBudgetBytes int `yaml:"default_budget_bytes"`
	AckUnitMin         int `yaml:"ack_unit_min"`
}

// StreamConfig is the top-level configuration document for a
// creditstream deployment.
type StreamConfig struct {
	Buffer  BufferConfig  `yaml:"buffer"`
	Hardware HardwareConfig `yaml:"hardware"`
	Audit   AuditConfig   `yaml:"audit"`
	Metrics MetricsConfig `yaml:"metrics"`
	Debug   DebugConfig   `yaml:"debug"`
}

// Default returns the configuration used when no file is supplied.
func Default() *StreamConfig {
	return &StreamConfig{
		Buffer: BufferConfig{
			DefaultBudgetBytes: 64 * 1024,
			AckUnitMin:         2,
		},
		Hardware: HardwareConfig{
			EnableAESNI:    true,
			EnableARMv8AES: true,
		},
		Audit: AuditConfig{
			Enabled:   true,
			MaxEvents: 10000,
			Sink:      SinkConfig{Type: "stdout"},
		},
		Metrics: MetricsConfig{
			EnableBucketLabel: true,
		},
	}
}

// Load reads and parses a StreamConfig from the YAML file at path.
func Load(path string) (*StreamConfig, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config: read %s: %w", path, err)
	}

	cfg := Default()
	if err := yaml.Unmarshal(raw, cfg); err != nil {
		return nil, fmt.Errorf("config: parse %s: %w", path, err)
	}
	return cfg, nil
}

// Clone returns a deep-enough copy of cfg suitable for handing to a
// worker that must not observe later hot-reloads of the live config —
// every field referenced by creditstream/cipher is a value type or a
// freshly allocated slice/map, so a shallow struct copy plus explicit
// slice/map copies is sufficient.
func (c *StreamConfig) Clone() *StreamConfig {
	clone := *c
	if c.Debug.TraceWorkerGlobs != nil {
		clone.Debug.TraceWorkerGlobs = append([]string(nil), c.Debug.TraceWorkerGlobs...)
	}
	if c.Audit.RedactMetadataKeys != nil {
		clone.Audit.RedactMetadataKeys = append([]string(nil), c.Audit.RedactMetadataKeys...)
	}
	if c.Audit.Sink.Headers != nil {
		clone.Audit.Sink.Headers = make(map[string]string, len(c.Audit.Sink.Headers))
		for k, v := range c.Audit.Sink.Headers {
			clone.Audit.Sink.Headers[k] = v
		}
	}
	return &clone
}
