package config

import (
	"runtime"

	"go.uber.org/zap/zapcore"

	"github.com/ajitpratap0/oganesson/pkg/compression"
	"github.com/ajitpratap0/oganesson/pkg/errors"
	"github.com/ajitpratap0/oganesson/pkg/logger"
	"github.com/ajitpratap0/oganesson/pkg/observability"
	"github.com/ajitpratap0/oganesson/pkg/pool"
)

// PoolConfig describes one pool together with the ambient settings of the
// process that runs it.
type PoolConfig struct {
	// Name labels logs, metrics and spans
	Name string `yaml:"name" json:"name"`
	// Size is the number of instances created up front
	Size int `yaml:"size" json:"size"`
	// Policy decides what happens when every instance is checked out
	Policy pool.Policy `yaml:"policy" json:"policy"`

	Compression CompressionConfig           `yaml:"compression" json:"compression"`
	Metrics     MetricsConfig               `yaml:"metrics" json:"metrics"`
	Logging     logger.Config               `yaml:"logging" json:"logging"`
	Tracing     observability.TracingConfig `yaml:"tracing" json:"tracing"`
	Benchmark   BenchmarkConfig             `yaml:"benchmark" json:"benchmark"`
}

// CompressionConfig selects the codec held by a compressor pool.
type CompressionConfig struct {
	Algorithm  string `yaml:"algorithm" json:"algorithm"`
	Level      string `yaml:"level" json:"level"`
	BufferSize int    `yaml:"buffer_size" json:"buffer_size"`
	ChunkSize  int    `yaml:"chunk_size" json:"chunk_size"`
}

// MetricsConfig controls Prometheus collection.
type MetricsConfig struct {
	Enabled   bool   `yaml:"enabled" json:"enabled"`
	Namespace string `yaml:"namespace" json:"namespace"`
	// Address serves /metrics when non-empty, e.g. ":9090"
	Address string `yaml:"address" json:"address"`
}

// BenchmarkConfig drives the load generator in cmd/poolbench.
type BenchmarkConfig struct {
	Workers     int `yaml:"workers" json:"workers"`
	Iterations  int `yaml:"iterations" json:"iterations"`
	PayloadSize int `yaml:"payload_size" json:"payload_size"`
}

// DefaultPoolConfig returns a configuration that works out of the box: a
// Dynamic pool of one zstd compressor per CPU.
func DefaultPoolConfig() *PoolConfig {
	return &PoolConfig{
		Name:   "default",
		Size:   runtime.NumCPU(),
		Policy: pool.Dynamic,
		Compression: CompressionConfig{
			Algorithm:  string(compression.Zstd),
			Level:      "default",
			BufferSize: 64 * 1024,
			ChunkSize:  1024 * 1024,
		},
		Metrics: MetricsConfig{
			Enabled:   true,
			Namespace: "oganesson",
		},
		Logging: logger.DefaultConfig(),
		Tracing: observability.DefaultTracingConfig(),
		Benchmark: BenchmarkConfig{
			Workers:     runtime.NumCPU(),
			Iterations:  1000,
			PayloadSize: 64 * 1024,
		},
	}
}

// Validate checks required fields and value ranges. It returns the first
// problem found as an ErrorTypeValidation error naming the field.
func (c *PoolConfig) Validate() error {
	if c.Name == "" {
		return invalid("name", c.Name, "name is required")
	}
	if c.Size < 0 {
		return invalid("size", c.Size, "size cannot be negative")
	}
	if _, err := c.Policy.MarshalText(); err != nil {
		return invalid("policy", c.Policy, err.Error())
	}
	if c.Policy == pool.Static && c.Size == 0 {
		return invalid("size", c.Size, "a static pool needs at least one instance")
	}
	if _, err := c.CompressorConfig(); err != nil {
		return err
	}
	if c.Metrics.Enabled && c.Metrics.Namespace == "" {
		return invalid("metrics.namespace", c.Metrics.Namespace, "namespace is required when metrics are enabled")
	}
	if c.Logging.Level != "" {
		if _, err := zapcore.ParseLevel(c.Logging.Level); err != nil {
			return invalid("logging.level", c.Logging.Level, "unknown log level")
		}
	}
	if c.Tracing.SamplingRate < 0 || c.Tracing.SamplingRate > 1 {
		return invalid("tracing.sampling_rate", c.Tracing.SamplingRate, "sampling rate must be within [0, 1]")
	}
	if c.Benchmark.Workers <= 0 {
		return invalid("benchmark.workers", c.Benchmark.Workers, "workers must be positive")
	}
	if c.Benchmark.Iterations < 0 {
		return invalid("benchmark.iterations", c.Benchmark.Iterations, "iterations cannot be negative")
	}
	if c.Benchmark.PayloadSize < 0 {
		return invalid("benchmark.payload_size", c.Benchmark.PayloadSize, "payload size cannot be negative")
	}
	return nil
}

// CompressorConfig converts the compression section, together with the
// pool size and policy, into a compression.Config.
func (c *PoolConfig) CompressorConfig() (*compression.Config, error) {
	algorithm, err := compression.ParseAlgorithm(c.Compression.Algorithm)
	if err != nil {
		return nil, invalid("compression.algorithm", c.Compression.Algorithm, err.Error())
	}
	level, err := compression.ParseLevel(c.Compression.Level)
	if err != nil {
		return nil, invalid("compression.level", c.Compression.Level, err.Error())
	}
	if c.Compression.BufferSize < 0 {
		return nil, invalid("compression.buffer_size", c.Compression.BufferSize, "buffer size cannot be negative")
	}
	if c.Compression.ChunkSize < 0 {
		return nil, invalid("compression.chunk_size", c.Compression.ChunkSize, "chunk size cannot be negative")
	}

	return &compression.Config{
		Algorithm:   algorithm,
		Level:       level,
		BufferSize:  c.Compression.BufferSize,
		Concurrency: c.Size,
		Policy:      c.Policy,
		ChunkSize:   c.Compression.ChunkSize,
	}, nil
}

func invalid(field string, value interface{}, msg string) error {
	return errors.New(errors.ErrorTypeValidation, msg).
		WithDetail("field", field).
		WithDetail("value", value)
}
