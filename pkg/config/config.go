// Package config provides the unified configuration system for Quasar.
// It defines a single EngineConfig structure organized into logical
// sections: device placement, memory management, logging, and
// observability.
package config

import (
	"fmt"
)

// EngineConfig is the single configuration structure the engine uses.
type EngineConfig struct {
	// Name identifies the engine instance
	Name string `yaml:"name" json:"name"`

	// Device selects where columns live and streams execute
	Device DeviceConfig `yaml:"device" json:"device"`

	// Memory controls the device allocator
	Memory MemoryConfig `yaml:"memory" json:"memory"`

	// Logging configures the structured logger
	Logging LoggingConfig `yaml:"logging" json:"logging"`

	// Observability toggles metrics and tracing
	Observability ObservabilityConfig `yaml:"observability" json:"observability"`
}

// DeviceConfig selects the accelerator the engine targets.
type DeviceConfig struct {
	// Kind is the device type: cpu, cuda, cuda_host, cuda_managed, rocm
	Kind string `yaml:"kind" json:"kind"`
	// ID is the device ordinal
	ID int32 `yaml:"id" json:"id"`
}

// MemoryConfig controls device allocation.
type MemoryConfig struct {
	// Allocator selects the allocator implementation: "go" or "pooled"
	Allocator string `yaml:"allocator" json:"allocator"`
}

// LoggingConfig configures the zap logger.
type LoggingConfig struct {
	Level       string `yaml:"level" json:"level"`
	Encoding    string `yaml:"encoding" json:"encoding"`
	Development bool   `yaml:"development" json:"development"`
}

// ObservabilityConfig toggles metrics and tracing.
type ObservabilityConfig struct {
	EnableMetrics bool    `yaml:"enable_metrics" json:"enable_metrics"`
	EnableTracing bool    `yaml:"enable_tracing" json:"enable_tracing"`
	SamplingRate  float64 `yaml:"sampling_rate" json:"sampling_rate"`
}

// NewEngineConfig returns a configuration with sensible defaults.
func NewEngineConfig(name string) *EngineConfig {
	return &EngineConfig{
		Name: name,
		Device: DeviceConfig{
			Kind: "cuda",
			ID:   0,
		},
		Memory: MemoryConfig{
			Allocator: "pooled",
		},
		Logging: LoggingConfig{
			Level:    "info",
			Encoding: "json",
		},
		Observability: ObservabilityConfig{
			EnableMetrics: true,
			SamplingRate:  1.0,
		},
	}
}

// Validate checks the configuration for consistency.
func (c *EngineConfig) Validate() error {
	switch c.Device.Kind {
	case "cpu", "cuda", "cuda_host", "cuda_managed", "rocm":
	default:
		return fmt.Errorf("unknown device kind %q", c.Device.Kind)
	}
	if c.Device.ID < 0 {
		return fmt.Errorf("device id must be non-negative, got %d", c.Device.ID)
	}
	switch c.Memory.Allocator {
	case "go", "pooled":
	default:
		return fmt.Errorf("unknown allocator %q", c.Memory.Allocator)
	}
	if c.Observability.SamplingRate < 0 || c.Observability.SamplingRate > 1 {
		return fmt.Errorf("sampling rate must be in [0,1], got %f", c.Observability.SamplingRate)
	}
	return nil
}
