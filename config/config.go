// Package config loads the frame timeline's tunables from YAML, the same
// way the reference daemon loads its own configuration.
package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Thresholds are the jank classification tolerances: how far an actual
// timestamp may deviate from its prediction before being called late or
// early.
type Thresholds struct {
	StartMS    float64 `yaml:"start_ms"`
	DeadlineMS float64 `yaml:"deadline_ms"`
	PresentMS  float64 `yaml:"present_ms"`
}

// Start returns the start threshold as a duration.
func (t Thresholds) Start() time.Duration { return durationMS(t.StartMS) }

// Deadline returns the deadline threshold as a duration.
func (t Thresholds) Deadline() time.Duration { return durationMS(t.DeadlineMS) }

// Present returns the present threshold as a duration.
func (t Thresholds) Present() time.Duration { return durationMS(t.PresentMS) }

func durationMS(ms float64) time.Duration {
	return time.Duration(ms * float64(time.Millisecond))
}

// MQTTConfig describes a broker connection shared by the timestats and
// tracesink MQTT backends.
type MQTTConfig struct {
	Broker   string `yaml:"broker"`
	ClientID string `yaml:"client_id"`
	QoS      byte   `yaml:"qos"`
}

// SinksConfig configures the external sinks the facade wires up.
type SinksConfig struct {
	TimeStats struct {
		MQTT         MQTTConfig `yaml:"mqtt"`
		SurfaceTopic string     `yaml:"surface_topic"`
		DisplayTopic string     `yaml:"display_topic"`
	} `yaml:"time_stats"`
	Trace struct {
		MQTT  MQTTConfig `yaml:"mqtt"`
		Topic string     `yaml:"topic"`
	} `yaml:"trace"`
}

// Config is the complete set of frame timeline tunables.
type Config struct {
	// PredictionRetentionMS is how long a token's prediction stays
	// resolvable in the TokenManager registry.
	PredictionRetentionMS int `yaml:"prediction_retention_ms"`

	// MaxDisplayFrames bounds the retained present-history deque.
	MaxDisplayFrames uint32 `yaml:"max_display_frames"`

	// InitialSurfaceFrameCapacity presizes a DisplayFrame's surface frame
	// slice when the display frame is created.
	InitialSurfaceFrameCapacity int `yaml:"initial_surface_frame_capacity"`

	// Thresholds are the jank classification tolerances.
	Thresholds Thresholds `yaml:"thresholds"`

	// Sinks configures the external timestats/trace backends.
	Sinks SinksConfig `yaml:"sinks"`
}

// PredictionRetention returns the retention window as a duration.
func (c Config) PredictionRetention() time.Duration {
	return time.Duration(c.PredictionRetentionMS) * time.Millisecond
}

// Default returns the configuration the facade uses when none is supplied,
// matching the published default constants for this engine.
func Default() Config {
	return Config{
		PredictionRetentionMS:       120,
		MaxDisplayFrames:            64,
		InitialSurfaceFrameCapacity: 10,
		Thresholds: Thresholds{
			StartMS:    2,
			DeadlineMS: 2,
			PresentMS:  2,
		},
	}
}

// Load reads and validates a YAML config file, filling in defaults for
// zero-valued fields.
func Load(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("config: read %s: %w", path, err)
	}

	cfg := Default()
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("config: parse %s: %w", path, err)
	}

	if err := Validate(&cfg); err != nil {
		return Config{}, fmt.Errorf("config: %s: %w", path, err)
	}
	return cfg, nil
}
