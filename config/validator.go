package config

import "fmt"

// Validate checks a loaded configuration for out-of-range values and fills
// in defaults for anything left at its zero value, mirroring the reference
// internal/config package's validator: descriptive errors instead of
// panics, gradual defaulting instead of requiring every field.
func Validate(cfg *Config) error {
	if cfg.PredictionRetentionMS <= 0 {
		cfg.PredictionRetentionMS = 120
	}
	if cfg.MaxDisplayFrames == 0 {
		cfg.MaxDisplayFrames = 64
	}
	if cfg.InitialSurfaceFrameCapacity <= 0 {
		cfg.InitialSurfaceFrameCapacity = 10
	}

	if cfg.Thresholds.StartMS < 0 {
		return fmt.Errorf("thresholds.start_ms must be >= 0")
	}
	if cfg.Thresholds.DeadlineMS < 0 {
		return fmt.Errorf("thresholds.deadline_ms must be >= 0")
	}
	if cfg.Thresholds.PresentMS < 0 {
		return fmt.Errorf("thresholds.present_ms must be >= 0")
	}
	if cfg.Thresholds.StartMS == 0 {
		cfg.Thresholds.StartMS = 2
	}
	if cfg.Thresholds.DeadlineMS == 0 {
		cfg.Thresholds.DeadlineMS = 2
	}
	if cfg.Thresholds.PresentMS == 0 {
		cfg.Thresholds.PresentMS = 2
	}

	if cfg.Sinks.TimeStats.SurfaceTopic == "" {
		cfg.Sinks.TimeStats.SurfaceTopic = "frametimeline/timestats/surface"
	}
	if cfg.Sinks.TimeStats.DisplayTopic == "" {
		cfg.Sinks.TimeStats.DisplayTopic = "frametimeline/timestats/display"
	}
	if cfg.Sinks.Trace.Topic == "" {
		cfg.Sinks.Trace.Topic = "frametimeline/trace"
	}

	return nil
}
