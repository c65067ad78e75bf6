package config

import "testing"

func TestDefaultMatchesPublishedConstants(t *testing.T) {
	cfg := Default()

	if cfg.PredictionRetention().Milliseconds() != 120 {
		t.Errorf("expected 120ms retention, got %v", cfg.PredictionRetention())
	}
	if cfg.MaxDisplayFrames != 64 {
		t.Errorf("expected 64 max display frames, got %d", cfg.MaxDisplayFrames)
	}
	if cfg.Thresholds.Start().Milliseconds() != 2 {
		t.Errorf("expected a 2ms start threshold, got %v", cfg.Thresholds.Start())
	}
}

func TestValidateRejectsNegativeThresholds(t *testing.T) {
	cfg := Default()
	cfg.Thresholds.DeadlineMS = -1

	if err := Validate(&cfg); err == nil {
		t.Fatal("expected a negative threshold to be rejected")
	}
}

func TestValidateFillsZeroValues(t *testing.T) {
	cfg := Config{}
	if err := Validate(&cfg); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.MaxDisplayFrames != 64 {
		t.Errorf("expected zero MaxDisplayFrames to default to 64, got %d", cfg.MaxDisplayFrames)
	}
	if cfg.Sinks.TimeStats.SurfaceTopic == "" {
		t.Error("expected a default surface topic to be filled in")
	}
}

func TestLoadMissingFileReturnsError(t *testing.T) {
	if _, err := Load("/nonexistent/frametimeline.yaml"); err == nil {
		t.Fatal("expected an error for a missing config file")
	}
}
