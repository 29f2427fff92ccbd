package config

import (
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.ExperimentRepeats != 1 || cfg.NetworkMaxSize != 1 {
		t.Fatalf("unexpected defaults %+v", cfg)
	}
	if cfg.SweepInterval != 30*time.Second || cfg.SessionDuration != time.Hour {
		t.Fatalf("unexpected duration defaults %+v", cfg)
	}
	if !cfg.MTurkSandbox {
		t.Fatalf("sandbox should default on")
	}
}

func TestLoadParsesEnvironment(t *testing.T) {
	t.Setenv("CROWDCORE_RUN_ID", "run-42")
	t.Setenv("CROWDCORE_EXPERIMENT_REPEATS", "3")
	t.Setenv("CROWDCORE_NETWORK_MAX_SIZE", "4")
	t.Setenv("CROWDCORE_SESSION_DURATION", "45m")
	t.Setenv("CROWDCORE_BAD_DATA_WINDOW", "3")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.RunID != "run-42" || cfg.ExperimentRepeats != 3 || cfg.NetworkMaxSize != 4 {
		t.Fatalf("unexpected config %+v", cfg)
	}
	if cfg.SessionDuration != 45*time.Minute || cfg.BadDataWindow != 3 {
		t.Fatalf("unexpected reconciliation config %+v", cfg)
	}
}

func TestLoadRejectsInvalidShape(t *testing.T) {
	t.Setenv("CROWDCORE_PRACTICE_REPEATS", "0")
	t.Setenv("CROWDCORE_EXPERIMENT_REPEATS", "0")
	if _, err := Load(); err == nil {
		t.Fatalf("expected error for zero networks")
	}

	t.Setenv("CROWDCORE_EXPERIMENT_REPEATS", "1")
	t.Setenv("CROWDCORE_NETWORK_MAX_SIZE", "0")
	if _, err := Load(); err == nil {
		t.Fatalf("expected error for zero max size")
	}
}
