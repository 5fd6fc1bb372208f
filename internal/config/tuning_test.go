package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/liftlab-data/rom.engine/internal/rom"
)

func writeConfig(t *testing.T, contents string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "tuning.json")
	if err := os.WriteFile(path, []byte(contents), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestLoadPartialConfig(t *testing.T) {
	path := writeConfig(t, `{"max_velocity": 3.5, "still_min_samples": 4}`)
	cfg, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}

	tuning := rom.DefaultTuning()
	cfg.Apply(&tuning)

	if tuning.MaxVelocity != 3.5 {
		t.Errorf("MaxVelocity = %v, want 3.5", tuning.MaxVelocity)
	}
	if tuning.StillMinSamples != 4 {
		t.Errorf("StillMinSamples = %v, want 4", tuning.StillMinSamples)
	}
	// Omitted fields keep defaults.
	if tuning.ZUPTDecay != rom.DefaultTuning().ZUPTDecay {
		t.Errorf("ZUPTDecay changed unexpectedly: %v", tuning.ZUPTDecay)
	}
}

func TestLoadRejectsNonJSON(t *testing.T) {
	if _, err := Load("tuning.yaml"); err == nil {
		t.Error("expected extension error")
	}
}

func TestLoadRejectsBadValues(t *testing.T) {
	for _, contents := range []string{
		`{"max_velocity": -1}`,
		`{"fulfillment_cap": 0}`,
		`{"smoothing_prev_weight": 0.5, "smoothing_cur_weight": 0.9}`,
	} {
		path := writeConfig(t, contents)
		if _, err := Load(path); err == nil {
			t.Errorf("expected validation error for %s", contents)
		}
	}
}

func TestLoadMissingFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "nope.json")); err == nil {
		t.Error("expected error for missing file")
	}
}

func TestSessionLevelFields(t *testing.T) {
	path := writeConfig(t, `{"gyro_radians_threshold": 0.5, "reset_history_on_reanchor": true}`)
	cfg, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}
	if cfg.GyroRadiansThreshold == nil || *cfg.GyroRadiansThreshold != 0.5 {
		t.Errorf("GyroRadiansThreshold = %v", cfg.GyroRadiansThreshold)
	}
	if cfg.ResetHistoryOnReanchor == nil || !*cfg.ResetHistoryOnReanchor {
		t.Errorf("ResetHistoryOnReanchor = %v", cfg.ResetHistoryOnReanchor)
	}
}
