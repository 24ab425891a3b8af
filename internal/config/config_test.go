package config

import (
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestLoad_EmptyYieldsDefaults(t *testing.T) {
	cfg, err := Load([]byte(""))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if diff := cmp.Diff(Default(), cfg); diff != "" {
		t.Errorf("empty config differs from defaults (-want +got):\n%s", diff)
	}
}

func TestLoad_Overrides(t *testing.T) {
	doc := `
data_dir: /srv/cases
locale_day_first: true
home_locations: [GB, IE]
quality:
  pass_threshold: 0.6
candidate_fields:
  signin: [conditional_access_status, error_code]
`
	cfg, err := Load([]byte(doc))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.DataDir != "/srv/cases" {
		t.Errorf("DataDir = %q", cfg.DataDir)
	}
	if !cfg.LocaleDayFirst {
		t.Error("LocaleDayFirst not set")
	}
	if cfg.Quality.PassThreshold != 0.6 {
		t.Errorf("PassThreshold = %v", cfg.Quality.PassThreshold)
	}
	// Unset knobs still carry defaults.
	if cfg.Quality.MinSampleRows != 10 {
		t.Errorf("MinSampleRows = %d, want default 10", cfg.Quality.MinSampleRows)
	}
	if cfg.LedgerPath != Default().LedgerPath {
		t.Errorf("LedgerPath = %q, want default", cfg.LedgerPath)
	}
	want := []string{"conditional_access_status", "error_code"}
	if diff := cmp.Diff(want, cfg.CandidateFields["signin"]); diff != "" {
		t.Errorf("candidate fields (-want +got):\n%s", diff)
	}
}

func TestLoadFromPath_Missing(t *testing.T) {
	if _, err := LoadFromPath("/does/not/exist.yaml"); err == nil {
		t.Fatal("expected error for missing config file")
	}
}
