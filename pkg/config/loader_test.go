package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
)

func TestDefaultIsValid(t *testing.T) {
	if err := Validate(Default()); err != nil {
		t.Fatalf("default config should validate: %v", err)
	}
}

func TestLoadConfig(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "opsim.yaml")
	content := `
log_level: debug
survey:
  start_date: "2020-05-24"
  duration_years: 0.1
  idle_delay: 30
site:
  name: Test Site
  latitude: -30.2446
  longitude: -70.7494
camera:
  filter_mounted: [u, g, r, i, z]
  filter_removable: [u, z]
  filter_unmounted: [y]
`
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("Failed to write test file: %v", err)
	}

	cfg, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("Failed to load config: %v", err)
	}
	if cfg.LogLevel != "debug" {
		t.Errorf("Expected log_level 'debug', got '%s'", cfg.LogLevel)
	}
	if cfg.Survey.DurationNights() != 37 {
		t.Errorf("Expected 37 nights, got %d", cfg.Survey.DurationNights())
	}
	if cfg.Survey.IdleDelay != 30 {
		t.Errorf("Expected idle_delay 30, got %f", cfg.Survey.IdleDelay)
	}
	// untouched sections keep their defaults
	if cfg.Survey.SchedulerTimeout != 180 {
		t.Errorf("Expected default scheduler_timeout 180, got %f", cfg.Survey.SchedulerTimeout)
	}
	if cfg.Seeing.FilterWavelengths["z"] != 869.1 {
		t.Errorf("Expected z wavelength 869.1, got %f", cfg.Seeing.FilterWavelengths["z"])
	}
	if len(cfg.Camera.FilterMounted) != 5 || cfg.Camera.FilterMounted[0] != "u" {
		t.Errorf("unexpected mounted filters %v", cfg.Camera.FilterMounted)
	}
}

func TestLoadConfigMissingFile(t *testing.T) {
	if _, err := LoadConfig(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Error("Expected error for missing file")
	}
}

func TestValidateConfig(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"Invalid log level", func(c *Config) { c.LogLevel = "verbose" }},
		{"Invalid version", func(c *Config) { c.Version = "one" }},
		{"Malformed start date", func(c *Config) { c.Survey.StartDate = "2020/05/24" }},
		{"Zero duration", func(c *Config) { c.Survey.DurationYears = 0 }},
		{"Positive twilight", func(c *Config) { c.Survey.TwilightAngle = 5 }},
		{"Bad poll backoff", func(c *Config) { c.Survey.PollBackoff = "random" }},
		{"Zero axis speed", func(c *Config) { c.Dome.Azimuth.MaxSpeed = 0 }},
		{"Empty mounted filters", func(c *Config) { c.Camera.FilterMounted = nil }},
		{"Unknown filter", func(c *Config) { c.Camera.FilterUnmounted = []string{"x"} }},
		{"Removable not mounted", func(c *Config) { c.Camera.FilterRemovable = []string{"u"} }},
		{"Missing wavelength", func(c *Config) { delete(c.Seeing.FilterWavelengths, "y") }},
		{"Bad tracking driver", func(c *Config) { c.Database.TrackingDriver = "mysql" }},
		{"Bad transport", func(c *Config) { c.SAL.Transport = "dds" }},
		{"Negative boost", func(c *Config) { c.Proposals.General[0].BoostWeight = -1 }},
		{"Dark below bright", func(c *Config) {
			c.Proposals.General[0].Filters["r"] = FilterLimit{BrightLimit: 21, DarkLimit: 20}
		}},
		{"Duplicate proposal id", func(c *Config) {
			c.Proposals.Sequence = []Proposal{{ID: 1, Name: "DeepDrilling"}}
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(cfg)
			err := Validate(cfg)
			if err == nil {
				t.Fatal("Expected validation error, got nil")
			}
			if !errors.Is(err, ErrConfigurationInvalid) {
				t.Errorf("Expected ErrConfigurationInvalid, got %v", err)
			}
		})
	}
}

func TestValidateNoProposals(t *testing.T) {
	cfg := Default()
	cfg.Proposals = Proposals{}
	err := Validate(cfg)
	if !errors.Is(err, ErrNoProposalsConfigured) {
		t.Fatalf("Expected ErrNoProposalsConfigured, got %v", err)
	}
}

func TestApplyOverridesDir(t *testing.T) {
	dir := t.TempDir()
	files := map[string]string{
		"10_survey.yaml": "survey:\n  idle_delay: 120\n  scheduler_timeout: 30\n",
		"20_survey.yaml": "survey:\n  idle_delay: 90\n",
		"30_seeing.yml":  "seeing:\n  filter_wavelengths:\n    z: 870.0\n",
		"notes.txt":      "survey:\n  idle_delay: 1\n",
	}
	for name, content := range files {
		if err := os.WriteFile(filepath.Join(dir, name), []byte(content), 0644); err != nil {
			t.Fatalf("Failed to write %s: %v", name, err)
		}
	}

	base := Default()
	cfg, err := ApplyOverridesDir(base, dir)
	if err != nil {
		t.Fatalf("ApplyOverridesDir failed: %v", err)
	}
	if cfg.Survey.IdleDelay != 90 {
		t.Errorf("Expected later override to win with idle_delay 90, got %f", cfg.Survey.IdleDelay)
	}
	if cfg.Survey.SchedulerTimeout != 30 {
		t.Errorf("Expected scheduler_timeout 30, got %f", cfg.Survey.SchedulerTimeout)
	}
	if cfg.Seeing.FilterWavelengths["z"] != 870.0 {
		t.Errorf("Expected z wavelength 870, got %f", cfg.Seeing.FilterWavelengths["z"])
	}
	if cfg.Seeing.FilterWavelengths["u"] != 367.0 {
		t.Errorf("Expected u wavelength kept at 367, got %f", cfg.Seeing.FilterWavelengths["u"])
	}
	if cfg.Site.Name != "Cerro Pachon" {
		t.Errorf("Expected site name kept, got %q", cfg.Site.Name)
	}
	if base.Survey.IdleDelay != 60 {
		t.Errorf("base config should not change, idle_delay %f", base.Survey.IdleDelay)
	}
}

func TestApplyOverridesDirInvalid(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "bad.yaml"), []byte("survey:\n  duration_years: -1\n"), 0644); err != nil {
		t.Fatal(err)
	}
	_, err := ApplyOverridesDir(Default(), dir)
	if !errors.Is(err, ErrConfigurationInvalid) {
		t.Fatalf("Expected ErrConfigurationInvalid, got %v", err)
	}

	_, err = ApplyOverridesDir(Default(), filepath.Join(dir, "missing"))
	if !errors.Is(err, ErrConfigurationInvalid) {
		t.Fatalf("Expected ErrConfigurationInvalid for missing dir, got %v", err)
	}
}

func TestApplyOverridesDirEmpty(t *testing.T) {
	base := Default()
	cfg, err := ApplyOverridesDir(base, "")
	if err != nil || cfg != base {
		t.Fatalf("empty dir should return the base config, got %v", err)
	}
}
