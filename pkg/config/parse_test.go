package config

import (
	"errors"
	"strings"
	"testing"
)

func TestParseConfigYAMLString(t *testing.T) {
	yamlText := `
version: 2.1.0
proposals:
  general:
    - id: 5
      name: NorthEclipticSpur
      boost_weight: 0.5
      fields:
        - {id: 10, fov: 3.5, ra: 10.0, dec: 5.0}
        - {id: 11, fov: 3.5, ra: 12.0, dec: 7.5}
      filters:
        r: {bright_limit: 20.0, dark_limit: 30.0, max_seeing: 2.0}
  sequence:
    - id: 6
      name: DeepDrilling
      fields:
        - {id: 10, fov: 3.5, ra: 10.0, dec: 5.0}
`

	cfg, err := ParseConfigYAMLString(yamlText)
	if err != nil {
		t.Fatalf("ParseConfigYAMLString failed: %v", err)
	}
	if cfg.ParsedVersion().Major() != 2 {
		t.Errorf("expected major version 2, got %v", cfg.ParsedVersion())
	}

	props := cfg.Proposals.Records()
	if len(props) != 2 {
		t.Fatalf("expected 2 proposals, got %d", len(props))
	}
	if props[1].PropType != ProposalTypeSequence || props[1].PropID != 6 {
		t.Errorf("unexpected sequence proposal %+v", props[1])
	}

	fields, links := cfg.Proposals.FieldRecords()
	if len(fields) != 2 {
		t.Errorf("expected 2 distinct fields, got %d", len(fields))
	}
	if len(links) != 3 {
		t.Errorf("expected 3 proposal/field links, got %d", len(links))
	}
}

func TestParseConfigYAMLStringInvalid(t *testing.T) {
	tests := []struct {
		name     string
		yamlText string
		target   error
	}{
		{"Malformed yaml", "survey: [", nil},
		{"Bad date", "survey:\n  start_date: tomorrow\n", ErrConfigurationInvalid},
		{"No proposals", "proposals:\n  general: []\n", ErrNoProposalsConfigured},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseConfigYAMLString(tt.yamlText)
			if err == nil {
				t.Fatal("expected error")
			}
			if tt.target != nil && !errors.Is(err, tt.target) {
				t.Errorf("expected %v, got %v", tt.target, err)
			}
		})
	}
}

func TestParams(t *testing.T) {
	rows, err := Default().Params()
	if err != nil {
		t.Fatalf("Params failed: %v", err)
	}

	values := make(map[string]string)
	for i, row := range rows {
		if row.ConfigID != i+1 {
			t.Errorf("row %d has config id %d", i, row.ConfigID)
		}
		values[row.ParamName] = row.ParamValue
	}

	checks := map[string]string{
		"survey/start_date":              "2022-10-01",
		"survey/idle_delay":              "60",
		"camera/filter_mounted":          "g,r,i,z,y",
		"seeing/filter_wavelengths/z":    "869.1",
		"proposals/general/0/name":       "WideFastDeep",
		"proposals/general/0/fields/1/id": "2",
	}
	for name, want := range checks {
		if got, ok := values[name]; !ok || got != want {
			t.Errorf("param %s = %q, want %q", name, got, want)
		}
	}
	for name := range values {
		if strings.HasPrefix(name, "/") {
			t.Errorf("param name %q should not start with a separator", name)
		}
	}
}

func TestSurveyDurations(t *testing.T) {
	s := Default().Survey
	if s.SchedulerTimeoutDuration().Seconds() != 180 {
		t.Errorf("unexpected scheduler timeout %v", s.SchedulerTimeoutDuration())
	}
	if s.FilterSwapTimeoutDuration().Seconds() != 5 {
		t.Errorf("unexpected filter swap timeout %v", s.FilterSwapTimeoutDuration())
	}
	base, max := s.PollIntervals()
	if base <= 0 || max < base {
		t.Errorf("unexpected poll intervals %v %v", base, max)
	}
	start, err := s.StartTime()
	if err != nil || start.Unix() != 1664582400 {
		t.Errorf("unexpected start %v (%v)", start, err)
	}
}
