package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/Masterminds/semver/v3"
)

var (
	// ErrConfigurationInvalid wraps every validation failure
	ErrConfigurationInvalid = errors.New("configuration invalid")
	// ErrNoProposalsConfigured is returned when neither general nor sequence proposals exist
	ErrNoProposalsConfigured = errors.New("no proposals configured")
)

var validFilters = map[string]bool{"u": true, "g": true, "r": true, "i": true, "z": true, "y": true}

// LoadConfig loads a configuration file on top of Default
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
	}
	cfg, err := ParseConfigYAML(data)
	if err != nil {
		return nil, fmt.Errorf("failed to parse config file %s: %w", path, err)
	}
	return cfg, nil
}

// Validate checks the configuration. Failures match ErrConfigurationInvalid
// or ErrNoProposalsConfigured under errors.Is.
func Validate(cfg *Config) error {
	return validateConfig(cfg)
}

func invalid(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrConfigurationInvalid, fmt.Sprintf(format, args...))
}

// validateConfig performs validation on the configuration
func validateConfig(cfg *Config) error {
	validLogLevels := map[string]bool{
		"debug": true,
		"info":  true,
		"warn":  true,
		"error": true,
	}
	if !validLogLevels[cfg.LogLevel] {
		return invalid("invalid log_level: %s (must be debug, info, warn, or error)", cfg.LogLevel)
	}
	if cfg.LogFormat != "json" && cfg.LogFormat != "text" {
		return invalid("invalid log_format: %s (must be json or text)", cfg.LogFormat)
	}
	if _, err := semver.NewVersion(cfg.Version); err != nil {
		return invalid("invalid version %q: %v", cfg.Version, err)
	}

	if err := validateSurvey(&cfg.Survey); err != nil {
		return fmt.Errorf("survey validation failed: %w", err)
	}
	if cfg.Site.Latitude < -90 || cfg.Site.Latitude > 90 {
		return invalid("site latitude %f out of range", cfg.Site.Latitude)
	}
	if err := validateKinematics(cfg); err != nil {
		return fmt.Errorf("kinematics validation failed: %w", err)
	}
	if err := validateCamera(&cfg.Camera); err != nil {
		return fmt.Errorf("camera validation failed: %w", err)
	}
	if err := validateSeeing(&cfg.Seeing); err != nil {
		return fmt.Errorf("seeing validation failed: %w", err)
	}
	if err := validateStorage(cfg); err != nil {
		return fmt.Errorf("storage validation failed: %w", err)
	}
	if err := validateProposals(&cfg.Proposals); err != nil {
		return fmt.Errorf("proposals validation failed: %w", err)
	}
	return nil
}

func validateSurvey(s *Survey) error {
	if _, err := s.StartTime(); err != nil {
		return invalid("malformed start_date %q: %v", s.StartDate, err)
	}
	if s.DurationYears <= 0 {
		return invalid("duration_years must be positive")
	}
	if s.IdleDelay <= 0 {
		return invalid("idle_delay must be positive")
	}
	if s.TwilightAngle > 0 || s.TwilightAngle < -18 {
		return invalid("twilight_angle %f must be within [-18, 0]", s.TwilightAngle)
	}
	if s.SchedulerTimeout <= 0 {
		return invalid("scheduler_timeout must be positive")
	}
	if s.FilterSwapTimeout < 0 || s.InterestedProposalTimeout < 0 {
		return invalid("reply timeouts cannot be negative")
	}
	switch s.PollBackoff {
	case "exponential", "linear", "constant":
	default:
		return invalid("poll_backoff must be exponential, linear or constant, got %s", s.PollBackoff)
	}
	if s.PollInterval <= 0 {
		return invalid("poll_interval must be positive")
	}
	return nil
}

func validateAxis(name string, a Axis) error {
	if a.MaxSpeed <= 0 || a.Accel <= 0 {
		return invalid("%s: max_speed and accel must be positive", name)
	}
	return nil
}

func validateKinematics(cfg *Config) error {
	axes := map[string]Axis{
		"telescope.altitude": cfg.Telescope.Altitude,
		"telescope.azimuth":  cfg.Telescope.Azimuth,
		"dome.altitude":      cfg.Dome.Altitude,
		"dome.azimuth":       cfg.Dome.Azimuth,
		"rotator.axis":       cfg.Rotator.Axis,
	}
	for name, axis := range axes {
		if err := validateAxis(name, axis); err != nil {
			return err
		}
	}
	if cfg.Telescope.AltitudeMin >= cfg.Telescope.AltitudeMax {
		return invalid("telescope altitude_min must be below altitude_max")
	}
	if cfg.Rotator.MinPos >= cfg.Rotator.MaxPos {
		return invalid("rotator min_pos must be below max_pos")
	}
	o := cfg.OpticsLoopCorr
	if len(o.ClosedLoopAltLimits) != len(o.ClosedLoopDelays)+1 {
		return invalid("optics_loop_corr needs one more altitude limit than delays")
	}
	return nil
}

func validateCamera(c *Camera) error {
	if len(c.FilterMounted) == 0 {
		return invalid("filter_mounted cannot be empty")
	}
	for _, list := range [][]string{c.FilterMounted, c.FilterRemovable, c.FilterUnmounted} {
		for _, f := range list {
			if !validFilters[f] {
				return invalid("unknown filter %q", f)
			}
		}
	}
	mounted := make(map[string]bool)
	for _, f := range c.FilterMounted {
		mounted[f] = true
	}
	for _, f := range c.FilterRemovable {
		if !mounted[f] {
			return invalid("removable filter %q is not mounted", f)
		}
	}
	for _, f := range c.FilterUnmounted {
		if mounted[f] {
			return invalid("filter %q is both mounted and unmounted", f)
		}
	}
	if c.ReadoutTime < 0 || c.ShutterTime < 0 || c.FilterChangeTime < 0 {
		return invalid("camera overheads cannot be negative")
	}
	return nil
}

func validateSeeing(s *Seeing) error {
	if s.ScaleToEff <= 0 || s.GeomEffFactor <= 0 {
		return invalid("scale_to_eff and geom_eff_factor must be positive")
	}
	for f := range validFilters {
		if s.FilterWavelengths[f] <= 0 {
			return invalid("missing effective wavelength for filter %s", f)
		}
	}
	return nil
}

func validateStorage(cfg *Config) error {
	switch cfg.Database.TrackingDriver {
	case "sqlite", "postgres":
	default:
		return invalid("tracking_driver must be sqlite or postgres, got %s", cfg.Database.TrackingDriver)
	}
	if cfg.Database.TrackingDSN == "" {
		return invalid("tracking_dsn cannot be empty")
	}
	if cfg.Database.StartingSessionID < 0 {
		return invalid("starting_session_id cannot be negative")
	}
	switch cfg.SAL.Transport {
	case "memory":
	case "grpc":
		if cfg.SAL.Address == "" {
			return invalid("sal address required for grpc transport")
		}
	default:
		return invalid("sal transport must be memory or grpc, got %s", cfg.SAL.Transport)
	}
	return nil
}

func validateProposals(p *Proposals) error {
	if p.Count() == 0 {
		return ErrNoProposalsConfigured
	}
	ids := make(map[int]bool)
	for _, prop := range p.all() {
		if prop.Name == "" {
			return invalid("proposal %d: name cannot be empty", prop.ID)
		}
		if ids[prop.ID] {
			return invalid("duplicate proposal id: %d", prop.ID)
		}
		ids[prop.ID] = true
		if prop.BoostWeight < 0 {
			return invalid("proposal %s: boost_weight cannot be negative", prop.Name)
		}
		for f, limit := range prop.Filters {
			if !validFilters[f] {
				return invalid("proposal %s: unknown filter %q", prop.Name, f)
			}
			if limit.DarkLimit < limit.BrightLimit {
				return invalid("proposal %s: filter %s dark_limit %.2f below bright_limit %.2f",
					prop.Name, f, limit.DarkLimit, limit.BrightLimit)
			}
		}
	}
	return nil
}

// ParsedVersion returns the semantic version of the configuration
func (c *Config) ParsedVersion() *semver.Version {
	v, err := semver.NewVersion(c.Version)
	if err != nil {
		return semver.MustParse("0.0.0")
	}
	return v
}

// Start returns the survey start as UTC midnight, falling back to the Unix epoch
// on an unvalidated config
func (c *Config) Start() time.Time {
	t, err := c.Survey.StartTime()
	if err != nil {
		return time.Unix(0, 0).UTC()
	}
	return t
}
