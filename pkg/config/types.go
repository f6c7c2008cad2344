package config

import (
	"time"

	"github.com/GoSim-25-26J-441/opsim-driver/pkg/models"
)

// Config represents the full driver configuration
type Config struct {
	Version        string         `yaml:"version"`
	LogLevel       string         `yaml:"log_level"`
	LogFormat      string         `yaml:"log_format"`
	Survey         Survey         `yaml:"survey"`
	Site           Site           `yaml:"site"`
	Telescope      Telescope      `yaml:"telescope"`
	Dome           Dome           `yaml:"dome"`
	Rotator        Rotator        `yaml:"rotator"`
	Camera         Camera         `yaml:"camera"`
	Slew           Slew           `yaml:"slew"`
	OpticsLoopCorr OpticsLoopCorr `yaml:"optics_loop_corr"`
	Park           Park           `yaml:"park"`
	Seeing         Seeing         `yaml:"seeing"`
	Sky            Sky            `yaml:"sky"`
	Environment    Environment    `yaml:"environment"`
	Downtime       Downtime       `yaml:"downtime"`
	Database       Database       `yaml:"database"`
	SAL            SAL            `yaml:"sal"`
	Metrics        Metrics        `yaml:"metrics"`
	Proposals      Proposals      `yaml:"proposals"`
}

// Survey holds the driver knobs. All times are seconds.
type Survey struct {
	StartDate                 string  `yaml:"start_date"`
	DurationYears             float64 `yaml:"duration_years"`
	IdleDelay                 float64 `yaml:"idle_delay"`
	TwilightAngle             float64 `yaml:"twilight_angle"`
	SchedulerTimeout          float64 `yaml:"scheduler_timeout"`
	FilterSwapTimeout         float64 `yaml:"filter_swap_timeout"`
	InterestedProposalTimeout float64 `yaml:"interested_proposal_timeout"`
	PollBackoff               string  `yaml:"poll_backoff"` // exponential, linear, constant
	PollInterval              float64 `yaml:"poll_interval"`
	PollIntervalMax           float64 `yaml:"poll_interval_max"`
}

// Site is the observatory location
type Site struct {
	Name      string  `yaml:"name"`
	Latitude  float64 `yaml:"latitude"`
	Longitude float64 `yaml:"longitude"`
	Height    float64 `yaml:"height"`
}

// Axis describes a trapezoidal-profile axis. Speeds in deg/s, accelerations in deg/s².
type Axis struct {
	MaxSpeed float64 `yaml:"max_speed"`
	Accel    float64 `yaml:"accel"`
}

// Telescope holds mount limits and kinematics
type Telescope struct {
	AltitudeMin float64 `yaml:"altitude_min"`
	AltitudeMax float64 `yaml:"altitude_max"`
	Altitude    Axis    `yaml:"altitude"`
	Azimuth     Axis    `yaml:"azimuth"`
	SettleTime  float64 `yaml:"settle_time"`
}

// Dome holds dome kinematics
type Dome struct {
	Altitude   Axis    `yaml:"altitude"`
	Azimuth    Axis    `yaml:"azimuth"`
	SettleTime float64 `yaml:"settle_time"`
}

// Rotator holds camera rotator limits and kinematics
type Rotator struct {
	MinPos    float64 `yaml:"min_pos"`
	MaxPos    float64 `yaml:"max_pos"`
	Axis      Axis    `yaml:"axis"`
	FollowSky bool    `yaml:"follow_sky"`
}

// Camera holds exposure overheads and the filter inventory
type Camera struct {
	ReadoutTime      float64  `yaml:"readout_time"`
	ShutterTime      float64  `yaml:"shutter_time"`
	FilterChangeTime float64  `yaml:"filter_change_time"`
	FilterMounted    []string `yaml:"filter_mounted"`
	FilterRemovable  []string `yaml:"filter_removable"`
	FilterUnmounted  []string `yaml:"filter_unmounted"`
}

// Slew holds slew-level overheads
type Slew struct {
	FixedOverhead float64 `yaml:"fixed_overhead"`
	IncludeDome   bool    `yaml:"include_dome"`
}

// OpticsLoopCorr models the active optics settling after an altitude change
type OpticsLoopCorr struct {
	OpenLoopSlope       float64   `yaml:"open_loop_slope"`
	ClosedLoopAltLimits []float64 `yaml:"closed_loop_alt_limits"`
	ClosedLoopDelays    []float64 `yaml:"closed_loop_delays"`
}

// Park is the position the observatory returns to at the end of each night
type Park struct {
	TelescopeAltitude float64 `yaml:"telescope_altitude"`
	TelescopeAzimuth  float64 `yaml:"telescope_azimuth"`
	TelescopeRotator  float64 `yaml:"telescope_rotator"`
	DomeAltitude      float64 `yaml:"dome_altitude"`
	DomeAzimuth       float64 `yaml:"dome_azimuth"`
	Filter            string  `yaml:"filter"`
}

// Seeing holds the system seeing contributions and filter wavelengths (nm)
type Seeing struct {
	TelescopeSeeing     float64            `yaml:"telescope_seeing"`
	OpticalDesignSeeing float64            `yaml:"optical_design_seeing"`
	CameraSeeing        float64            `yaml:"camera_seeing"`
	ScaleToEff          float64            `yaml:"scale_to_eff"`
	GeomEffFactor       float64            `yaml:"geom_eff_factor"`
	FilterWavelengths   map[string]float64 `yaml:"filter_wavelengths"`
}

// Sky holds the dark-sky zenith brightness per filter (mag/arcsec²)
type Sky struct {
	DarkSky          map[string]float64 `yaml:"dark_sky"`
	TwilightBrighten float64            `yaml:"twilight_brighten"`
	MoonBrighten     float64            `yaml:"moon_brighten"`
}

// Environment points at the precomputed environment series
type Environment struct {
	CloudDB  string `yaml:"cloud_db"`
	SeeingDB string `yaml:"seeing_db"`
}

// Downtime configures the scheduled and unscheduled downtime sources
type Downtime struct {
	ScheduledDB              string `yaml:"scheduled_db"`
	UnscheduledUseRandomSeed bool   `yaml:"unscheduled_use_random_seed"`
	UnscheduledRandomSeed    int64  `yaml:"unscheduled_random_seed"`
}

// Database configures the tracking and per-session stores
type Database struct {
	TrackingDriver    string `yaml:"tracking_driver"` // sqlite or postgres
	TrackingDSN       string `yaml:"tracking_dsn"`
	SessionDir        string `yaml:"session_dir"`
	StartingSessionID int    `yaml:"starting_session_id"`
	SidecarDir        string `yaml:"sidecar_dir"`
}

// SAL selects the middleware transport
type SAL struct {
	Transport string `yaml:"transport"` // memory or grpc
	Address   string `yaml:"address"`
}

// Metrics configures the Prometheus endpoint. An empty address disables it.
type Metrics struct {
	Address string `yaml:"address"`
}

// FilterLimit bounds the sky brightness a proposal accepts in one filter
type FilterLimit struct {
	BrightLimit float64 `yaml:"bright_limit"`
	DarkLimit   float64 `yaml:"dark_limit"`
	MaxSeeing   float64 `yaml:"max_seeing"`
}

// Proposal is a scientific sub-program as read by the driver
type Proposal struct {
	ID          int                    `yaml:"id"`
	Name        string                 `yaml:"name"`
	BoostWeight float64                `yaml:"boost_weight"`
	Fields      []models.Field         `yaml:"fields"`
	Filters     map[string]FilterLimit `yaml:"filters"`
}

// Proposals splits the proposals by type
type Proposals struct {
	General  []Proposal `yaml:"general"`
	Sequence []Proposal `yaml:"sequence"`
}

const (
	ProposalTypeGeneral  = "General"
	ProposalTypeSequence = "Sequence"
)

// Records returns the Proposal rows for every configured proposal
func (p *Proposals) Records() []models.Proposal {
	rows := make([]models.Proposal, 0, len(p.General)+len(p.Sequence))
	for _, prop := range p.General {
		rows = append(rows, models.Proposal{PropID: prop.ID, PropName: prop.Name, PropType: ProposalTypeGeneral})
	}
	for _, prop := range p.Sequence {
		rows = append(rows, models.Proposal{PropID: prop.ID, PropName: prop.Name, PropType: ProposalTypeSequence})
	}
	return rows
}

// FieldRecords returns the distinct fields and the proposal/field links
func (p *Proposals) FieldRecords() ([]models.Field, []models.ProposalField) {
	var fields []models.Field
	var links []models.ProposalField
	seen := make(map[int]bool)
	for _, prop := range p.all() {
		for _, f := range prop.Fields {
			if !seen[f.FieldID] {
				seen[f.FieldID] = true
				fields = append(fields, f)
			}
			links = append(links, models.ProposalField{
				ProposalFieldID: len(links) + 1,
				FieldID:         f.FieldID,
				ProposalID:      prop.ID,
			})
		}
	}
	return fields, links
}

// Count is the number of configured proposals
func (p *Proposals) Count() int {
	return len(p.General) + len(p.Sequence)
}

func (p *Proposals) all() []Proposal {
	out := make([]Proposal, 0, p.Count())
	out = append(out, p.General...)
	return append(out, p.Sequence...)
}

// StartTime parses the survey start date (UTC midnight)
func (s *Survey) StartTime() (time.Time, error) {
	return time.ParseInLocation(DateLayout, s.StartDate, time.UTC)
}

// DurationNights is the survey length in whole nights
func (s *Survey) DurationNights() int {
	return int(s.DurationYears*365 + 0.5)
}

// SchedulerTimeoutDuration converts the target reply timeout
func (s *Survey) SchedulerTimeoutDuration() time.Duration {
	return seconds(s.SchedulerTimeout)
}

// FilterSwapTimeoutDuration converts the filter swap reply timeout
func (s *Survey) FilterSwapTimeoutDuration() time.Duration {
	return seconds(s.FilterSwapTimeout)
}

// InterestedProposalTimeoutDuration converts the attribution reply timeout
func (s *Survey) InterestedProposalTimeoutDuration() time.Duration {
	return seconds(s.InterestedProposalTimeout)
}

// PollIntervals returns the base and maximum poll sleep
func (s *Survey) PollIntervals() (time.Duration, time.Duration) {
	return seconds(s.PollInterval), seconds(s.PollIntervalMax)
}

func seconds(s float64) time.Duration {
	return time.Duration(s * float64(time.Second))
}

// DateLayout is the survey start date format
const DateLayout = "2006-01-02"
