package observatory

import (
	"fmt"
	"log/slog"
	"math"
	"slices"

	"github.com/GoSim-25-26J-441/opsim-driver/internal/astro"
	"github.com/GoSim-25-26J-441/opsim-driver/pkg/config"
	"github.com/GoSim-25-26J-441/opsim-driver/pkg/logger"
	"github.com/GoSim-25-26J-441/opsim-driver/pkg/models"
	"github.com/GoSim-25-26J-441/opsim-driver/pkg/utils"
)

// Slew activity names
const (
	ActTelAlt        = "telalt"
	ActTelAz         = "telaz"
	ActTelSettle     = "telsettle"
	ActDomAlt        = "domalt"
	ActDomAz         = "domaz"
	ActDomSettle     = "domazsettle"
	ActRotator       = "telrot"
	ActFilter        = "filter"
	ActReadout       = "readout"
	ActOpenLoop      = "telopticsopenloop"
	ActClosedLoop    = "telopticsclosedloop"
	ActFixedOverhead = "overhead"
)

// State is a snapshot of the observatory
type State struct {
	Time      float64
	RA        float64
	Dec       float64
	Angle     float64
	Alt       float64
	Az        float64
	PA        float64
	Tracking  bool
	TelAlt    float64
	TelAz     float64
	TelRot    float64
	DomeAlt   float64
	DomeAz    float64
	Filter    string
	Mounted   []string
	Unmounted []string
}

func (s State) clone() State {
	s.Mounted = slices.Clone(s.Mounted)
	s.Unmounted = slices.Clone(s.Unmounted)
	return s
}

// Activity is one delay contributing to a slew
type Activity struct {
	Name           string
	Delay          float64
	InCriticalPath bool
}

// Speeds are the peak axis speeds of a slew in deg/s
type Speeds struct {
	DomeAlt float64
	DomeAz  float64
	TelAlt  float64
	TelAz   float64
	Rotator float64
}

// Slew is the outcome of moving to a target
type Slew struct {
	Start      float64
	Time       float64
	Distance   float64
	Initial    State
	Final      State
	Activities []Activity
	MaxSpeeds  Speeds
}

// Visit is the outcome of exposing on a target
type Visit struct {
	Start          float64
	ExposureStarts []float64
	ExposureTime   float64
	VisitTime      float64
}

// Model is the kinematic observatory model
type Model struct {
	cfg   *config.Config
	sky   *SkyModel
	state State
	log   *slog.Logger
}

// NewModel creates a parked observatory with the configured filter set
func NewModel(cfg *config.Config, sky *SkyModel, log *slog.Logger) *Model {
	m := &Model{cfg: cfg, sky: sky, log: logger.OrDefault(log)}
	m.state.Mounted = slices.Clone(cfg.Camera.FilterMounted)
	m.state.Unmounted = slices.Clone(cfg.Camera.FilterUnmounted)
	m.Park()
	return m
}

// State returns a copy of the current state
func (m *Model) State() State {
	return m.state.clone()
}

// Park returns the telescope and dome to the park position and stops tracking
func (m *Model) Park() {
	p := m.cfg.Park
	m.state.Tracking = false
	m.state.TelAlt = p.TelescopeAltitude
	m.state.TelAz = p.TelescopeAzimuth
	m.state.TelRot = p.TelescopeRotator
	m.state.DomeAlt = p.DomeAltitude
	m.state.DomeAz = p.DomeAzimuth
	m.state.Alt = p.TelescopeAltitude
	m.state.Az = p.TelescopeAzimuth
	if slices.Contains(m.state.Mounted, p.Filter) {
		m.state.Filter = p.Filter
	} else if len(m.state.Mounted) > 0 {
		m.state.Filter = m.state.Mounted[0]
	}
}

// Update advances the state to ts, following the sky while tracking
func (m *Model) Update(ts float64) {
	m.state.Time = ts
	if !m.state.Tracking {
		ra, dec := astro.ToEquatorial(m.state.TelAlt, m.state.TelAz,
			astro.LST(astro.FromTimestamp(ts), m.sky.Site().Longitude), m.sky.Site().Latitude)
		m.state.RA, m.state.Dec = ra, dec
		return
	}
	h := m.sky.Horizontal(ts, m.state.RA, m.state.Dec)
	m.state.Alt, m.state.Az = h.Alt, h.Az
	m.state.PA = m.sky.ParallacticAngle(ts, m.state.RA, m.state.Dec)
	m.state.TelAlt = utils.ClampFloat64(h.Alt, m.cfg.Telescope.AltitudeMin, m.cfg.Telescope.AltitudeMax)
	m.state.TelAz = h.Az
	m.state.DomeAlt, m.state.DomeAz = m.state.TelAlt, m.state.TelAz
	m.state.TelRot = m.rotatorPosition(m.state.PA, m.state.Angle)
}

func (m *Model) rotatorPosition(pa, angle float64) float64 {
	rot := azimuthDelta(0, pa-angle)
	return utils.ClampFloat64(rot, m.cfg.Rotator.MinPos, m.cfg.Rotator.MaxPos)
}

// ObservatoryState renders the state at ts as a publication
func (m *Model) ObservatoryState(ts float64) models.ObservatoryState {
	m.Update(ts)
	s := m.state
	return models.ObservatoryState{
		Timestamp:        ts,
		PointingRA:       s.RA,
		PointingDec:      s.Dec,
		PointingAngle:    s.Angle,
		PointingAltitude: s.Alt,
		PointingAzimuth:  s.Az,
		PointingPA:       s.PA,
		Tracking:         s.Tracking,
		DomeAltitude:     s.DomeAlt,
		DomeAzimuth:      s.DomeAz,
		TelescopeAlt:     s.TelAlt,
		TelescopeAz:      s.TelAz,
		TelescopeRot:     s.TelRot,
		FilterPosition:   s.Filter,
		FilterMounted:    slices.Clone(s.Mounted),
		FilterUnmounted:  slices.Clone(s.Unmounted),
	}
}

// Slew moves the observatory onto the target starting at ts
func (m *Model) Slew(target *models.Target, ts float64) (Slew, error) {
	if !slices.Contains(m.state.Mounted, target.Filter) {
		return Slew{}, fmt.Errorf("filter %q is not mounted", target.Filter)
	}
	m.Update(ts)
	initial := m.state.clone()

	h := m.sky.Horizontal(ts, target.RA, target.Dec)
	if h.Alt < m.cfg.Telescope.AltitudeMin || h.Alt > m.cfg.Telescope.AltitudeMax {
		m.log.Warn("target outside altitude limits", "target_id", target.TargetID, "altitude", h.Alt)
	}
	pa := m.sky.ParallacticAngle(ts, target.RA, target.Dec)
	telAlt := utils.ClampFloat64(h.Alt, m.cfg.Telescope.AltitudeMin, m.cfg.Telescope.AltitudeMax)
	rot := m.rotatorPosition(pa, target.Angle)

	dAlt := telAlt - initial.TelAlt
	dAz := azimuthDelta(initial.TelAz, h.Az)
	dDomeAlt := telAlt - initial.DomeAlt
	dDomeAz := azimuthDelta(initial.DomeAz, h.Az)

	telAltMove := trapezoid(dAlt, m.cfg.Telescope.Altitude)
	telAzMove := trapezoid(dAz, m.cfg.Telescope.Azimuth)
	domAltMove := trapezoid(dDomeAlt, m.cfg.Dome.Altitude)
	domAzMove := trapezoid(dDomeAz, m.cfg.Dome.Azimuth)
	rotMove := trapezoid(rot-initial.TelRot, m.cfg.Rotator.Axis)

	telSettle := 0.0
	if telAltMove.delay > 0 || telAzMove.delay > 0 {
		telSettle = m.cfg.Telescope.SettleTime
	}
	domSettle := 0.0
	if domAzMove.delay > 0 {
		domSettle = m.cfg.Dome.SettleTime
	}
	filterDelay := 0.0
	if target.Filter != initial.Filter {
		filterDelay = m.cfg.Camera.FilterChangeTime
	}
	openLoop, closedLoop := m.opticsDelays(math.Abs(dAlt))

	readout := 0.0
	if initial.Tracking {
		readout = m.cfg.Camera.ReadoutTime
	}

	// parallel chains; the longest one is the critical path
	type chain struct {
		activities []Activity
		delay      float64
	}
	chains := []chain{
		{
			activities: []Activity{
				{Name: ActTelAlt, Delay: telAltMove.delay},
				{Name: ActTelAz, Delay: telAzMove.delay},
				{Name: ActTelSettle, Delay: telSettle},
				{Name: ActOpenLoop, Delay: openLoop},
				{Name: ActClosedLoop, Delay: closedLoop},
			},
			// alt and az move together, then settle, then the optics correct
			delay: math.Max(telAltMove.delay, telAzMove.delay) + telSettle + math.Max(openLoop, closedLoop),
		},
		{activities: []Activity{{Name: ActRotator, Delay: rotMove.delay}}, delay: rotMove.delay},
		{activities: []Activity{{Name: ActFilter, Delay: filterDelay}}, delay: filterDelay},
		{activities: []Activity{{Name: ActReadout, Delay: readout}}, delay: readout},
	}
	if m.cfg.Slew.IncludeDome {
		chains = append(chains, chain{
			activities: []Activity{
				{Name: ActDomAlt, Delay: domAltMove.delay},
				{Name: ActDomAz, Delay: domAzMove.delay},
				{Name: ActDomSettle, Delay: domSettle},
			},
			delay: math.Max(domAltMove.delay, domAzMove.delay) + domSettle,
		})
	}

	critical, slewTime := -1, 0.0
	for i, c := range chains {
		if c.delay > slewTime {
			critical, slewTime = i, c.delay
		}
	}

	var activities []Activity
	for i, c := range chains {
		for _, act := range c.activities {
			if act.Delay <= 0 {
				continue
			}
			act.InCriticalPath = i == critical
			activities = append(activities, act)
		}
	}
	if overhead := m.cfg.Slew.FixedOverhead; overhead > 0 {
		slewTime += overhead
		activities = append(activities, Activity{Name: ActFixedOverhead, Delay: overhead, InCriticalPath: true})
	}

	m.state.RA, m.state.Dec, m.state.Angle = target.RA, target.Dec, target.Angle
	m.state.Filter = target.Filter
	m.state.Tracking = true
	m.Update(ts + slewTime)
	final := m.state.clone()

	return Slew{
		Start:      ts,
		Time:       slewTime,
		Distance:   astro.Separation(initial.RA, initial.Dec, target.RA, target.Dec),
		Initial:    initial,
		Final:      final,
		Activities: activities,
		MaxSpeeds: Speeds{
			DomeAlt: domAltMove.peakSpeed,
			DomeAz:  domAzMove.peakSpeed,
			TelAlt:  telAltMove.peakSpeed,
			TelAz:   telAzMove.peakSpeed,
			Rotator: rotMove.peakSpeed,
		},
	}, nil
}

// opticsDelays returns the open and closed loop corrections for an altitude change
func (m *Model) opticsDelays(dAlt float64) (float64, float64) {
	o := m.cfg.OpticsLoopCorr
	openLoop := o.OpenLoopSlope * dAlt
	closedLoop := 0.0
	for i, delay := range o.ClosedLoopDelays {
		if dAlt >= o.ClosedLoopAltLimits[i] && dAlt < o.ClosedLoopAltLimits[i+1] {
			closedLoop = delay
		}
	}
	return openLoop, closedLoop
}

// Observe takes the target's exposures starting at ts. Exposures are
// separated by a readout and each pays the shutter time.
func (m *Model) Observe(target *models.Target, ts float64) Visit {
	v := Visit{Start: ts, ExposureStarts: make([]float64, 0, len(target.ExposureTimes))}
	t := ts
	for i, exp := range target.ExposureTimes {
		v.ExposureStarts = append(v.ExposureStarts, t)
		v.ExposureTime += exp
		t += exp + m.cfg.Camera.ShutterTime
		if i < len(target.ExposureTimes)-1 {
			t += m.cfg.Camera.ReadoutTime
		}
	}
	v.VisitTime = t - ts
	m.Update(t)
	return v
}

// SwapFilter replaces a removable mounted filter with an unmounted one
func (m *Model) SwapFilter(unmount, mount string) error {
	if !slices.Contains(m.cfg.Camera.FilterRemovable, unmount) {
		return fmt.Errorf("filter %q is not removable", unmount)
	}
	i := slices.Index(m.state.Mounted, unmount)
	if i < 0 {
		return fmt.Errorf("filter %q is not mounted", unmount)
	}
	j := slices.Index(m.state.Unmounted, mount)
	if j < 0 {
		return fmt.Errorf("filter %q is not available to mount", mount)
	}
	m.state.Mounted[i] = mount
	m.state.Unmounted[j] = unmount
	if m.state.Filter == unmount {
		m.state.Filter = mount
	}
	m.log.Info("swapped filter", "unmounted", unmount, "mounted", mount)
	return nil
}

// Mounted returns the mounted filters
func (m *Model) Mounted() []string {
	return slices.Clone(m.state.Mounted)
}
