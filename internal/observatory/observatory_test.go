package observatory

import (
	"math"
	"slices"
	"testing"
	"time"

	"github.com/GoSim-25-26J-441/opsim-driver/internal/astro"
	"github.com/GoSim-25-26J-441/opsim-driver/pkg/config"
	"github.com/GoSim-25-26J-441/opsim-driver/pkg/logger"
	"github.com/GoSim-25-26J-441/opsim-driver/pkg/models"
)

var night = astro.Timestamp(time.Date(2022, 10, 1, 3, 0, 0, 0, time.UTC))

func newModel(t *testing.T) (*Model, *SkyModel, *config.Config) {
	t.Helper()
	cfg := config.Default()
	sky := NewSkyModel(cfg.Site, cfg.Sky)
	return NewModel(cfg, sky, logger.Discard()), sky, cfg
}

// targetAt returns a target at the given alt/az at ts
func targetAt(sky *SkyModel, ts, alt, az float64, filter string) *models.Target {
	site := sky.Site()
	ra, dec := astro.ToEquatorial(alt, az, astro.LST(astro.FromTimestamp(ts), site.Longitude), site.Latitude)
	return &models.Target{
		TargetID:      1,
		FieldID:       10,
		Filter:        filter,
		RA:            ra,
		Dec:           dec,
		NumExposures:  2,
		ExposureTimes: []float64{15, 15},
	}
}

func TestTrapezoid(t *testing.T) {
	axis := config.Axis{MaxSpeed: 3.5, Accel: 3.5}

	short := trapezoid(1, axis)
	if math.Abs(short.delay-2*math.Sqrt(1/3.5)) > 1e-12 || short.peakSpeed >= axis.MaxSpeed {
		t.Errorf("unexpected short move %+v", short)
	}
	long := trapezoid(-10, axis)
	if math.Abs(long.delay-(2+6.5/3.5)) > 1e-12 || long.peakSpeed != axis.MaxSpeed {
		t.Errorf("unexpected long move %+v", long)
	}
	if zero := trapezoid(0, axis); zero.delay != 0 {
		t.Errorf("zero move should take no time, got %+v", zero)
	}
}

func TestAzimuthDelta(t *testing.T) {
	tests := []struct{ a, b, want float64 }{
		{350, 10, 20},
		{10, 350, -20},
		{0, 180, 180},
		{90, 45, -45},
	}
	for _, tt := range tests {
		if got := azimuthDelta(tt.a, tt.b); math.Abs(got-tt.want) > 1e-12 {
			t.Errorf("azimuthDelta(%v, %v) = %v, want %v", tt.a, tt.b, got, tt.want)
		}
	}
}

func TestSlewFromPark(t *testing.T) {
	m, sky, cfg := newModel(t)
	target := targetAt(sky, night, 60, 120, "r")

	slew, err := m.Slew(target, night)
	if err != nil {
		t.Fatalf("Slew failed: %v", err)
	}
	if slew.Time < cfg.Camera.FilterChangeTime {
		t.Errorf("slew %f shorter than the filter change", slew.Time)
	}
	if slew.Initial.Tracking || !slew.Final.Tracking {
		t.Errorf("expected to leave park and end tracking")
	}
	if slew.Final.Filter != "r" {
		t.Errorf("expected filter r after slew, got %s", slew.Final.Filter)
	}
	if math.Abs(slew.Final.Alt-60) > 1.0 {
		t.Errorf("expected final altitude near 60, got %f", slew.Final.Alt)
	}

	critical := 0.0
	hasFilter := false
	for _, act := range slew.Activities {
		if act.Delay <= 0 {
			t.Errorf("activity %s with no delay should be omitted", act.Name)
		}
		if act.InCriticalPath && act.Delay > critical {
			critical = act.Delay
		}
		if act.Name == ActFilter {
			hasFilter = true
		}
	}
	if !hasFilter {
		t.Error("expected a filter activity")
	}
	if critical == 0 || critical > slew.Time {
		t.Errorf("critical activity %f inconsistent with slew time %f", critical, slew.Time)
	}
	if slew.MaxSpeeds.TelAlt <= 0 || slew.MaxSpeeds.TelAlt > cfg.Telescope.Altitude.MaxSpeed {
		t.Errorf("unexpected telescope altitude speed %f", slew.MaxSpeeds.TelAlt)
	}
}

func TestSlewToSamePointingIsQuick(t *testing.T) {
	m, sky, _ := newModel(t)
	target := targetAt(sky, night, 70, 200, "z")
	first, err := m.Slew(target, night)
	if err != nil {
		t.Fatal(err)
	}
	second, err := m.Slew(target, night+first.Time)
	if err != nil {
		t.Fatal(err)
	}
	if second.Time >= first.Time {
		t.Errorf("re-slewing onto the same field took %f, first slew %f", second.Time, first.Time)
	}
	if second.Distance > 1e-6 {
		t.Errorf("expected zero distance, got %f", second.Distance)
	}
}

func TestSlewUnmountedFilter(t *testing.T) {
	m, sky, _ := newModel(t)
	if _, err := m.Slew(targetAt(sky, night, 60, 0, "u"), night); err == nil {
		t.Error("expected an error for an unmounted filter")
	}
}

func TestObserve(t *testing.T) {
	m, sky, cfg := newModel(t)
	target := targetAt(sky, night, 60, 0, "r")
	visit := m.Observe(target, night)

	if len(visit.ExposureStarts) != 2 {
		t.Fatalf("expected 2 exposure starts, got %d", len(visit.ExposureStarts))
	}
	wantSecond := night + 15 + cfg.Camera.ShutterTime + cfg.Camera.ReadoutTime
	if visit.ExposureStarts[0] != night || math.Abs(visit.ExposureStarts[1]-wantSecond) > 1e-9 {
		t.Errorf("unexpected exposure starts %v", visit.ExposureStarts)
	}
	if visit.ExposureTime != 30 {
		t.Errorf("expected 30s exposure, got %f", visit.ExposureTime)
	}
	if visit.VisitTime < visit.ExposureTime {
		t.Errorf("visit time %f shorter than exposure %f", visit.VisitTime, visit.ExposureTime)
	}
	if visit.VisitTime != 30+2*cfg.Camera.ShutterTime+cfg.Camera.ReadoutTime {
		t.Errorf("unexpected visit time %f", visit.VisitTime)
	}
}

func TestSwapFilter(t *testing.T) {
	m, _, _ := newModel(t)

	if err := m.SwapFilter("g", "u"); err == nil {
		t.Error("g is not removable")
	}
	if !slices.Equal(m.Mounted(), []string{"g", "r", "i", "z", "y"}) {
		t.Errorf("failed swap changed mounted filters: %v", m.Mounted())
	}

	if err := m.SwapFilter("y", "u"); err != nil {
		t.Fatalf("SwapFilter failed: %v", err)
	}
	if !slices.Contains(m.Mounted(), "u") || slices.Contains(m.Mounted(), "y") {
		t.Errorf("unexpected mounted filters %v", m.Mounted())
	}
	if !slices.Equal(m.State().Unmounted, []string{"y"}) {
		t.Errorf("unexpected unmounted filters %v", m.State().Unmounted)
	}
}

func TestParkAndObservatoryState(t *testing.T) {
	m, sky, cfg := newModel(t)
	if _, err := m.Slew(targetAt(sky, night, 50, 90, "i"), night); err != nil {
		t.Fatal(err)
	}
	m.Park()
	st := m.ObservatoryState(night + 3600)
	if st.Tracking {
		t.Error("parked observatory should not track")
	}
	if st.TelescopeAlt != cfg.Park.TelescopeAltitude || st.DomeAltitude != cfg.Park.DomeAltitude {
		t.Errorf("unexpected park state %+v", st)
	}
	if st.FilterPosition != "i" && st.FilterPosition != cfg.Park.Filter {
		t.Errorf("unexpected filter %s", st.FilterPosition)
	}
	if len(st.FilterMounted) != len(cfg.Camera.FilterMounted) {
		t.Errorf("unexpected mounted list %v", st.FilterMounted)
	}
}

func TestSkyBrightness(t *testing.T) {
	_, sky, cfg := newModel(t)
	target := targetAt(sky, night, 80, 0, "r")

	b := sky.Brightness(night, target.RA, target.Dec, "r")
	if b > cfg.Sky.DarkSky["r"] || b < brightestSky {
		t.Errorf("brightness %f outside [%f, %f]", b, brightestSky, cfg.Sky.DarkSky["r"])
	}
	if !math.IsNaN(sky.Brightness(night, target.RA, target.Dec, "x")) {
		t.Error("unknown filter should give NaN")
	}

	// twilight brightens the sky
	dark := models.SkyGeometry{SunAlt: -30, MoonAlt: -10}
	twilight := models.SkyGeometry{SunAlt: -13, MoonAlt: -10}
	if sky.brightness(21.2, 1, twilight) >= sky.brightness(21.2, 1, dark) {
		t.Error("twilight should brighten the sky")
	}
	moon := models.SkyGeometry{SunAlt: -30, MoonAlt: 40, MoonPhase: 100, MoonDistance: 20}
	if sky.brightness(21.2, 1, moon) >= sky.brightness(21.2, 1, dark) {
		t.Error("a nearby full moon should brighten the sky")
	}
}

func TestSkyGeometry(t *testing.T) {
	_, sky, _ := newModel(t)
	g := sky.Geometry(night, 10, -30)
	if g.SunAlt > -12 {
		t.Errorf("expected dark sky at the test time, sun altitude %f", g.SunAlt)
	}
	if g.SolarElong < 0 || g.SolarElong > 180 || g.MoonDistance < 0 || g.MoonDistance > 180 {
		t.Errorf("unexpected separations %+v", g)
	}
	if g.MoonPhase < 0 || g.MoonPhase > 100 {
		t.Errorf("unexpected moon phase %f", g.MoonPhase)
	}

	sunset, sunrise, err := sky.NightBoundaries(night, -12)
	if err != nil || sunset != night || sunrise <= sunset {
		t.Errorf("unexpected boundaries %f %f (%v)", sunset, sunrise, err)
	}
}
