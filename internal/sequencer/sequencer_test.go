package sequencer

import (
	"math"
	"slices"
	"testing"
	"time"

	"github.com/GoSim-25-26J-441/opsim-driver/internal/astro"
	"github.com/GoSim-25-26J-441/opsim-driver/internal/observatory"
	"github.com/GoSim-25-26J-441/opsim-driver/internal/timehandler"
	"github.com/GoSim-25-26J-441/opsim-driver/pkg/config"
	"github.com/GoSim-25-26J-441/opsim-driver/pkg/logger"
	"github.com/GoSim-25-26J-441/opsim-driver/pkg/models"
)

func newSequencer(t *testing.T) (*Sequencer, *observatory.Model, *observatory.SkyModel, *timehandler.TimeHandler) {
	t.Helper()
	cfg := config.Default()
	sky := observatory.NewSkyModel(cfg.Site, cfg.Sky)
	model := observatory.NewModel(cfg, sky, logger.Discard())
	th := timehandler.NewFromTime(time.Date(2022, 10, 1, 3, 0, 0, 0, time.UTC))
	return New(model, sky, 60, logger.Discard()), model, sky, th
}

func TestObserveNoTarget(t *testing.T) {
	seq, _, _, th := newSequencer(t)
	start := th.CurrentTimestamp()

	obs, slew, exp, err := seq.ObserveTarget(&models.Target{TargetID: models.NoTarget}, th)
	if err != nil {
		t.Fatalf("ObserveTarget: %v", err)
	}
	if got := th.CurrentTimestamp(); got != start+60 {
		t.Errorf("current time = %v, want %v", got, start+60)
	}
	if obs.ObservationID != -1 {
		t.Errorf("observation id = %d, want -1", obs.ObservationID)
	}
	if slew != nil || exp != nil {
		t.Errorf("expected nil slew and exposure info, got %v %v", slew, exp)
	}
	c := seq.Counters()
	if c.TargetsMissed != 1 || c.TargetsReceived != 1 || c.ObservationsMade != 0 {
		t.Errorf("unexpected counters %+v", c)
	}
}

func TestObserveTarget(t *testing.T) {
	seq, _, sky, th := newSequencer(t)
	seq.StartNight(1)
	start := th.CurrentTimestamp()

	site := sky.Site()
	ra, dec := astro.ToEquatorial(65, 120, astro.LST(astro.FromTimestamp(start), site.Longitude), site.Latitude)
	target := &models.Target{
		TargetID:      7,
		FieldID:       3,
		Filter:        "r",
		RA:            ra,
		Dec:           dec,
		NumExposures:  2,
		ExposureTimes: []float64{15, 15},
	}

	obs, slew, exp, err := seq.ObserveTarget(target, th)
	if err != nil {
		t.Fatalf("ObserveTarget: %v", err)
	}
	if obs.ObservationID != 1 || obs.TargetID != 7 || obs.Night != 1 {
		t.Errorf("unexpected observation ids %+v", obs)
	}
	if slew == nil || exp == nil {
		t.Fatal("expected slew and exposure info")
	}
	if slew.History.ObservationID != 1 || slew.History.SlewCount != 1 {
		t.Errorf("unexpected slew history %+v", slew.History)
	}
	if slew.History.SlewTime <= 0 {
		t.Errorf("slew time should be positive, got %v", slew.History.SlewTime)
	}
	if math.Abs(obs.StartTime-(start+obs.SlewTime)) > 1e-9 {
		t.Errorf("observation start %v, want %v", obs.StartTime, start+obs.SlewTime)
	}
	want := start + obs.SlewTime + obs.VisitTime
	if math.Abs(th.CurrentTimestamp()-want) > 1e-9 {
		t.Errorf("current time = %v, want %v", th.CurrentTimestamp(), want)
	}
	// two exposures, two shutter moves and one readout
	if math.Abs(obs.VisitTime-34) > 1e-9 {
		t.Errorf("visit time = %v, want 34", obs.VisitTime)
	}
	if len(exp.Target) != 2 || len(exp.Observation) != 2 {
		t.Fatalf("expected 2 exposures each, got %d/%d", len(exp.Target), len(exp.Observation))
	}
	if exp.Observation[1].ExposureNum != 2 || exp.Observation[1].ExposureStartTime <= exp.Observation[0].ExposureStartTime {
		t.Errorf("unexpected exposures %+v", exp.Observation)
	}
	if obs.AirMass < 1 || obs.AirMass > 1.2 {
		t.Errorf("airmass = %v, expected near 1.1", obs.AirMass)
	}
	if obs.SkyBrightness <= 0 {
		t.Errorf("sky brightness should be set, got %v", obs.SkyBrightness)
	}

	// ids keep counting across observations
	obs2, slew2, exp2, err := seq.ObserveTarget(target, th)
	if err != nil {
		t.Fatalf("ObserveTarget: %v", err)
	}
	if obs2.ObservationID != 2 || slew2.History.SlewCount != 2 || exp2.Observation[0].ExposureID != 3 {
		t.Errorf("ids did not advance: obs %d slew %d exposure %d", obs2.ObservationID, slew2.History.SlewCount, exp2.Observation[0].ExposureID)
	}
	if c := seq.Counters(); c.ObservationsMade != 2 || c.TargetsReceived != 2 {
		t.Errorf("unexpected counters %+v", c)
	}
}

func TestObserveUnmountedFilter(t *testing.T) {
	seq, _, _, th := newSequencer(t)
	start := th.CurrentTimestamp()
	_, _, _, err := seq.ObserveTarget(&models.Target{TargetID: 1, Filter: "u", Dec: -30, ExposureTimes: []float64{30}}, th)
	if err == nil {
		t.Fatal("expected error for unmounted filter")
	}
	if th.CurrentTimestamp() != start {
		t.Error("time must not advance on a failed slew")
	}
}

func TestStartDay(t *testing.T) {
	seq, model, _, _ := newSequencer(t)
	before := model.Mounted()

	seq.StartDay(models.FilterSwap{NeedSwap: false, FilterToUnmount: "y", FilterToMount: "u"})
	if !slices.Equal(model.Mounted(), before) {
		t.Errorf("mounted filters changed without a swap: %v", model.Mounted())
	}
	if seq.Counters().FilterSwaps != 0 {
		t.Error("no swap should be counted")
	}

	seq.StartDay(models.FilterSwap{NeedSwap: true, FilterToUnmount: "g", FilterToMount: "u"})
	if !slices.Equal(model.Mounted(), before) {
		t.Errorf("non-removable filter was swapped: %v", model.Mounted())
	}

	seq.StartDay(models.FilterSwap{NeedSwap: true, FilterToUnmount: "y", FilterToMount: "u"})
	if !slices.Contains(model.Mounted(), "u") || slices.Contains(model.Mounted(), "y") {
		t.Errorf("swap not applied: %v", model.Mounted())
	}
	if seq.Counters().FilterSwaps != 1 {
		t.Errorf("filter swaps = %d, want 1", seq.Counters().FilterSwaps)
	}
}

func TestEndNightParks(t *testing.T) {
	seq, model, _, th := newSequencer(t)
	_, _, _, err := seq.ObserveTarget(&models.Target{TargetID: 1, Filter: "r", Dec: -30, ExposureTimes: []float64{30}}, th)
	if err != nil {
		t.Fatalf("ObserveTarget: %v", err)
	}
	seq.EndNight()
	if st := model.State(); st.Tracking {
		t.Error("telescope should be parked and not tracking")
	}
	state := seq.GetObservatoryState(th.CurrentTimestamp())
	if state.Tracking {
		t.Error("observatory state should report not tracking")
	}
}
