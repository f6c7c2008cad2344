package timehandler

import (
	"errors"
	"math"
	"testing"
	"time"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
)

func TestTimeHandlerSanity(t *testing.T) {
	th, err := New("2020-05-24")
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	if th.CurrentTimestamp() != 1590278400 {
		t.Errorf("expected 1590278400, got %f", th.CurrentTimestamp())
	}
	if th.InitialTimestamp() != 1590278400 {
		t.Errorf("expected initial 1590278400, got %f", th.InitialTimestamp())
	}

	if err := th.UpdateTime(30, Seconds); err != nil {
		t.Fatalf("UpdateTime failed: %v", err)
	}
	if got := th.CurrentTimeString(); got != "2020-05-24T00:00:30" {
		t.Errorf("expected 2020-05-24T00:00:30, got %s", got)
	}

	threeDays, _ := ToSeconds(3, Days)
	if th.HasTimeElapsed(threeDays) {
		t.Error("3 days should not have elapsed")
	}
	if !th.HasTimeElapsed(30) {
		t.Error("30 seconds should have elapsed")
	}
}

func TestMalformedDate(t *testing.T) {
	for _, date := range []string{"", "2020-13-01", "24/05/2020", "2020-05-24T00:00:00"} {
		if _, err := New(date); !errors.Is(err, ErrMalformedDate) {
			t.Errorf("New(%q) error = %v, want ErrMalformedDate", date, err)
		}
	}
}

func TestUpdateTimeUnits(t *testing.T) {
	tests := []struct {
		increment float64
		unit      string
		want      float64
	}{
		{10, Seconds, 10},
		{2, Minutes, 120},
		{1.5, Hours, 5400},
		{1, Days, 86400},
	}
	for _, tt := range tests {
		th, _ := New("2022-10-01")
		if err := th.UpdateTime(tt.increment, tt.unit); err != nil {
			t.Fatalf("UpdateTime(%v, %s) failed: %v", tt.increment, tt.unit, err)
		}
		if got := th.TimeSinceStart(); got != tt.want {
			t.Errorf("UpdateTime(%v, %s): elapsed %f, want %f", tt.increment, tt.unit, got, tt.want)
		}
	}
}

func TestUpdateTimeRejects(t *testing.T) {
	th, _ := New("2022-10-01")
	if err := th.UpdateTime(1, "fortnights"); !errors.Is(err, ErrInvalidUnit) {
		t.Errorf("expected ErrInvalidUnit, got %v", err)
	}
	if err := th.UpdateTime(-1, Seconds); !errors.Is(err, ErrNegativeIncrement) {
		t.Errorf("expected ErrNegativeIncrement, got %v", err)
	}
	if th.TimeSinceStart() != 0 {
		t.Errorf("rejected updates must not move the clock")
	}
}

func TestFutureTimeString(t *testing.T) {
	th, _ := New("2020-05-24")
	got, err := th.FutureTimeString(1, Hours)
	if err != nil {
		t.Fatalf("FutureTimeString failed: %v", err)
	}
	if got != "2020-05-24T01:00:00" {
		t.Errorf("expected 2020-05-24T01:00:00, got %s", got)
	}
	if th.TimeSinceStart() != 0 {
		t.Error("FutureTimeString must not move the cursor")
	}

	got, _ = th.FutureTimeStringFrom(1590278400+86400, 30, Minutes)
	if got != "2020-05-25T00:30:00" {
		t.Errorf("expected 2020-05-25T00:30:00, got %s", got)
	}
	if _, err := th.FutureTimeString(1, "weeks"); !errors.Is(err, ErrInvalidUnit) {
		t.Errorf("expected ErrInvalidUnit, got %v", err)
	}
}

func TestTimeSinceGiven(t *testing.T) {
	th, _ := New("2020-05-24")
	_ = th.UpdateTime(100, Seconds)

	if got := th.TimeSinceGiven(1590278400); got != 100 {
		t.Errorf("TimeSinceGiven = %f, want 100", got)
	}

	yearStart := time.Date(2020, 1, 1, 0, 0, 0, 0, time.UTC)
	want := float64(144*86400 + 100)
	if got := th.TimeSinceGivenDateTime(yearStart, false); got != want {
		t.Errorf("TimeSinceGivenDateTime = %f, want %f", got, want)
	}
	if got := th.TimeSinceGivenDateTime(yearStart, true); got != -want {
		t.Errorf("reversed TimeSinceGivenDateTime = %f, want %f", got, -want)
	}
}

func TestAdvanceTo(t *testing.T) {
	th, _ := New("2020-05-24")
	th.AdvanceTo(1590278400 + 500)
	if th.TimeSinceStart() != 500 {
		t.Errorf("expected 500s elapsed, got %f", th.TimeSinceStart())
	}
	th.AdvanceTo(1590278400 + 100)
	if th.TimeSinceStart() != 500 {
		t.Errorf("AdvanceTo must never move backwards, got %f", th.TimeSinceStart())
	}
}

func TestUpdateTimeIsAdditive(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 200
	properties := gopter.NewProperties(parameters)

	properties.Property("final timestamp is initial plus the sum of increments", prop.ForAll(
		func(increments []uint16) bool {
			th, _ := New("2022-10-01")
			sum := 0.0
			for _, inc := range increments {
				if err := th.UpdateTime(float64(inc), Seconds); err != nil {
					return false
				}
				sum += float64(inc)
			}
			return math.Abs(th.CurrentTimestamp()-(th.InitialTimestamp()+sum)) < 1e-6
		},
		gen.SliceOf(gen.UInt16()),
	))

	properties.TestingRun(t)
}
