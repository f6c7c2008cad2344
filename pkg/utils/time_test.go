package utils

import (
	"errors"
	"strings"
	"testing"
	"time"
)

var epoch = time.Date(2020, 5, 24, 0, 0, 0, 0, time.UTC)

func TestNewSimTime(t *testing.T) {
	st := NewSimTime(epoch)

	if !st.Now().Equal(epoch) {
		t.Errorf("Expected start time %v, got %v", epoch, st.Now())
	}
	if !st.Start().Equal(epoch) {
		t.Errorf("Expected start %v, got %v", epoch, st.Start())
	}
	if st.Elapsed() != 0 {
		t.Errorf("Expected no elapsed time, got %v", st.Elapsed())
	}
}

func TestSimTimeAdvance(t *testing.T) {
	st := NewSimTime(epoch)

	if err := st.Advance(5 * time.Second); err != nil {
		t.Fatalf("Advance: %v", err)
	}
	if err := st.Advance(10 * time.Minute); err != nil {
		t.Fatalf("Advance: %v", err)
	}
	expected := epoch.Add(10*time.Minute + 5*time.Second)
	if !st.Now().Equal(expected) {
		t.Errorf("Expected time %v, got %v", expected, st.Now())
	}

	err := st.Advance(-time.Second)
	if !errors.Is(err, ErrClockReversed) {
		t.Errorf("Expected ErrClockReversed, got %v", err)
	}
	if !st.Now().Equal(expected) {
		t.Errorf("Rejected advance moved the clock to %v", st.Now())
	}
}

func TestSimTimeAdvanceTo(t *testing.T) {
	st := NewSimTime(epoch)

	if step := st.AdvanceTo(epoch.Add(time.Hour)); step != time.Hour {
		t.Errorf("Expected a one hour step, got %v", step)
	}
	if step := st.AdvanceTo(epoch.Add(time.Minute)); step != 0 {
		t.Errorf("Expected no step into the past, got %v", step)
	}
	if st.Elapsed() != time.Hour {
		t.Errorf("Expected 1h elapsed, got %v", st.Elapsed())
	}
}

func TestSimTimeOffset(t *testing.T) {
	st := NewSimTime(epoch)
	_ = st.Advance(10 * time.Second)

	if off := st.Offset(epoch); off != 10*time.Second {
		t.Errorf("Expected 10s after the epoch, got %v", off)
	}
	if off := st.Offset(epoch.Add(30 * time.Second)); off != -20*time.Second {
		t.Errorf("Expected -20s before a later time, got %v", off)
	}
}

func TestFormatDuration(t *testing.T) {
	tests := []struct {
		duration time.Duration
		want     string
	}{
		{500 * time.Nanosecond, "500ns"},
		{1500 * time.Nanosecond, "2µs"},
		{1600 * time.Microsecond, "2ms"},
		{1234567890 * time.Nanosecond, "1.23s"},
		{2*time.Minute + 1600*time.Millisecond, "2m2s"},
	}
	for _, tt := range tests {
		if got := FormatDuration(tt.duration); got != tt.want {
			t.Errorf("FormatDuration(%v) = %s, expected %s", tt.duration, got, tt.want)
		}
	}
	if got := FormatDuration(3 * time.Hour); !strings.HasPrefix(got, "3h") {
		t.Errorf("FormatDuration(3h) = %s", got)
	}
}

func TestSecondsToDuration(t *testing.T) {
	if got := SecondsToDuration(1.5); got != 1500*time.Millisecond {
		t.Errorf("SecondsToDuration(1.5) = %v", got)
	}
	if got := SecondsToDuration(0.1 + 0.2); got != 300*time.Millisecond {
		t.Errorf("SecondsToDuration(0.1+0.2) = %v", got)
	}
}
