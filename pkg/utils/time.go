package utils

import (
	"errors"
	"fmt"
	"math"
	"sync"
	"time"
)

// ErrClockReversed is returned when a clock would move backwards
var ErrClockReversed = errors.New("simulated time cannot move backwards")

// SimTime is a forward-only simulated clock anchored at its start epoch.
// It keeps the elapsed duration so the start is never lost.
type SimTime struct {
	mu      sync.RWMutex
	start   time.Time
	elapsed time.Duration
}

// NewSimTime creates a clock standing at start
func NewSimTime(start time.Time) *SimTime {
	return &SimTime{start: start}
}

// Start is the epoch the clock was created at
func (st *SimTime) Start() time.Time {
	return st.start
}

// Now returns the current simulated time
func (st *SimTime) Now() time.Time {
	st.mu.RLock()
	defer st.mu.RUnlock()
	return st.start.Add(st.elapsed)
}

// Elapsed is the simulated time since the start
func (st *SimTime) Elapsed() time.Duration {
	st.mu.RLock()
	defer st.mu.RUnlock()
	return st.elapsed
}

// Advance moves the clock forward by d
func (st *SimTime) Advance(d time.Duration) error {
	if d < 0 {
		return fmt.Errorf("%w: %v", ErrClockReversed, d)
	}
	st.mu.Lock()
	st.elapsed += d
	st.mu.Unlock()
	return nil
}

// AdvanceTo moves the clock to t when t is later and returns the step
// taken. An earlier t leaves the clock where it is.
func (st *SimTime) AdvanceTo(t time.Time) time.Duration {
	st.mu.Lock()
	defer st.mu.Unlock()
	step := t.Sub(st.start.Add(st.elapsed))
	if step <= 0 {
		return 0
	}
	st.elapsed += step
	return step
}

// Offset is the signed duration from t to the current simulated time
func (st *SimTime) Offset(t time.Time) time.Duration {
	return st.Now().Sub(t)
}

var durationRounding = []struct {
	below time.Duration
	round time.Duration
}{
	{time.Millisecond, time.Microsecond},
	{time.Second, time.Millisecond},
	{time.Minute, 10 * time.Millisecond},
	{math.MaxInt64, time.Second},
}

// FormatDuration renders a wall-clock duration rounded to its scale
func FormatDuration(d time.Duration) string {
	if d < time.Microsecond {
		return d.String()
	}
	for _, r := range durationRounding {
		if d < r.below {
			return d.Round(r.round).String()
		}
	}
	return d.String()
}

// SecondsToDuration converts fractional seconds to the nearest nanosecond
func SecondsToDuration(s float64) time.Duration {
	return time.Duration(math.Round(s * float64(time.Second)))
}
