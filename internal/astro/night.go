package astro

import (
	"errors"
	"time"
)

// ErrNoNight is returned when the sun never crosses the twilight altitude in
// the search window
var ErrNoNight = errors.New("sun does not cross twilight altitude")

const (
	searchStep   = 10 * time.Minute
	searchWindow = 36 * time.Hour
)

// NightBoundaries returns the start and end of the dark time at or after t.
// If the sun is already below twilightDeg, the night starts at t.
func (s Site) NightBoundaries(t time.Time, twilightDeg float64) (time.Time, time.Time, error) {
	dark := func(at time.Time) bool {
		return s.Altitude(at, Sun(at)) <= twilightDeg
	}

	sunset := t
	if !dark(t) {
		var err error
		sunset, err = crossing(t, dark)
		if err != nil {
			return time.Time{}, time.Time{}, err
		}
	}
	sunrise, err := crossing(sunset, func(at time.Time) bool { return !dark(at) })
	if err != nil {
		return time.Time{}, time.Time{}, err
	}
	return sunset, sunrise, nil
}

// crossing returns the first time after from at which cond becomes true,
// to one second resolution
func crossing(from time.Time, cond func(time.Time) bool) (time.Time, error) {
	lo := from
	for elapsed := time.Duration(0); elapsed < searchWindow; elapsed += searchStep {
		hi := lo.Add(searchStep)
		if cond(hi) {
			for hi.Sub(lo) > time.Second {
				mid := lo.Add(hi.Sub(lo) / 2)
				if cond(mid) {
					hi = mid
				} else {
					lo = mid
				}
			}
			return hi, nil
		}
		lo = hi
	}
	return time.Time{}, ErrNoNight
}
