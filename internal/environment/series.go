// Package environment indexes precomputed cloud and seeing histories by
// simulated time.
package environment

import (
	"errors"
	"fmt"
	"math"
	"sort"
	"time"
)

var (
	// ErrSeriesMissing is returned when an environment file or its rows are absent
	ErrSeriesMissing = errors.New("environment series missing")
	// ErrSeriesInvalid is returned for mismatched or unordered series
	ErrSeriesInvalid = errors.New("environment series invalid")
)

// Series pairs strictly increasing timestamps (seconds from the start of a
// reference year) with values. Lookups wrap with a period of the final timestamp.
type Series struct {
	timestamps []float64
	values     []float64
}

// NewSeries validates and wraps the two arrays
func NewSeries(timestamps, values []float64) (*Series, error) {
	if len(timestamps) == 0 {
		return nil, fmt.Errorf("%w: no samples", ErrSeriesMissing)
	}
	if len(timestamps) != len(values) {
		return nil, fmt.Errorf("%w: %d timestamps but %d values", ErrSeriesInvalid, len(timestamps), len(values))
	}
	for i := 1; i < len(timestamps); i++ {
		if timestamps[i] <= timestamps[i-1] {
			return nil, fmt.Errorf("%w: timestamp %d not increasing", ErrSeriesInvalid, i)
		}
	}
	if timestamps[len(timestamps)-1] <= 0 {
		return nil, fmt.Errorf("%w: non-positive period", ErrSeriesInvalid)
	}
	return &Series{timestamps: timestamps, values: values}, nil
}

// Len is the number of samples
func (s *Series) Len() int {
	return len(s.timestamps)
}

// Period is the final timestamp
func (s *Series) Period() float64 {
	return s.timestamps[len(s.timestamps)-1]
}

// Index returns the sample closest to t after wrapping t into the period.
// Equidistant neighbours resolve to the earlier sample.
func (s *Series) Index(t float64) int {
	t = math.Mod(t, s.Period())
	if t < 0 {
		t += s.Period()
	}
	idx := sort.SearchFloat64s(s.timestamps, t)
	switch {
	case idx == 0:
		return 0
	case idx >= len(s.timestamps):
		return len(s.timestamps) - 1
	}
	if t-s.timestamps[idx-1] <= s.timestamps[idx]-t {
		return idx - 1
	}
	return idx
}

// Value returns the sample value closest to t
func (s *Series) Value(t float64) float64 {
	return s.values[s.Index(t)]
}

// indexer shifts simulation-relative times onto the series' yearly axis
type indexer struct {
	series *Series
	offset float64
}

func newIndexer(series *Series, initial time.Time) indexer {
	initial = initial.UTC()
	yearStart := time.Date(initial.Year(), time.January, 1, 0, 0, 0, 0, time.UTC)
	return indexer{series: series, offset: initial.Sub(yearStart).Seconds()}
}

// Offset is the seconds between January 1 of the initial year and the initial epoch
func (ix indexer) Offset() float64 {
	return ix.offset
}

func (ix indexer) lookup(deltaTime float64) float64 {
	return ix.series.Value(deltaTime + ix.offset)
}
