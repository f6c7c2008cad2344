package environment

import (
	"math"
	"time"

	"github.com/GoSim-25-26J-441/opsim-driver/pkg/config"
)

// Seeing looks up the zenith FWHM at 500 nm and derives the delivered seeing
type Seeing struct {
	indexer
	params       config.Seeing
	systemZenith float64
}

// SeeingValues are the three FWHM figures attached to an observation
type SeeingValues struct {
	Fwhm500  float64
	FwhmGeom float64
	FwhmEff  float64
}

// NoSeeing is returned when no filter is given
var NoSeeing = SeeingValues{Fwhm500: -1, FwhmGeom: -1, FwhmEff: -1}

// NewSeeing anchors a seeing series at the survey start
func NewSeeing(series *Series, initial time.Time, params config.Seeing) *Seeing {
	return &Seeing{
		indexer: newIndexer(series, initial),
		params:  params,
		systemZenith: math.Sqrt(params.TelescopeSeeing*params.TelescopeSeeing +
			params.OpticalDesignSeeing*params.OpticalDesignSeeing +
			params.CameraSeeing*params.CameraSeeing),
	}
}

// GetSeeing returns FWHM500 deltaTime seconds after the survey start
func (s *Seeing) GetSeeing(deltaTime float64) float64 {
	return s.lookup(deltaTime)
}

// CalculateSeeing returns the series FWHM500 with the filter- and
// airmass-corrected geometric and effective FWHM.
func (s *Seeing) CalculateSeeing(deltaTime float64, filter string, airmass float64) SeeingValues {
	if filter == "" {
		return NoSeeing
	}
	fwhm500 := s.GetSeeing(deltaTime)
	geom, eff := s.Correct(fwhm500, filter, airmass)
	return SeeingValues{Fwhm500: fwhm500, FwhmGeom: geom, FwhmEff: eff}
}

// Correct converts a zenith FWHM500 into geometric and effective FWHM
func (s *Seeing) Correct(fwhm500 float64, filter string, airmass float64) (float64, float64) {
	airmassCorrection := math.Pow(airmass, 0.6)
	filterCorrection := math.Pow(500.0/s.params.FilterWavelengths[filter], 0.3)

	fwhmSystem := s.systemZenith * airmassCorrection
	fwhmGeom := fwhm500 * filterCorrection * airmassCorrection
	fwhmEff := s.params.ScaleToEff * math.Sqrt(fwhmSystem*fwhmSystem+s.params.GeomEffFactor*fwhmGeom*fwhmGeom)
	return fwhmGeom, fwhmEff
}
