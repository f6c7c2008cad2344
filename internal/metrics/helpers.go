package metrics

import (
	"github.com/GoSim-25-26J-441/opsim-driver/pkg/models"
)

// Per-visit sample names
const (
	MetricSlewTime       = "slew_time_seconds"
	MetricVisitTime      = "visit_time_seconds"
	MetricAirmass        = "airmass"
	MetricSkyBrightness  = "sky_brightness"
	MetricSeeingFwhmEff  = "seeing_fwhm_eff"
	MetricFiveSigmaDepth = "five_sigma_depth"
	MetricNightVisits    = "night_visits"
)

// FilterLabels labels a sample with the filter it was taken in
func FilterLabels(filter string) map[string]string {
	return map[string]string{"filter": filter}
}

// RecordVisit records the distribution samples of one observation
func RecordVisit(c *Collector, obs models.Observation) {
	labels := FilterLabels(obs.Filter)
	ts := obs.StartTime
	c.Record(MetricSlewTime, obs.SlewTime, ts, labels)
	c.Record(MetricVisitTime, obs.VisitTime, ts, labels)
	c.Record(MetricAirmass, obs.AirMass, ts, labels)
	c.Record(MetricSkyBrightness, obs.SkyBrightness, ts, labels)
	c.Record(MetricSeeingFwhmEff, obs.SeeingFwhmEff, ts, labels)
	c.Record(MetricFiveSigmaDepth, obs.FiveSigmaDepth, ts, labels)
}

// RecordNight records how many visits one night produced
func RecordNight(c *Collector, visits int, timestamp float64) {
	c.Record(MetricNightVisits, float64(visits), timestamp, map[string]string{"night_kind": nightKind(visits)})
}

func nightKind(visits int) string {
	if visits == 0 {
		return "empty"
	}
	return "observing"
}
