// Package metrics records run counters for Prometheus and keeps per-visit
// distributions for the end-of-run summary.
package metrics

import (
	"github.com/GoSim-25-26J-441/opsim-driver/pkg/models"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
)

const namespace = "opsim"

// Recorder owns a private registry so several runs in one process (tests)
// never collide on metric registration.
type Recorder struct {
	registry *prometheus.Registry
	samples  *Collector

	nights           prometheus.Counter
	darkNights       prometheus.Counter
	targetsReceived  prometheus.Counter
	targetsMissed    prometheus.Counter
	observations     *prometheus.CounterVec
	filterSwaps      prometheus.Counter
	missingReplies   *prometheus.CounterVec
	writeFailures    *prometheus.CounterVec
	currentNight     prometheus.Gauge
	sessionID        prometheus.Gauge
	simulatedTime    prometheus.Gauge
	slewTime         prometheus.Histogram
	nightWriteRows   prometheus.Histogram
	schedulerLatency prometheus.Histogram
}

// NewRecorder registers every run metric on a fresh registry
func NewRecorder() *Recorder {
	r := &Recorder{
		registry: prometheus.NewRegistry(),
		samples:  NewCollector(),
		nights: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace, Name: "nights_total",
			Help: "Nights started.",
		}),
		darkNights: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace, Name: "dark_nights_total",
			Help: "Nights lost to scheduled or unscheduled downtime.",
		}),
		targetsReceived: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace, Name: "targets_received_total",
			Help: "Targets received from the scheduler, including empty ones.",
		}),
		targetsMissed: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace, Name: "targets_missed_total",
			Help: "Empty targets that left the observatory idle.",
		}),
		observations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace, Name: "observations_total",
			Help: "Visits executed, by filter.",
		}, []string{"filter"}),
		filterSwaps: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace, Name: "filter_swaps_total",
			Help: "Daytime filter swaps carried out.",
		}),
		missingReplies: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace, Name: "missing_replies_total",
			Help: "Optional scheduler replies that never arrived, by topic.",
		}, []string{"topic"}),
		writeFailures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace, Name: "write_failures_total",
			Help: "Table batches rejected by the session store, by table.",
		}, []string{"table"}),
		currentNight: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace, Name: "current_night",
			Help: "Night index being simulated.",
		}),
		sessionID: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace, Name: "session_id",
			Help: "Session id of the running simulation.",
		}),
		simulatedTime: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace, Name: "simulated_timestamp_seconds",
			Help: "Current simulated unix timestamp.",
		}),
		slewTime: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace, Name: "slew_time_seconds",
			Help:    "Simulated slew durations.",
			Buckets: []float64{2, 5, 10, 20, 30, 60, 120, 240},
		}),
		nightWriteRows: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace, Name: "night_write_rows",
			Help:    "Rows flushed per end of night.",
			Buckets: prometheus.ExponentialBuckets(10, 4, 7),
		}),
		schedulerLatency: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace, Name: "scheduler_reply_seconds",
			Help:    "Wall-clock time spent waiting for the next target.",
			Buckets: prometheus.ExponentialBuckets(0.0001, 4, 10),
		}),
	}

	r.registry.MustRegister(
		r.nights, r.darkNights, r.targetsReceived, r.targetsMissed, r.observations,
		r.filterSwaps, r.missingReplies, r.writeFailures, r.currentNight, r.sessionID,
		r.simulatedTime, r.slewTime, r.nightWriteRows, r.schedulerLatency,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return r
}

// Registry exposes the registry for the HTTP handler and tests
func (r *Recorder) Registry() *prometheus.Registry {
	return r.registry
}

// Samples is the per-visit distribution collector
func (r *Recorder) Samples() *Collector {
	return r.samples
}

// SessionStarted records the session id
func (r *Recorder) SessionStarted(id int) {
	r.sessionID.Set(float64(id))
}

// NightStarted counts a night; dark nights are counted separately
func (r *Recorder) NightStarted(night int, dark bool) {
	r.nights.Inc()
	r.currentNight.Set(float64(night))
	if dark {
		r.darkNights.Inc()
	}
}

// NightEnded records the flushed row count and the night's visit total
func (r *Recorder) NightEnded(rows, visits int, timestamp float64) {
	r.nightWriteRows.Observe(float64(rows))
	RecordNight(r.samples, visits, timestamp)
}

// TimeAdvanced tracks the simulated clock
func (r *Recorder) TimeAdvanced(timestamp float64) {
	r.simulatedTime.Set(timestamp)
}

// TargetReceived counts a scheduler target and the wall time spent waiting
func (r *Recorder) TargetReceived(empty bool, waitSeconds float64) {
	r.targetsReceived.Inc()
	r.schedulerLatency.Observe(waitSeconds)
	if empty {
		r.targetsMissed.Inc()
	}
}

// Observed records an executed visit
func (r *Recorder) Observed(obs models.Observation) {
	r.observations.WithLabelValues(obs.Filter).Inc()
	r.slewTime.Observe(obs.SlewTime)
	RecordVisit(r.samples, obs)
}

// FilterSwapped counts a daytime swap
func (r *Recorder) FilterSwapped() {
	r.filterSwaps.Inc()
}

// ReplyMissing counts an optional reply that timed out
func (r *Recorder) ReplyMissing(topic string) {
	r.missingReplies.WithLabelValues(topic).Inc()
}

// WriteFailed counts a rejected table batch
func (r *Recorder) WriteFailed(table string) {
	r.writeFailures.WithLabelValues(table).Inc()
}
