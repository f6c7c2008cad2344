package metrics

import (
	"sort"
	"strings"
	"sync"

	"github.com/GoSim-25-26J-441/opsim-driver/pkg/utils"
)

// Sample is one value observed at a simulated timestamp
type Sample struct {
	Timestamp float64           `json:"timestamp"`
	Name      string            `json:"name"`
	Value     float64           `json:"value"`
	Labels    map[string]string `json:"labels,omitempty"`
}

// Aggregation summarizes every sample of one series
type Aggregation struct {
	Count int64   `json:"count"`
	Sum   float64 `json:"sum"`
	Min   float64 `json:"min"`
	Max   float64 `json:"max"`
	Mean  float64 `json:"mean"`
	P50   float64 `json:"p50"`
	P95   float64 `json:"p95"`
	P99   float64 `json:"p99"`
}

// Collector keeps per-visit samples in simulated time so the run summary
// can report distributions, which Prometheus counters cannot.
type Collector struct {
	mu sync.RWMutex

	// metric name -> label key -> samples
	series map[string]map[string][]Sample
}

// NewCollector creates an empty collector
func NewCollector() *Collector {
	return &Collector{series: make(map[string]map[string][]Sample)}
}

// Record appends a sample
func (c *Collector) Record(name string, value, timestamp float64, labels map[string]string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	key := labelKey(labels)
	if c.series[name] == nil {
		c.series[name] = make(map[string][]Sample)
	}
	c.series[name][key] = append(c.series[name][key], Sample{
		Timestamp: timestamp,
		Name:      name,
		Value:     value,
		Labels:    copyLabels(labels),
	})
}

// Series returns a copy of the samples recorded under exactly these labels
func (c *Collector) Series(name string, labels map[string]string) []Sample {
	c.mu.RLock()
	defer c.mu.RUnlock()

	samples := c.series[name][labelKey(labels)]
	if len(samples) == 0 {
		return nil
	}
	out := make([]Sample, len(samples))
	for i, s := range samples {
		s.Labels = copyLabels(s.Labels)
		out[i] = s
	}
	return out
}

// Aggregate summarizes the samples recorded under exactly these labels
func (c *Collector) Aggregate(name string, labels map[string]string) *Aggregation {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return calculateAggregation(c.series[name][labelKey(labels)])
}

// AggregateAll summarizes a metric across every label combination
func (c *Collector) AggregateAll(name string) *Aggregation {
	c.mu.RLock()
	defer c.mu.RUnlock()

	var all []Sample
	for _, samples := range c.series[name] {
		all = append(all, samples...)
	}
	return calculateAggregation(all)
}

// Names lists the recorded metric names in sorted order
func (c *Collector) Names() []string {
	c.mu.RLock()
	defer c.mu.RUnlock()

	names := make([]string, 0, len(c.series))
	for name := range c.series {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// LabelSets returns every label combination recorded for a metric
func (c *Collector) LabelSets(name string) []map[string]string {
	c.mu.RLock()
	defer c.mu.RUnlock()

	keys := make([]string, 0, len(c.series[name]))
	for key := range c.series[name] {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	sets := make([]map[string]string, 0, len(keys))
	for _, key := range keys {
		if samples := c.series[name][key]; len(samples) > 0 {
			sets = append(sets, copyLabels(samples[0].Labels))
		}
	}
	return sets
}

// Summary aggregates every metric across all labels
func (c *Collector) Summary() map[string]*Aggregation {
	summary := make(map[string]*Aggregation)
	for _, name := range c.Names() {
		if agg := c.AggregateAll(name); agg != nil {
			summary[name] = agg
		}
	}
	return summary
}

// Reset drops every sample
func (c *Collector) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.series = make(map[string]map[string][]Sample)
}

func labelKey(labels map[string]string) string {
	if len(labels) == 0 {
		return ""
	}
	keys := make([]string, 0, len(labels))
	for k := range labels {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var b strings.Builder
	for _, k := range keys {
		b.WriteString(k)
		b.WriteByte('=')
		b.WriteString(labels[k])
		b.WriteByte(',')
	}
	return b.String()
}

func copyLabels(labels map[string]string) map[string]string {
	if labels == nil {
		return nil
	}
	out := make(map[string]string, len(labels))
	for k, v := range labels {
		out[k] = v
	}
	return out
}

func calculateAggregation(samples []Sample) *Aggregation {
	if len(samples) == 0 {
		return nil
	}
	values := make([]float64, len(samples))
	for i, s := range samples {
		values[i] = s.Value
	}
	sort.Float64s(values)

	return &Aggregation{
		Count: int64(len(values)),
		Sum:   utils.Sum(values),
		Min:   values[0],
		Max:   values[len(values)-1],
		Mean:  utils.Mean(values),
		P50:   percentile(values, 0.50),
		P95:   percentile(values, 0.95),
		P99:   percentile(values, 0.99),
	}
}

// percentile interpolates linearly between the closest ranks of a sorted slice
func percentile(sorted []float64, p float64) float64 {
	switch len(sorted) {
	case 0:
		return 0
	case 1:
		return sorted[0]
	}
	index := p * float64(len(sorted)-1)
	lower := int(index)
	upper := lower + 1
	if upper >= len(sorted) {
		return sorted[len(sorted)-1]
	}
	weight := index - float64(lower)
	return sorted[lower]*(1-weight) + sorted[upper]*weight
}
