package metrics

import (
	"math"
	"testing"

	"github.com/GoSim-25-26J-441/opsim-driver/pkg/models"
)

func TestCollectorRecordAndSeries(t *testing.T) {
	c := NewCollector()
	c.Record("slew", 10, 100, nil)
	c.Record("slew", 20, 140, nil)
	c.Record("slew", 30, 180, nil)

	samples := c.Series("slew", nil)
	if len(samples) != 3 {
		t.Fatalf("expected 3 samples, got %d", len(samples))
	}
	if samples[0].Value != 10 || samples[2].Timestamp != 180 {
		t.Fatalf("unexpected samples: %+v", samples)
	}
	if c.Series("missing", nil) != nil {
		t.Fatal("expected nil series for unknown metric")
	}
}

func TestCollectorLabelsAreIsolated(t *testing.T) {
	c := NewCollector()
	labels := map[string]string{"filter": "r"}
	c.Record("airmass", 1.2, 0, labels)
	c.Record("airmass", 1.5, 0, FilterLabels("g"))

	labels["filter"] = "z"
	samples := c.Series("airmass", FilterLabels("r"))
	if len(samples) != 1 || samples[0].Labels["filter"] != "r" {
		t.Fatalf("expected one r sample, got %+v", samples)
	}

	samples[0].Labels["filter"] = "y"
	if got := c.Series("airmass", FilterLabels("r"))[0].Labels["filter"]; got != "r" {
		t.Fatalf("series copy leaked a label mutation: %s", got)
	}

	sets := c.LabelSets("airmass")
	if len(sets) != 2 || sets[0]["filter"] != "g" {
		t.Fatalf("unexpected label sets: %v", sets)
	}
}

func TestCollectorAggregate(t *testing.T) {
	c := NewCollector()
	for i, v := range []float64{50, 10, 40, 20, 30} {
		c.Record("visit", v, float64(i), nil)
	}

	agg := c.Aggregate("visit", nil)
	if agg == nil {
		t.Fatal("expected aggregation")
	}
	if agg.Count != 5 || agg.Sum != 150 || agg.Min != 10 || agg.Max != 50 || agg.Mean != 30 {
		t.Fatalf("unexpected aggregation: %+v", agg)
	}
	if agg.P50 != 30 {
		t.Fatalf("expected p50 30, got %f", agg.P50)
	}
	if math.Abs(agg.P95-48) > 1e-9 {
		t.Fatalf("expected p95 48, got %f", agg.P95)
	}
	if c.Aggregate("missing", nil) != nil {
		t.Fatal("expected nil aggregation for unknown metric")
	}
}

func TestCollectorAggregateAllSpansLabels(t *testing.T) {
	c := NewCollector()
	c.Record("depth", 24, 0, FilterLabels("g"))
	c.Record("depth", 23, 0, FilterLabels("r"))
	c.Record("depth", 22, 0, FilterLabels("r"))

	agg := c.AggregateAll("depth")
	if agg.Count != 3 || agg.Min != 22 || agg.Max != 24 {
		t.Fatalf("unexpected aggregation: %+v", agg)
	}

	summary := c.Summary()
	if len(summary) != 1 || summary["depth"].Count != 3 {
		t.Fatalf("unexpected summary: %+v", summary)
	}

	c.Reset()
	if len(c.Names()) != 0 {
		t.Fatal("expected no metrics after reset")
	}
}

func TestPercentile(t *testing.T) {
	tests := []struct {
		values []float64
		p      float64
		want   float64
	}{
		{nil, 0.5, 0},
		{[]float64{7}, 0.99, 7},
		{[]float64{1, 2, 3, 4}, 0.5, 2.5},
		{[]float64{1, 2, 3, 4}, 1, 4},
		{[]float64{1, 2, 3, 4}, 0, 1},
	}
	for _, tt := range tests {
		if got := percentile(tt.values, tt.p); math.Abs(got-tt.want) > 1e-12 {
			t.Errorf("percentile(%v, %v) = %v, want %v", tt.values, tt.p, got, tt.want)
		}
	}
}

func TestRecordVisit(t *testing.T) {
	c := NewCollector()
	RecordVisit(c, models.Observation{
		StartTime: 1000, Filter: "i", SlewTime: 4.5, VisitTime: 34, AirMass: 1.1,
		SkyBrightness: 20, SeeingFwhmEff: 0.8, FiveSigmaDepth: 23.9,
	})

	names := c.Names()
	if len(names) != 6 {
		t.Fatalf("expected 6 metrics, got %v", names)
	}
	s := c.Series(MetricVisitTime, FilterLabels("i"))
	if len(s) != 1 || s[0].Value != 34 || s[0].Timestamp != 1000 {
		t.Fatalf("unexpected visit samples: %+v", s)
	}

	RecordNight(c, 0, 2000)
	RecordNight(c, 12, 3000)
	if agg := c.AggregateAll(MetricNightVisits); agg.Count != 2 || agg.Sum != 12 {
		t.Fatalf("unexpected night aggregation: %+v", agg)
	}
}
