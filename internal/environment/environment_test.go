package environment

import (
	"context"
	"database/sql"
	"errors"
	"math"
	"path/filepath"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"

	"github.com/GoSim-25-26J-441/opsim-driver/pkg/config"
)

func hourlySeries(t *testing.T, n int, value func(i int) float64) *Series {
	t.Helper()
	ts := make([]float64, n)
	vs := make([]float64, n)
	for i := 0; i < n; i++ {
		ts[i] = float64(i * 3600)
		vs[i] = value(i)
	}
	s, err := NewSeries(ts, vs)
	if err != nil {
		t.Fatalf("NewSeries failed: %v", err)
	}
	return s
}

func TestCloudLookup(t *testing.T) {
	series := hourlySeries(t, 48, func(i int) float64 {
		if i < 10 {
			return 0
		}
		return 0.25
	})
	cloud := NewCloud(series, time.Date(2020, 1, 1, 0, 0, 0, 0, time.UTC))
	if cloud.Offset() != 0 {
		t.Errorf("expected zero offset, got %f", cloud.Offset())
	}
	if got := cloud.GetCloud(6 * 3600); got != 0.0 {
		t.Errorf("GetCloud(6h) = %f, want 0", got)
	}
	if got := cloud.GetCloud(20 * 3600); got != 0.25 {
		t.Errorf("GetCloud(20h) = %f, want 0.25", got)
	}
}

func TestOffsetFromYearStart(t *testing.T) {
	series := hourlySeries(t, 24*400, func(i int) float64 { return float64(i) })
	cloud := NewCloud(series, time.Date(2021, 1, 2, 0, 0, 0, 0, time.UTC))
	if cloud.Offset() != 86400 {
		t.Fatalf("expected one day offset, got %f", cloud.Offset())
	}
	if got := cloud.GetCloud(3600); got != 25 {
		t.Errorf("GetCloud(1h) = %f, want sample 25", got)
	}
}

func TestSeriesNeighbour(t *testing.T) {
	s, err := NewSeries([]float64{0, 100, 200, 300}, []float64{1, 2, 3, 4})
	if err != nil {
		t.Fatal(err)
	}
	tests := []struct {
		t    float64
		want int
	}{
		{0, 0},
		{40, 0},
		{50, 0}, // equidistant resolves to the earlier sample
		{60, 1},
		{100, 1},
		{249, 2},
		{251, 3},
		{300, 0}, // wraps onto the start of the period
		{-10, 3},
	}
	for _, tt := range tests {
		if got := s.Index(tt.t); got != tt.want {
			t.Errorf("Index(%v) = %d, want %d", tt.t, got, tt.want)
		}
	}
}

func TestNewSeriesInvalid(t *testing.T) {
	if _, err := NewSeries(nil, nil); !errors.Is(err, ErrSeriesMissing) {
		t.Errorf("expected ErrSeriesMissing, got %v", err)
	}
	if _, err := NewSeries([]float64{1, 2}, []float64{1}); !errors.Is(err, ErrSeriesInvalid) {
		t.Errorf("expected ErrSeriesInvalid for length mismatch, got %v", err)
	}
	if _, err := NewSeries([]float64{1, 1}, []float64{1, 2}); !errors.Is(err, ErrSeriesInvalid) {
		t.Errorf("expected ErrSeriesInvalid for repeated timestamp, got %v", err)
	}
}

func TestLookupIsPeriodic(t *testing.T) {
	ts := []float64{0, 600, 1500, 1800, 4000, 7200}
	vs := []float64{0.1, 0.2, 0.3, 0.4, 0.5, 0.6}
	s, err := NewSeries(ts, vs)
	if err != nil {
		t.Fatal(err)
	}
	properties := gopter.NewProperties(nil)
	properties.Property("lookup(t) == lookup(t + period)", prop.ForAll(
		func(t int64) bool {
			x := float64(t)
			return s.Value(x) == s.Value(x+s.Period())
		},
		gen.Int64Range(0, 10_000_000),
	))
	properties.TestingRun(t)
}

func TestCalculateSeeingZBand(t *testing.T) {
	series, err := NewSeries([]float64{0, 3600}, []float64{0.715884983539581, 0.9})
	if err != nil {
		t.Fatal(err)
	}
	seeing := NewSeeing(series, time.Date(2022, 1, 1, 0, 0, 0, 0, time.UTC), config.Default().Seeing)

	got := seeing.CalculateSeeing(0, "z", 1.5)
	if got.Fwhm500 != 0.715884983539581 {
		t.Errorf("unexpected fwhm500 %f", got.Fwhm500)
	}
	if math.Abs(got.FwhmGeom-0.7735) > 1e-4 {
		t.Errorf("fwhm_geom = %f, want ~0.7735", got.FwhmGeom)
	}
	if math.Abs(got.FwhmEff-1.0886) > 1e-4 {
		t.Errorf("fwhm_eff = %f, want ~1.0886", got.FwhmEff)
	}

	if none := seeing.CalculateSeeing(0, "", 1.5); none != NoSeeing {
		t.Errorf("empty filter should give -1s, got %+v", none)
	}
}

func TestFiveSigmaDepth(t *testing.T) {
	m5 := FiveSigmaDepth("z", 19.6, 1.0886341618872941, 30, 1.5)
	if math.Abs(m5-22.9655) > 1e-3 {
		t.Errorf("m5 = %f, want ~22.9655", m5)
	}

	// brighter sky and worse seeing both reduce depth
	if FiveSigmaDepth("r", 20.0, 0.8, 30, 1.0) >= FiveSigmaDepth("r", 21.2, 0.8, 30, 1.0) {
		t.Error("brighter sky should give a shallower depth")
	}
	if FiveSigmaDepth("r", 21.2, 1.2, 30, 1.0) >= FiveSigmaDepth("r", 21.2, 0.8, 30, 1.0) {
		t.Error("worse seeing should give a shallower depth")
	}
	if !math.IsNaN(FiveSigmaDepth("x", 21, 1, 30, 1)) {
		t.Error("unknown filter should give NaN")
	}
}

func writeSeriesDB(t *testing.T, path, create, insert string, rows [][2]float64) {
	t.Helper()
	db, err := sql.Open("sqlite", path)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer db.Close()
	if _, err := db.Exec(create); err != nil {
		t.Fatalf("create: %v", err)
	}
	for _, r := range rows {
		if _, err := db.Exec(insert, r[0], r[1]); err != nil {
			t.Fatalf("insert: %v", err)
		}
	}
}

func TestLoadFromSQLite(t *testing.T) {
	dir := t.TempDir()
	cloudPath := filepath.Join(dir, "cloud.db")
	seeingPath := filepath.Join(dir, "seeing.db")
	writeSeriesDB(t, cloudPath,
		`CREATE TABLE Cloud (cloudId INTEGER PRIMARY KEY, c_date INTEGER, cloud REAL)`,
		`INSERT INTO Cloud (c_date, cloud) VALUES (?, ?)`,
		[][2]float64{{3600, 0.5}, {0, 0.125}, {7200, 0.875}})
	writeSeriesDB(t, seeingPath,
		`CREATE TABLE Seeing (seeingId INTEGER PRIMARY KEY, s_date INTEGER, seeing REAL)`,
		`INSERT INTO Seeing (s_date, seeing) VALUES (?, ?)`,
		[][2]float64{{0, 0.6}, {300, 0.7}, {600, 0.8}})

	start := time.Date(2022, 1, 1, 0, 0, 0, 0, time.UTC)
	cloud, err := LoadCloud(context.Background(), cloudPath, start)
	if err != nil {
		t.Fatalf("LoadCloud failed: %v", err)
	}
	if got := cloud.GetCloud(3500); got != 0.5 {
		t.Errorf("GetCloud(3500) = %f, want 0.5", got)
	}

	seeing, err := LoadSeeing(context.Background(), seeingPath, start, config.Default().Seeing)
	if err != nil {
		t.Fatalf("LoadSeeing failed: %v", err)
	}
	if got := seeing.GetSeeing(310); got != 0.7 {
		t.Errorf("GetSeeing(310) = %f, want 0.7", got)
	}
}

func TestLoadMissing(t *testing.T) {
	dir := t.TempDir()
	if _, err := LoadCloud(context.Background(), filepath.Join(dir, "none.db"), time.Now()); !errors.Is(err, ErrSeriesMissing) {
		t.Errorf("expected ErrSeriesMissing for missing file, got %v", err)
	}

	empty := filepath.Join(dir, "empty.db")
	writeSeriesDB(t, empty, `CREATE TABLE Cloud (c_date INTEGER, cloud REAL)`, `INSERT INTO Cloud VALUES (?, ?)`, nil)
	if _, err := LoadCloud(context.Background(), empty, time.Now()); !errors.Is(err, ErrSeriesMissing) {
		t.Errorf("expected ErrSeriesMissing for empty table, got %v", err)
	}
	if _, err := LoadSeeing(context.Background(), empty, time.Now(), config.Default().Seeing); !errors.Is(err, ErrSeriesMissing) {
		t.Errorf("expected ErrSeriesMissing for missing table, got %v", err)
	}
}

func TestReadSeriesScanError(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatal(err)
	}
	defer db.Close()

	mock.ExpectQuery("SELECT c_date, cloud FROM Cloud").
		WillReturnRows(sqlmock.NewRows([]string{"c_date", "cloud"}).AddRow("not-a-number", 0.1))
	if _, err := ReadSeries(context.Background(), db, cloudQuery); err == nil {
		t.Error("expected scan error")
	}
}
