package environment

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"time"

	_ "modernc.org/sqlite"

	"github.com/GoSim-25-26J-441/opsim-driver/pkg/config"
)

const (
	cloudQuery  = `SELECT c_date, cloud FROM Cloud ORDER BY c_date`
	seeingQuery = `SELECT s_date, seeing FROM Seeing ORDER BY s_date`
)

// LoadCloud reads the Cloud table of a sqlite file
func LoadCloud(ctx context.Context, path string, initial time.Time) (*Cloud, error) {
	series, err := loadSeries(ctx, path, cloudQuery)
	if err != nil {
		return nil, fmt.Errorf("cloud: %w", err)
	}
	return NewCloud(series, initial), nil
}

// LoadSeeing reads the Seeing table of a sqlite file
func LoadSeeing(ctx context.Context, path string, initial time.Time, params config.Seeing) (*Seeing, error) {
	series, err := loadSeries(ctx, path, seeingQuery)
	if err != nil {
		return nil, fmt.Errorf("seeing: %w", err)
	}
	return NewSeeing(series, initial, params), nil
}

func loadSeries(ctx context.Context, path, query string) (*Series, error) {
	if _, err := os.Stat(path); err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrSeriesMissing, path, err)
	}
	db, err := sql.Open("sqlite", fmt.Sprintf("file:%s?mode=ro", path))
	if err != nil {
		return nil, fmt.Errorf("failed to open %s: %w", path, err)
	}
	defer db.Close()
	return ReadSeries(ctx, db, query)
}

// ReadSeries runs a two-column (timestamp, value) query
func ReadSeries(ctx context.Context, db *sql.DB, query string) (*Series, error) {
	rows, err := db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrSeriesMissing, err)
	}
	defer rows.Close()

	var timestamps, values []float64
	for rows.Next() {
		var ts, v float64
		if err := rows.Scan(&ts, &v); err != nil {
			return nil, fmt.Errorf("failed to scan series row: %w", err)
		}
		timestamps = append(timestamps, ts)
		values = append(values, v)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read series: %w", err)
	}
	return NewSeries(timestamps, values)
}
