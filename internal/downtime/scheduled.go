package downtime

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"sort"
	"strings"

	_ "modernc.org/sqlite"

	"github.com/GoSim-25-26J-441/opsim-driver/pkg/logger"
	"github.com/GoSim-25-26J-441/opsim-driver/pkg/models"
)

// ErrScheduleMissing is returned when the scheduled downtime file does not exist
var ErrScheduleMissing = errors.New("scheduled downtime file missing")

const scheduledQuery = `SELECT night, duration, activity FROM Downtime ORDER BY night`

// Scheduled is the pre-tabulated maintenance schedule
type Scheduled struct {
	queue
	log *slog.Logger
}

// NewScheduled creates an empty schedule
func NewScheduled(log *slog.Logger) *Scheduled {
	return &Scheduled{log: logger.OrDefault(log)}
}

// Initialize loads the schedule from a sqlite file. An empty path, a missing
// Downtime table or an empty table all mean no scheduled downtime.
func (s *Scheduled) Initialize(ctx context.Context, path string) error {
	if path == "" {
		s.log.Warn("no scheduled downtime file configured")
		s.reset(nil)
		return nil
	}
	if _, err := os.Stat(path); err != nil {
		return fmt.Errorf("%w: %s: %v", ErrScheduleMissing, path, err)
	}

	db, err := sql.Open("sqlite", fmt.Sprintf("file:%s?mode=ro", path))
	if err != nil {
		return fmt.Errorf("failed to open scheduled downtime %s: %w", path, err)
	}
	defer db.Close()

	entries, err := ReadEntries(ctx, db)
	if err != nil {
		if strings.Contains(err.Error(), "no such table") {
			s.log.Warn("scheduled downtime table missing, assuming none", "path", path)
			s.reset(nil)
			return nil
		}
		return err
	}
	s.log.Info("loaded scheduled downtime", "path", path, "entries", len(entries))
	s.reset(entries)
	return nil
}

// InitializeEntries loads the schedule from memory
func (s *Scheduled) InitializeEntries(entries []models.DowntimeEntry) {
	sorted := make([]models.DowntimeEntry, len(entries))
	copy(sorted, entries)
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].Night < sorted[j].Night })
	s.reset(sorted)
}

// ReadEntries reads (night, duration, activity) rows from the Downtime table
func ReadEntries(ctx context.Context, db *sql.DB) ([]models.DowntimeEntry, error) {
	rows, err := db.QueryContext(ctx, scheduledQuery)
	if err != nil {
		return nil, fmt.Errorf("failed to query scheduled downtime: %w", err)
	}
	defer rows.Close()

	var entries []models.DowntimeEntry
	for rows.Next() {
		var e models.DowntimeEntry
		if err := rows.Scan(&e.Night, &e.Duration, &e.Activity); err != nil {
			return nil, fmt.Errorf("failed to scan scheduled downtime: %w", err)
		}
		if e.Duration < 1 || e.Night < 0 {
			continue
		}
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read scheduled downtime: %w", err)
	}
	return entries, nil
}
