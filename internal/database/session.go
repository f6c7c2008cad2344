package database

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"time"

	"github.com/GoSim-25-26J-441/opsim-driver/pkg/logger"
	"github.com/GoSim-25-26J-441/opsim-driver/pkg/models"
)

// SessionStore is the per-session database holding every history table
type SessionStore struct {
	db   *sql.DB
	path string
	log  *slog.Logger
}

// OpenSessionStore creates or opens the sqlite file at path and migrates it
func OpenSessionStore(ctx context.Context, path string, log *slog.Logger) (*SessionStore, error) {
	db, err := openDB(dialectSQLite, path)
	if err != nil {
		return nil, fmt.Errorf("failed to open session store %s: %w", path, err)
	}
	store, err := NewSessionStore(ctx, db, log)
	if err != nil {
		_ = db.Close()
		return nil, err
	}
	store.path = path
	return store, nil
}

// NewSessionStore migrates an already open sqlite database
func NewSessionStore(ctx context.Context, db *sql.DB, log *slog.Logger) (*SessionStore, error) {
	if err := migrate(ctx, db, dialectSQLite, "session"); err != nil {
		return nil, fmt.Errorf("failed to migrate session store: %w", err)
	}
	return &SessionStore{db: db, log: logger.OrDefault(log)}, nil
}

// Path is the session file, empty for stores opened from a handle
func (s *SessionStore) Path() string {
	return s.path
}

// InsertSession writes the session row
func (s *SessionStore) InsertSession(ctx context.Context, sess models.Session) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO Session (sessionId, sessionUser, sessionHost, sessionDate, version, runComment) VALUES (?, ?, ?, ?, ?, ?)`,
		sess.SessionID, sess.User, sess.Host, sess.Date.UTC().Format(time.RFC3339), sess.Version, sess.RunComment)
	if err != nil {
		return fmt.Errorf("failed to write session row: %w", err)
	}
	return nil
}

// ReadSession returns the session row
func (s *SessionStore) ReadSession(ctx context.Context) (models.Session, error) {
	var sess models.Session
	var date string
	err := s.db.QueryRowContext(ctx, "SELECT "+joinColumns(sessionColumns)+" FROM Session LIMIT 1").
		Scan(&sess.SessionID, &sess.User, &sess.Host, &date, &sess.Version, &sess.RunComment)
	if err != nil {
		return sess, err
	}
	sess.Date, _ = time.Parse(time.RFC3339, date)
	return sess, nil
}

// Close closes the session database
func (s *SessionStore) Close() error {
	return s.db.Close()
}

func readAll[T any](ctx context.Context, db *sql.DB, query string, fields func(*T) []any) ([]T, error) {
	rows, err := db.QueryContext(ctx, query)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	var out []T
	for rows.Next() {
		var r T
		if err := rows.Scan(fields(&r)...); err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

func readTable[T any](ctx context.Context, s *SessionStore, table, orderBy string, fields func(*T) []any) ([]T, error) {
	def, ok := lookupTable(table)
	if !ok {
		return nil, fmt.Errorf("%s: %w", table, ErrUnknownTable)
	}
	rows, err := readAll(ctx, s.db, def.selectSQL(orderBy), fields)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", table, err)
	}
	return rows, nil
}

// ReadObservations returns ObsHistory in id order
func (s *SessionStore) ReadObservations(ctx context.Context) ([]models.Observation, error) {
	return readTable(ctx, s, TableObsHistory, "observationId", observationFields)
}

// ReadTargetHistory returns TargetHistory in id order
func (s *SessionStore) ReadTargetHistory(ctx context.Context) ([]models.TargetHistory, error) {
	return readTable(ctx, s, TableTargetHistory, "targetId", targetFields)
}

// ReadSlewHistory returns SlewHistory in slew order
func (s *SessionStore) ReadSlewHistory(ctx context.Context) ([]models.SlewHistory, error) {
	return readTable(ctx, s, TableSlewHistory, "slewCount", slewHistoryFields)
}

// ReadSlewStates returns the initial or final slew states
func (s *SessionStore) ReadSlewStates(ctx context.Context, final bool) ([]models.SlewState, error) {
	table := TableSlewInitialState
	if final {
		table = TableSlewFinalState
	}
	return readTable(ctx, s, table, "slewStateId", slewStateFields)
}

// ReadSlewActivities returns SlewActivities in id order
func (s *SessionStore) ReadSlewActivities(ctx context.Context) ([]models.SlewActivity, error) {
	return readTable(ctx, s, TableSlewActivities, "slewActivityId", slewActivityFields)
}

// ReadSlewMaxSpeeds returns SlewMaxSpeeds in id order
func (s *SessionStore) ReadSlewMaxSpeeds(ctx context.Context) ([]models.SlewMaxSpeeds, error) {
	return readTable(ctx, s, TableSlewMaxSpeeds, "slewMaxSpeedId", slewMaxSpeedFields)
}

// ReadTargetExposures returns TargetExposures in id order
func (s *SessionStore) ReadTargetExposures(ctx context.Context) ([]models.TargetExposure, error) {
	return readTable(ctx, s, TableTargetExposures, "exposureId", targetExposureFields)
}

// ReadObsExposures returns ObsExposures in id order
func (s *SessionStore) ReadObsExposures(ctx context.Context) ([]models.ObsExposure, error) {
	return readTable(ctx, s, TableObsExposures, "exposureId", obsExposureFields)
}

// ReadProposalHistory returns the observation or target attribution rows
func (s *SessionStore) ReadProposalHistory(ctx context.Context, observations bool) ([]models.ProposalHistory, error) {
	table := TableTargetProposalHistory
	if observations {
		table = TableObsProposalHistory
	}
	return readTable(ctx, s, table, "propHistId", proposalHistoryFields)
}

// ReadDowntime returns the scheduled or unscheduled downtime rows
func (s *SessionStore) ReadDowntime(ctx context.Context, scheduled bool) ([]models.DowntimeEntry, error) {
	table := TableUnscheduledDowntime
	if scheduled {
		table = TableScheduledDowntime
	}
	return readTable(ctx, s, table, "night", downtimeFields)
}

// ReadProposals returns Proposal rows
func (s *SessionStore) ReadProposals(ctx context.Context) ([]models.Proposal, error) {
	return readTable(ctx, s, TableProposal, "propId", proposalFields)
}

// ReadFields returns Field rows
func (s *SessionStore) ReadFields(ctx context.Context) ([]models.Field, error) {
	return readTable(ctx, s, TableField, "fieldId", fieldFields)
}

// ReadProposalFields returns ProposalField rows
func (s *SessionStore) ReadProposalFields(ctx context.Context) ([]models.ProposalField, error) {
	return readTable(ctx, s, TableProposalField, "proposalFieldId", proposalFieldFields)
}

// ReadConfig returns the stored configuration parameters
func (s *SessionStore) ReadConfig(ctx context.Context) ([]models.ConfigParam, error) {
	return readTable(ctx, s, TableConfig, "configId", configFields)
}

// ReadSummary returns the SummaryAllProps view, one row per observation and
// proposal.
func (s *SessionStore) ReadSummary(ctx context.Context) ([]models.SummaryAllProps, error) {
	query := "SELECT " + joinColumns(summaryColumns) + " FROM SummaryAllProps ORDER BY observationId, proposalId"
	rows, err := readAll(ctx, s.db, query, summaryFields)
	if err != nil {
		return nil, fmt.Errorf("failed to read SummaryAllProps: %w", err)
	}
	return rows, nil
}

// Count returns the number of rows in table
func (s *SessionStore) Count(ctx context.Context, table string) (int, error) {
	if _, ok := lookupTable(table); !ok && table != TableSession {
		return 0, fmt.Errorf("%s: %w", table, ErrUnknownTable)
	}
	var n int
	err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM "+table).Scan(&n)
	return n, err
}
