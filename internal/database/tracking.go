package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/GoSim-25-26J-441/opsim-driver/pkg/logger"
	"github.com/GoSim-25-26J-441/opsim-driver/pkg/models"
)

// TrackingStore holds one row per run across all sessions
type TrackingStore struct {
	db      *sql.DB
	dialect dialect
	log     *slog.Logger
}

// OpenTracking opens and migrates the tracking store. driver is sqlite
// (dsn is a file path or file: DSN) or postgres.
func OpenTracking(ctx context.Context, driver, dsn string, log *slog.Logger) (*TrackingStore, error) {
	d, err := parseDialect(driver)
	if err != nil {
		return nil, err
	}
	db, err := openDB(d, dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open tracking store: %w", err)
	}
	store, err := NewTrackingStore(ctx, db, d, log)
	if err != nil {
		_ = db.Close()
		return nil, err
	}
	return store, nil
}

// NewTrackingStore migrates an already open database
func NewTrackingStore(ctx context.Context, db *sql.DB, d dialect, log *slog.Logger) (*TrackingStore, error) {
	if err := migrate(ctx, db, d, "tracking"); err != nil {
		return nil, fmt.Errorf("failed to migrate tracking store: %w", err)
	}
	return &TrackingStore{db: db, dialect: d, log: logger.OrDefault(log)}, nil
}

// NextSessionID is one past the highest recorded id, or start when empty
func (s *TrackingStore) NextSessionID(ctx context.Context, start int) (int, error) {
	return nextSessionID(ctx, s.db, start)
}

type queryRower interface {
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

func nextSessionID(ctx context.Context, q queryRower, start int) (int, error) {
	var maxID sql.NullInt64
	if err := q.QueryRowContext(ctx, "SELECT MAX(sessionId) FROM Session").Scan(&maxID); err != nil {
		return 0, fmt.Errorf("failed to read session ids: %w", err)
	}
	if !maxID.Valid {
		return start, nil
	}
	return int(maxID.Int64) + 1, nil
}

// CreateSession allocates the next id and records the session in one
// transaction.
func (s *TrackingStore) CreateSession(ctx context.Context, sess models.Session, start int) (models.Session, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return sess, err
	}
	defer func() { _ = tx.Rollback() }()

	id, err := nextSessionID(ctx, tx, start)
	if err != nil {
		return sess, err
	}
	sess.SessionID = id
	if sess.Status == "" {
		sess.Status = models.RunStatusPending
	}
	_, err = tx.ExecContext(ctx, s.dialect.rebind(
		`INSERT INTO Session (sessionId, sessionUser, sessionHost, sessionDate, version, runComment, status, errorDetail)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`),
		sess.SessionID, sess.User, sess.Host, sess.Date.UTC().Format(time.RFC3339), sess.Version, sess.RunComment,
		string(sess.Status), sess.ErrorDetail)
	if err != nil {
		return sess, fmt.Errorf("failed to record session %d: %w", id, err)
	}
	if err := tx.Commit(); err != nil {
		return sess, err
	}
	s.log.Info("session created", "session_id", id, "host", sess.Host, "user", sess.User)
	return sess, nil
}

// UpdateStatus records the run outcome on the session row
func (s *TrackingStore) UpdateStatus(ctx context.Context, sessionID int, status models.RunStatus, detail string) error {
	res, err := s.db.ExecContext(ctx, s.dialect.rebind(`UPDATE Session SET status = ?, errorDetail = ? WHERE sessionId = ?`),
		string(status), detail, sessionID)
	if err != nil {
		return fmt.Errorf("failed to update session %d: %w", sessionID, err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return fmt.Errorf("session %d: %w", sessionID, ErrSessionMissing)
	}
	return nil
}

// ListSessions returns every session, newest first. limit <= 0 returns all.
func (s *TrackingStore) ListSessions(ctx context.Context, limit int) ([]models.Session, error) {
	query := `SELECT sessionId, sessionUser, sessionHost, sessionDate, version, runComment, status, errorDetail
		FROM Session ORDER BY sessionId DESC`
	var args []any
	if limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit)
	}
	rows, err := s.db.QueryContext(ctx, s.dialect.rebind(query), args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list sessions: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var sessions []models.Session
	for rows.Next() {
		var sess models.Session
		var date, status string
		if err := rows.Scan(&sess.SessionID, &sess.User, &sess.Host, &date, &sess.Version, &sess.RunComment, &status, &sess.ErrorDetail); err != nil {
			return nil, err
		}
		sess.Date, _ = time.Parse(time.RFC3339, date)
		sess.Status = models.RunStatus(status)
		sessions = append(sessions, sess)
	}
	return sessions, rows.Err()
}

// GetSession returns one session row
func (s *TrackingStore) GetSession(ctx context.Context, sessionID int) (models.Session, error) {
	var sess models.Session
	var date, status string
	err := s.db.QueryRowContext(ctx, s.dialect.rebind(
		`SELECT sessionId, sessionUser, sessionHost, sessionDate, version, runComment, status, errorDetail
		FROM Session WHERE sessionId = ?`), sessionID).
		Scan(&sess.SessionID, &sess.User, &sess.Host, &date, &sess.Version, &sess.RunComment, &status, &sess.ErrorDetail)
	if errors.Is(err, sql.ErrNoRows) {
		return sess, fmt.Errorf("session %d: %w", sessionID, ErrSessionMissing)
	}
	if err != nil {
		return sess, err
	}
	sess.Date, _ = time.Parse(time.RFC3339, date)
	sess.Status = models.RunStatus(status)
	return sess, nil
}

// Close closes the underlying database
func (s *TrackingStore) Close() error {
	return s.db.Close()
}
