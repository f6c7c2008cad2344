// Package database persists simulation sessions: a tracking store shared by
// every run and one sqlite store per session holding the history tables.
package database

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/user"
	"path/filepath"
	"time"

	"github.com/GoSim-25-26J-441/opsim-driver/pkg/config"
	"github.com/GoSim-25-26J-441/opsim-driver/pkg/logger"
	"github.com/GoSim-25-26J-441/opsim-driver/pkg/models"
)

// Database is the single writer for one run
type Database struct {
	cfg      config.Database
	tracking *TrackingStore
	session  *SessionStore
	current  models.Session
	batch    *Batch
	retry    *retryPolicy
	log      *slog.Logger
}

// Open connects the tracking store described by cfg
func Open(ctx context.Context, cfg config.Database, log *slog.Logger) (*Database, error) {
	log = logger.OrDefault(log)
	tracking, err := OpenTracking(ctx, cfg.TrackingDriver, cfg.TrackingDSN, log)
	if err != nil {
		return nil, err
	}
	return New(cfg, tracking, log), nil
}

// New wraps an open tracking store
func New(cfg config.Database, tracking *TrackingStore, log *slog.Logger) *Database {
	return &Database{
		cfg:      cfg,
		tracking: tracking,
		batch:    NewBatch(),
		retry:    defaultRetryPolicy(),
		log:      logger.OrDefault(log),
	}
}

// NewSession allocates the next session id, records it in the tracking
// store and creates the per-session store.
func (d *Database) NewSession(ctx context.Context, version, comment string) (models.Session, error) {
	if d.session != nil {
		return d.current, errors.New("a session is already open")
	}
	sess := models.Session{
		User:       currentUser(),
		Host:       hostname(),
		Date:       time.Now().UTC(),
		Version:    version,
		RunComment: comment,
	}
	sess, err := d.tracking.CreateSession(ctx, sess, d.cfg.StartingSessionID)
	if err != nil {
		return sess, err
	}

	path := filepath.Join(d.cfg.SessionDir, fmt.Sprintf("%s_%d.db", sess.Host, sess.SessionID))
	store, err := OpenSessionStore(ctx, path, d.log)
	if err != nil {
		return sess, err
	}
	if err := store.InsertSession(ctx, sess); err != nil {
		_ = store.Close()
		return sess, err
	}
	d.session = store
	d.current = sess
	d.log.Info("session store created", "session_id", sess.SessionID, "path", path)
	return sess, nil
}

// UseSession attaches an already open session store, for callers that
// manage the per-session database themselves.
func (d *Database) UseSession(sess models.Session, store *SessionStore) {
	d.session = store
	d.current = sess
}

// Session is the open session row
func (d *Database) Session() models.Session {
	return d.current
}

// SessionStore is the open per-session store, nil before NewSession
func (d *Database) SessionStore() *SessionStore {
	return d.session
}

// Tracking is the tracking store
func (d *Database) Tracking() *TrackingStore {
	return d.tracking
}

// ClearData empties the pending batch
func (d *Database) ClearData() {
	d.batch.Clear()
}

// AppendData queues record for table
func (d *Database) AppendData(table string, record any) error {
	return d.batch.Append(table, record)
}

// Pending is the number of queued rows for table
func (d *Database) Pending(table string) int {
	return d.batch.Len(table)
}

// PendingRows is the number of queued rows across all tables
func (d *Database) PendingRows() int {
	return d.batch.Total()
}

// Write flushes the pending batch in one transaction. Tables rejected for
// integrity violations come back as a WriteError after the others commit.
func (d *Database) Write(ctx context.Context) error {
	if d.session == nil {
		return ErrNoSession
	}
	w := &batchWriter{
		db:         d.session.db,
		sidecarDir: d.cfg.SidecarDir,
		sessionID:  d.current.SessionID,
		log:        d.log,
	}
	n := d.batch.Total()
	attempt := 0
	err := d.retry.do(ctx, func() error {
		if attempt > 0 {
			d.log.Warn("retrying locked batch write", "session_id", d.current.SessionID, "attempt", attempt)
		}
		attempt++
		return w.write(ctx, d.batch)
	})
	if err != nil {
		return err
	}
	d.log.Debug("batch written", "session_id", d.current.SessionID, "rows", n)
	return nil
}

// Finish records the run outcome on the tracking row
func (d *Database) Finish(ctx context.Context, status models.RunStatus, detail string) error {
	if d.current.SessionID == 0 {
		return ErrNoSession
	}
	return d.retry.do(ctx, func() error {
		return d.tracking.UpdateStatus(ctx, d.current.SessionID, status, detail)
	})
}

// Close closes both stores
func (d *Database) Close() error {
	var errs []error
	if d.session != nil {
		errs = append(errs, d.session.Close())
	}
	if d.tracking != nil {
		errs = append(errs, d.tracking.Close())
	}
	return errors.Join(errs...)
}

func currentUser() string {
	if u, err := user.Current(); err == nil && u.Username != "" {
		return u.Username
	}
	if name := os.Getenv("USER"); name != "" {
		return name
	}
	return "unknown"
}

func hostname() string {
	if h, err := os.Hostname(); err == nil && h != "" {
		return h
	}
	return "localhost"
}
