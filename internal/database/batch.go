package database

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/google/uuid"
)

// Batch accumulates one night's rows per logical table
type Batch struct {
	rows map[string][]any
}

// NewBatch creates an empty batch
func NewBatch() *Batch {
	return &Batch{rows: make(map[string][]any)}
}

// Clear drops every accumulated row
func (b *Batch) Clear() {
	clear(b.rows)
}

// Append adds record to table, keeping insertion order
func (b *Batch) Append(table string, record any) error {
	def, ok := lookupTable(table)
	if !ok {
		return fmt.Errorf("%s: %w", table, ErrUnknownTable)
	}
	if _, ok := def.args(record); !ok {
		return fmt.Errorf("%s got %T: %w", table, record, ErrRecordType)
	}
	b.rows[table] = append(b.rows[table], record)
	return nil
}

// Len is the number of rows queued for table
func (b *Batch) Len(table string) int {
	return len(b.rows[table])
}

// Total is the number of rows queued across all tables
func (b *Batch) Total() int {
	n := 0
	for _, rows := range b.rows {
		n += len(rows)
	}
	return n
}

// batchWriter flushes a Batch into a session store
type batchWriter struct {
	db         *sql.DB
	sidecarDir string
	sessionID  int
	log        *slog.Logger
}

// write inserts every table inside one transaction. A table whose rows
// violate a constraint is rolled back to its savepoint, dumped to a sidecar
// file and reported in the returned WriteError; the other tables commit.
func (w *batchWriter) write(ctx context.Context, b *Batch) error {
	if b.Total() == 0 {
		return nil
	}
	tx, err := w.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin write: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	var failures []TableFailure
	for _, def := range writeOrder {
		rows := b.rows[def.name]
		if len(rows) == 0 {
			continue
		}
		err := w.insertTable(ctx, tx, def, rows)
		if err == nil {
			continue
		}
		if !isIntegrityViolation(err) {
			return fmt.Errorf("failed to write %s: %w", def.name, err)
		}
		sidecar, dumpErr := w.dump(def.name, rows)
		if dumpErr != nil {
			w.log.Error("failed to dump rejected rows", "table", def.name, "error", dumpErr)
		}
		w.log.Warn("table batch rejected", "table", def.name, "rows", len(rows), "sidecar", sidecar, "error", err)
		failures = append(failures, TableFailure{Table: def.name, Rows: len(rows), Sidecar: sidecar, Err: err})
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit write: %w", err)
	}
	if len(failures) > 0 {
		return &WriteError{Failures: failures}
	}
	return nil
}

func (w *batchWriter) insertTable(ctx context.Context, tx *sql.Tx, def tableDef, rows []any) error {
	savepoint := "sp_" + def.name
	if _, err := tx.ExecContext(ctx, "SAVEPOINT "+savepoint); err != nil {
		return err
	}
	query := def.insertSQL()
	for _, row := range rows {
		args, _ := def.args(row)
		if _, err := tx.ExecContext(ctx, query, args...); err != nil {
			if _, rbErr := tx.ExecContext(ctx, "ROLLBACK TO SAVEPOINT "+savepoint); rbErr != nil {
				return fmt.Errorf("%w (rollback: %v)", err, rbErr)
			}
			_, _ = tx.ExecContext(ctx, "RELEASE SAVEPOINT "+savepoint)
			return err
		}
	}
	_, err := tx.ExecContext(ctx, "RELEASE SAVEPOINT "+savepoint)
	return err
}

func (w *batchWriter) dump(table string, rows []any) (string, error) {
	dir := w.sidecarDir
	if dir == "" {
		dir = "."
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", err
	}
	name := fmt.Sprintf("%s_%d_%s.json", table, w.sessionID, uuid.NewString()[:8])
	path := filepath.Join(dir, name)
	data, err := json.MarshalIndent(rows, "", "  ")
	if err != nil {
		return "", err
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return "", err
	}
	return path, nil
}
