package database

import (
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/lib/pq"
	"modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"
)

type dialect string

const (
	dialectSQLite   dialect = "sqlite"
	dialectPostgres dialect = "postgres"
)

func parseDialect(driver string) (dialect, error) {
	switch strings.ToLower(driver) {
	case "", "sqlite", "sqlite3":
		return dialectSQLite, nil
	case "postgres", "postgresql", "pq":
		return dialectPostgres, nil
	default:
		return "", fmt.Errorf("unsupported tracking driver %q", driver)
	}
}

// rebind rewrites ? placeholders as $n for postgres
func (d dialect) rebind(query string) string {
	if d != dialectPostgres {
		return query
	}
	var b strings.Builder
	n := 0
	for _, r := range query {
		if r == '?' {
			n++
			b.WriteString("$" + strconv.Itoa(n))
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

// sqliteDSN turns a file path into a modernc DSN, creating the parent
// directory. DSNs that already start with file: are used as given.
func sqliteDSN(path string) (string, error) {
	if strings.HasPrefix(path, "file:") {
		return path, nil
	}
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return "", err
		}
	}
	return fmt.Sprintf("file:%s?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)", path), nil
}

func openDB(d dialect, dsn string) (*sql.DB, error) {
	switch d {
	case dialectPostgres:
		return sql.Open("postgres", dsn)
	default:
		full, err := sqliteDSN(dsn)
		if err != nil {
			return nil, err
		}
		db, err := sql.Open("sqlite", full)
		if err != nil {
			return nil, err
		}
		// single writer
		db.SetMaxOpenConns(1)
		return db, nil
	}
}

// isIntegrityViolation reports uniqueness and other constraint failures
func isIntegrityViolation(err error) bool {
	var se *sqlite.Error
	if errors.As(err, &se) {
		return se.Code()&0xff == sqlite3.SQLITE_CONSTRAINT
	}
	var pe *pq.Error
	if errors.As(err, &pe) {
		return pe.Code.Class() == "23"
	}
	return false
}
