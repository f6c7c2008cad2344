package database

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrIntegrity matches every WriteError
	ErrIntegrity      = errors.New("integrity violation")
	ErrUnknownTable   = errors.New("unknown table")
	ErrRecordType     = errors.New("record does not match table")
	ErrNoSession      = errors.New("no session is open")
	ErrSessionMissing = errors.New("session not found")
)

// TableFailure is one table whose batch was rejected and dumped
type TableFailure struct {
	Table   string
	Rows    int
	Sidecar string
	Err     error
}

func (f TableFailure) Error() string {
	return fmt.Sprintf("%s: %d rows dumped to %s: %v", f.Table, f.Rows, f.Sidecar, f.Err)
}

// WriteError aggregates the per-table failures of one Write
type WriteError struct {
	Failures []TableFailure
}

func (e *WriteError) Error() string {
	names := make([]string, len(e.Failures))
	for i, f := range e.Failures {
		names[i] = f.Table
	}
	return fmt.Sprintf("integrity violation in %s: %v", strings.Join(names, ", "), e.joined())
}

func (e *WriteError) joined() error {
	errs := make([]error, len(e.Failures))
	for i, f := range e.Failures {
		errs[i] = f
	}
	return errors.Join(errs...)
}

// Is lets errors.Is match ErrIntegrity
func (e *WriteError) Is(target error) bool {
	return target == ErrIntegrity
}

func (e *WriteError) Unwrap() error {
	return e.joined()
}
