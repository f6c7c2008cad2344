package database

import (
	"context"
	"errors"
	"time"

	"github.com/lib/pq"
	"modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"

	"github.com/GoSim-25-26J-441/opsim-driver/pkg/utils"
)

// retryPolicy re-runs a store operation that failed on a lock held by
// another connection. Anything else fails at once.
type retryPolicy struct {
	maxRetries int
	backoff    utils.BackoffStrategy
}

func defaultRetryPolicy() *retryPolicy {
	return &retryPolicy{
		maxRetries: 4,
		backoff:    utils.NewExponentialBackoff(20*time.Millisecond, time.Second, 2),
	}
}

// ShouldRetry reports whether attempt (zero based) may be repeated after err
func (p *retryPolicy) ShouldRetry(attempt int, err error) bool {
	if p == nil || attempt >= p.maxRetries {
		return false
	}
	return isTransient(err)
}

// do runs fn until it succeeds, fails permanently or ctx is done
func (p *retryPolicy) do(ctx context.Context, fn func() error) error {
	for attempt := 0; ; attempt++ {
		err := fn()
		if err == nil || !p.ShouldRetry(attempt, err) {
			return err
		}
		select {
		case <-ctx.Done():
			return errors.Join(err, ctx.Err())
		case <-time.After(p.backoff.NextDelay(attempt)):
		}
	}
}

// isTransient reports lock contention: SQLITE_BUSY/SQLITE_LOCKED, or a
// postgres serialization failure, deadlock or lock timeout
func isTransient(err error) bool {
	var se *sqlite.Error
	if errors.As(err, &se) {
		code := se.Code() & 0xff
		return code == sqlite3.SQLITE_BUSY || code == sqlite3.SQLITE_LOCKED
	}
	var pe *pq.Error
	if errors.As(err, &pe) {
		return pe.Code.Class() == "40" || pe.Code == "55P03"
	}
	return false
}
