package database

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/GoSim-25-26J-441/opsim-driver/pkg/utils"
)

func fastRetry(max int) *retryPolicy {
	return &retryPolicy{maxRetries: max, backoff: utils.NewConstantBackoff(time.Millisecond)}
}

func TestIsTransient(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"nil", nil, false},
		{"plain", errors.New("disk I/O error"), false},
		{"serialization failure", &pq.Error{Code: "40001"}, true},
		{"deadlock", fmt.Errorf("write: %w", &pq.Error{Code: "40P01"}), true},
		{"lock timeout", &pq.Error{Code: "55P03"}, true},
		{"unique violation", &pq.Error{Code: "23505"}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, isTransient(tt.err))
		})
	}
}

func TestRetryPolicyDo(t *testing.T) {
	ctx := context.Background()

	calls := 0
	err := fastRetry(3).do(ctx, func() error {
		calls++
		if calls < 3 {
			return &pq.Error{Code: "40001"}
		}
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, 3, calls)

	calls = 0
	err = fastRetry(2).do(ctx, func() error {
		calls++
		return &pq.Error{Code: "40P01"}
	})
	require.Error(t, err)
	assert.Equal(t, 3, calls, "first attempt plus two retries")

	calls = 0
	permanent := errors.New("no such table")
	err = fastRetry(5).do(ctx, func() error {
		calls++
		return permanent
	})
	assert.ErrorIs(t, err, permanent)
	assert.Equal(t, 1, calls)
}

func TestRetryPolicyStopsOnCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	p := &retryPolicy{maxRetries: 10, backoff: utils.NewConstantBackoff(time.Hour)}
	err := p.do(ctx, func() error { return &pq.Error{Code: "40001"} })
	assert.ErrorIs(t, err, context.Canceled)
}
