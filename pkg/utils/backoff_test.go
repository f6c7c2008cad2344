package utils

import (
	"testing"
	"time"
)

func TestBackoffNextDelay(t *testing.T) {
	tests := []struct {
		name    string
		backoff *Backoff
		attempt int
		want    time.Duration
	}{
		{"constant first", NewConstantBackoff(10 * time.Microsecond), 0, 10 * time.Microsecond},
		{"constant late", NewConstantBackoff(10 * time.Microsecond), 50, 10 * time.Microsecond},
		{"linear first", NewLinearBackoff(100*time.Millisecond, time.Second), 0, 100 * time.Millisecond},
		{"linear second", NewLinearBackoff(100*time.Millisecond, time.Second), 1, 200 * time.Millisecond},
		{"linear capped", NewLinearBackoff(100*time.Millisecond, time.Second), 20, time.Second},
		{"exponential first", NewExponentialBackoff(10*time.Microsecond, time.Millisecond, 2), 0, 10 * time.Microsecond},
		{"exponential fourth", NewExponentialBackoff(10*time.Microsecond, time.Millisecond, 2), 3, 80 * time.Microsecond},
		{"exponential capped", NewExponentialBackoff(10*time.Microsecond, time.Millisecond, 2), 10, time.Millisecond},
		{"negative attempt", NewLinearBackoff(time.Millisecond, time.Second), -3, time.Millisecond},
		{"uncapped overflow", NewExponentialBackoff(time.Second, 0, 10), 40, time.Duration(1<<63 - 1)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.backoff.NextDelay(tt.attempt); got != tt.want {
				t.Errorf("attempt %d: expected %v, got %v", tt.attempt, tt.want, got)
			}
		})
	}
}

func TestExponentialBackoffDefaultMultiplier(t *testing.T) {
	if b := NewExponentialBackoff(time.Millisecond, time.Second, 0); b.Multiplier != 2 {
		t.Errorf("Expected default multiplier 2, got %f", b.Multiplier)
	}
}

func TestNewBackoff(t *testing.T) {
	tests := []struct {
		kind    string
		max     time.Duration
		want    string
		wantMax time.Duration
	}{
		{BackoffConstant, time.Second, BackoffConstant, 0},
		{BackoffLinear, time.Second, BackoffLinear, time.Second},
		{BackoffExponential, 0, BackoffExponential, defaultMaxDelay},
		{"", 0, BackoffExponential, defaultMaxDelay},
	}
	for _, tt := range tests {
		b := NewBackoff(tt.kind, time.Millisecond, tt.max)
		if b.Kind != tt.want {
			t.Errorf("NewBackoff(%q) kind = %s, expected %s", tt.kind, b.Kind, tt.want)
		}
		if b.Max != tt.wantMax {
			t.Errorf("NewBackoff(%q) max = %v, expected %v", tt.kind, b.Max, tt.wantMax)
		}
	}
}
