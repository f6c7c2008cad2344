package utils

import (
	"math"
	"time"
)

// Pacing kinds accepted by NewBackoff
const (
	BackoffConstant    = "constant"
	BackoffLinear      = "linear"
	BackoffExponential = "exponential"
)

// defaultMaxDelay caps a poll loop that names no maximum
const defaultMaxDelay = 100 * time.Millisecond

// BackoffStrategy paces repeated attempts such as topic polls and lock retries
type BackoffStrategy interface {
	// NextDelay returns the pause after the given attempt (0-indexed)
	NextDelay(attempt int) time.Duration
}

// Backoff grows the pause from Base according to Kind. Max caps linear
// and exponential growth; zero leaves it uncapped.
type Backoff struct {
	Kind       string
	Base       time.Duration
	Max        time.Duration
	Multiplier float64
}

// NewConstantBackoff pauses delay between every attempt
func NewConstantBackoff(delay time.Duration) *Backoff {
	return &Backoff{Kind: BackoffConstant, Base: delay}
}

// NewLinearBackoff pauses base, 2*base, ... up to max
func NewLinearBackoff(base, max time.Duration) *Backoff {
	return &Backoff{Kind: BackoffLinear, Base: base, Max: max}
}

// NewExponentialBackoff multiplies the pause by multiplier each attempt, up
// to max. A non-positive multiplier doubles.
func NewExponentialBackoff(base, max time.Duration, multiplier float64) *Backoff {
	if multiplier <= 0 {
		multiplier = 2
	}
	return &Backoff{Kind: BackoffExponential, Base: base, Max: max, Multiplier: multiplier}
}

// NewBackoff builds the poll pacing named by kind. Unknown kinds pace
// exponentially and a zero max becomes 100ms.
func NewBackoff(kind string, base, max time.Duration) *Backoff {
	if max == 0 {
		max = defaultMaxDelay
	}
	switch kind {
	case BackoffConstant:
		return NewConstantBackoff(base)
	case BackoffLinear:
		return NewLinearBackoff(base, max)
	default:
		return NewExponentialBackoff(base, max, 2)
	}
}

// NextDelay implements BackoffStrategy
func (b *Backoff) NextDelay(attempt int) time.Duration {
	if attempt < 0 {
		attempt = 0
	}
	var delay float64
	switch b.Kind {
	case BackoffConstant:
		return b.Base
	case BackoffLinear:
		delay = float64(b.Base) * float64(attempt+1)
	default:
		delay = float64(b.Base) * math.Pow(b.Multiplier, float64(attempt))
	}
	if b.Max > 0 && delay > float64(b.Max) {
		return b.Max
	}
	if delay >= math.MaxInt64 {
		return time.Duration(math.MaxInt64)
	}
	return time.Duration(delay)
}
