package sal

import (
	"errors"
	"fmt"
	"time"
)

var (
	// ErrSchedulerTimeout matches every SchedulerTimeoutError
	ErrSchedulerTimeout = errors.New("scheduler did not respond in time")
	ErrBusClosed        = errors.New("bus is closed")
	ErrNotSubscribed    = errors.New("topic is not subscribed")
	ErrCommandFailed    = errors.New("command failed")
)

// SchedulerTimeoutError reports a mandatory reply that did not arrive
// within its window.
type SchedulerTimeoutError struct {
	Topic   string
	Timeout time.Duration
}

func (e *SchedulerTimeoutError) Error() string {
	return fmt.Sprintf("no %s from scheduler within %s", e.Topic, e.Timeout)
}

// Is lets errors.Is match ErrSchedulerTimeout
func (e *SchedulerTimeoutError) Is(target error) bool {
	return target == ErrSchedulerTimeout
}
