package simulator

import (
	"context"
	"sync"
	"time"

	"github.com/GoSim-25-26J-441/opsim-driver/pkg/models"
)

// RunManager tracks the lifecycle and totals of one simulation run
type RunManager struct {
	mu      sync.RWMutex
	summary models.RunSummary
	started time.Time
	ctx     context.Context
	cancel  context.CancelFunc
}

// NewRunManager creates a pending run whose context derives from parent
func NewRunManager(parent context.Context) *RunManager {
	ctx, cancel := context.WithCancel(parent)
	return &RunManager{
		summary: models.RunSummary{Status: models.RunStatusPending},
		ctx:     ctx,
		cancel:  cancel,
	}
}

// Start marks the run as running
func (rm *RunManager) Start() {
	rm.mu.Lock()
	defer rm.mu.Unlock()
	rm.summary.Status = models.RunStatusRunning
	rm.started = time.Now()
}

// SetSession records the allocated session id
func (rm *RunManager) SetSession(id int) {
	rm.mu.Lock()
	defer rm.mu.Unlock()
	rm.summary.SessionID = id
}

// Update applies fn to the running totals
func (rm *RunManager) Update(fn func(*models.RunSummary)) {
	rm.mu.Lock()
	defer rm.mu.Unlock()
	fn(&rm.summary)
}

// Complete marks the run as completed
func (rm *RunManager) Complete() {
	rm.finish(models.RunStatusCompleted, nil)
}

// Fail marks the run as failed
func (rm *RunManager) Fail(err error) {
	rm.finish(models.RunStatusFailed, err)
}

func (rm *RunManager) finish(status models.RunStatus, err error) {
	rm.mu.Lock()
	defer rm.mu.Unlock()
	rm.summary.Status = status
	if !rm.started.IsZero() {
		rm.summary.WallTime = time.Since(rm.started)
	}
	if err != nil {
		rm.summary.Error = err.Error()
	}
}

// Cancel cancels the run's context
func (rm *RunManager) Cancel() {
	rm.cancel()
}

// Context is cancelled when the run is
func (rm *RunManager) Context() context.Context {
	return rm.ctx
}

// Summary returns a copy of the run totals
func (rm *RunManager) Summary() models.RunSummary {
	rm.mu.RLock()
	defer rm.mu.RUnlock()
	return rm.summary
}
