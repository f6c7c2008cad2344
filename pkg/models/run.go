package models

import "time"

// RunStatus represents the status of a simulation run
type RunStatus string

const (
	RunStatusPending   RunStatus = "pending"
	RunStatusRunning   RunStatus = "running"
	RunStatusCompleted RunStatus = "completed"
	RunStatusFailed    RunStatus = "failed"
)

// Session is the identity of one simulation run. It is the row shared by the
// tracking store and the per-session store.
type Session struct {
	SessionID   int       `json:"sessionId"`
	User        string    `json:"sessionUser"`
	Host        string    `json:"sessionHost"`
	Date        time.Time `json:"sessionDate"`
	Version     string    `json:"version"`
	RunComment  string    `json:"runComment"`
	Status      RunStatus `json:"status,omitempty"`
	ErrorDetail string    `json:"error,omitempty"`
}

// RunSummary aggregates the counters of a finished (or aborted) run
type RunSummary struct {
	SessionID        int           `json:"session_id"`
	Status           RunStatus     `json:"status"`
	Nights           int           `json:"nights"`
	DarkNights       int           `json:"dark_nights"`
	TargetsReceived  int           `json:"targets_received"`
	TargetsMissed    int           `json:"targets_missed"`
	ObservationsMade int           `json:"observations_made"`
	FilterSwaps      int           `json:"filter_swaps"`
	MissingReplies   int           `json:"missing_replies"`
	WriteFailures    int           `json:"write_failures"`
	WallTime         time.Duration `json:"wall_time"`
	Error            string        `json:"error,omitempty"`
}
