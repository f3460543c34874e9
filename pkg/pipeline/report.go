package pipeline

import "time"

// Status is a node's terminal (or in-flight) state within one execution
// pass. A fresh pass resets every node to Pending; no node transitions
// back to Pending within a pass.
type Status string

const (
	StatusPending   Status = "pending"
	StatusRunning   Status = "running"
	StatusSkipped   Status = "skipped"
	StatusSucceeded Status = "succeeded"
	StatusFailed    Status = "failed"
)

// NodeResult is the per-node outcome of an execution pass.
type NodeResult struct {
	Status   Status         `json:"status"`
	Outputs  map[string]any `json:"outputs,omitempty"` // snapshot, only on success
	Reason   string         `json:"reason,omitempty"`  // why skipped or failed
	Duration time.Duration  `json:"duration"`
}

// Report is what an execution pass returns to the caller. The pass always
// completes and returns a report, even if every node fails.
type Report struct {
	SessionID string                 `json:"session_id"`
	Order     []string               `json:"order"` // the scheduled topological order
	Results   map[string]*NodeResult `json:"results"`
	Duration  time.Duration          `json:"duration"`
}

// Succeeded reports whether every node in the pass succeeded.
func (r *Report) Succeeded() bool {
	for _, res := range r.Results {
		if res.Status != StatusSucceeded {
			return false
		}
	}
	return true
}

// Count returns the number of nodes that finished the pass in the given
// status.
func (r *Report) Count(s Status) int {
	n := 0
	for _, res := range r.Results {
		if res.Status == s {
			n++
		}
	}
	return n
}
