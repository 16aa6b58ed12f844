// Package optimization provides shared data structures for planning run results.
package optimization

import "time"

// Summary captures the metadata of a single planning run.
type Summary struct {
	RunID           string        `json:"runId,omitempty"`
	Seed            uint64        `json:"seed"`
	Status          string        `json:"status"`
	Objective       float64       `json:"objective"`
	Candidates      int           `json:"candidates"`
	Considered      int           `json:"considered"`
	Dropped         int           `json:"dropped"`
	Purchased       int           `json:"purchased"`
	Periods         int           `json:"periods"`
	Nodes           int           `json:"nodes"`
	TransitStrategy string        `json:"transitStrategy"`
	Workers         int           `json:"workers"`
	StartedAt       time.Time     `json:"startedAt"`
	Generation      time.Duration `json:"generation"`
	Solve           time.Duration `json:"solve"`
	Total           time.Duration `json:"total"`
	Notes           []string      `json:"notes,omitempty"`
}

// Converged reports whether the run ended with a usable plan.
func (s Summary) Converged() bool {
	return s.Status == "OPTIMAL" || s.Status == "FEASIBLE"
}
