// Package testutil provides common utility functions for testing.
package testutil

import (
	"github.com/iwvelando/procurement-planner/internal/catalog"
)

// FindCandidate finds a candidate by id in the candidates slice.
// Returns a pointer to the candidate if found, nil otherwise.
func FindCandidate(candidates []catalog.Candidate, id string) *catalog.Candidate {
	for i := range candidates {
		if candidates[i].ID == id {
			return &candidates[i]
		}
	}
	return nil
}
