// Package search drives a single search task from creation to saved
// influencers.
//
// Observed status graph:
//
//	pending ──► running ──► done
//	   │           │
//	   ├───────────┴──────► failed
//	   └──────────────────► done
//
// done and failed are terminal. A fast task may finish between two polls,
// so pending may jump straight to a terminal state.
package search

import "outreach/internal/api"

// validTransitions lists every allowed (from → to) pair.
var validTransitions = map[api.TaskStatus][]api.TaskStatus{
	api.StatusPending: {api.StatusRunning, api.StatusDone, api.StatusFailed},
	api.StatusRunning: {api.StatusDone, api.StatusFailed},
	// done and failed have no outgoing transitions
}

// IsTransitionAllowed returns true when moving from → to is permitted.
// Observing the same status twice is not a transition and is always allowed.
func IsTransitionAllowed(from, to api.TaskStatus) bool {
	if from == to {
		return true
	}
	for _, s := range validTransitions[from] {
		if s == to {
			return true
		}
	}
	return false
}
