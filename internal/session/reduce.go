package session

import "github.com/dandantas/turnstile/internal/model"

// ReduceLatest decides which observation to surface as the "latest" one.
//
// Precedence rule: the tail of the result history wins whenever the history
// is non-empty; the status endpoint's embedded snapshot is only used while
// no history rows have been fetched yet. Kept as a standalone function so the
// merge is testable independent of timer wiring.
func ReduceLatest(statusSnapshot *model.Observation, history []model.Observation) *model.Observation {
	if len(history) > 0 {
		tail := history[len(history)-1]
		return &tail
	}
	return statusSnapshot
}
