package core

import "time"

// LimiterSnapshot is the persistable view of one service's rate-limit
// state: the raw window timestamps plus backoff bookkeeping. The store
// and the engine exchange this shape; neither owns the other's types.
type LimiterSnapshot struct {
	Service             string      `json:"service"`
	Minute              []time.Time `json:"minute,omitempty"`
	Hour                []time.Time `json:"hour,omitempty"`
	Day                 []time.Time `json:"day,omitempty"`
	ConsecutiveFailures int         `json:"consecutive_failures"`
	LastFailureAt       *time.Time  `json:"last_failure_at,omitempty"`
	SavedAt             time.Time   `json:"saved_at"`
}
