package query

import "time"

// Options are the per-unit policy knobs.
type Options struct {
	// StaleTime is how long fetched data is served without refetching.
	// Zero uses the client default; a negative value means always stale.
	StaleTime time.Duration
	// Retry is the number of automatic retries after a failed fetch. Zero by default.
	Retry      int
	RetryDelay time.Duration
	// RefetchOnFocus refetches stale subscribed entries when the console regains focus.
	RefetchOnFocus bool
}

// Status of a cache entry as seen by a subscriber.
type Status string

const (
	StatusPending Status = "pending"
	StatusError   Status = "error"
	StatusSuccess Status = "success"
)

// State is what a page renders: loading, error or data.
// A successful empty result is StatusSuccess with an empty Data, never StatusError.
type State struct {
	Status    Status
	Data      any
	Err       error
	UpdatedAt time.Time
	Fetching  bool
}
