package testutil

import "time"

// ExecutionRecord holds what a Record stage saw when it ran.
type ExecutionRecord struct {
	Label string
	Start time.Time
	End   time.Time
	// Keys are the scope keys visible when the stage started.
	Keys []string
}
