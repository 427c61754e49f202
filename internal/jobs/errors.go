package jobs

import "errors"

var (
	// ErrPersistenceFailed wraps every failed attempt to store a job. The
	// individual step failures are aggregated in the wrapped error.
	ErrPersistenceFailed = errors.New("job persistence failed")
	// ErrPriorityRecomputeFailed is logged when the queue order could not be
	// refreshed; it never fails an enqueue.
	ErrPriorityRecomputeFailed = errors.New("job priority recompute failed")
)

// MessageDatabaseError is the user-facing message set when a job could not
// be stored.
const MessageDatabaseError = "create job - database error!"
