package discovery

import (
	"errors"
	"fmt"
)

var (
	ErrAlreadyStarted = errors.New("discovery flow already started")
	ErrNotPolling     = errors.New("discovery flow is not polling")

	// ErrNotAccepted is informational: selecting a candidate without an
	// acceptance shows rider detail in a waiting state, it never assigns.
	ErrNotAccepted = errors.New("rider has not accepted this delivery yet")
)

// PartialAssignmentError reports that the assignment took effect server-side
// but the follow-up pool rejection failed. Inconsistent-but-recoverable:
// surfaced as a soft warning, never rolled back, and the assign call is
// never retried since that would double-assign.
type PartialAssignmentError struct {
	RiderID string
	Err     error
}

func (e *PartialAssignmentError) Error() string {
	return fmt.Sprintf("order assigned to rider %s but pool rejection failed: %v", e.RiderID, e.Err)
}

func (e *PartialAssignmentError) Unwrap() error { return e.Err }
