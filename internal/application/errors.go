package application

import "errors"

var (
	// ErrNotFound is returned when a referenced user, resource,
	// reservation, or pattern does not exist.
	ErrNotFound = errors.New("application: not found")
	// ErrConflict is returned when the resource is not available for the
	// requested time window.
	ErrConflict = errors.New("application: resource is not available for the requested time window")
	// ErrIllegalStateTransition is returned when a status change is not
	// allowed by the reservation state machine.
	ErrIllegalStateTransition = errors.New("application: illegal status transition")
)

// ValidationError reports the first business rule a candidate reservation
// violates. Validation short-circuits, so a single rule and reason are
// carried.
type ValidationError struct {
	Policy string
	Rule   string
	Reason string
}

// Error implements the error interface.
func (v *ValidationError) Error() string {
	if v == nil {
		return ""
	}
	if v.Reason == "" {
		return "validation failed"
	}
	return v.Reason
}
