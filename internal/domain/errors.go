package domain

import (
	"errors"
	"fmt"
	"strings"
)

// Sentinel errors for simple conditions without extra context.
var (
	ErrComplaintNotFound = errors.New("complaint not found")
)

// DuplicateIDError is returned when a generated complaint identifier is
// already in use. The store's uniqueness constraint is the real invariant;
// callers retry with a fresh identifier.
type DuplicateIDError struct {
	ComplaintID string
}

func (e *DuplicateIDError) Error() string {
	return fmt.Sprintf("complaint id %q already exists", e.ComplaintID)
}

// ValidationError is returned when a submission omits mandatory fields.
type ValidationError struct {
	Missing []string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("missing required fields: %s", strings.Join(e.Missing, ", "))
}

// TransitionError is returned when a status change is not allowed in strict
// status mode.
type TransitionError struct {
	Current Status
	Next    Status
}

func (e *TransitionError) Error() string {
	return fmt.Sprintf("status %q is not reachable from %q", e.Next, e.Current)
}
