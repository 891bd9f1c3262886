package scheduler

import (
	"fmt"

	"site-ops-server/internal/models"
)

// ValidationError reports a missing or malformed field on a create or update.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

// ConflictError reports that a requested time window overlaps another active
// visit for the same supervisor. ConflictingID names the existing visit so the
// caller can surface it.
type ConflictError struct {
	SupervisorID  string
	ConflictingID string
}

func (e *ConflictError) Error() string {
	return fmt.Sprintf("time window overlaps active visit %s for supervisor %s", e.ConflictingID, e.SupervisorID)
}

// IllegalTransitionError reports a status transition that is not permitted
// from the record's current state.
type IllegalTransitionError struct {
	From models.VisitStatus
	To   models.VisitStatus
}

func (e *IllegalTransitionError) Error() string {
	return fmt.Sprintf("illegal status transition from %q to %q", e.From, e.To)
}

// NotFoundError reports an operation against an unknown visit id.
type NotFoundError struct {
	ID string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("visit %s not found", e.ID)
}

// StorageError wraps a failure in the persistence layer. It is the only error
// category callers may retry; the engine itself never retries a mutation.
type StorageError struct {
	Op  string
	Err error
}

func (e *StorageError) Error() string {
	return fmt.Sprintf("storage %s: %v", e.Op, e.Err)
}

func (e *StorageError) Unwrap() error {
	return e.Err
}
