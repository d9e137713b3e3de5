package store

import (
	"errors"
	"fmt"
)

var (
	// ErrNotFound is returned when the requested event or attendee does not exist.
	ErrNotFound = errors.New("store: not found")

	// ErrAlreadyCheckedIn is returned by MarkCheckedIn when the attendee has
	// already been checked in.
	ErrAlreadyCheckedIn = errors.New("store: attendee already checked in")
)

// Unique constraint names shared by every Store implementation.
const (
	ConstraintEventSlug  = "events_slug_key"
	ConstraintTicketID   = "attendees_ticket_id_key"
	ConstraintEventEmail = "attendees_event_email_key"
)

// UniqueViolationError reports that a write collided with a unique constraint.
type UniqueViolationError struct {
	Constraint string
}

func (e *UniqueViolationError) Error() string {
	return fmt.Sprintf("store: unique constraint %q violated", e.Constraint)
}

// IsUniqueViolation reports whether err is a unique violation on constraint.
// An empty constraint matches any unique violation.
func IsUniqueViolation(err error, constraint string) bool {
	var uv *UniqueViolationError
	if !errors.As(err, &uv) {
		return false
	}
	return constraint == "" || uv.Constraint == constraint
}
