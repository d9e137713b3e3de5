package model

import (
	"strings"
	"time"
)

// Attendee is a registration for an event. TicketID is the public,
// globally unique identifier; ID is internal.
type Attendee struct {
	ID          int64      `json:"attendee_id"`
	EventID     string     `json:"event_id"`
	Name        string     `json:"name"`
	Email       string     `json:"email"`
	TicketID    string     `json:"ticket_id"`
	CreatedAt   time.Time  `json:"created_at"`
	CheckedIn   bool       `json:"checked_in"`
	CheckInTime *time.Time `json:"check_in_time"`
}

// MarkCheckedIn performs the one-way registered -> checked-in transition.
// It returns false, leaving the attendee untouched, if the attendee was
// already checked in.
func (a *Attendee) MarkCheckedIn(at time.Time) bool {
	if a.CheckedIn {
		return false
	}
	t := at
	a.CheckedIn = true
	a.CheckInTime = &t
	return true
}

// Badge is the printable view of a ticket.
type Badge struct {
	EventTitle string `json:"event_title"`
	AttendeeID int64  `json:"attendee_id"`
	TicketID   string `json:"ticket_id"`
	Name       string `json:"name"`
	Email      string `json:"email"`
	CheckedIn  bool   `json:"checked_in"`
	CheckInURL string `json:"check_in_url"`
}

// NormalizeEmail returns the key used for per-event email uniqueness.
// Emails are compared case-insensitively.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
