package model

import "time"

// Event is a ticketed event. Attendee capacity is optional; a nil
// MaximumAttendees means the event is unbounded.
type Event struct {
	ID               string    `json:"id"`
	Title            string    `json:"title"`
	Slug             string    `json:"slug"`
	Details          string    `json:"details,omitempty"`
	MaximumAttendees *int      `json:"maximum_attendees,omitempty"`
	Price            float64   `json:"price"`
	CreatedAt        time.Time `json:"created_at"`
}

// Unbounded reports whether the event accepts any number of attendees.
func (e *Event) Unbounded() bool {
	return e.MaximumAttendees == nil
}

// HasRoomFor reports whether one more attendee fits when count attendees are
// already registered.
func (e *Event) HasRoomFor(count int) bool {
	if e.Unbounded() {
		return true
	}
	return count < *e.MaximumAttendees
}

// EventDetails is an event together with its current attendee count.
type EventDetails struct {
	Event
	AttendeesAmount int `json:"attendees_amount"`
}
