// Package events publishes ticketing domain events to NATS.
package events

import (
	"context"
	"time"

	"github.com/alfredjeanlab/passin/internal/model"
)

// Event topic constants
const (
	TopicEventCreated       = "passin.event.created"
	TopicAttendeeRegistered = "passin.attendee.registered"
	TopicAttendeeCheckedIn  = "passin.attendee.checked_in"
	TopicAttendeeDeleted    = "passin.attendee.deleted"
	TopicStationOffline     = "passin.station.offline"

	// TopicAll matches every topic above.
	TopicAll = "passin.>"
)

// Event types

type EventCreated struct {
	Event *model.Event `json:"event"`
}

type AttendeeRegistered struct {
	Attendee *model.Attendee `json:"attendee"`
}

type AttendeeCheckedIn struct {
	Attendee *model.Attendee `json:"attendee"`
}

type StationOffline struct {
	Station  string    `json:"station"`
	LastSeen time.Time `json:"last_seen"`
}

type AttendeeDeleted struct {
	EventID  string `json:"event_id"`
	TicketID string `json:"ticket_id"`
}

// Publisher is the interface for emitting events.
type Publisher interface {
	Publish(ctx context.Context, topic string, event any) error
	Close() error
}

// Message is a raw event as received from the bus.
type Message struct {
	Topic string
	Data  []byte
}

// Subscriber receives events from the event bus.
type Subscriber interface {
	// Subscribe delivers messages on the returned channel.
	// Call the returned cancel function to unsubscribe and close the channel.
	Subscribe(topic string) (<-chan Message, func(), error)
	Close() error
}
