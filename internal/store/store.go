package store

import (
	"context"
	"time"

	"github.com/alfredjeanlab/passin/internal/model"
)

// Store defines the persistence interface for events and attendees.
//
// Methods ending in ForUpdate lock the returned row until the surrounding
// transaction ends; outside a transaction they behave like their plain
// counterparts.
type Store interface {
	// Events
	CreateEvent(ctx context.Context, event *model.Event) error
	GetEvent(ctx context.Context, id string) (*model.Event, error)
	GetEventForUpdate(ctx context.Context, id string) (*model.Event, error)
	GetEventBySlug(ctx context.Context, slug string) (*model.Event, error)
	ListEvents(ctx context.Context) ([]*model.Event, error)

	// Attendees
	CountAttendees(ctx context.Context, eventID string) (int, error)
	FindAttendeeByEmail(ctx context.Context, eventID, email string) (*model.Attendee, error)
	TicketIDExists(ctx context.Context, ticketID string) (bool, error)
	InsertAttendee(ctx context.Context, attendee *model.Attendee) error // assigns attendee.ID
	GetAttendeeByTicketID(ctx context.Context, ticketID string) (*model.Attendee, error)
	GetAttendeeByTicketIDForUpdate(ctx context.Context, ticketID string) (*model.Attendee, error)
	MarkCheckedIn(ctx context.Context, ticketID string, at time.Time) (*model.Attendee, error)
	ListAttendees(ctx context.Context, eventID string) ([]*model.Attendee, error) // newest first
	ListAllAttendees(ctx context.Context) ([]*model.Attendee, error)
	DeleteAttendee(ctx context.Context, ticketID string) error

	// Transaction support
	RunInTransaction(ctx context.Context, fn func(tx Store) error) error

	// Lifecycle
	Ping(ctx context.Context) error
	Close() error
}
