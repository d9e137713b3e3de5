// Package client provides a transport-agnostic interface for the passin
// service, with HTTP/JSON and gRPC implementations.
package client

import (
	"context"
	"time"

	"github.com/alfredjeanlab/passin/internal/model"
	"github.com/alfredjeanlab/passin/internal/stations"
)

// Client is the interface that all passin CLI commands use to talk to the
// server. It is implemented by HTTPClient (default) and GRPCClient.
type Client interface {
	// Events
	CreateEvent(ctx context.Context, in model.EventInput) (*model.Event, error)
	GetEvent(ctx context.Context, id string) (*model.EventDetails, error)
	GetEventBySlug(ctx context.Context, slug string) (*model.EventDetails, error)

	// Attendees
	Register(ctx context.Context, eventID string, in model.RegistrationInput) (*model.Attendee, error)
	ListAttendees(ctx context.Context, eventID string) ([]*model.Attendee, error)
	CheckIn(ctx context.Context, ticketID string) (*model.Attendee, error)
	Badge(ctx context.Context, ticketID string) (*model.Badge, error)
	DeleteAttendee(ctx context.Context, ticketID string) error

	// Stations
	ListStations(ctx context.Context, within time.Duration) ([]stations.Entry, error)

	// Health
	Health(ctx context.Context) (string, error)

	// Lifecycle
	Close() error
}

// listAttendeesResponse is the body of GET /v1/events/{id}/attendees and
// of the ListAttendees RPC.
type listAttendeesResponse struct {
	Attendees []*model.Attendee `json:"attendees"`
	Total     int               `json:"total"`
}

type listStationsResponse struct {
	Stations []stations.Entry `json:"stations"`
}

type stationKey struct{}

// WithStation returns a context whose requests identify the caller as the
// named check-in station.
func WithStation(ctx context.Context, station string) context.Context {
	return context.WithValue(ctx, stationKey{}, station)
}

func stationFrom(ctx context.Context) string {
	s, _ := ctx.Value(stationKey{}).(string)
	return s
}
