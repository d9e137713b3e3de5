// Package server exposes the ticketing service over HTTP and gRPC.
package server

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/alfredjeanlab/passin/internal/events"
	"github.com/alfredjeanlab/passin/internal/model"
	"github.com/alfredjeanlab/passin/internal/stations"
)

// Ticketing is the subset of ticketing.Service the transports call.
type Ticketing interface {
	CreateEvent(ctx context.Context, in model.EventInput) (*model.Event, error)
	GetEvent(ctx context.Context, id string) (*model.EventDetails, error)
	GetEventBySlug(ctx context.Context, slug string) (*model.EventDetails, error)
	Register(ctx context.Context, eventID string, in model.RegistrationInput) (*model.Attendee, error)
	CheckIn(ctx context.Context, ticketID string) (*model.Attendee, error)
	ListAttendees(ctx context.Context, eventID string) ([]*model.Attendee, error)
	Badge(ctx context.Context, ticketID string) (*model.Badge, error)
	DeleteAttendee(ctx context.Context, ticketID string) (*model.Attendee, error)
	Ping(ctx context.Context) error
}

// Server implements the HTTP handlers and TicketingServiceServer.
type Server struct {
	svc       Ticketing
	publisher events.Publisher
	stream    *streamHub
	metrics   http.Handler
	stations  *stations.Tracker
}

// Option configures a Server.
type Option func(*Server)

// WithMetricsHandler serves h at GET /metrics.
func WithMetricsHandler(h http.Handler) Option {
	return func(s *Server) { s.metrics = h }
}

// WithStations records check-in attempts in t and serves its roster.
func WithStations(t *stations.Tracker) Option {
	return func(s *Server) { s.stations = t }
}

// New returns a Server backed by svc that announces changes through p.
func New(svc Ticketing, p events.Publisher, opts ...Option) *Server {
	if p == nil {
		p = &events.NoopPublisher{}
	}
	s := &Server{
		svc:       svc,
		publisher: p,
		stream:    newStreamHub(),
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.stations == nil {
		s.stations = stations.New(nil)
	}
	return s
}

// StartStationReaper marks stations offline after idle without a scan and
// announces each one on TopicStationOffline. Stop it with StopStationReaper.
func (s *Server) StartStationReaper(idle time.Duration) {
	s.stations.StartReaper(stations.ReaperConfig{
		IdleThreshold: idle,
		OnOffline: func(e stations.Entry) {
			s.publish(context.Background(), events.TopicStationOffline, events.StationOffline{
				Station:  e.Station,
				LastSeen: e.LastSeen,
			})
		},
	})
}

// StopStationReaper stops the reaper started by StartStationReaper.
func (s *Server) StopStationReaper() { s.stations.Stop() }

// recordScan notes a check-in attempt by station. attendee is nil when the
// attempt failed before the ticket was found.
func (s *Server) recordScan(station, ticketID string, attendee *model.Attendee, err error) {
	scan := stations.Scan{Station: station, TicketID: ticketID, Admitted: err == nil}
	if attendee != nil {
		scan.EventID = attendee.EventID
	}
	s.stations.Record(scan)
}

// publish announces a committed change on the bus and to stream clients.
// It runs after the unit of work has committed, so failures are logged and
// never undo or fail the request.
func (s *Server) publish(ctx context.Context, topic string, event any) {
	if err := s.publisher.Publish(context.WithoutCancel(ctx), topic, event); err != nil {
		slog.Warn("failed to publish event", "topic", topic, "error", err)
	}
	payload, err := json.Marshal(event)
	if err != nil {
		slog.Warn("failed to marshal event for stream", "topic", topic, "error", err)
		return
	}
	s.stream.broadcast(topic, payload)
}

// inputError indicates invalid user input.
// Transport layers map this to 400 / InvalidArgument.
type inputError string

func (e inputError) Error() string { return string(e) }
