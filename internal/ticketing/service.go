// Package ticketing implements event registration and check-in over a
// transactional store.
//
// Every decision that protects an invariant (capacity, per-event email
// uniqueness, single-fire check-in) is made inside one store transaction
// that re-reads the current state. The service keeps no counters, caches or
// reservations of its own, so any number of instances may share a store.
package ticketing

import (
	"context"
	"log/slog"
	"net/url"
	"strings"
	"time"

	"github.com/alfredjeanlab/passin/internal/clock"
	"github.com/alfredjeanlab/passin/internal/idgen"
	"github.com/alfredjeanlab/passin/internal/metrics"
	"github.com/alfredjeanlab/passin/internal/store"
)

// DefaultTxTimeout bounds a unit of work whose context has no deadline.
const DefaultTxTimeout = 5 * time.Second

// Service is the registration and check-in engine.
type Service struct {
	store     store.Store
	allocator *idgen.Allocator
	clock     clock.Clock
	metrics   *metrics.Metrics
	logger    *slog.Logger
	txTimeout time.Duration
	publicURL string
}

// Option configures a Service.
type Option func(*Service)

// WithClock sets the clock used for createdAt and checkInTime.
func WithClock(c clock.Clock) Option {
	return func(s *Service) { s.clock = c }
}

// WithMetrics sets the metrics sink.
func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Service) { s.metrics = m }
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(s *Service) { s.logger = l }
}

// WithTxTimeout sets the default unit-of-work timeout.
func WithTxTimeout(d time.Duration) Option {
	return func(s *Service) {
		if d > 0 {
			s.txTimeout = d
		}
	}
}

// WithPublicURL sets the base URL printed on badges.
func WithPublicURL(u string) Option {
	return func(s *Service) { s.publicURL = strings.TrimRight(u, "/") }
}

// New returns a Service backed by st.
func New(st store.Store, opts ...Option) *Service {
	s := &Service{
		store:     st,
		clock:     clock.System(),
		logger:    slog.Default(),
		txTimeout: DefaultTxTimeout,
		publicURL: "http://localhost:8080",
	}
	for _, opt := range opts {
		opt(s)
	}
	s.allocator = idgen.NewAllocator(st)
	s.allocator.OnCollision = s.metrics.IncrementTicketIDCollision
	return s
}

// inUnit runs fn as one atomic unit of work. If ctx carries no deadline the
// unit is bounded by the service's transaction timeout.
func (s *Service) inUnit(ctx context.Context, op string, fn func(ctx context.Context, tx store.Store) error) error {
	if _, ok := ctx.Deadline(); !ok {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.txTimeout)
		defer cancel()
	}
	defer s.metrics.ObserveUnitOfWork(op, time.Now())
	return s.store.RunInTransaction(ctx, func(tx store.Store) error {
		return fn(ctx, tx)
	})
}

// Ping reports whether the store is reachable.
func (s *Service) Ping(ctx context.Context) error {
	return s.store.Ping(ctx)
}

func (s *Service) checkInURL(ticketID string) string {
	return s.publicURL + "/v1/attendees/" + url.PathEscape(ticketID) + "/check-in"
}

// outcome labels err for metrics.
func outcome(err error) string {
	if err == nil {
		return "success"
	}
	if k := KindOf(err); k != KindUnknown {
		return k.String()
	}
	if isValidation(err) {
		return "invalid"
	}
	return "error"
}
