// Package metrics exposes Prometheus instrumentation for registration and
// check-in. A nil *Metrics is valid and records nothing.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics tracks registration and check-in outcomes and unit-of-work latency.
type Metrics struct {
	Registrations      *prometheus.CounterVec
	CheckIns           *prometheus.CounterVec
	TicketIDCollisions prometheus.Counter
	UnitOfWorkDuration *prometheus.HistogramVec
}

// New creates a Metrics instance registered with reg.
func New(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		Registrations: f.NewCounterVec(prometheus.CounterOpts{
			Name: "passin_registrations_total",
			Help: "Registration attempts by outcome",
		}, []string{"outcome"}),
		CheckIns: f.NewCounterVec(prometheus.CounterOpts{
			Name: "passin_checkins_total",
			Help: "Check-in attempts by outcome",
		}, []string{"outcome"}),
		TicketIDCollisions: f.NewCounter(prometheus.CounterOpts{
			Name: "passin_ticket_id_collisions_total",
			Help: "Ticket ID candidates rejected because they were already taken",
		}),
		UnitOfWorkDuration: f.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "passin_unit_of_work_duration_seconds",
			Help:    "Duration of transactional units of work",
			Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5},
		}, []string{"op"}),
	}
}

// ObserveRegistration records the outcome of one Register call.
func (m *Metrics) ObserveRegistration(outcome string) {
	if m == nil {
		return
	}
	m.Registrations.WithLabelValues(outcome).Inc()
}

// ObserveCheckIn records the outcome of one CheckIn call.
func (m *Metrics) ObserveCheckIn(outcome string) {
	if m == nil {
		return
	}
	m.CheckIns.WithLabelValues(outcome).Inc()
}

// IncrementTicketIDCollision records a taken ticket ID candidate.
func (m *Metrics) IncrementTicketIDCollision() {
	if m == nil {
		return
	}
	m.TicketIDCollisions.Inc()
}

// ObserveUnitOfWork records how long a unit of work named op took.
// Call with time.Now() at the start of the operation.
func (m *Metrics) ObserveUnitOfWork(op string, start time.Time) {
	if m == nil {
		return
	}
	m.UnitOfWorkDuration.WithLabelValues(op).Observe(time.Since(start).Seconds())
}
