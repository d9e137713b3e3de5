package ticketing

import (
	"context"
	"io"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/alfredjeanlab/passin/internal/clock"
	"github.com/alfredjeanlab/passin/internal/model"
	"github.com/alfredjeanlab/passin/internal/store"
	"github.com/alfredjeanlab/passin/internal/store/memory"
)

var testStart = time.Date(2026, 4, 20, 18, 0, 0, 0, time.UTC)

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newTestService(st store.Store, c clock.Clock) *Service {
	return New(st, WithClock(c), WithLogger(quietLogger()), WithPublicURL("https://tickets.example.com/"))
}

func seedEvent(ctx context.Context, st store.Store, maximum *int) (*model.Event, error) {
	id := uuid.NewString()
	e := &model.Event{ID: id, Title: "Event " + id, Slug: "event-" + id, MaximumAttendees: maximum, CreatedAt: testStart}
	return e, st.CreateEvent(ctx, e)
}

func intPtr(n int) *int { return &n }

// faultyStore wraps a memory store and injects failures into InsertAttendee
// and TicketIDExists, including calls made inside transactions.
type faultyStore struct {
	*memory.Store

	mu         sync.Mutex
	insertErrs []error
	taken      func(ticketID string) bool
	inserted   []string
}

func newFaultyStore() *faultyStore {
	return &faultyStore{Store: memory.New()}
}

func (f *faultyStore) failInserts(errs ...error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.insertErrs = append(f.insertErrs, errs...)
}

func (f *faultyStore) nextInsert(ticketID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.inserted = append(f.inserted, ticketID)
	if len(f.insertErrs) == 0 {
		return nil
	}
	err := f.insertErrs[0]
	f.insertErrs = f.insertErrs[1:]
	return err
}

func (f *faultyStore) attemptedTickets() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.inserted...)
}

func (f *faultyStore) TicketIDExists(ctx context.Context, ticketID string) (bool, error) {
	if f.taken != nil && f.taken(ticketID) {
		return true, nil
	}
	return f.Store.TicketIDExists(ctx, ticketID)
}

func (f *faultyStore) RunInTransaction(ctx context.Context, fn func(tx store.Store) error) error {
	return f.Store.RunInTransaction(ctx, func(tx store.Store) error {
		return fn(&faultyTx{Store: tx, parent: f})
	})
}

type faultyTx struct {
	store.Store
	parent *faultyStore
}

func (t *faultyTx) InsertAttendee(ctx context.Context, a *model.Attendee) error {
	if err := t.parent.nextInsert(a.TicketID); err != nil {
		return err
	}
	return t.Store.InsertAttendee(ctx, a)
}
