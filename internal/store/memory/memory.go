// Package memory implements store.Store in process memory.
//
// A transaction holds the store's write lock for its whole duration, so
// units of work are fully serialized. Writes made inside a failed
// transaction are undone before the lock is released.
package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/alfredjeanlab/passin/internal/model"
	"github.com/alfredjeanlab/passin/internal/store"
)

// Store is an in-memory store.Store. The zero value is not usable; call New.
type Store struct {
	mu   sync.RWMutex
	data *dataset
}

var _ store.Store = (*Store)(nil)

type emailKey struct {
	eventID string
	email   string
}

type dataset struct {
	events    map[string]*model.Event
	slugs     map[string]string
	attendees map[int64]*model.Attendee
	tickets   map[string]int64
	emails    map[emailKey]int64
	nextID    int64
}

// New returns an empty Store.
func New() *Store {
	return &Store{data: &dataset{
		events:    make(map[string]*model.Event),
		slugs:     make(map[string]string),
		attendees: make(map[int64]*model.Attendee),
		tickets:   make(map[string]int64),
		emails:    make(map[emailKey]int64),
	}}
}

func (s *Store) view() *view { return &view{d: s.data} }

func (s *Store) CreateEvent(ctx context.Context, event *model.Event) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.view().CreateEvent(ctx, event)
}

func (s *Store) GetEvent(ctx context.Context, id string) (*model.Event, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.view().GetEvent(ctx, id)
}

func (s *Store) GetEventForUpdate(ctx context.Context, id string) (*model.Event, error) {
	return s.GetEvent(ctx, id)
}

func (s *Store) GetEventBySlug(ctx context.Context, slug string) (*model.Event, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.view().GetEventBySlug(ctx, slug)
}

func (s *Store) ListEvents(ctx context.Context) ([]*model.Event, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.view().ListEvents(ctx)
}

func (s *Store) CountAttendees(ctx context.Context, eventID string) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.view().CountAttendees(ctx, eventID)
}

func (s *Store) FindAttendeeByEmail(ctx context.Context, eventID, email string) (*model.Attendee, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.view().FindAttendeeByEmail(ctx, eventID, email)
}

func (s *Store) TicketIDExists(ctx context.Context, ticketID string) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.view().TicketIDExists(ctx, ticketID)
}

func (s *Store) InsertAttendee(ctx context.Context, attendee *model.Attendee) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.view().InsertAttendee(ctx, attendee)
}

func (s *Store) GetAttendeeByTicketID(ctx context.Context, ticketID string) (*model.Attendee, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.view().GetAttendeeByTicketID(ctx, ticketID)
}

func (s *Store) GetAttendeeByTicketIDForUpdate(ctx context.Context, ticketID string) (*model.Attendee, error) {
	return s.GetAttendeeByTicketID(ctx, ticketID)
}

func (s *Store) MarkCheckedIn(ctx context.Context, ticketID string, at time.Time) (*model.Attendee, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.view().MarkCheckedIn(ctx, ticketID, at)
}

func (s *Store) ListAttendees(ctx context.Context, eventID string) ([]*model.Attendee, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.view().ListAttendees(ctx, eventID)
}

func (s *Store) ListAllAttendees(ctx context.Context) ([]*model.Attendee, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.view().ListAllAttendees(ctx)
}

func (s *Store) DeleteAttendee(ctx context.Context, ticketID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.view().DeleteAttendee(ctx, ticketID)
}

// RunInTransaction runs fn while holding the write lock. If fn returns an
// error or panics, every write it made is undone.
func (s *Store) RunInTransaction(ctx context.Context, fn func(tx store.Store) error) error {
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	tx := &view{d: s.data}
	committed := false
	defer func() {
		if !committed {
			tx.rollback()
		}
	}()

	if err := fn(tx); err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}
	committed = true
	return nil
}

func (s *Store) Ping(ctx context.Context) error { return ctx.Err() }

func (s *Store) Close() error { return nil }

// view operates on a dataset whose lock is already held by the caller.
// Each mutation records how to reverse itself.
type view struct {
	d    *dataset
	undo []func()
}

var _ store.Store = (*view)(nil)

func (v *view) onRollback(fn func()) {
	v.undo = append(v.undo, fn)
}

func (v *view) rollback() {
	for i := len(v.undo) - 1; i >= 0; i-- {
		v.undo[i]()
	}
	v.undo = nil
}

func (v *view) CreateEvent(_ context.Context, event *model.Event) error {
	if _, ok := v.d.events[event.ID]; ok {
		return &store.UniqueViolationError{Constraint: "events_pkey"}
	}
	if _, ok := v.d.slugs[event.Slug]; ok {
		return &store.UniqueViolationError{Constraint: store.ConstraintEventSlug}
	}
	v.d.events[event.ID] = cloneEvent(event)
	v.d.slugs[event.Slug] = event.ID
	v.onRollback(func() {
		delete(v.d.events, event.ID)
		delete(v.d.slugs, event.Slug)
	})
	return nil
}

func (v *view) GetEvent(_ context.Context, id string) (*model.Event, error) {
	e, ok := v.d.events[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	return cloneEvent(e), nil
}

func (v *view) GetEventForUpdate(ctx context.Context, id string) (*model.Event, error) {
	return v.GetEvent(ctx, id)
}

func (v *view) GetEventBySlug(ctx context.Context, slug string) (*model.Event, error) {
	id, ok := v.d.slugs[slug]
	if !ok {
		return nil, store.ErrNotFound
	}
	return v.GetEvent(ctx, id)
}

func (v *view) ListEvents(_ context.Context) ([]*model.Event, error) {
	events := make([]*model.Event, 0, len(v.d.events))
	for _, e := range v.d.events {
		events = append(events, cloneEvent(e))
	}
	sort.Slice(events, func(i, j int) bool { return events[i].ID < events[j].ID })
	return events, nil
}

func (v *view) CountAttendees(_ context.Context, eventID string) (int, error) {
	n := 0
	for _, a := range v.d.attendees {
		if a.EventID == eventID {
			n++
		}
	}
	return n, nil
}

func (v *view) FindAttendeeByEmail(_ context.Context, eventID, email string) (*model.Attendee, error) {
	id, ok := v.d.emails[emailKey{eventID, model.NormalizeEmail(email)}]
	if !ok {
		return nil, store.ErrNotFound
	}
	return cloneAttendee(v.d.attendees[id]), nil
}

func (v *view) TicketIDExists(_ context.Context, ticketID string) (bool, error) {
	_, ok := v.d.tickets[ticketID]
	return ok, nil
}

func (v *view) InsertAttendee(_ context.Context, attendee *model.Attendee) error {
	if _, ok := v.d.events[attendee.EventID]; !ok {
		return fmt.Errorf("insert attendee: event %s: %w", attendee.EventID, store.ErrNotFound)
	}
	if _, ok := v.d.tickets[attendee.TicketID]; ok {
		return &store.UniqueViolationError{Constraint: store.ConstraintTicketID}
	}
	key := emailKey{attendee.EventID, model.NormalizeEmail(attendee.Email)}
	if _, ok := v.d.emails[key]; ok {
		return &store.UniqueViolationError{Constraint: store.ConstraintEventEmail}
	}

	v.d.nextID++
	attendee.ID = v.d.nextID
	stored := cloneAttendee(attendee)
	v.d.attendees[stored.ID] = stored
	v.d.tickets[stored.TicketID] = stored.ID
	v.d.emails[key] = stored.ID
	v.onRollback(func() {
		delete(v.d.attendees, stored.ID)
		delete(v.d.tickets, stored.TicketID)
		delete(v.d.emails, key)
	})
	return nil
}

func (v *view) GetAttendeeByTicketID(_ context.Context, ticketID string) (*model.Attendee, error) {
	id, ok := v.d.tickets[ticketID]
	if !ok {
		return nil, store.ErrNotFound
	}
	return cloneAttendee(v.d.attendees[id]), nil
}

func (v *view) GetAttendeeByTicketIDForUpdate(ctx context.Context, ticketID string) (*model.Attendee, error) {
	return v.GetAttendeeByTicketID(ctx, ticketID)
}

func (v *view) MarkCheckedIn(_ context.Context, ticketID string, at time.Time) (*model.Attendee, error) {
	id, ok := v.d.tickets[ticketID]
	if !ok {
		return nil, store.ErrNotFound
	}
	a := v.d.attendees[id]
	prev := cloneAttendee(a)
	if !a.MarkCheckedIn(at) {
		return nil, store.ErrAlreadyCheckedIn
	}
	v.onRollback(func() { v.d.attendees[id] = prev })
	return cloneAttendee(a), nil
}

func (v *view) ListAttendees(_ context.Context, eventID string) ([]*model.Attendee, error) {
	var out []*model.Attendee
	for _, a := range v.d.attendees {
		if a.EventID == eventID {
			out = append(out, cloneAttendee(a))
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.After(out[j].CreatedAt)
		}
		return out[i].ID > out[j].ID
	})
	return out, nil
}

func (v *view) ListAllAttendees(_ context.Context) ([]*model.Attendee, error) {
	out := make([]*model.Attendee, 0, len(v.d.attendees))
	for _, a := range v.d.attendees {
		out = append(out, cloneAttendee(a))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (v *view) DeleteAttendee(_ context.Context, ticketID string) error {
	id, ok := v.d.tickets[ticketID]
	if !ok {
		return store.ErrNotFound
	}
	a := v.d.attendees[id]
	key := emailKey{a.EventID, model.NormalizeEmail(a.Email)}
	delete(v.d.attendees, id)
	delete(v.d.tickets, ticketID)
	delete(v.d.emails, key)
	v.onRollback(func() {
		v.d.attendees[id] = a
		v.d.tickets[ticketID] = id
		v.d.emails[key] = id
	})
	return nil
}

// RunInTransaction on a view reuses the enclosing transaction.
func (v *view) RunInTransaction(_ context.Context, fn func(tx store.Store) error) error {
	return fn(v)
}

func (v *view) Ping(context.Context) error { return nil }

func (v *view) Close() error { return nil }

func cloneEvent(e *model.Event) *model.Event {
	c := *e
	if e.MaximumAttendees != nil {
		n := *e.MaximumAttendees
		c.MaximumAttendees = &n
	}
	return &c
}

func cloneAttendee(a *model.Attendee) *model.Attendee {
	c := *a
	if a.CheckInTime != nil {
		t := *a.CheckInTime
		c.CheckInTime = &t
	}
	return &c
}
