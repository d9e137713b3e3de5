package memory

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/suite"

	"github.com/alfredjeanlab/passin/internal/model"
	"github.com/alfredjeanlab/passin/internal/store"
)

type MemoryStoreSuite struct {
	suite.Suite
	store *Store
	ctx   context.Context
	now   time.Time
}

func TestMemoryStoreSuite(t *testing.T) {
	suite.Run(t, new(MemoryStoreSuite))
}

func (s *MemoryStoreSuite) SetupTest() {
	s.store = New()
	s.ctx = context.Background()
	s.now = time.Date(2026, 5, 1, 12, 0, 0, 0, time.UTC)
}

func (s *MemoryStoreSuite) newEvent(max *int) *model.Event {
	id := uuid.NewString()
	e := &model.Event{ID: id, Title: "Event " + id, Slug: "event-" + id, MaximumAttendees: max, CreatedAt: s.now}
	s.Require().NoError(s.store.CreateEvent(s.ctx, e))
	return e
}

func (s *MemoryStoreSuite) newAttendee(eventID, email, ticketID string) *model.Attendee {
	return &model.Attendee{EventID: eventID, Name: "Some Person", Email: email, TicketID: ticketID, CreatedAt: s.now}
}

// TestEvents verifies event creation and lookups.
func (s *MemoryStoreSuite) TestEvents() {
	s.Run("get by id and slug", func() {
		e := s.newEvent(nil)
		got, err := s.store.GetEvent(s.ctx, e.ID)
		s.Require().NoError(err)
		s.Equal(e.Title, got.Title)

		got, err = s.store.GetEventBySlug(s.ctx, e.Slug)
		s.Require().NoError(err)
		s.Equal(e.ID, got.ID)
	})

	s.Run("duplicate slug rejected", func() {
		e := s.newEvent(nil)
		dup := &model.Event{ID: uuid.NewString(), Title: e.Title, Slug: e.Slug}
		err := s.store.CreateEvent(s.ctx, dup)
		s.True(store.IsUniqueViolation(err, store.ConstraintEventSlug), "got %v", err)
	})

	s.Run("unknown event", func() {
		_, err := s.store.GetEvent(s.ctx, "missing")
		s.ErrorIs(err, store.ErrNotFound)
	})

	s.Run("returned events are copies", func() {
		max := 3
		e := s.newEvent(&max)
		got, err := s.store.GetEvent(s.ctx, e.ID)
		s.Require().NoError(err)
		*got.MaximumAttendees = 100

		again, err := s.store.GetEvent(s.ctx, e.ID)
		s.Require().NoError(err)
		s.Equal(3, *again.MaximumAttendees)
	})
}

// TestAttendeeUniqueness verifies ticket and per-event email constraints.
func (s *MemoryStoreSuite) TestAttendeeUniqueness() {
	e := s.newEvent(nil)
	other := s.newEvent(nil)

	first := s.newAttendee(e.ID, "ana@example.com", "ticket-0001")
	s.Require().NoError(s.store.InsertAttendee(s.ctx, first))
	s.NotZero(first.ID)

	s.Run("ticket id is global", func() {
		err := s.store.InsertAttendee(s.ctx, s.newAttendee(other.ID, "bob@example.com", "ticket-0001"))
		s.True(store.IsUniqueViolation(err, store.ConstraintTicketID), "got %v", err)
	})

	s.Run("email is per event and case-insensitive", func() {
		err := s.store.InsertAttendee(s.ctx, s.newAttendee(e.ID, "ANA@example.com", "ticket-0002"))
		s.True(store.IsUniqueViolation(err, store.ConstraintEventEmail), "got %v", err)

		s.NoError(s.store.InsertAttendee(s.ctx, s.newAttendee(other.ID, "ana@example.com", "ticket-0003")))
	})

	s.Run("find by email", func() {
		found, err := s.store.FindAttendeeByEmail(s.ctx, e.ID, "Ana@Example.com")
		s.Require().NoError(err)
		s.Equal("ticket-0001", found.TicketID)
		s.Equal("ana@example.com", found.Email)
	})

	s.Run("ticket exists", func() {
		ok, err := s.store.TicketIDExists(s.ctx, "ticket-0001")
		s.Require().NoError(err)
		s.True(ok)
		ok, err = s.store.TicketIDExists(s.ctx, "ticket-9999")
		s.Require().NoError(err)
		s.False(ok)
	})

	s.Run("unknown event", func() {
		err := s.store.InsertAttendee(s.ctx, s.newAttendee("missing", "x@example.com", "ticket-0004"))
		s.ErrorIs(err, store.ErrNotFound)
	})
}

// TestCheckIn verifies the one-way check-in transition.
func (s *MemoryStoreSuite) TestCheckIn() {
	e := s.newEvent(nil)
	s.Require().NoError(s.store.InsertAttendee(s.ctx, s.newAttendee(e.ID, "ana@example.com", "ticket-ci")))

	at := s.now.Add(time.Hour)
	a, err := s.store.MarkCheckedIn(s.ctx, "ticket-ci", at)
	s.Require().NoError(err)
	s.True(a.CheckedIn)
	s.Require().NotNil(a.CheckInTime)
	s.True(a.CheckInTime.Equal(at))

	_, err = s.store.MarkCheckedIn(s.ctx, "ticket-ci", at.Add(time.Minute))
	s.ErrorIs(err, store.ErrAlreadyCheckedIn)

	got, err := s.store.GetAttendeeByTicketID(s.ctx, "ticket-ci")
	s.Require().NoError(err)
	s.True(got.CheckInTime.Equal(at))

	_, err = s.store.MarkCheckedIn(s.ctx, "nope", at)
	s.ErrorIs(err, store.ErrNotFound)
}

// TestListAndDelete verifies ordering and deletion.
func (s *MemoryStoreSuite) TestListAndDelete() {
	e := s.newEvent(nil)
	for i := 0; i < 3; i++ {
		a := s.newAttendee(e.ID, fmt.Sprintf("p%d@example.com", i), fmt.Sprintf("ticket-l%d", i))
		a.CreatedAt = s.now.Add(time.Duration(i) * time.Minute)
		s.Require().NoError(s.store.InsertAttendee(s.ctx, a))
	}

	list, err := s.store.ListAttendees(s.ctx, e.ID)
	s.Require().NoError(err)
	s.Require().Len(list, 3)
	s.Equal("ticket-l2", list[0].TicketID)
	s.Equal("ticket-l0", list[2].TicketID)

	s.Require().NoError(s.store.DeleteAttendee(s.ctx, "ticket-l1"))
	s.ErrorIs(s.store.DeleteAttendee(s.ctx, "ticket-l1"), store.ErrNotFound)

	n, err := s.store.CountAttendees(s.ctx, e.ID)
	s.Require().NoError(err)
	s.Equal(2, n)

	// The freed email can register again.
	s.NoError(s.store.InsertAttendee(s.ctx, s.newAttendee(e.ID, "p1@example.com", "ticket-l3")))
}

// TestTransactionRollback verifies a failed unit of work leaves no trace.
func (s *MemoryStoreSuite) TestTransactionRollback() {
	e := s.newEvent(nil)
	s.Require().NoError(s.store.InsertAttendee(s.ctx, s.newAttendee(e.ID, "keep@example.com", "ticket-keep")))

	boom := errors.New("boom")
	err := s.store.RunInTransaction(s.ctx, func(tx store.Store) error {
		s.Require().NoError(tx.InsertAttendee(s.ctx, s.newAttendee(e.ID, "gone@example.com", "ticket-gone")))
		if _, err := tx.MarkCheckedIn(s.ctx, "ticket-keep", s.now); err != nil {
			return err
		}
		s.Require().NoError(tx.DeleteAttendee(s.ctx, "ticket-keep"))
		return boom
	})
	s.Require().ErrorIs(err, boom)

	exists, err := s.store.TicketIDExists(s.ctx, "ticket-gone")
	s.Require().NoError(err)
	s.False(exists)

	kept, err := s.store.GetAttendeeByTicketID(s.ctx, "ticket-keep")
	s.Require().NoError(err)
	s.False(kept.CheckedIn)
	s.Nil(kept.CheckInTime)

	_, err = s.store.FindAttendeeByEmail(s.ctx, e.ID, "gone@example.com")
	s.ErrorIs(err, store.ErrNotFound)
}

// TestTransactionsSerialize verifies concurrent units of work observe each
// other's writes, so a read-then-insert capacity check never overbooks.
func (s *MemoryStoreSuite) TestTransactionsSerialize() {
	const (
		capacity   = 5
		goroutines = 100
	)
	e := s.newEvent(nil)

	var wg sync.WaitGroup
	var admitted atomic.Int32
	for i := 0; i < goroutines; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			err := s.store.RunInTransaction(s.ctx, func(tx store.Store) error {
				n, err := tx.CountAttendees(s.ctx, e.ID)
				if err != nil {
					return err
				}
				if n >= capacity {
					return nil
				}
				admitted.Add(1)
				return tx.InsertAttendee(s.ctx, s.newAttendee(e.ID, fmt.Sprintf("u%d@example.com", i), fmt.Sprintf("ticket-c%03d", i)))
			})
			s.NoError(err)
		}(i)
	}
	wg.Wait()

	s.Equal(int32(capacity), admitted.Load())
	n, err := s.store.CountAttendees(s.ctx, e.ID)
	s.Require().NoError(err)
	s.Equal(capacity, n)
}

func (s *MemoryStoreSuite) TestCanceledContext() {
	ctx, cancel := context.WithCancel(s.ctx)
	cancel()
	called := false
	err := s.store.RunInTransaction(ctx, func(store.Store) error {
		called = true
		return nil
	})
	s.ErrorIs(err, context.Canceled)
	s.False(called)
}
