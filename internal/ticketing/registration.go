package ticketing

import (
	"context"
	"errors"
	"fmt"

	"golang.org/x/sync/errgroup"

	"github.com/alfredjeanlab/passin/internal/idgen"
	"github.com/alfredjeanlab/passin/internal/model"
	"github.com/alfredjeanlab/passin/internal/store"
)

// Register creates an attendee for eventID. Input is trimmed and validated
// first; a *model.ValidationError is returned for bad input.
//
// Capacity and email uniqueness are re-checked inside the same transaction
// that inserts the attendee. If the insert still trips a unique constraint
// because a concurrent registration won the race, Register fails with
// KindConflict. A collision on the ticket ID alone is retried once with a
// fresh ID.
func (s *Service) Register(ctx context.Context, eventID string, in model.RegistrationInput) (*model.Attendee, error) {
	in = in.Normalize()
	if err := model.ValidateRegistration(in); err != nil {
		s.metrics.ObserveRegistration(outcome(err))
		return nil, err
	}

	a, err := s.register(ctx, eventID, in)
	s.metrics.ObserveRegistration(outcome(err))
	if err != nil {
		s.logger.Debug("registration rejected", "event_id", eventID, "outcome", outcome(err), "error", err)
		return nil, err
	}
	s.logger.Info("attendee registered", "event_id", eventID, "attendee_id", a.ID, "ticket_id", a.TicketID)
	return a, nil
}

func (s *Service) register(ctx context.Context, eventID string, in model.RegistrationInput) (*model.Attendee, error) {
	const op = "register"

	ticketID, err := s.allocateTicketID(ctx, op)
	if err != nil {
		return nil, err
	}

	pre, err := s.preRead(ctx, eventID, in.Email)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, newError(KindNotFound, op, fmt.Errorf("event %s", eventID))
		}
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	if pre.registered {
		return nil, newError(KindDuplicateRegistration, op, nil)
	}
	if !pre.event.HasRoomFor(pre.count) {
		return nil, newError(KindCapacityExceeded, op, nil)
	}
	event := pre.event

	for attempt := 0; ; attempt++ {
		a, err := s.insertAttendee(ctx, op, event.ID, in, ticketID)
		if err == nil {
			return a, nil
		}
		if attempt == 0 && store.IsUniqueViolation(err, store.ConstraintTicketID) {
			s.metrics.IncrementTicketIDCollision()
			if ticketID, err = s.allocateTicketID(ctx, op); err != nil {
				return nil, err
			}
			continue
		}
		if store.IsUniqueViolation(err, "") {
			return nil, newError(KindConflict, op, err)
		}
		var te *Error
		if errors.As(err, &te) {
			return nil, err
		}
		return nil, fmt.Errorf("%s: %w", op, err)
	}
}

func (s *Service) allocateTicketID(ctx context.Context, op string) (string, error) {
	id, err := s.allocator.Allocate(ctx)
	if errors.Is(err, idgen.ErrExhaustedRetries) {
		return "", newError(KindExhaustedRetries, op, err)
	}
	if err != nil {
		return "", fmt.Errorf("%s: allocate ticket id: %w", op, err)
	}
	return id, nil
}

// preview is what preRead saw outside the unit of work.
type preview struct {
	event      *model.Event
	count      int
	registered bool // email already holds a ticket for the event
}

// preRead loads the event, its attendee count and, when email is set, any
// registration for it concurrently. All three are advisory; the unit of work reads them
// again under the event lock. Callers reject a duplicate email before a
// full event.
func (s *Service) preRead(ctx context.Context, eventID, email string) (preview, error) {
	var p preview
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		e, err := s.store.GetEvent(gctx, eventID)
		p.event = e
		return err
	})
	g.Go(func() error {
		n, err := s.store.CountAttendees(gctx, eventID)
		p.count = n
		return err
	})
	if email != "" {
		g.Go(func() error {
			_, err := s.store.FindAttendeeByEmail(gctx, eventID, email)
			switch {
			case err == nil:
				p.registered = true
			case !errors.Is(err, store.ErrNotFound):
				return err
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return preview{}, err
	}
	return p, nil
}

// insertAttendee is the atomic check-and-insert. Locking the event row
// serializes registrations for the same event.
func (s *Service) insertAttendee(ctx context.Context, op, eventID string, in model.RegistrationInput, ticketID string) (*model.Attendee, error) {
	var created *model.Attendee
	err := s.inUnit(ctx, op, func(ctx context.Context, tx store.Store) error {
		event, err := tx.GetEventForUpdate(ctx, eventID)
		if errors.Is(err, store.ErrNotFound) {
			return newError(KindNotFound, op, fmt.Errorf("event %s", eventID))
		}
		if err != nil {
			return err
		}

		_, err = tx.FindAttendeeByEmail(ctx, eventID, in.Email)
		if err == nil {
			return newError(KindDuplicateRegistration, op, nil)
		}
		if !errors.Is(err, store.ErrNotFound) {
			return err
		}

		count, err := tx.CountAttendees(ctx, eventID)
		if err != nil {
			return err
		}
		if !event.HasRoomFor(count) {
			return newError(KindCapacityExceeded, op, nil)
		}

		a := &model.Attendee{
			EventID:   eventID,
			Name:      in.Name,
			Email:     in.Email,
			TicketID:  ticketID,
			CreatedAt: s.clock.Now(),
		}
		if err := tx.InsertAttendee(ctx, a); err != nil {
			return err
		}
		created = a
		return nil
	})
	if err != nil {
		return nil, err
	}
	return created, nil
}
