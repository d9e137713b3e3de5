package ticketing

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/alfredjeanlab/passin/internal/model"
	"github.com/alfredjeanlab/passin/internal/store"
)

func isValidation(err error) bool {
	var ve *model.ValidationError
	return errors.As(err, &ve)
}

func slugTaken() error {
	return &model.ValidationError{Errors: []model.FieldError{{
		Field:   "title",
		Message: "an event with the same slug already exists",
	}}}
}

// CreateEvent validates in, derives the slug from the title, and stores
// the event. A title whose slug is already in use is a validation error.
func (s *Service) CreateEvent(ctx context.Context, in model.EventInput) (*model.Event, error) {
	if err := model.ValidateEvent(in); err != nil {
		return nil, err
	}

	e := &model.Event{
		ID:               uuid.NewString(),
		Title:            strings.TrimSpace(in.Title),
		Slug:             model.GenerateSlug(in.Title),
		MaximumAttendees: in.MaximumAttendees,
		CreatedAt:        s.clock.Now(),
	}
	if in.Details != nil {
		e.Details = strings.TrimSpace(*in.Details)
	}
	if in.Price != nil {
		e.Price = *in.Price
	}

	if _, err := s.store.GetEventBySlug(ctx, e.Slug); err == nil {
		return nil, slugTaken()
	} else if !errors.Is(err, store.ErrNotFound) {
		return nil, fmt.Errorf("create event: %w", err)
	}

	if err := s.store.CreateEvent(ctx, e); err != nil {
		if store.IsUniqueViolation(err, store.ConstraintEventSlug) {
			return nil, slugTaken()
		}
		return nil, fmt.Errorf("create event: %w", err)
	}
	s.logger.Info("event created", "event_id", e.ID, "slug", e.Slug)
	return e, nil
}

// GetEvent returns the event and its current attendee count.
func (s *Service) GetEvent(ctx context.Context, id string) (*model.EventDetails, error) {
	pre, err := s.preRead(ctx, id, "")
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, newError(KindNotFound, "get_event", fmt.Errorf("event %s", id))
		}
		return nil, fmt.Errorf("get event: %w", err)
	}
	return &model.EventDetails{Event: *pre.event, AttendeesAmount: pre.count}, nil
}

// GetEventBySlug resolves a slug and returns the event with its count.
func (s *Service) GetEventBySlug(ctx context.Context, slug string) (*model.EventDetails, error) {
	e, err := s.store.GetEventBySlug(ctx, slug)
	if errors.Is(err, store.ErrNotFound) {
		return nil, newError(KindNotFound, "get_event", fmt.Errorf("event %q", slug))
	}
	if err != nil {
		return nil, fmt.Errorf("get event: %w", err)
	}
	return s.GetEvent(ctx, e.ID)
}

// ListAttendees returns the event's attendees, newest first.
func (s *Service) ListAttendees(ctx context.Context, eventID string) ([]*model.Attendee, error) {
	if _, err := s.store.GetEvent(ctx, eventID); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, newError(KindNotFound, "list_attendees", fmt.Errorf("event %s", eventID))
		}
		return nil, fmt.Errorf("list attendees: %w", err)
	}
	attendees, err := s.store.ListAttendees(ctx, eventID)
	if err != nil {
		return nil, fmt.Errorf("list attendees: %w", err)
	}
	return attendees, nil
}

// Badge returns the printable view of a ticket.
func (s *Service) Badge(ctx context.Context, ticketID string) (*model.Badge, error) {
	const op = "badge"

	attendee, err := s.store.GetAttendeeByTicketID(ctx, ticketID)
	if errors.Is(err, store.ErrNotFound) {
		return nil, newError(KindNotFound, op, fmt.Errorf("ticket %s", ticketID))
	}
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	event, err := s.store.GetEvent(ctx, attendee.EventID)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return &model.Badge{
		EventTitle: event.Title,
		AttendeeID: attendee.ID,
		TicketID:   attendee.TicketID,
		Name:       attendee.Name,
		Email:      attendee.Email,
		CheckedIn:  attendee.CheckedIn,
		CheckInURL: s.checkInURL(attendee.TicketID),
	}, nil
}

// DeleteAttendee removes a registration and returns what was removed.
func (s *Service) DeleteAttendee(ctx context.Context, ticketID string) (*model.Attendee, error) {
	const op = "delete_attendee"

	var deleted *model.Attendee
	err := s.inUnit(ctx, op, func(ctx context.Context, tx store.Store) error {
		a, err := tx.GetAttendeeByTicketIDForUpdate(ctx, ticketID)
		if err != nil {
			return err
		}
		if err := tx.DeleteAttendee(ctx, ticketID); err != nil {
			return err
		}
		deleted = a
		return nil
	})
	if errors.Is(err, store.ErrNotFound) {
		return nil, newError(KindNotFound, op, fmt.Errorf("ticket %s", ticketID))
	}
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	s.logger.Info("attendee deleted", "ticket_id", ticketID, "event_id", deleted.EventID)
	return deleted, nil
}
