package ticketing

import (
	"context"
	"errors"
	"fmt"

	"github.com/alfredjeanlab/passin/internal/model"
	"github.com/alfredjeanlab/passin/internal/store"
)

// CheckIn marks the ticket's attendee as checked in and returns the updated
// attendee. A second check-in of the same ticket fails with
// KindAlreadyCheckedIn and leaves the original check-in time untouched.
func (s *Service) CheckIn(ctx context.Context, ticketID string) (*model.Attendee, error) {
	const op = "check_in"

	var checked *model.Attendee
	err := s.inUnit(ctx, op, func(ctx context.Context, tx store.Store) error {
		a, err := tx.GetAttendeeByTicketIDForUpdate(ctx, ticketID)
		if errors.Is(err, store.ErrNotFound) {
			return newError(KindNotFound, op, fmt.Errorf("ticket %s", ticketID))
		}
		if err != nil {
			return err
		}
		if a.CheckedIn {
			return newError(KindAlreadyCheckedIn, op, nil)
		}

		updated, err := tx.MarkCheckedIn(ctx, ticketID, s.clock.Now())
		switch {
		case errors.Is(err, store.ErrAlreadyCheckedIn):
			return newError(KindAlreadyCheckedIn, op, nil)
		case errors.Is(err, store.ErrNotFound):
			return newError(KindNotFound, op, fmt.Errorf("ticket %s", ticketID))
		case err != nil:
			return err
		}
		checked = updated
		return nil
	})

	s.metrics.ObserveCheckIn(outcome(err))
	if err != nil {
		var te *Error
		if !errors.As(err, &te) {
			err = fmt.Errorf("%s: %w", op, err)
		}
		return nil, err
	}
	s.logger.Info("attendee checked in", "ticket_id", ticketID, "attendee_id", checked.ID)
	return checked, nil
}
