package ticketing

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/alfredjeanlab/passin/internal/clock"
	"github.com/alfredjeanlab/passin/internal/model"
	"github.com/alfredjeanlab/passin/internal/store/memory"
)

func strPtr(s string) *string { return &s }

func TestCreateEvent(t *testing.T) {
	ctx := context.Background()
	svc := newTestService(memory.New(), clock.NewManual(testStart))

	e, err := svc.CreateEvent(ctx, model.EventInput{Title: "  São Paulo Go Day ", Details: strPtr("Talks"), MaximumAttendees: intPtr(120)})
	require.NoError(t, err)
	require.NotEmpty(t, e.ID)
	require.Equal(t, "São Paulo Go Day", e.Title)
	require.Equal(t, "sao-paulo-go-day", e.Slug)
	require.Equal(t, "Talks", e.Details)
	require.Equal(t, 0.0, e.Price)
	require.Equal(t, testStart, e.CreatedAt)

	_, err = svc.CreateEvent(ctx, model.EventInput{Title: "Sao Paulo go day"})
	var ve *model.ValidationError
	require.ErrorAs(t, err, &ve)
	require.Equal(t, "an event with the same slug already exists", ve.Errors[0].Message)

	_, err = svc.CreateEvent(ctx, model.EventInput{Title: "Go"})
	require.ErrorAs(t, err, &ve)
}

func TestGetEvent(t *testing.T) {
	ctx := context.Background()
	svc := newTestService(memory.New(), clock.NewManual(testStart))

	e, err := svc.CreateEvent(ctx, model.EventInput{Title: "Go Meetup", MaximumAttendees: intPtr(3)})
	require.NoError(t, err)
	_, err = svc.Register(ctx, e.ID, model.RegistrationInput{Name: "Alice Doe", Email: "alice@example.com"})
	require.NoError(t, err)

	details, err := svc.GetEvent(ctx, e.ID)
	require.NoError(t, err)
	require.Equal(t, 1, details.AttendeesAmount)
	require.Equal(t, 3, *details.MaximumAttendees)

	bySlug, err := svc.GetEventBySlug(ctx, "go-meetup")
	require.NoError(t, err)
	require.Equal(t, e.ID, bySlug.ID)

	_, err = svc.GetEvent(ctx, "missing")
	require.ErrorIs(t, err, ErrNotFound)
	_, err = svc.GetEventBySlug(ctx, "missing")
	require.ErrorIs(t, err, ErrNotFound)
}

func TestListAttendees(t *testing.T) {
	ctx := context.Background()
	c := clock.NewManual(testStart)
	svc := newTestService(memory.New(), c)

	e, err := svc.CreateEvent(ctx, model.EventInput{Title: "Go Meetup"})
	require.NoError(t, err)
	for _, email := range []string{"a@example.com", "b@example.com", "c@example.com"} {
		_, err := svc.Register(ctx, e.ID, model.RegistrationInput{Name: "Some Person", Email: email})
		require.NoError(t, err)
		c.Advance(1)
	}

	list, err := svc.ListAttendees(ctx, e.ID)
	require.NoError(t, err)
	require.Len(t, list, 3)
	require.Equal(t, "c@example.com", list[0].Email)

	_, err = svc.ListAttendees(ctx, "missing")
	require.Equal(t, KindNotFound, KindOf(err))
}

func TestBadge(t *testing.T) {
	ctx := context.Background()
	svc := newTestService(memory.New(), clock.NewManual(testStart))

	e, err := svc.CreateEvent(ctx, model.EventInput{Title: "Go Meetup"})
	require.NoError(t, err)
	a, err := svc.Register(ctx, e.ID, model.RegistrationInput{Name: "Alice Doe", Email: "alice@example.com"})
	require.NoError(t, err)

	badge, err := svc.Badge(ctx, a.TicketID)
	require.NoError(t, err)
	require.Equal(t, "Go Meetup", badge.EventTitle)
	require.Equal(t, a.ID, badge.AttendeeID)
	require.Equal(t, "https://tickets.example.com/v1/attendees/"+a.TicketID+"/check-in", badge.CheckInURL)
	require.False(t, badge.CheckedIn)

	_, err = svc.Badge(ctx, "missing")
	require.ErrorIs(t, err, ErrNotFound)
}

func TestDeleteAttendee(t *testing.T) {
	ctx := context.Background()
	svc := newTestService(memory.New(), clock.NewManual(testStart))

	e, err := svc.CreateEvent(ctx, model.EventInput{Title: "Go Meetup", MaximumAttendees: intPtr(1)})
	require.NoError(t, err)
	a, err := svc.Register(ctx, e.ID, model.RegistrationInput{Name: "Alice Doe", Email: "alice@example.com"})
	require.NoError(t, err)

	deleted, err := svc.DeleteAttendee(ctx, a.TicketID)
	require.NoError(t, err)
	require.Equal(t, a.ID, deleted.ID)

	_, err = svc.DeleteAttendee(ctx, a.TicketID)
	require.Equal(t, KindNotFound, KindOf(err))

	// The freed seat is available again.
	_, err = svc.Register(ctx, e.ID, model.RegistrationInput{Name: "Bruno Reis", Email: "bruno@example.com"})
	require.NoError(t, err)
}
