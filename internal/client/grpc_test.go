package client

import (
	"context"
	"io"
	"log/slog"
	"net"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/grpc/test/bufconn"

	"github.com/alfredjeanlab/passin/internal/model"
	"github.com/alfredjeanlab/passin/internal/server"
	"github.com/alfredjeanlab/passin/internal/store/memory"
	"github.com/alfredjeanlab/passin/internal/ticketing"
)

// newGRPCTestClient serves a real server over an in-memory listener.
func newGRPCTestClient(t *testing.T) *GRPCClient {
	t.Helper()
	svc := ticketing.New(memory.New(), ticketing.WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))))
	srv := server.NewGRPCServer(server.New(svc, nil))

	lis := bufconn.Listen(1 << 20)
	go func() { _ = srv.Serve(lis) }()
	t.Cleanup(srv.Stop)

	c, err := NewGRPCClient("passthrough:///bufnet", grpc.WithContextDialer(func(ctx context.Context, _ string) (net.Conn, error) {
		return lis.DialContext(ctx)
	}))
	require.NoError(t, err)
	t.Cleanup(func() { _ = c.Close() })
	return c
}

func TestGRPCClient_RoundTrip(t *testing.T) {
	ctx := context.Background()
	c := newGRPCTestClient(t)

	capacity := 2
	event, err := c.CreateEvent(ctx, model.EventInput{Title: "Unite Summit", MaximumAttendees: &capacity})
	require.NoError(t, err)
	require.Equal(t, "unite-summit", event.Slug)
	require.NotNil(t, event.MaximumAttendees)
	require.Equal(t, 2, *event.MaximumAttendees)

	a, err := c.Register(ctx, event.ID, model.RegistrationInput{Name: "Alice Smith", Email: "alice@example.com"})
	require.NoError(t, err)
	require.Len(t, a.TicketID, 10)
	require.NotZero(t, a.ID)

	details, err := c.GetEventBySlug(ctx, "unite-summit")
	require.NoError(t, err)
	require.Equal(t, 1, details.AttendeesAmount)

	byID, err := c.GetEvent(ctx, event.ID)
	require.NoError(t, err)
	require.Equal(t, event.ID, byID.ID)

	checked, err := c.CheckIn(ctx, a.TicketID)
	require.NoError(t, err)
	require.True(t, checked.CheckedIn)
	require.NotNil(t, checked.CheckInTime)

	_, err = c.CheckIn(ctx, a.TicketID)
	require.Equal(t, codes.FailedPrecondition, status.Code(err))

	badge, err := c.Badge(ctx, a.TicketID)
	require.NoError(t, err)
	require.Equal(t, "Unite Summit", badge.EventTitle)
	require.True(t, badge.CheckedIn)

	list, err := c.ListAttendees(ctx, event.ID)
	require.NoError(t, err)
	require.Len(t, list, 1)

	require.NoError(t, c.DeleteAttendee(ctx, a.TicketID))
	list, err = c.ListAttendees(ctx, event.ID)
	require.NoError(t, err)
	require.Empty(t, list)

	st, err := c.Health(ctx)
	require.NoError(t, err)
	require.Equal(t, "ok", st)
}

func TestGRPCClient_Errors(t *testing.T) {
	ctx := context.Background()
	c := newGRPCTestClient(t)

	_, err := c.GetEvent(ctx, "missing")
	require.Equal(t, codes.NotFound, status.Code(err))

	_, err = c.CreateEvent(ctx, model.EventInput{Title: "abc"})
	require.Equal(t, codes.InvalidArgument, status.Code(err))
}

func TestGRPCClient_Stations(t *testing.T) {
	ctx := context.Background()
	c := newGRPCTestClient(t)

	event, err := c.CreateEvent(ctx, model.EventInput{Title: "Gate Check"})
	require.NoError(t, err)
	a, err := c.Register(ctx, event.ID, model.RegistrationInput{Name: "Alice Smith", Email: "alice@example.com"})
	require.NoError(t, err)

	_, err = c.CheckIn(WithStation(ctx, "gate-a"), a.TicketID)
	require.NoError(t, err)
	_, err = c.CheckIn(WithStation(ctx, "gate-a"), a.TicketID)
	require.Equal(t, codes.FailedPrecondition, status.Code(err))

	list, err := c.ListStations(ctx, time.Hour)
	require.NoError(t, err)
	require.Len(t, list, 1)
	require.Equal(t, "gate-a", list[0].Station)
	require.Equal(t, int64(1), list[0].Admitted)
	require.Equal(t, int64(1), list[0].Refused)
	require.Equal(t, event.ID, list[0].LastEventID)
}
