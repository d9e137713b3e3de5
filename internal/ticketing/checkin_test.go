package ticketing

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/alfredjeanlab/passin/internal/clock"
	"github.com/alfredjeanlab/passin/internal/model"
	"github.com/alfredjeanlab/passin/internal/store/memory"
)

func registerOne(t *testing.T, svc *Service, st *memory.Store) *model.Attendee {
	t.Helper()
	e, err := seedEvent(context.Background(), st, nil)
	require.NoError(t, err)
	a, err := svc.Register(context.Background(), e.ID, model.RegistrationInput{Name: "Alice Doe", Email: "alice@example.com"})
	require.NoError(t, err)
	return a
}

func TestCheckIn(t *testing.T) {
	ctx := context.Background()
	st := memory.New()
	c := clock.NewManual(testStart)
	svc := newTestService(st, c)
	a := registerOne(t, svc, st)

	c.Advance(2 * time.Hour)
	checked, err := svc.CheckIn(ctx, a.TicketID)
	require.NoError(t, err)
	require.True(t, checked.CheckedIn)
	require.NotNil(t, checked.CheckInTime)
	require.Equal(t, testStart.Add(2*time.Hour), *checked.CheckInTime)
	require.Equal(t, a.Email, checked.Email)

	c.Advance(time.Minute)
	_, err = svc.CheckIn(ctx, a.TicketID)
	require.ErrorIs(t, err, ErrAlreadyCheckedIn)
	require.Equal(t, KindAlreadyCheckedIn, KindOf(err))

	stored, err := st.GetAttendeeByTicketID(ctx, a.TicketID)
	require.NoError(t, err)
	require.Equal(t, testStart.Add(2*time.Hour), *stored.CheckInTime, "check-in time must not change")
}

func TestCheckIn_NotFound(t *testing.T) {
	svc := newTestService(memory.New(), clock.NewManual(testStart))
	_, err := svc.CheckIn(context.Background(), "nonexistent")
	require.Equal(t, KindNotFound, KindOf(err))
}

func TestCheckIn_SingleFire(t *testing.T) {
	ctx := context.Background()
	st := memory.New()
	svc := newTestService(st, clock.NewManual(testStart))
	a := registerOne(t, svc, st)

	const callers = 50
	var ok, already atomic.Int32
	var wg sync.WaitGroup
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := svc.CheckIn(ctx, a.TicketID)
			switch {
			case err == nil:
				ok.Add(1)
			case KindOf(err) == KindAlreadyCheckedIn:
				already.Add(1)
			default:
				t.Errorf("unexpected error: %v", err)
			}
		}()
	}
	wg.Wait()

	require.Equal(t, int32(1), ok.Load())
	require.Equal(t, int32(callers-1), already.Load())
}
