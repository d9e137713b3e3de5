package server

import (
	"context"
	"io"
	"log/slog"
	"testing"

	"github.com/alfredjeanlab/passin/internal/events"
	"github.com/alfredjeanlab/passin/internal/store/memory"
	"github.com/alfredjeanlab/passin/internal/ticketing"
)

// ctxPublisher fails the way NATSPublisher does when handed a dead context.
type ctxPublisher struct {
	calls int
	err   error
}

func (p *ctxPublisher) Publish(ctx context.Context, _ string, _ any) error {
	p.calls++
	p.err = ctx.Err()
	return p.err
}

func (p *ctxPublisher) Close() error { return nil }

func TestPublish_SurvivesCallerCancel(t *testing.T) {
	svc := ticketing.New(memory.New(), ticketing.WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))))
	pub := &ctxPublisher{}
	s := New(svc, pub)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	s.publish(ctx, events.TopicAttendeeCheckedIn, events.AttendeeCheckedIn{})

	if pub.calls != 1 {
		t.Fatalf("Publish called %d times, want 1", pub.calls)
	}
	if pub.err != nil {
		t.Errorf("publisher saw a canceled context: %v", pub.err)
	}
}
