// Package export writes periodic JSONL snapshots of events and attendees.
package export

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"sort"
	"time"

	"github.com/alfredjeanlab/passin/internal/model"
	"github.com/alfredjeanlab/passin/internal/store"
)

// header is the first JSONL record written by ExportJSONL.
type header struct {
	Version       string    `json:"version"`
	Type          string    `json:"type"`
	Timestamp     time.Time `json:"timestamp"`
	EventCount    int       `json:"event_count"`
	AttendeeCount int       `json:"attendee_count"`
}

// record wraps a single JSONL line with a type discriminator.
type record struct {
	Type string `json:"type"`
	Data any    `json:"data"`
}

// ExportJSONL writes every event and attendee in s as JSONL to w. Both are
// read in one transaction so attendee counts match the events written.
// Events are sorted by ID, attendees by event then attendee ID.
func ExportJSONL(ctx context.Context, s store.Store, w io.Writer) error {
	var (
		events    []*model.Event
		attendees []*model.Attendee
	)
	err := s.RunInTransaction(ctx, func(tx store.Store) error {
		var err error
		if events, err = tx.ListEvents(ctx); err != nil {
			return fmt.Errorf("list events: %w", err)
		}
		if attendees, err = tx.ListAllAttendees(ctx); err != nil {
			return fmt.Errorf("list attendees: %w", err)
		}
		return nil
	})
	if err != nil {
		return err
	}

	sort.Slice(events, func(i, j int) bool {
		return events[i].ID < events[j].ID
	})
	sort.Slice(attendees, func(i, j int) bool {
		if attendees[i].EventID != attendees[j].EventID {
			return attendees[i].EventID < attendees[j].EventID
		}
		return attendees[i].ID < attendees[j].ID
	})

	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(false)

	if err := enc.Encode(header{
		Version:       "1",
		Type:          "header",
		Timestamp:     time.Now().UTC(),
		EventCount:    len(events),
		AttendeeCount: len(attendees),
	}); err != nil {
		return fmt.Errorf("encode header: %w", err)
	}

	for _, e := range events {
		if err := enc.Encode(record{Type: "event", Data: e}); err != nil {
			return fmt.Errorf("encode event %s: %w", e.ID, err)
		}
	}
	for _, a := range attendees {
		if err := enc.Encode(record{Type: "attendee", Data: a}); err != nil {
			return fmt.Errorf("encode attendee %d: %w", a.ID, err)
		}
	}

	return nil
}
