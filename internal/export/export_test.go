package export

import (
	"bytes"
	"context"
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/alfredjeanlab/passin/internal/model"
	"github.com/alfredjeanlab/passin/internal/store/memory"
)

func nonEmptyLines(s string) []string {
	var out []string
	for _, line := range strings.Split(s, "\n") {
		if strings.TrimSpace(line) != "" {
			out = append(out, line)
		}
	}
	return out
}

// seed fills a memory store with two events, inserted out of ID order, and
// attendees for both.
func seed(t *testing.T) *memory.Store {
	t.Helper()
	ctx := context.Background()
	st := memory.New()
	now := time.Date(2026, 1, 15, 10, 0, 0, 0, time.UTC)

	for _, e := range []*model.Event{
		{ID: "ev-zzz", Title: "Second Event", Slug: "second-event", CreatedAt: now},
		{ID: "ev-aaa", Title: "First Event", Slug: "first-event", CreatedAt: now},
	} {
		if err := st.CreateEvent(ctx, e); err != nil {
			t.Fatalf("create event: %v", err)
		}
	}
	for i, a := range []*model.Attendee{
		{EventID: "ev-zzz", Name: "Zed Zulu", Email: "zed@example.com", TicketID: "tkt-000001"},
		{EventID: "ev-aaa", Name: "Alice Smith", Email: "alice@example.com", TicketID: "tkt-000002"},
		{EventID: "ev-aaa", Name: "Bobby Tables", Email: "bob@example.com", TicketID: "tkt-000003"},
	} {
		a.CreatedAt = now.Add(time.Duration(i) * time.Minute)
		if err := st.InsertAttendee(ctx, a); err != nil {
			t.Fatalf("insert attendee: %v", err)
		}
	}
	return st
}

func TestExportJSONL_Empty(t *testing.T) {
	var buf bytes.Buffer
	if err := ExportJSONL(context.Background(), memory.New(), &buf); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	lines := nonEmptyLines(buf.String())
	if len(lines) != 1 {
		t.Fatalf("expected 1 line (header only), got %d", len(lines))
	}

	var h header
	if err := json.Unmarshal([]byte(lines[0]), &h); err != nil {
		t.Fatalf("unmarshal header: %v", err)
	}
	if h.Version != "1" || h.Type != "header" || h.EventCount != 0 || h.AttendeeCount != 0 {
		t.Fatalf("unexpected header: %+v", h)
	}
}

func TestExportJSONL_WithEventsAndAttendees(t *testing.T) {
	st := seed(t)

	var buf bytes.Buffer
	if err := ExportJSONL(context.Background(), st, &buf); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	lines := nonEmptyLines(buf.String())
	// 1 header + 2 events + 3 attendees
	if len(lines) != 6 {
		t.Fatalf("expected 6 lines, got %d:\n%s", len(lines), buf.String())
	}

	var h header
	if err := json.Unmarshal([]byte(lines[0]), &h); err != nil {
		t.Fatalf("unmarshal header: %v", err)
	}
	if h.EventCount != 2 || h.AttendeeCount != 3 {
		t.Fatalf("header counts: event=%d attendee=%d", h.EventCount, h.AttendeeCount)
	}

	var types, ids []string
	for _, line := range lines[1:] {
		var r struct {
			Type string          `json:"type"`
			Data json.RawMessage `json:"data"`
		}
		if err := json.Unmarshal([]byte(line), &r); err != nil {
			t.Fatalf("unmarshal record: %v", err)
		}
		types = append(types, r.Type)
		switch r.Type {
		case "event":
			var e model.Event
			if err := json.Unmarshal(r.Data, &e); err != nil {
				t.Fatalf("unmarshal event: %v", err)
			}
			ids = append(ids, e.ID)
		case "attendee":
			var a model.Attendee
			if err := json.Unmarshal(r.Data, &a); err != nil {
				t.Fatalf("unmarshal attendee: %v", err)
			}
			ids = append(ids, a.TicketID)
		}
	}

	wantTypes := []string{"event", "event", "attendee", "attendee", "attendee"}
	wantIDs := []string{"ev-aaa", "ev-zzz", "tkt-000002", "tkt-000003", "tkt-000001"}
	for i := range wantTypes {
		if types[i] != wantTypes[i] || ids[i] != wantIDs[i] {
			t.Fatalf("record %d: got %s %s, want %s %s", i, types[i], ids[i], wantTypes[i], wantIDs[i])
		}
	}
}

func TestExportJSONL_CanceledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	var buf bytes.Buffer
	if err := ExportJSONL(ctx, seed(t), &buf); err == nil {
		t.Fatal("expected error for canceled context")
	}
	if buf.Len() != 0 {
		t.Fatalf("expected nothing written, got %q", buf.String())
	}
}
