package main

import (
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/alfredjeanlab/passin/internal/events"
	"github.com/alfredjeanlab/passin/internal/model"
	"github.com/alfredjeanlab/passin/internal/ui"
)

func init() { ui.ForceNoColor() }

func TestDiffAttendees(t *testing.T) {
	seen := make(map[string]bool)
	now := time.Now()

	// Newest first, as the server returns them.
	list := []*model.Attendee{
		{TicketID: "tkt-b", Name: "Bobby Tables", Email: "bob@example.com"},
		{TicketID: "tkt-a", Name: "Alice Smith", Email: "alice@example.com"},
	}
	lines := diffAttendees(list, seen)
	if len(lines) != 2 || !strings.Contains(lines[0], "tkt-a") || !strings.Contains(lines[1], "tkt-b") {
		t.Fatalf("expected two registrations oldest first, got %q", lines)
	}

	if lines := diffAttendees(list, seen); len(lines) != 0 {
		t.Fatalf("expected no changes, got %q", lines)
	}

	list[1].CheckedIn, list[1].CheckInTime = true, &now
	lines = diffAttendees(list, seen)
	if len(lines) != 1 || !strings.HasPrefix(lines[0], "checked in tkt-a") {
		t.Fatalf("expected check-in line, got %q", lines)
	}

	lines = diffAttendees(list[1:], seen)
	if len(lines) != 1 || lines[0] != "removed tkt-b" {
		t.Fatalf("expected removal line, got %q", lines)
	}
	if _, ok := seen["tkt-b"]; ok {
		t.Fatal("removed ticket should leave seen")
	}
}

func TestDescribeMessage(t *testing.T) {
	attendee := &model.Attendee{EventID: "ev-1", TicketID: "tkt-a", Name: "Alice Smith", Email: "alice@example.com"}
	msg := func(topic string, v any) events.Message {
		data, _ := json.Marshal(v)
		return events.Message{Topic: topic, Data: data}
	}

	for _, tc := range []struct {
		name string
		msg  events.Message
		want string
	}{
		{"Registered", msg(events.TopicAttendeeRegistered, events.AttendeeRegistered{Attendee: attendee}),
			"registered tkt-a Alice Smith <alice@example.com>"},
		{"CheckedIn", msg(events.TopicAttendeeCheckedIn, events.AttendeeCheckedIn{Attendee: attendee}),
			"checked in tkt-a Alice Smith"},
		{"Deleted", msg(events.TopicAttendeeDeleted, events.AttendeeDeleted{EventID: "ev-1", TicketID: "tkt-a"}),
			"removed tkt-a"},
		{"OtherEvent", msg(events.TopicAttendeeDeleted, events.AttendeeDeleted{EventID: "ev-2", TicketID: "tkt-z"}),
			""},
		{"Garbage", events.Message{Topic: events.TopicAttendeeRegistered, Data: []byte("{")}, ""},
	} {
		t.Run(tc.name, func(t *testing.T) {
			if got := describeMessage(tc.msg, "ev-1"); got != tc.want {
				t.Errorf("describeMessage() = %q, want %q", got, tc.want)
			}
		})
	}
}
