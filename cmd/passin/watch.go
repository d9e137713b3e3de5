package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"os"
	"os/signal"
	"time"

	"github.com/alfredjeanlab/passin/internal/events"
	"github.com/alfredjeanlab/passin/internal/model"
	"github.com/alfredjeanlab/passin/internal/ui"
	"github.com/nats-io/nats.go"
	"github.com/spf13/cobra"
)

var watchCmd = &cobra.Command{
	Use:     "watch <event>",
	Short:   "Follow registrations and check-ins for an event",
	GroupID: "events",
	Args:    cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		interval, _ := cmd.Flags().GetDuration("interval")

		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
		defer stop()

		event, err := lookupEvent(ctx, args[0])
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Watching %s\n", ui.RenderAccent(event.Title))

		// Baseline, so only changes are printed.
		seen := make(map[string]bool)
		if _, err := pollAttendees(ctx, event.ID, seen); err != nil {
			return err
		}

		natsURL := os.Getenv("PASSIN_NATS_URL")
		if natsURL == "" {
			natsURL = activeRemote().NATSURL
		}
		if natsURL != "" {
			return watchNATS(ctx, cmd.OutOrStdout(), natsURL, event.ID)
		}
		return watchPoll(ctx, cmd.OutOrStdout(), interval, event.ID, seen)
	},
}

// watchPayload covers every attendee topic's body.
type watchPayload struct {
	Attendee *model.Attendee `json:"attendee"`
	EventID  string          `json:"event_id"`
	TicketID string          `json:"ticket_id"`
}

// describeMessage renders msg as one line, or returns "" when it concerns
// another event.
func describeMessage(msg events.Message, eventID string) string {
	var p watchPayload
	if err := json.Unmarshal(msg.Data, &p); err != nil {
		return ""
	}
	if p.Attendee != nil {
		p.EventID, p.TicketID = p.Attendee.EventID, p.Attendee.TicketID
	}
	if p.EventID != eventID {
		return ""
	}

	switch msg.Topic {
	case events.TopicAttendeeRegistered:
		return fmt.Sprintf("%s %s %s <%s>", ui.RenderAccent("registered"), p.TicketID, p.Attendee.Name, p.Attendee.Email)
	case events.TopicAttendeeCheckedIn:
		return fmt.Sprintf("%s %s %s", ui.RenderOK("checked in"), p.TicketID, p.Attendee.Name)
	case events.TopicAttendeeDeleted:
		return fmt.Sprintf("%s %s", ui.RenderMuted("removed"), p.TicketID)
	}
	return ""
}

// watchNATS prints attendee events for eventID as they arrive.
func watchNATS(ctx context.Context, w io.Writer, natsURL, eventID string) error {
	sub, err := events.NewNATSSubscriber(natsURL,
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			log.Printf("nats: disconnected: %v", err)
		}),
		nats.ReconnectHandler(func(_ *nats.Conn) {
			log.Printf("nats: reconnected")
		}),
	)
	if err != nil {
		return fmt.Errorf("connecting to NATS: %w", err)
	}
	defer sub.Close()

	ch, cancel, err := sub.Subscribe("passin.attendee.>")
	if err != nil {
		return fmt.Errorf("subscribing to events: %w", err)
	}
	defer cancel()

	for {
		select {
		case <-ctx.Done():
			return nil
		case msg, ok := <-ch:
			if !ok {
				return nil
			}
			if line := describeMessage(msg, eventID); line != "" {
				fmt.Fprintln(w, line)
			}
		}
	}
}

// watchPoll lists attendees at the given interval and prints changes.
func watchPoll(ctx context.Context, w io.Writer, interval time.Duration, eventID string, seen map[string]bool) error {
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-time.After(interval):
		}
		lines, err := pollAttendees(ctx, eventID, seen)
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			return err
		}
		for _, line := range lines {
			fmt.Fprintln(w, line)
		}
	}
}

func pollAttendees(ctx context.Context, eventID string, seen map[string]bool) ([]string, error) {
	attendees, err := passinClient.ListAttendees(ctx, eventID)
	if err != nil {
		return nil, err
	}
	return diffAttendees(attendees, seen), nil
}

// diffAttendees compares attendees against seen (ticket ID to checked-in
// state), returns a line per change, and updates seen in place.
func diffAttendees(attendees []*model.Attendee, seen map[string]bool) []string {
	var lines []string
	current := make(map[string]bool, len(attendees))
	// Oldest first reads naturally in a log.
	for i := len(attendees) - 1; i >= 0; i-- {
		a := attendees[i]
		current[a.TicketID] = true
		prev, ok := seen[a.TicketID]
		switch {
		case !ok:
			lines = append(lines, fmt.Sprintf("%s %s %s <%s>", ui.RenderAccent("registered"), a.TicketID, a.Name, a.Email))
			if a.CheckedIn {
				lines = append(lines, fmt.Sprintf("%s %s %s", ui.RenderOK("checked in"), a.TicketID, a.Name))
			}
		case !prev && a.CheckedIn:
			lines = append(lines, fmt.Sprintf("%s %s %s", ui.RenderOK("checked in"), a.TicketID, a.Name))
		}
		seen[a.TicketID] = a.CheckedIn
	}
	for ticketID := range seen {
		if !current[ticketID] {
			lines = append(lines, fmt.Sprintf("%s %s", ui.RenderMuted("removed"), ticketID))
			delete(seen, ticketID)
		}
	}
	return lines
}

func init() {
	watchCmd.Flags().Duration("interval", 2*time.Second, "poll interval when NATS is not configured")
}
