package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/alfredjeanlab/passin/internal/client"
	"github.com/alfredjeanlab/passin/internal/model"
	"github.com/alfredjeanlab/passin/internal/ui"
	"google.golang.org/grpc/status"
)

func printJSON(v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("marshaling JSON: %w", err)
	}
	fmt.Println(string(data))
	return nil
}

func printEvent(w io.Writer, e *model.EventDetails) {
	fmt.Fprintf(w, "ID:          %s\n", e.ID)
	fmt.Fprintf(w, "Title:       %s\n", e.Title)
	fmt.Fprintf(w, "Slug:        %s\n", e.Slug)
	if e.Details != "" {
		fmt.Fprintf(w, "Details:     %s\n", e.Details)
	}
	if e.MaximumAttendees != nil {
		fmt.Fprintf(w, "Attendees:   %d / %d\n", e.AttendeesAmount, *e.MaximumAttendees)
	} else {
		fmt.Fprintf(w, "Attendees:   %d\n", e.AttendeesAmount)
	}
	fmt.Fprintf(w, "Price:       %.2f\n", e.Price)
	if !e.CreatedAt.IsZero() {
		fmt.Fprintf(w, "Created At:  %s\n", e.CreatedAt.Format("2006-01-02 15:04:05"))
	}
}

func printAttendee(w io.Writer, a *model.Attendee) {
	fmt.Fprintf(w, "Ticket:      %s\n", ui.RenderAccent(a.TicketID))
	fmt.Fprintf(w, "Attendee:    %d\n", a.ID)
	fmt.Fprintf(w, "Name:        %s\n", a.Name)
	fmt.Fprintf(w, "Email:       %s\n", a.Email)
	fmt.Fprintf(w, "Event:       %s\n", a.EventID)
	fmt.Fprintf(w, "Checked In:  %s\n", checkInState(a.CheckedIn, a.CheckInTime))
}

func printBadge(w io.Writer, b *model.Badge) {
	fmt.Fprintf(w, "%s\n", ui.RenderAccent(b.EventTitle))
	fmt.Fprintf(w, "  %s <%s>\n", b.Name, b.Email)
	fmt.Fprintf(w, "  Ticket %s (attendee %d)\n", b.TicketID, b.AttendeeID)
	fmt.Fprintf(w, "  Checked in: %s\n", checkInState(b.CheckedIn, nil))
	fmt.Fprintf(w, "  %s\n", ui.RenderMuted(b.CheckInURL))
}

func printAttendeeTable(w io.Writer, attendees []*model.Attendee) {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tTICKET\tNAME\tEMAIL\tCHECKED IN")
	for _, a := range attendees {
		name := a.Name
		if len(name) > 40 {
			name = name[:37] + "..."
		}
		fmt.Fprintf(tw, "%d\t%s\t%s\t%s\t%s\n", a.ID, a.TicketID, name, a.Email, checkInState(a.CheckedIn, a.CheckInTime))
	}
	tw.Flush()
	fmt.Fprintf(w, "\n%d attendees\n", len(attendees))
}

func checkInState(checkedIn bool, at *time.Time) string {
	if !checkedIn {
		return ui.RenderMuted("no")
	}
	if at != nil {
		return ui.RenderOK("yes") + " " + at.Format("2006-01-02 15:04:05")
	}
	return ui.RenderOK("yes")
}

// describeError renders transport errors the way a user wants to read them.
func describeError(err error) string {
	var apiErr *client.APIError
	if errors.As(err, &apiErr) {
		msg := apiErr.Message
		if len(apiErr.Fields) > 0 {
			var parts []string
			for _, f := range apiErr.Fields {
				parts = append(parts, f.Field+": "+f.Message)
			}
			msg = strings.Join(parts, "; ")
		}
		if apiErr.Retry {
			msg += " (retry)"
		}
		return msg
	}
	if st, ok := status.FromError(err); ok {
		return st.Message()
	}
	return err.Error()
}
