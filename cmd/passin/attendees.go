package main

import (
	"context"
	"fmt"
	"os"

	"github.com/alfredjeanlab/passin/internal/client"
	"github.com/alfredjeanlab/passin/internal/model"
	"github.com/alfredjeanlab/passin/internal/ui"
	"github.com/spf13/cobra"
)

var registerCmd = &cobra.Command{
	Use:     "register <event> <name> <email>",
	Short:   "Register an attendee for an event",
	GroupID: "attendees",
	Args:    cobra.ExactArgs(3),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := context.Background()
		event, err := lookupEvent(ctx, args[0])
		if err != nil {
			return err
		}

		attendee, err := passinClient.Register(ctx, event.ID, model.RegistrationInput{Name: args[1], Email: args[2]})
		if err != nil {
			return err
		}
		if jsonOutput {
			return printJSON(attendee)
		}
		printAttendee(cmd.OutOrStdout(), attendee)
		return nil
	},
}

var checkinCmd = &cobra.Command{
	Use:     "checkin <ticket-id>",
	Short:   "Check an attendee in",
	GroupID: "attendees",
	Args:    cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := context.Background()
		if station, _ := cmd.Flags().GetString("station"); station != "" {
			ctx = client.WithStation(ctx, station)
		}
		attendee, err := passinClient.CheckIn(ctx, args[0])
		if err != nil {
			if !jsonOutput {
				fmt.Fprintln(cmd.OutOrStdout(), ui.RenderFail("REFUSED"))
			}
			return err
		}
		if jsonOutput {
			return printJSON(attendee)
		}
		fmt.Fprintf(cmd.OutOrStdout(), "%s %s <%s>\n", ui.RenderOK("ADMITTED"), attendee.Name, attendee.Email)
		return nil
	},
}

var badgeCmd = &cobra.Command{
	Use:     "badge <ticket-id>",
	Short:   "Show an attendee's badge",
	GroupID: "attendees",
	Args:    cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		badge, err := passinClient.Badge(context.Background(), args[0])
		if err != nil {
			return err
		}
		if jsonOutput {
			return printJSON(badge)
		}
		printBadge(cmd.OutOrStdout(), badge)
		return nil
	},
}

var attendeesCmd = &cobra.Command{
	Use:     "attendees",
	Short:   "List and remove attendees",
	GroupID: "attendees",
}

var attendeesListCmd = &cobra.Command{
	Use:   "list <event>",
	Short: "List an event's attendees, newest first",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := context.Background()
		event, err := lookupEvent(ctx, args[0])
		if err != nil {
			return err
		}
		attendees, err := passinClient.ListAttendees(ctx, event.ID)
		if err != nil {
			return err
		}
		if jsonOutput {
			if attendees == nil {
				attendees = []*model.Attendee{}
			}
			return printJSON(attendees)
		}
		printAttendeeTable(cmd.OutOrStdout(), attendees)
		return nil
	},
}

var attendeesRemoveCmd = &cobra.Command{
	Use:   "remove <ticket-id>",
	Short: "Cancel a registration and free its seat",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := passinClient.DeleteAttendee(context.Background(), args[0]); err != nil {
			return err
		}
		if jsonOutput {
			return printJSON(map[string]string{"ticket_id": args[0], "status": "removed"})
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Removed %s\n", args[0])
		return nil
	},
}

func init() {
	checkinCmd.Flags().String("station", os.Getenv("PASSIN_STATION"), "name of this check-in station (or PASSIN_STATION)")

	attendeesCmd.AddCommand(attendeesListCmd)
	attendeesCmd.AddCommand(attendeesRemoveCmd)
}
