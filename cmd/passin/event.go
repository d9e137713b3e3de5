package main

import (
	"context"
	"fmt"

	"github.com/alfredjeanlab/passin/internal/model"
	"github.com/google/uuid"
	"github.com/spf13/cobra"
)

var eventCmd = &cobra.Command{
	Use:     "event",
	Short:   "Create and inspect events",
	GroupID: "events",
}

var eventCreateCmd = &cobra.Command{
	Use:   "create <title>",
	Short: "Create an event",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		in := model.EventInput{Title: args[0]}
		if cmd.Flags().Changed("details") {
			d, _ := cmd.Flags().GetString("details")
			in.Details = &d
		}
		if cmd.Flags().Changed("max") {
			m, _ := cmd.Flags().GetInt("max")
			in.MaximumAttendees = &m
		}
		if cmd.Flags().Changed("price") {
			p, _ := cmd.Flags().GetFloat64("price")
			in.Price = &p
		}

		event, err := passinClient.CreateEvent(context.Background(), in)
		if err != nil {
			return err
		}
		if jsonOutput {
			return printJSON(event)
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Created event %s (%s)\n", event.ID, event.Slug)
		return nil
	},
}

var eventShowCmd = &cobra.Command{
	Use:   "show <id-or-slug>",
	Short: "Show an event and its attendance",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		event, err := lookupEvent(context.Background(), args[0])
		if err != nil {
			return err
		}
		if jsonOutput {
			return printJSON(event)
		}
		printEvent(cmd.OutOrStdout(), event)
		return nil
	},
}

// lookupEvent resolves ref as an event ID when it parses as a UUID and as a
// slug otherwise.
func lookupEvent(ctx context.Context, ref string) (*model.EventDetails, error) {
	if _, err := uuid.Parse(ref); err == nil {
		return passinClient.GetEvent(ctx, ref)
	}
	return passinClient.GetEventBySlug(ctx, ref)
}

func init() {
	eventCreateCmd.Flags().String("details", "", "event description")
	eventCreateCmd.Flags().Int("max", 0, "maximum number of attendees (unbounded when unset)")
	eventCreateCmd.Flags().Float64("price", 0, "ticket price")

	eventCmd.AddCommand(eventCreateCmd)
	eventCmd.AddCommand(eventShowCmd)
}
