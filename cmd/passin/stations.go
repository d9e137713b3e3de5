package main

import (
	"context"
	"fmt"
	"text/tabwriter"
	"time"

	"github.com/alfredjeanlab/passin/internal/stations"
	"github.com/alfredjeanlab/passin/internal/ui"
	"github.com/spf13/cobra"
)

var stationsCmd = &cobra.Command{
	Use:     "stations",
	Short:   "Show check-in stations and their recent activity",
	GroupID: "attendees",
	Args:    cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		within, _ := cmd.Flags().GetDuration("within")

		list, err := passinClient.ListStations(context.Background(), within)
		if err != nil {
			return err
		}
		if jsonOutput {
			if list == nil {
				list = []stations.Entry{}
			}
			return printJSON(list)
		}
		if len(list) == 0 {
			fmt.Fprintln(cmd.OutOrStdout(), "no stations have scanned tickets")
			return nil
		}

		w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
		fmt.Fprintln(w, "STATION\tSTATE\tADMITTED\tREFUSED\tIDLE\tLAST TICKET")
		for _, e := range list {
			state := ui.RenderOK("online")
			if e.Offline {
				state = ui.RenderFail("offline")
			}
			idle := time.Duration(e.IdleSecs * float64(time.Second)).Round(time.Second)
			fmt.Fprintf(w, "%s\t%s\t%d\t%d\t%s\t%s\n", e.Station, state, e.Admitted, e.Refused, idle, e.LastTicket)
		}
		return w.Flush()
	},
}

func init() {
	stationsCmd.Flags().Duration("within", 0, "only show stations active within this duration")
}
