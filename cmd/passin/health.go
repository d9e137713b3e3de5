package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/alfredjeanlab/passin/internal/ui"
)

var healthCmd = &cobra.Command{
	Use:     "health",
	Short:   "Check that the server and its store are reachable",
	GroupID: "system",
	Args:    cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		start := time.Now()
		status, err := passinClient.Health(cmd.Context())
		if err != nil {
			return fmt.Errorf("checking health: %w", err)
		}
		took := time.Since(start).Round(time.Millisecond)

		if jsonOutput {
			if err := printJSON(struct {
				Status    string `json:"status"`
				LatencyMS int64  `json:"latency_ms"`
			}{status, took.Milliseconds()}); err != nil {
				return err
			}
		} else {
			label := ui.RenderOK(status)
			if status != "ok" {
				label = ui.RenderFail(status)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s (%s)\n", label, took)
		}

		if status != "ok" {
			return fmt.Errorf("server unhealthy: %s", status)
		}
		return nil
	},
}
