package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/alfredjeanlab/passin/internal/client"
	"github.com/alfredjeanlab/passin/internal/ui"
)

var (
	serverAddr string
	httpURL    string
	transport  string
	jsonOutput bool

	passinClient client.Client
)

// firstNonEmpty returns the first non-empty string, so flag defaults can
// fall through env var, active remote and built-in value.
func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if v != "" {
			return v
		}
	}
	return ""
}

func newClient() (client.Client, error) {
	switch transport {
	case "http":
		return client.NewHTTPClient(httpURL), nil
	case "grpc":
		c, err := client.NewGRPCClient(serverAddr)
		if err != nil {
			return nil, fmt.Errorf("connecting to %s: %w", serverAddr, err)
		}
		return c, nil
	}
	return nil, fmt.Errorf("unknown transport %q (must be http or grpc)", transport)
}

var rootCmd = &cobra.Command{
	Use:           "passin <command>",
	Short:         "Event registration and check-in",
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(*cobra.Command, []string) error {
		if !ui.ShouldUseColor() {
			ui.ForceNoColor()
		}
		c, err := newClient()
		if err != nil {
			return err
		}
		passinClient = c
		return nil
	},
	PersistentPostRun: func(*cobra.Command, []string) {
		if passinClient != nil {
			_ = passinClient.Close()
			passinClient = nil
		}
	},
}

// noClient replaces the root pre-run for commands that work offline.
func noClient(*cobra.Command, []string) error { return nil }

func init() {
	remote := activeRemote()
	flags := rootCmd.PersistentFlags()
	flags.StringVar(&httpURL, "http-url",
		firstNonEmpty(os.Getenv("PASSIN_HTTP_URL"), remote.URL, "http://localhost:8080"), "HTTP server URL")
	flags.StringVar(&serverAddr, "server",
		firstNonEmpty(os.Getenv("PASSIN_SERVER"), remote.GRPCAddr, "localhost:9090"), "gRPC server address")
	flags.StringVar(&transport, "transport", firstNonEmpty(os.Getenv("PASSIN_TRANSPORT"), "http"), "transport protocol (http or grpc)")
	flags.BoolVar(&jsonOutput, "json", false, "output as JSON")

	cobra.EnableCommandSorting = false
	rootCmd.SetHelpFunc(colorizedHelpFunc())
	rootCmd.AddGroup(
		&cobra.Group{ID: "events", Title: "Events:"},
		&cobra.Group{ID: "attendees", Title: "Attendees:"},
		&cobra.Group{ID: "system", Title: "System:"},
	)
	rootCmd.AddCommand(
		eventCmd, watchCmd,
		registerCmd, checkinCmd, badgeCmd, attendeesCmd, stationsCmd,
		serveCmd, exportCmd, healthCmd, remoteCmd,
	)
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := rootCmd.ExecuteContext(ctx)
	stop()
	if err != nil {
		fmt.Fprintln(os.Stderr, ui.RenderFail("Error:"), describeError(err))
		os.Exit(1)
	}
}
