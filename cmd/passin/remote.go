package main

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"
)

var remoteCmd = &cobra.Command{
	Use:               "remote",
	Short:             "Manage named server remotes",
	GroupID:           "system",
	PersistentPreRunE: noClient,
}

// editRemotes loads remotes.toml, applies fn and writes the result back.
func editRemotes(fn func(*remoteFile) error) error {
	rf, err := readRemotes()
	if err != nil {
		return err
	}
	if err := fn(rf); err != nil {
		return err
	}
	return rf.write()
}

var remoteAddCmd = &cobra.Command{
	Use:   "add <name> <url>",
	Short: "Add or update a named remote",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		name := args[0]
		grpcAddr, _ := cmd.Flags().GetString("grpc")
		natsURL, _ := cmd.Flags().GetString("nats")
		activate, _ := cmd.Flags().GetBool("use")

		err := editRemotes(func(rf *remoteFile) error {
			if err := rf.put(name, remoteProfile{URL: args[1], GRPCAddr: grpcAddr, NATSURL: natsURL}); err != nil {
				return err
			}
			if activate {
				return rf.use(name)
			}
			return nil
		})
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "remote %q saved (%s)\n", name, args[1])
		return nil
	},
}

var remoteRemoveCmd = &cobra.Command{
	Use:     "remove <name>",
	Aliases: []string{"rm"},
	Short:   "Remove a named remote",
	Args:    cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := editRemotes(func(rf *remoteFile) error { return rf.remove(args[0]) }); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "remote %q removed\n", args[0])
		return nil
	},
}

var remoteUseCmd = &cobra.Command{
	Use:   "use <name>",
	Short: "Set the active remote",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := editRemotes(func(rf *remoteFile) error { return rf.use(args[0]) }); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "now using remote %q\n", args[0])
		return nil
	},
}

var remoteListCmd = &cobra.Command{
	Use:   "list",
	Short: "List all remotes",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		rf, err := readRemotes()
		if err != nil {
			return err
		}
		out := cmd.OutOrStdout()
		if len(rf.Remotes) == 0 {
			fmt.Fprintln(out, "no remotes configured; add one with: passin remote add <name> <url>")
			return nil
		}
		tw := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
		fmt.Fprintln(tw, "  NAME\tURL\tGRPC\tNATS")
		for _, name := range rf.names() {
			p := rf.Remotes[name]
			mark := ' '
			if name == rf.Active {
				mark = '*'
			}
			fmt.Fprintf(tw, "%c %s\t%s\t%s\t%s\n", mark, name, p.URL, dash(p.GRPCAddr), dash(p.NATSURL))
		}
		return tw.Flush()
	},
}

func dash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}

func init() {
	remoteAddCmd.Flags().String("grpc", "", "gRPC address for this remote")
	remoteAddCmd.Flags().String("nats", "", "NATS URL for this remote (used by watch)")
	remoteAddCmd.Flags().Bool("use", false, "make this the active remote")

	remoteCmd.AddCommand(remoteAddCmd, remoteRemoveCmd, remoteUseCmd, remoteListCmd)
}
