package main

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/alfredjeanlab/passin/internal/config"
	"github.com/alfredjeanlab/passin/internal/export"
	"github.com/spf13/cobra"
)

var exportCmd = &cobra.Command{
	Use:               "export",
	Short:             "Write a JSONL snapshot of the store",
	GroupID:           "system",
	PersistentPreRunE: noClient,
	RunE: func(cmd *cobra.Command, args []string) error {
		out, _ := cmd.Flags().GetString("out")

		cfg, err := config.Load()
		if err != nil {
			return err
		}
		logger := slog.New(slog.NewTextHandler(os.Stderr, nil))
		st, err := openStore(cfg, logger)
		if err != nil {
			return err
		}
		defer st.Close()

		if out == "" || out == "-" {
			return export.ExportJSONL(context.Background(), st, cmd.OutOrStdout())
		}
		var buf bytes.Buffer
		if err := export.ExportJSONL(context.Background(), st, &buf); err != nil {
			return err
		}
		if err := export.NewFileDestination(out).Write(context.Background(), buf.Bytes()); err != nil {
			return err
		}
		fmt.Fprintf(cmd.ErrOrStderr(), "wrote %d bytes to %s\n", buf.Len(), out)
		return nil
	},
}

func init() {
	exportCmd.Flags().StringP("out", "o", "", "output file (stdout when empty or -)")
}
