// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/pdiddy/marksnips/internal/journal"
)

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "Show recent processing results from the journal",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig(cmd)
		if err != nil {
			return fmt.Errorf("loading configuration: %w", err)
		}

		jrnl, err := journal.Open(cfg.Folders.Logs)
		if err != nil {
			return fmt.Errorf("opening journal: %w", err)
		}
		defer jrnl.Close()

		limit, _ := cmd.Flags().GetInt("limit")
		records, err := jrnl.Recent(cmd.Context(), limit)
		if err != nil {
			return fmt.Errorf("reading journal: %w", err)
		}
		if len(records) == 0 {
			fmt.Fprintln(cmd.OutOrStdout(), "no processing history")
			return nil
		}

		w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
		fmt.Fprintln(w, "WHEN\tSTATUS\tORIGINAL\tENHANCED")
		for _, rec := range records {
			fmt.Fprintf(w, "%s\t%s\t%s\t%s\n",
				rec.ProcessedAt.Format("2006-01-02 15:04:05"), rec.Status, rec.OriginalName, rec.EnhancedName)
		}
		return w.Flush()
	},
}

func init() {
	historyCmd.Flags().Int("limit", 20, "maximum records to show")
	rootCmd.AddCommand(historyCmd)
}
