package cli

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/smith3v/tg-habit-tracker/pkg/db"
)

func newStatsCommand(rt *runtime) *cobra.Command {
	show := &cobra.Command{
		Use:   "show",
		Short: "Print the most recent statistics snapshot",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			stats, takenAt, err := rt.store.LatestStatsSnapshot(cmd.Context())
			if errors.Is(err, db.ErrNotFound) {
				fmt.Fprintln(cmd.OutOrStdout(), "no statistics snapshot yet; run \"job run statistics_snapshot\"")
				return nil
			}
			if err != nil {
				return fmt.Errorf("load statistics snapshot: %w", err)
			}
			payload, err := json.MarshalIndent(stats, "", "  ")
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "snapshot taken at %s\n%s\n", takenAt.Format("2006-01-02 15:04:05 MST"), payload)
			return nil
		},
	}
	cmd := &cobra.Command{
		Use:   "stats",
		Short: "Usage statistics",
	}
	cmd.AddCommand(show)
	return cmd
}
