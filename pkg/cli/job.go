package cli

import (
	"fmt"
	"sort"

	"github.com/go-telegram/bot"
	"github.com/spf13/cobra"
)

func newJobCommand(rt *runtime) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "job",
		Short: "Inspect and run scheduled jobs",
	}
	cmd.AddCommand(
		&cobra.Command{
			Use:   "list",
			Short: "List jobs with their cron schedule",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, _ []string) error {
				schedule := rt.cfg.Scheduler.Jobs
				names := make([]string, 0, len(schedule))
				for name := range schedule {
					names = append(names, name)
				}
				sort.Strings(names)
				for _, name := range names {
					fmt.Fprintf(cmd.OutOrStdout(), "%-20s %s\n", name, schedule[name])
				}
				return nil
			},
		},
		&cobra.Command{
			Use:   "run <name>",
			Short: "Run one job immediately",
			Args:  cobra.ExactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				b, err := rt.newBot(bot.WithSkipGetMe())
				if err != nil {
					return err
				}
				scheduler, _, err := rt.scheduler(b)
				if err != nil {
					return err
				}
				summary, err := scheduler.RunNow(cmd.Context(), args[0])
				if err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), summary.String())
				return nil
			},
		},
	)
	return cmd
}
