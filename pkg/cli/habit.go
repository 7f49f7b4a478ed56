package cli

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/smith3v/tg-habit-tracker/pkg/habits"
)

func newHabitCommand(rt *runtime) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "habit",
		Short: "Manage habits",
	}
	cmd.AddCommand(newHabitAddCommand(rt), newHabitDoneCommand(rt))
	return cmd
}

func newHabitAddCommand(rt *runtime) *cobra.Command {
	var (
		userID  uint
		in      habits.HabitInput
		related uint
	)
	add := &cobra.Command{
		Use:   "add",
		Short: "Create a habit for a user",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if cmd.Flags().Changed("related-habit-id") {
				in.RelatedHabitID = &related
			}
			habit, err := rt.service.CreateHabit(cmd.Context(), userID, in)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "created habit #%d: %s at %s in %s\n", habit.ID, habit.Action, habit.TimeOfDay, habit.Place)
			return nil
		},
	}
	flags := add.Flags()
	flags.UintVar(&userID, "user-id", 0, "owner user id")
	flags.StringVar(&in.Action, "action", "", "what to do")
	flags.StringVar(&in.Place, "place", "", "where to do it")
	flags.StringVar(&in.TimeOfDay, "time", "", "time of day, HH:MM")
	flags.IntVar(&in.Duration, "duration", 60, "duration in seconds")
	flags.IntVar(&in.Frequency, "frequency", 1, "period in days")
	flags.BoolVar(&in.IsPleasant, "pleasant", false, "mark as a pleasant habit")
	flags.BoolVar(&in.IsPublic, "public", false, "share with other users")
	flags.StringVar(&in.Reward, "reward", "", "reward after completion")
	flags.UintVar(&related, "related-habit-id", 0, "pleasant habit used as the reward")
	for _, name := range []string{"user-id", "action", "place", "time"} {
		_ = add.MarkFlagRequired(name)
	}
	return add
}

func newHabitDoneCommand(rt *runtime) *cobra.Command {
	var userID uint
	done := &cobra.Command{
		Use:   "done <habit-id>",
		Short: "Record today's completion of a habit",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			habitID, err := strconv.ParseUint(args[0], 10, 64)
			if err != nil {
				return fmt.Errorf("invalid habit id %q", args[0])
			}
			completion, err := rt.service.MarkCompleted(cmd.Context(), uint(habitID), userID)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "habit #%d completed on %s\n", completion.HabitID, completion.Date.Format("2006-01-02"))
			return nil
		},
	}
	done.Flags().UintVar(&userID, "user-id", 0, "user completing the habit")
	_ = done.MarkFlagRequired("user-id")
	return done
}
