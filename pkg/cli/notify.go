package cli

import (
	"fmt"

	"github.com/go-telegram/bot"
	"github.com/spf13/cobra"

	"github.com/smith3v/tg-habit-tracker/pkg/notify"
)

func newNotifyCommand(rt *runtime) *cobra.Command {
	var (
		userID  uint
		message string
	)
	test := &cobra.Command{
		Use:   "test",
		Short: "Send a test notification to one user or to all staff users",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			b, err := rt.newBot(bot.WithSkipGetMe())
			if err != nil {
				return err
			}
			var target *uint
			if cmd.Flags().Changed("user-id") {
				target = &userID
			}
			summary, err := rt.runner(b).TestNotification(cmd.Context(), target, message)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), summary.String())
			return nil
		},
	}
	test.Flags().UintVar(&userID, "user-id", 0, "recipient user id; all staff users when omitted")
	test.Flags().StringVar(&message, "message", notify.DefaultTestMessage, "message text")

	cmd := &cobra.Command{
		Use:   "notify",
		Short: "Notification tools",
	}
	cmd.AddCommand(test, newNotifyPreviewCommand(rt))
	return cmd
}

func newNotifyPreviewCommand(rt *runtime) *cobra.Command {
	var (
		habitID uint
		kind    string
		reason  string
	)
	preview := &cobra.Command{
		Use:   "preview",
		Short: "Print the reminder a habit would get, without sending it",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			k, err := notify.ParseKind(kind)
			if err != nil {
				return err
			}
			habit, err := rt.store.FindHabit(cmd.Context(), habitID)
			if err != nil {
				return fmt.Errorf("load habit %d: %w", habitID, err)
			}
			fmt.Fprintln(cmd.OutOrStdout(), notify.Render(habit, notify.Reminder{Kind: k, Reason: reason}))
			return nil
		},
	}
	preview.Flags().UintVar(&habitID, "habit-id", 0, "habit to render the reminder for")
	preview.Flags().StringVar(&kind, "kind", string(notify.KindDaily), "reminder kind: daily, morning, inactive or test")
	preview.Flags().StringVar(&reason, "reason", "", "reason line for inactive reminders")
	_ = preview.MarkFlagRequired("habit-id")
	return preview
}
