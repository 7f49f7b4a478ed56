package cli

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/smith3v/tg-habit-tracker/pkg/db"
)

func newUserCommand(rt *runtime) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "user",
		Short: "Manage users",
	}
	cmd.AddCommand(
		newUserAddCommand(rt),
		newUserLinkCodeCommand(rt),
		newUserLinkCommand(rt),
		newUserDeleteCommand(rt),
	)
	return cmd
}

func newUserAddCommand(rt *runtime) *cobra.Command {
	var (
		email  string
		staff  bool
		chatID string
	)
	add := &cobra.Command{
		Use:   "add",
		Short: "Create a user",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			email = strings.TrimSpace(email)
			if email == "" {
				return fmt.Errorf("--email is required")
			}
			user := db.User{Email: email, IsStaff: staff}
			if chat := strings.TrimSpace(chatID); chat != "" {
				user.TelegramChatID = &chat
			}
			if err := rt.store.CreateUser(cmd.Context(), &user); err != nil {
				return fmt.Errorf("create user %s: %w", email, err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "created user #%d %s\n", user.ID, user.Email)
			if user.HasChannel() {
				return nil
			}
			return rt.printLinkCode(cmd.Context(), cmd.OutOrStdout(), user.ID)
		},
	}
	add.Flags().StringVar(&email, "email", "", "login email")
	add.Flags().BoolVar(&staff, "staff", false, "grant staff access")
	add.Flags().StringVar(&chatID, "chat-id", "", "Telegram chat id for reminders")
	return add
}

func newUserLinkCodeCommand(rt *runtime) *cobra.Command {
	var userID uint
	cmd := &cobra.Command{
		Use:   "link-code",
		Short: "Issue a one-time code the user sends to the bot with /start",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return rt.printLinkCode(cmd.Context(), cmd.OutOrStdout(), userID)
		},
	}
	cmd.Flags().UintVar(&userID, "user-id", 0, "user to issue the code for")
	_ = cmd.MarkFlagRequired("user-id")
	return cmd
}

func newUserLinkCommand(rt *runtime) *cobra.Command {
	var (
		userID uint
		chatID string
	)
	cmd := &cobra.Command{
		Use:   "link",
		Short: "Link a Telegram chat to a user directly",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			chat := strings.TrimSpace(chatID)
			if chat == "" {
				return fmt.Errorf("--chat-id is required")
			}
			if err := rt.store.LinkTelegramChat(cmd.Context(), userID, chat); err != nil {
				return fmt.Errorf("link chat to user %d: %w", userID, err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "linked chat %s to user #%d\n", chat, userID)
			return nil
		},
	}
	cmd.Flags().UintVar(&userID, "user-id", 0, "user to link")
	cmd.Flags().StringVar(&chatID, "chat-id", "", "Telegram chat id")
	_ = cmd.MarkFlagRequired("user-id")
	return cmd
}

func newUserDeleteCommand(rt *runtime) *cobra.Command {
	var userID uint
	cmd := &cobra.Command{
		Use:   "delete",
		Short: "Delete a user with all their habits and completions",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if err := rt.store.DeleteUser(cmd.Context(), userID); err != nil {
				return fmt.Errorf("delete user %d: %w", userID, err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "deleted user #%d\n", userID)
			return nil
		},
	}
	cmd.Flags().UintVar(&userID, "user-id", 0, "user to delete")
	_ = cmd.MarkFlagRequired("user-id")
	return cmd
}

func (rt *runtime) printLinkCode(ctx context.Context, out io.Writer, userID uint) error {
	ttl := rt.cfg.Telegram.LinkCodeTTL()
	code, err := rt.store.IssueLinkCode(ctx, userID, rt.now().Add(ttl))
	if err != nil {
		return fmt.Errorf("issue link code for user %d: %w", userID, err)
	}
	fmt.Fprintf(out, "link code: %s (send \"/start %s\" to the bot within %s)\n", code, code, ttl)
	return nil
}
