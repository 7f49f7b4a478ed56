// Package notify renders habit reminders and hands them to the messaging
// gateway. Delivery is best effort: failures are logged and reported in the
// Result, never returned as errors.
package notify

import (
	"context"

	"github.com/smith3v/tg-habit-tracker/pkg/db"
	"github.com/smith3v/tg-habit-tracker/pkg/logger"
)

// Gateway delivers a rendered message to a messaging channel.
type Gateway interface {
	Send(ctx context.Context, chatID, text string) error
}

// Result reports the outcome of one reminder. Err is set only for gateway
// failures; a user without a channel is not an error.
type Result struct {
	Delivered bool
	Err       error
}

type Dispatcher struct {
	gateway Gateway
}

// NewDispatcher returns a dispatcher. A nil gateway turns every reminder into
// a local log line.
func NewDispatcher(gateway Gateway) *Dispatcher {
	return &Dispatcher{gateway: gateway}
}

func (d *Dispatcher) SendReminder(ctx context.Context, user db.User, habit db.Habit, r Reminder) Result {
	if r.Kind == "" {
		r.Kind = KindDaily
	}
	text := Render(habit, r)

	if !user.HasChannel() || d.gateway == nil {
		logger.Warn("reminder not delivered: no messaging channel",
			"user_id", user.ID,
			"email", user.Email,
			"habit_id", habit.ID,
			"kind", string(r.Kind),
			"message", text,
		)
		return Result{}
	}

	chatID := *user.TelegramChatID
	if err := d.gateway.Send(ctx, chatID, text); err != nil {
		logger.Error("failed to deliver reminder",
			"user_id", user.ID,
			"email", user.Email,
			"habit_id", habit.ID,
			"kind", string(r.Kind),
			"error", err,
		)
		return Result{Err: err}
	}

	logger.Info("reminder delivered",
		"user_id", user.ID,
		"habit_id", habit.ID,
		"chat_id", chatID,
		"kind", string(r.Kind),
	)
	return Result{Delivered: true}
}
