// Package handlers implements the Telegram commands habit owners use to see
// and complete their habits.
package handlers

import (
	"context"
	"errors"
	"strconv"
	"time"

	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"
	"github.com/smith3v/tg-habit-tracker/pkg/db"
	"github.com/smith3v/tg-habit-tracker/pkg/habits"
	"github.com/smith3v/tg-habit-tracker/pkg/logger"
	"github.com/smith3v/tg-habit-tracker/pkg/validation"
)

const (
	msgNotLinked = "This chat is not linked yet. Send /start <code> with the link code from your administrator."
	msgFailed    = "Something went wrong. Please try again later."
	msgNotFound  = "Habit not found."
)

type Handler struct {
	store   *db.Store
	service *habits.Service
	now     func() time.Time
}

func New(store *db.Store, service *habits.Service) *Handler {
	return &Handler{store: store, service: service, now: time.Now}
}

// Register attaches every command and callback handler to b.
func (h *Handler) Register(b *bot.Bot) {
	b.RegisterHandlerMatchFunc(matchCommand("start"), h.HandleStart)
	b.RegisterHandlerMatchFunc(matchCommand("habits"), h.HandleHabits)
	b.RegisterHandlerMatchFunc(matchCommand("done"), h.HandleDone)
	b.RegisterHandlerMatchFunc(matchCommand("history"), h.HandleHistory)
	b.RegisterHandlerMatchFunc(matchCommand("public"), h.HandlePublic)
	b.RegisterHandlerMatchFunc(matchHabitCallback, h.HandleCallback)
}

func chatKey(chatID int64) string {
	return strconv.FormatInt(chatID, 10)
}

// currentUser resolves the account linked to chatID. ok is false when the
// caller has already been answered.
func (h *Handler) currentUser(ctx context.Context, b *bot.Bot, chatID int64) (db.User, bool) {
	user, err := h.store.FindUserByChatID(ctx, chatKey(chatID))
	if errors.Is(err, db.ErrNotFound) {
		sendText(ctx, b, chatID, msgNotLinked)
		return db.User{}, false
	}
	if err != nil {
		logger.Error("failed to resolve chat owner", "chat_id", chatID, "error", err)
		sendText(ctx, b, chatID, msgFailed)
		return db.User{}, false
	}
	return user, true
}

// describeError turns a habit operation error into a reply for the user.
func describeError(err error) string {
	var vErr *validation.Error
	switch {
	case errors.Is(err, habits.ErrAlreadyCompletedToday):
		return "Already marked as done today ✅"
	case errors.Is(err, habits.ErrStaleHabit):
		return "This habit was last done more than 7 days ago, so it cannot be resumed by marking it done. Update or recreate it first."
	case errors.Is(err, habits.ErrHabitInconsistent):
		return "This habit has not been done for more than 7 days and cannot be changed."
	case errors.Is(err, habits.ErrNotOwner), errors.Is(err, habits.ErrForbidden), errors.Is(err, db.ErrNotFound):
		return msgNotFound
	case errors.As(err, &vErr):
		return vErr.Reason
	default:
		return msgFailed
	}
}

func sendText(ctx context.Context, b *bot.Bot, chatID int64, text string) {
	if _, err := b.SendMessage(ctx, &bot.SendMessageParams{
		ChatID: chatID,
		Text:   text,
	}); err != nil {
		logger.Error("failed to send message", "chat_id", chatID, "error", err)
	}
}

func sendHTML(ctx context.Context, b *bot.Bot, chatID int64, text string, keyboard *models.InlineKeyboardMarkup) {
	params := &bot.SendMessageParams{
		ChatID:    chatID,
		Text:      text,
		ParseMode: models.ParseModeHTML,
	}
	if keyboard != nil {
		params.ReplyMarkup = keyboard
	}
	if _, err := b.SendMessage(ctx, params); err != nil {
		logger.Error("failed to send message", "chat_id", chatID, "error", err)
	}
}
