package handlers

import (
	"context"
	"errors"
	"strconv"

	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"
	"github.com/smith3v/tg-habit-tracker/pkg/db"
	"github.com/smith3v/tg-habit-tracker/pkg/logger"
	"github.com/smith3v/tg-habit-tracker/pkg/ui"
)

// HandleStart links the chat to an account with a one-time link code:
// "/start <code>". Codes are issued by the operator CLI.
func (h *Handler) HandleStart(ctx context.Context, b *bot.Bot, update *models.Update) {
	if update == nil || update.Message == nil || update.Message.Chat.ID == 0 {
		logger.Error("invalid update in HandleStart")
		return
	}
	chatID := update.Message.Chat.ID

	code := commandArgs(update.Message.Text)
	if code == "" {
		if user, err := h.store.FindUserByChatID(ctx, chatKey(chatID)); err == nil {
			sendText(ctx, b, chatID, "This chat is linked to "+user.Email+". Use /habits to see your habits.")
			return
		}
		sendText(ctx, b, chatID, "Welcome! Send /start <code> with the link code from your administrator to receive habit reminders here.")
		return
	}

	user, err := h.store.RedeemLinkCode(ctx, code, chatKey(chatID), h.now())
	if errors.Is(err, db.ErrNotFound) {
		logger.Warn("rejected link code", "chat_id", chatID)
		sendText(ctx, b, chatID, "This link code is invalid or has expired. Ask your administrator for a new one.")
		return
	}
	if err != nil {
		logger.Error("failed to redeem link code", "chat_id", chatID, "error", err)
		sendText(ctx, b, chatID, msgFailed)
		return
	}
	logger.Info("telegram chat linked", "user_id", user.ID, "chat_id", chatID)
	sendText(ctx, b, chatID, "Linked! Reminders for "+user.Email+" will arrive here. Use /habits to see your habits.")
}

func (h *Handler) HandleHabits(ctx context.Context, b *bot.Bot, update *models.Update) {
	if update == nil || update.Message == nil || update.Message.Chat.ID == 0 {
		logger.Error("invalid update in HandleHabits")
		return
	}
	chatID := update.Message.Chat.ID
	user, ok := h.currentUser(ctx, b, chatID)
	if !ok {
		return
	}

	text, keyboard, err := h.renderHabitList(ctx, user)
	if err != nil {
		logger.Error("failed to render habit list", "user_id", user.ID, "error", err)
		sendText(ctx, b, chatID, msgFailed)
		return
	}
	sendHTML(ctx, b, chatID, text, keyboard)
}

// HandleDone marks a habit as done today: "/done 12".
func (h *Handler) HandleDone(ctx context.Context, b *bot.Bot, update *models.Update) {
	if update == nil || update.Message == nil || update.Message.Chat.ID == 0 {
		logger.Error("invalid update in HandleDone")
		return
	}
	chatID := update.Message.Chat.ID
	user, ok := h.currentUser(ctx, b, chatID)
	if !ok {
		return
	}

	arg := commandArgs(update.Message.Text)
	habitID, err := strconv.ParseUint(arg, 10, 64)
	if err != nil || habitID == 0 {
		sendText(ctx, b, chatID, "Usage: /done <habit id>. Use /habits to see the ids.")
		return
	}

	sendText(ctx, b, chatID, h.markDone(ctx, user, uint(habitID)))
}

func (h *Handler) HandleHistory(ctx context.Context, b *bot.Bot, update *models.Update) {
	if update == nil || update.Message == nil || update.Message.Chat.ID == 0 {
		logger.Error("invalid update in HandleHistory")
		return
	}
	chatID := update.Message.Chat.ID
	user, ok := h.currentUser(ctx, b, chatID)
	if !ok {
		return
	}
	text, err := h.renderHistory(ctx, user)
	if err != nil {
		logger.Error("failed to load completion history", "user_id", user.ID, "error", err)
		sendText(ctx, b, chatID, msgFailed)
		return
	}
	sendHTML(ctx, b, chatID, text, nil)
}

func (h *Handler) HandlePublic(ctx context.Context, b *bot.Bot, update *models.Update) {
	if update == nil || update.Message == nil || update.Message.Chat.ID == 0 {
		logger.Error("invalid update in HandlePublic")
		return
	}
	chatID := update.Message.Chat.ID
	user, ok := h.currentUser(ctx, b, chatID)
	if !ok {
		return
	}
	public, err := h.service.ListPublic(ctx, user.ID)
	if err != nil {
		logger.Error("failed to list public habits", "user_id", user.ID, "error", err)
		sendText(ctx, b, chatID, msgFailed)
		return
	}
	rows := make([]ui.HabitRow, 0, len(public))
	for _, habit := range public {
		rows = append(rows, habitRow(habit, false))
	}
	sendHTML(ctx, b, chatID, ui.RenderPublicList(rows), nil)
}

func DefaultHandler(ctx context.Context, b *bot.Bot, update *models.Update) {
	if update == nil || update.Message == nil {
		logger.Error("received invalid update in DefaultHandler")
		return
	}
	if update.Message.Chat.ID == 0 {
		logger.Error("chat ID is zero in DefaultHandler")
		return
	}
	sendText(ctx, b, update.Message.Chat.ID, "Commands:\n"+
		"* /start <code>: link this chat to your account\n"+
		"* /habits: list your habits and mark them done\n"+
		"* /done <id>: mark a habit as done today\n"+
		"* /history: recent completions\n"+
		"* /public: habits other people share")
}

func (h *Handler) markDone(ctx context.Context, user db.User, habitID uint) string {
	if _, err := h.service.MarkCompleted(ctx, habitID, user.ID); err != nil {
		reply := describeError(err)
		if reply == msgFailed {
			logger.Error("failed to mark habit completed", "habit_id", habitID, "user_id", user.ID, "error", err)
		}
		return reply
	}
	return "Marked as done ✅"
}

func (h *Handler) renderHabitList(ctx context.Context, user db.User) (string, *models.InlineKeyboardMarkup, error) {
	own, err := h.service.ListOwn(ctx, user.ID)
	if err != nil {
		return "", nil, err
	}
	today := h.service.Tracker().Today()
	rows := make([]ui.HabitRow, 0, len(own))
	for _, habit := range own {
		done, err := h.store.CompletionExists(ctx, habit.ID, user.ID, today)
		if err != nil {
			return "", nil, err
		}
		rows = append(rows, habitRow(habit, done))
	}
	return ui.RenderHabitList(rows)
}

func (h *Handler) renderHistory(ctx context.Context, user db.User) (string, error) {
	history, err := h.service.History(ctx, user.ID)
	if err != nil {
		return "", err
	}
	rows := make([]ui.HistoryRow, 0, len(history))
	for _, entry := range history {
		row := ui.HistoryRow{Action: entry.Habit.Action}
		for _, c := range entry.Completions {
			row.Dates = append(row.Dates, db.DateOf(c.Date))
		}
		rows = append(rows, row)
	}
	return ui.RenderHistory(rows), nil
}

func habitRow(habit db.Habit, doneToday bool) ui.HabitRow {
	return ui.HabitRow{
		ID:         habit.ID,
		Action:     habit.Action,
		Place:      habit.Place,
		TimeOfDay:  habit.TimeOfDay,
		Duration:   habit.Duration,
		IsPleasant: habit.IsPleasant,
		IsPublic:   habit.IsPublic,
		DoneToday:  doneToday,
	}
}
