package handlers

import (
	"context"

	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"
	"github.com/smith3v/tg-habit-tracker/pkg/logger"
	"github.com/smith3v/tg-habit-tracker/pkg/ui"
)

// HandleCallback serves the inline buttons of the habit list. After a change
// the list message is redrawn in place.
func (h *Handler) HandleCallback(ctx context.Context, b *bot.Bot, update *models.Update) {
	if update == nil || update.CallbackQuery == nil {
		logger.Error("invalid update in HandleCallback")
		return
	}

	callbackID := update.CallbackQuery.ID
	answerCallback := func(text string) {
		if callbackID == "" {
			return
		}
		if _, err := b.AnswerCallbackQuery(ctx, &bot.AnswerCallbackQueryParams{
			CallbackQueryID: callbackID,
			Text:            text,
		}); err != nil {
			logger.Error("failed to answer callback query", "error", err)
		}
	}

	action, err := ui.ParseCallbackData(update.CallbackQuery.Data)
	if err != nil {
		logger.Error("failed to parse habit callback", "data", update.CallbackQuery.Data, "error", err)
		answerCallback("Unknown command")
		return
	}

	message := update.CallbackQuery.Message
	if message.Type != models.MaybeInaccessibleMessageTypeMessage || message.Message == nil || message.Message.Chat.ID == 0 {
		logger.Error("callback query message is inaccessible", "telegram_user_id", update.CallbackQuery.From.ID)
		answerCallback("Message is not available")
		return
	}
	msg := message.Message

	user, err := h.store.FindUserByChatID(ctx, chatKey(msg.Chat.ID))
	if err != nil {
		answerCallback("This chat is not linked to an account")
		return
	}

	switch action.Op {
	case ui.OpDone:
		answerCallback(h.markDone(ctx, user, action.HabitID))
	case ui.OpPublic:
		if _, err := h.service.TogglePublic(ctx, user.ID, action.HabitID); err != nil {
			answerCallback(describeError(err))
			return
		}
		answerCallback("Visibility updated")
	case ui.OpHistory:
		answerCallback("")
		text, err := h.renderHistory(ctx, user)
		if err != nil {
			logger.Error("failed to load completion history", "user_id", user.ID, "error", err)
			sendText(ctx, b, msg.Chat.ID, msgFailed)
			return
		}
		sendHTML(ctx, b, msg.Chat.ID, text, nil)
		return
	case ui.OpList:
		answerCallback("")
	default:
		answerCallback("Unknown command")
		return
	}

	text, keyboard, err := h.renderHabitList(ctx, user)
	if err != nil {
		logger.Error("failed to render habit list", "user_id", user.ID, "error", err)
		return
	}
	params := &bot.EditMessageTextParams{
		ChatID:    msg.Chat.ID,
		MessageID: msg.ID,
		Text:      text,
		ParseMode: models.ParseModeHTML,
	}
	if keyboard != nil {
		params.ReplyMarkup = keyboard
	}
	if _, err := b.EditMessageText(ctx, params); err != nil {
		logger.Error("failed to refresh habit list", "user_id", user.ID, "error", err)
	}
}
