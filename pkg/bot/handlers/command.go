package handlers

import (
	"strings"
	"unicode"

	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"
	"github.com/smith3v/tg-habit-tracker/pkg/ui"
)

// splitCommand splits "/name@bot args" into the bare command name and its
// arguments. ok is false when text is not a command.
func splitCommand(text string) (name, args string, ok bool) {
	text = strings.TrimSpace(text)
	if !strings.HasPrefix(text, "/") {
		return "", "", false
	}
	head, rest := text, ""
	if i := strings.IndexFunc(text, unicode.IsSpace); i >= 0 {
		head, rest = text[:i], text[i:]
	}
	name = strings.TrimPrefix(head, "/")
	if at := strings.IndexByte(name, '@'); at >= 0 {
		name = name[:at]
	}
	return name, strings.TrimSpace(rest), name != ""
}

// commandArgs returns the arguments of a command message.
func commandArgs(text string) string {
	_, args, _ := splitCommand(text)
	return args
}

// matchCommand matches messages whose first token is /name, with or without
// the @bot suffix Telegram adds in group chats.
func matchCommand(name string) bot.MatchFunc {
	return func(update *models.Update) bool {
		if update == nil || update.Message == nil {
			return false
		}
		cmd, _, ok := splitCommand(update.Message.Text)
		return ok && cmd == name
	}
}

// matchHabitCallback matches button presses on the habit keyboards.
func matchHabitCallback(update *models.Update) bool {
	return update != nil && update.CallbackQuery != nil && ui.IsHabitCallback(update.CallbackQuery.Data)
}
