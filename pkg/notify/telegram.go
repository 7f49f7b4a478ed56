package notify

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"
)

// Sender is the part of *bot.Bot the gateway needs.
type Sender interface {
	SendMessage(ctx context.Context, params *bot.SendMessageParams) (*models.Message, error)
}

// TelegramGateway sends HTML messages through the Telegram Bot API. Every call
// is bounded by timeout.
type TelegramGateway struct {
	sender  Sender
	timeout time.Duration
}

func NewTelegramGateway(sender Sender, timeout time.Duration) *TelegramGateway {
	return &TelegramGateway{sender: sender, timeout: timeout}
}

func (g *TelegramGateway) Send(ctx context.Context, chatID, text string) error {
	if g.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, g.timeout)
		defer cancel()
	}

	_, err := g.sender.SendMessage(ctx, &bot.SendMessageParams{
		ChatID:    chatTarget(chatID),
		Text:      text,
		ParseMode: models.ParseModeHTML,
	})
	if err != nil {
		return fmt.Errorf("telegram send to %s: %w", chatID, err)
	}
	return nil
}

// Numeric chat ids go out as integers, anything else (e.g. "@channel") as is.
func chatTarget(chatID string) any {
	if id, err := strconv.ParseInt(chatID, 10, 64); err == nil {
		return id
	}
	return chatID
}
