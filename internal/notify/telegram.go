package notify

import (
	"context"
	"fmt"

	"valetcore/internal/models"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

// TelegramSender is the narrow slice of the bot API the transport needs.
type TelegramSender interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
}

// TelegramTransport posts notifications into the business operations chat so
// staff see confirmations and completions as they happen.
type TelegramTransport struct {
	bot    TelegramSender
	chatID int64
}

func NewTelegramTransport(bot TelegramSender, chatID int64) *TelegramTransport {
	return &TelegramTransport{bot: bot, chatID: chatID}
}

func (t *TelegramTransport) Name() string { return "telegram" }

func (t *TelegramTransport) Send(ctx context.Context, booking *models.Booking, msg Message) error {
	if t.bot == nil {
		return fmt.Errorf("telegram bot is nil")
	}
	text := fmt.Sprintf("%s\n\n%s", msg.Subject, msg.Body)
	if _, err := t.bot.Send(tgbotapi.NewMessage(t.chatID, text)); err != nil {
		return fmt.Errorf("telegram send: %w", err)
	}
	return nil
}
