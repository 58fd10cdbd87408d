package notify

import (
	"context"
	"fmt"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/rxtech-lab/argo-autotrade/internal/logger"
	"github.com/rxtech-lab/argo-autotrade/internal/types"
	"go.uber.org/zap"
)

// Notifier delivers human-readable trading events.
type Notifier interface {
	Notify(ctx context.Context, text string) error
}

// Nop discards every message.
type Nop struct{}

func (Nop) Notify(context.Context, string) error { return nil }

type botSender interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
}

// Telegram sends messages to a single chat.
type Telegram struct {
	bot    botSender
	chatID int64
	logger *logger.Logger
}

// NewTelegram authenticates the bot token and returns a notifier bound to chatID.
func NewTelegram(token string, chatID int64, log *logger.Logger) (*Telegram, error) {
	bot, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return nil, fmt.Errorf("telegram bot init: %w", err)
	}

	return newTelegramWithSender(bot, chatID, log), nil
}

func newTelegramWithSender(bot botSender, chatID int64, log *logger.Logger) *Telegram {
	return &Telegram{
		bot:    bot,
		chatID: chatID,
		logger: log.Named("telegram"),
	}
}

func (t *Telegram) Notify(ctx context.Context, text string) error {
	if t == nil || t.bot == nil || t.chatID == 0 {
		return nil
	}

	if err := ctx.Err(); err != nil {
		return err
	}

	if _, err := t.bot.Send(tgbotapi.NewMessage(t.chatID, text)); err != nil {
		t.logger.Warn("telegram send failed", zap.Error(err))

		return fmt.Errorf("telegram send: %w", err)
	}

	return nil
}

// TakeProfitClosed formats the message sent after the watcher closes a position.
func TakeProfitClosed(position types.Position, result types.OrderResult) string {
	return fmt.Sprintf("Take profit hit: %s %s #%d %.2f lots, target %g, closed at %g (order #%d)",
		position.Symbol, position.Side, position.Ticket, position.Volume, position.TakeProfit, result.Price, result.Order)
}
