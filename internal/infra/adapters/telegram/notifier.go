package telegram

import (
	"context"
	"errors"
	"fmt"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/rs/zerolog"

	"eduplatform/internal/config"
	"eduplatform/internal/domain/ports/adapter"
)

var _ adapter.OperatorNotifier = (*BotNotifier)(nil)

// sender is the part of tgbotapi.BotAPI the notifier uses.
type sender interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
}

// BotNotifier posts operator alerts to a single Telegram chat.
type BotNotifier struct {
	bot    sender
	chatID int64
	log    *zerolog.Logger
}

func NewBotNotifier(cfg *config.NotifyConfig, logger *zerolog.Logger) (*BotNotifier, error) {
	if cfg == nil || cfg.TelegramToken == "" {
		return nil, errors.New("telegram token is empty")
	}
	if cfg.ChatID == 0 {
		return nil, errors.New("notify.chat_id is required")
	}
	bot, err := tgbotapi.NewBotAPI(cfg.TelegramToken)
	if err != nil {
		return nil, fmt.Errorf("telegram bot: %w", err)
	}
	return newBotNotifier(bot, cfg.ChatID, logger), nil
}

func newBotNotifier(bot sender, chatID int64, logger *zerolog.Logger) *BotNotifier {
	l := logger.With().Str("component", "TelegramNotifier").Logger()
	return &BotNotifier{bot: bot, chatID: chatID, log: &l}
}

func (n *BotNotifier) Notify(ctx context.Context, text string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	msg := tgbotapi.NewMessage(n.chatID, text)
	msg.DisableWebPagePreview = true
	if _, err := n.bot.Send(msg); err != nil {
		return fmt.Errorf("telegram send: %w", err)
	}
	n.log.Debug().Int64("chat_id", n.chatID).Msg("operator notified")
	return nil
}
