package notifiers

import (
	"context"
	"fmt"
	"strconv"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/attid/MyMTLWalletBot-sub000/internal/logger"
)

// TelegramNotifier delivers rendered notifications over the Telegram
// bot API. With an empty token it degrades to a no-op, which keeps
// local runs working without credentials.
type TelegramNotifier struct {
	bot *tgbotapi.BotAPI
}

func NewTelegramNotifier(botToken string) (*TelegramNotifier, error) {
	if botToken == "" {
		return &TelegramNotifier{}, nil
	}
	bot, err := tgbotapi.NewBotAPI(botToken)
	if err != nil {
		return nil, fmt.Errorf("failed to create bot: %w", err)
	}
	bot.Debug = false
	logger.L.Info("telegram bot authorized", "account", bot.Self.UserName)
	return &TelegramNotifier{bot: bot}, nil
}

func (t *TelegramNotifier) Deliver(ctx context.Context, userID, text, operationID, walletID string) error {
	if t.bot == nil {
		return nil
	}
	chatID, err := strconv.ParseInt(userID, 10, 64)
	if err != nil {
		return fmt.Errorf("user id %q is not a chat id: %w", userID, err)
	}
	msg := tgbotapi.NewMessage(chatID, text)
	msg.DisableWebPagePreview = true
	if _, err := t.bot.Send(msg); err != nil {
		return fmt.Errorf("send to chat %d: %w", chatID, err)
	}
	return nil
}
