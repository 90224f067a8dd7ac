// Package notify fans operational alerts out to the team chat.
package notify

import (
	"fmt"
	"log/slog"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/adamonsea/narrative-forge/pkg/models"
)

var htmlEscaper = strings.NewReplacer("&", "&amp;", "<", "&lt;", ">", "&gt;")

// TelegramNotifier sends one-way alerts to a fixed ops chat. It never reads
// updates; the bot exists only to push.
type TelegramNotifier struct {
	bot    *tgbotapi.BotAPI
	chatID int64
	logger *slog.Logger
}

func NewTelegram(token string, chatID int64, logger *slog.Logger) (*TelegramNotifier, error) {
	bot, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return nil, fmt.Errorf("telegram auth: %w", err)
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &TelegramNotifier{bot: bot, chatID: chatID, logger: logger}, nil
}

// CriticalTicket alerts the ops chat about a critical incident.
func (n *TelegramNotifier) CriticalTicket(t *models.ErrorTicket) error {
	text := fmt.Sprintf("🚨 <b>Critical ticket</b>\n%s\n\nType: %s\nSource: %s\nID: %s",
		htmlEscaper.Replace(t.Summary), htmlEscaper.Replace(t.TicketType), htmlEscaper.Replace(t.SourceInfo), t.ID)

	msg := tgbotapi.NewMessage(n.chatID, text)
	msg.ParseMode = tgbotapi.ModeHTML
	msg.DisableWebPagePreview = true

	if _, err := n.bot.Send(msg); err != nil {
		return fmt.Errorf("send telegram alert: %w", err)
	}
	n.logger.Info("critical ticket alert sent", "ticket_id", t.ID)
	return nil
}
