package notify

import (
	"context"
	"fmt"

	"ratedesk/internal/config"
	"ratedesk/internal/models"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/rs/zerolog"
)

// sender is the slice of the bot API the notifier uses.
type sender interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
}

// TelegramNotifier pushes save events to the managers' chats. Delivery
// is best effort: failures are logged and never propagate into the save
// path.
type TelegramNotifier struct {
	bot     sender
	chatIDs []int64
	logger  zerolog.Logger
}

func NewTelegramNotifier(cfg config.TelegramConfig, logger *zerolog.Logger) (*TelegramNotifier, error) {
	bot, err := tgbotapi.NewBotAPI(cfg.BotToken)
	if err != nil {
		return nil, fmt.Errorf("failed to create telegram bot: %w", err)
	}

	base := zerolog.Nop()
	if logger != nil {
		base = logger.With().Str("component", "notify").Logger()
	}
	base.Info().Str("account", bot.Self.UserName).Msg("telegram notifier authorized")

	return &TelegramNotifier{
		bot:     bot,
		chatIDs: cfg.ManagerChatIDs,
		logger:  base,
	}, nil
}

// RangeUpdated announces a successful range save.
func (n *TelegramNotifier) RangeUpdated(ctx context.Context, entry *models.AuditEntry) {
	text := fmt.Sprintf(`📅 Rates updated for a date range:

🏨 Room: %d, board type: %d
🗓 Dates: %s — %s
💰 Price: %d (extra %d, child %d)
🛏 Stock: %d
👤 Operator: %s`,
		entry.RoomID,
		entry.BoardTypeID,
		entry.StartDate,
		entry.EndDate,
		entry.Price,
		entry.ExtraPrice,
		entry.ChildPrice,
		entry.Stock,
		entry.Operator)

	n.broadcast(text)
}

// SaveFailed announces a save that did not reach the backend.
func (n *TelegramNotifier) SaveFailed(ctx context.Context, entry *models.AuditEntry) {
	reason := entry.StockError
	if reason == "" {
		reason = entry.PriceError
	}

	text := fmt.Sprintf(`⚠️ Calendar save failed:

🏨 Room: %d, board type: %d
🗓 Dates: %s — %s
👤 Operator: %s
❌ Error: %s`,
		entry.RoomID,
		entry.BoardTypeID,
		entry.StartDate,
		entry.EndDate,
		entry.Operator,
		reason)

	n.broadcast(text)
}

func (n *TelegramNotifier) broadcast(text string) {
	for _, chatID := range n.chatIDs {
		msg := tgbotapi.NewMessage(chatID, text)
		if _, err := n.bot.Send(msg); err != nil {
			n.logger.Error().Err(err).Int64("chat_id", chatID).Msg("failed to send notification")
		}
	}
}
