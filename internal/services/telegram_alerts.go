package services

import (
	"fmt"
	"html"
	"log/slog"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/zapikart/shopify-mpwa/internal/models"
)

type telegramSender interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
}

// TelegramAlerts шлёт владельцу магазина короткие оповещения о COD-заказах.
// nil-получатель: интеграция выключена, все методы молча ничего не делают.
type TelegramAlerts struct {
	bot    telegramSender
	chatID int64
}

// NewTelegramAlerts returns nil (alerts disabled) when token or chat id is empty.
func NewTelegramAlerts(token string, chatID int64) (*TelegramAlerts, error) {
	if token == "" || chatID == 0 {
		return nil, nil
	}
	bot, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return nil, fmt.Errorf("telegram bot init: %w", err)
	}
	return &TelegramAlerts{bot: bot, chatID: chatID}, nil
}

func newTelegramAlertsWithSender(bot telegramSender, chatID int64) *TelegramAlerts {
	return &TelegramAlerts{bot: bot, chatID: chatID}
}

func (t *TelegramAlerts) OrderPlaced(phone string, o *models.Order) {
	if t == nil {
		return
	}
	var product string
	if len(o.LineItems) > 0 {
		product = o.LineItems[0].Title
	}
	text := fmt.Sprintf("🛒 <b>New COD order</b> %s\nPhone: %s\nProduct: %s\nTotal: %s %s",
		html.EscapeString(firstNonEmpty(o.Name, o.OrderNumber.String(), notAvailable)),
		html.EscapeString(phone),
		html.EscapeString(firstNonEmpty(product, notAvailable)),
		html.EscapeString(firstNonEmpty(o.CurrentTotalPrice.String(), o.TotalPrice.String(), "0.00")),
		html.EscapeString(firstNonEmpty(o.Currency, "INR")),
	)
	t.send(text)
}

func (t *TelegramAlerts) OrderFailed(phone string, err error) {
	if t == nil {
		return
	}
	text := fmt.Sprintf("⚠️ <b>COD order creation failed</b>\nPhone: %s\nError: %s",
		html.EscapeString(phone), html.EscapeString(err.Error()))
	t.send(text)
}

func (t *TelegramAlerts) send(text string) {
	msg := tgbotapi.NewMessage(t.chatID, text)
	msg.ParseMode = tgbotapi.ModeHTML
	msg.DisableWebPagePreview = true
	if _, err := t.bot.Send(msg); err != nil {
		slog.Warn("[tg][alert] send failed", "chat_id", t.chatID, "error", err)
	}
}
