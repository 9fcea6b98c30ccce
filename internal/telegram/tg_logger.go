package telegram

import (
	"context"
	"fmt"
	"html"
	"log/slog"
	"time"

	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"

	"github.com/set-night/vitrine/internal/config"
	"github.com/set-night/vitrine/internal/domain"
)

// TelegramLogger mirrors business events to an operator chat. It is a no-op
// when no chat is configured.
type TelegramLogger struct {
	api    MessageAPI
	chatID int64
}

func NewTelegramLogger(api MessageAPI, cfg *config.Config) *TelegramLogger {
	return &TelegramLogger{api: api, chatID: cfg.LogTelegramChatID}
}

type LogType string

const (
	LogTypeError             LogType = "error"
	LogTypeChargeCreated     LogType = "chargeCreated"
	LogTypePaymentConfirmed  LogType = "paymentConfirmed"
	LogTypePromotionLaunched LogType = "promotionLaunched"
)

func (l *TelegramLogger) Log(logType LogType, message string) {
	if l == nil || l.chatID == 0 {
		return
	}

	message = Truncate(message, config.MaxTelegramMessageLen)

	ctx, cancel := context.WithTimeout(context.Background(), config.NotifyTimeout)
	defer cancel()

	_, err := l.api.SendMessage(ctx, &bot.SendMessageParams{
		ChatID:    l.chatID,
		Text:      message,
		ParseMode: models.ParseModeHTML,
	})
	if err != nil {
		slog.Error("failed to send telegram log", "type", logType, "error", err)
	}
}

func (l *TelegramLogger) LogError(err error, context string) {
	msg := fmt.Sprintf("❌ <b>Erro</b>\n\n<b>Contexto:</b> %s\n<b>Erro:</b> <code>%s</code>\n<b>Hora:</b> %s",
		html.EscapeString(context), html.EscapeString(err.Error()), time.Now().Format("2006-01-02 15:04:05"))
	l.Log(LogTypeError, msg)
}

func (l *TelegramLogger) LogChargeCreated(userID int64, product domain.Product, chargeID string) {
	msg := fmt.Sprintf("🧾 <b>Cobrança criada</b>\n\n<b>Usuário:</b> <code>%d</code>\n<b>Produto:</b> %s\n<b>Valor:</b> %s\n<b>ID:</b> <code>%s</code>",
		userID, html.EscapeString(product.Name), product.PriceLabel(), chargeID)
	l.Log(LogTypeChargeCreated, msg)
}

func (l *TelegramLogger) LogPaymentConfirmed(p domain.PendingPayment, status *domain.ChargeStatus) {
	value := p.Product.Price
	if status != nil && !status.Value.IsZero() {
		value = status.Value
	}
	msg := fmt.Sprintf("✅ <b>Pagamento confirmado</b>\n\n<b>Usuário:</b> <code>%d</code>\n<b>Produto:</b> %s\n<b>Valor:</b> %s\n<b>Verificações:</b> %d\n<b>ID:</b> <code>%s</code>",
		p.UserID, html.EscapeString(p.Product.Name), domain.FormatBRL(value), p.CheckCount, p.ChargeID)
	l.Log(LogTypePaymentConfirmed, msg)
}

func (l *TelegramLogger) LogPromotionLaunched(promo domain.Promotion, delivered, failed int) {
	msg := fmt.Sprintf("🔥 <b>Promoção lançada</b>\n\n<b>Nome:</b> %s\n<b>Valor:</b> %s\n<b>Entregues:</b> %d\n<b>Falhas:</b> %d",
		html.EscapeString(promo.Name), domain.FormatBRL(promo.Value), delivered, failed)
	l.Log(LogTypePromotionLaunched, msg)
}
