package handler

import (
	"context"
	"errors"
	"log/slog"

	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"

	"github.com/set-night/vitrine/internal/domain"
	"github.com/set-night/vitrine/internal/middleware"
)

func (h *Handler) handleCheckPayment(ctx context.Context, b *bot.Bot, update *models.Update) {
	payer, ok := middleware.GetPayer(ctx)
	if !ok {
		return
	}
	chat := chatID(update)

	_, outcome, err := h.reconciler.CheckNow(ctx, payer.UserID)
	switch {
	case errors.Is(err, domain.ErrNoPendingPayment):
		answer(ctx, b, update, "")
		h.sendText(ctx, chat, "Você não possui pagamentos pendentes.",
			[]domain.Button{domain.CallbackButton("🛍 Ver produtos", cbList)},
		)
		return
	case err != nil:
		slog.Error("check payment", "error", err, "user_id", payer.UserID)
		answer(ctx, b, update, "Não foi possível verificar agora. Tente novamente.")
		return
	}

	switch outcome {
	case domain.OutcomePaid:
		answer(ctx, b, update, "✅ Pagamento confirmado!")
	case domain.OutcomeOpen:
		answer(ctx, b, update, "⏳ Pagamento ainda não identificado.")
	case domain.OutcomeFailed:
		answer(ctx, b, update, "")
		h.sendText(ctx, chat, "❌ Esta cobrança foi cancelada ou estornada. Gere um novo pagamento.",
			[]domain.Button{domain.CallbackButton("🛍 Ver produtos", cbList)},
		)
	case domain.OutcomeExpired:
		answer(ctx, b, update, "⌛ Cobrança expirada.")
	}
}

func (h *Handler) handleCancelCharge(ctx context.Context, b *bot.Bot, update *models.Update) {
	payer, ok := middleware.GetPayer(ctx)
	if !ok {
		return
	}

	entry, err := h.checkout.Cancel(ctx, payer.UserID)
	switch {
	case errors.Is(err, domain.ErrNoPendingPayment):
		answer(ctx, b, update, "Nenhuma cobrança pendente.")
		return
	case errors.Is(err, domain.ErrPendingPaymentExists):
		answer(ctx, b, update, "⏳ Aguarde, sua cobrança ainda está sendo processada.")
		return
	case err != nil:
		slog.Error("cancel charge", "error", err, "user_id", payer.UserID)
		answer(ctx, b, update, "Não foi possível cancelar agora. Tente novamente.")
		return
	}

	answer(ctx, b, update, "Cobrança cancelada.")
	slog.Info("charge cancelled by user", "charge_id", entry.ChargeID, "user_id", payer.UserID)
	h.sendText(ctx, chatID(update), "🗑 Cobrança cancelada.",
		[]domain.Button{domain.CallbackButton("🛍 Ver produtos", cbList)},
	)
}
