package handler

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"

	"github.com/set-night/vitrine/internal/domain"
	"github.com/set-night/vitrine/internal/middleware"
	"github.com/set-night/vitrine/internal/service"
	"github.com/set-night/vitrine/internal/telegram"
)

// admin returns the sender when the update is a private message from an admin.
func (h *Handler) admin(ctx context.Context, update *models.Update) (domain.Payer, bool) {
	if update.Message == nil || update.Message.Chat.Type != models.ChatTypePrivate || !middleware.IsAdmin(ctx) {
		return domain.Payer{}, false
	}
	return middleware.GetPayer(ctx)
}

func (h *Handler) handleBroadcast(ctx context.Context, b *bot.Bot, update *models.Update) {
	if _, ok := h.admin(ctx, update); !ok {
		return
	}
	chat := update.Message.Chat.ID

	text := telegram.CommandArgs(update.Message.Text)
	if err := h.broadcast.Validate(text); err != nil {
		if errors.Is(err, domain.ErrBroadcastTooShort) {
			h.sendText(ctx, chat, "Uso: /enviar &lt;mensagem&gt;\nA mensagem precisa ter pelo menos 10 caracteres visíveis.")
			return
		}
		h.sendText(ctx, chat, "❌ Mensagem inválida.")
		return
	}

	h.sendText(ctx, chat, "📣 Enviando...")
	report, err := h.broadcast.Broadcast(ctx, domain.Notice{Text: text})
	if err != nil {
		slog.Error("broadcast", "error", err)
	}
	h.sendText(ctx, chat, fmt.Sprintf(
		"✅ Envio concluído.\n\nEntregues: %d\nFalhas: %d\nRemovidos (bloquearam o bot): %d",
		report.Delivered(), report.Failed(), len(report.Unreachable()),
	))
}

func (h *Handler) handleSetWelcome(ctx context.Context, b *bot.Bot, update *models.Update) {
	payer, ok := h.admin(ctx, update)
	if !ok {
		return
	}
	h.sessions.SetStep(payer.UserID, service.StepWelcome)
	h.sendText(ctx, update.Message.Chat.ID,
		"👋 Envie a nova mensagem de boas-vindas: texto, foto com legenda ou vídeo com legenda.\nUse /cancelar para desistir.")
}

func (h *Handler) handleSetPixPhoto(ctx context.Context, b *bot.Bot, update *models.Update) {
	payer, ok := h.admin(ctx, update)
	if !ok {
		return
	}
	h.sessions.SetStep(payer.UserID, service.StepPixPhoto)
	h.sendText(ctx, update.Message.Chat.ID,
		"🖼 Envie a foto que será exibida nas telas de pagamento PIX.\nUse /cancelar para desistir.")
}

func (h *Handler) handleMetrics(ctx context.Context, b *bot.Bot, update *models.Update) {
	if _, ok := h.admin(ctx, update); !ok {
		return
	}

	stats := h.users.Stats(ctx)
	h.sendText(ctx, update.Message.Chat.ID, fmt.Sprintf(
		"📊 <b>Métricas</b>\n\n"+
			"👥 Usuários: <b>%d</b>\n"+
			"💬 Interações: <b>%d</b>\n"+
			"🧾 Cobranças pendentes: <b>%d</b>\n"+
			"🔥 Promoções ativas: <b>%d</b>\n"+
			"🎁 Indicadores: <b>%d</b> (%d pontos em circulação)",
		stats.Users, stats.TotalMessages, stats.OpenCharges, stats.ActivePromotions,
		stats.Referrers, stats.ReferralPoints,
	))
}

func (h *Handler) handlePurge(ctx context.Context, b *bot.Bot, update *models.Update) {
	if _, ok := h.admin(ctx, update); !ok {
		return
	}
	chat := update.Message.Chat.ID

	h.sendText(ctx, chat, "🧹 Limpando cobranças pendentes não rastreadas...")
	report, err := h.purge.Purge(ctx)
	if err != nil {
		slog.Error("purge charges", "error", err)
		h.tgLogger.LogError(err, "purge charges")
		h.sendText(ctx, chat, "❌ Não foi possível consultar o gateway de pagamento.")
		return
	}
	h.sendText(ctx, chat, fmt.Sprintf(
		"✅ Limpeza concluída.\n\nAnalisadas: %d\nExcluídas: %d\nFalhas: %d\nMantidas (em andamento): %d",
		report.Scanned, report.Deleted, report.Failed, report.Kept,
	))
}

func (h *Handler) handleCancelWizard(ctx context.Context, b *bot.Bot, update *models.Update) {
	payer, ok := h.admin(ctx, update)
	if !ok {
		return
	}
	h.sessions.SetStep(payer.UserID, service.StepNone)
	h.sendText(ctx, update.Message.Chat.ID, "❎ Operação cancelada.")
}
