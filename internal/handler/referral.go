package handler

import (
	"context"
	"errors"
	"fmt"
	"html"
	"log/slog"

	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"

	"github.com/set-night/vitrine/internal/config"
	"github.com/set-night/vitrine/internal/domain"
	"github.com/set-night/vitrine/internal/middleware"
	"github.com/set-night/vitrine/internal/service"
)

func (h *Handler) handleReferral(ctx context.Context, b *bot.Bot, update *models.Update) {
	if !isPrivate(update) {
		return
	}
	answer(ctx, b, update, "")

	payer, ok := middleware.GetPayer(ctx)
	if !ok {
		return
	}

	rec, err := h.referral.Summary(ctx, payer.UserID)
	if err != nil {
		slog.Error("load referral", "error", err, "user_id", payer.UserID)
		h.sendText(ctx, chatID(update), "❌ Ocorreu um erro. Tente novamente.")
		return
	}

	link := service.ReferralLink(h.botUsername, payer.UserID)
	text := fmt.Sprintf(
		"🎁 <b>Indique e ganhe</b>\n\n"+
			"Compartilhe seu link. Cada novo usuário que entrar por ele vale %d ponto.\n"+
			"Com %d pontos você resgata o acesso gratuitamente.\n\n"+
			"🔗 Seu link:\n%s\n\n"+
			"👥 Indicados: <b>%d</b>\n"+
			"⭐ Pontos: <b>%d</b>",
		config.ReferralAward, config.ReferralRedeemCost,
		html.EscapeString(link), len(rec.ReferredUsers), rec.Points,
	)

	var rows [][]domain.Button
	if rec.Points >= config.ReferralRedeemCost {
		rows = append(rows, []domain.Button{domain.CallbackButton("🎉 Resgatar acesso", cbRedeem)})
	}
	rows = append(rows, []domain.Button{domain.CallbackButton("⬅️ Voltar", cbStart)})

	h.send(ctx, chatID(update), domain.Notice{Text: text, Buttons: rows})
}

func (h *Handler) handleRedeem(ctx context.Context, b *bot.Bot, update *models.Update) {
	if !isPrivate(update) {
		return
	}
	answer(ctx, b, update, "")

	payer, ok := middleware.GetPayer(ctx)
	if !ok {
		return
	}
	chat := chatID(update)

	rec, link, err := h.referral.Redeem(ctx, payer.UserID)
	switch {
	case errors.Is(err, domain.ErrInsufficientPoints):
		h.sendText(ctx, chat, fmt.Sprintf(
			"⭐ Você precisa de %d pontos para resgatar. Indique mais amigos!", config.ReferralRedeemCost,
		), []domain.Button{domain.CallbackButton("🎁 Meu link", cbReferral)})
		return
	case err != nil:
		slog.Error("redeem points", "error", err, "user_id", payer.UserID)
		h.sendText(ctx, chat, "❌ Ocorreu um erro. Tente novamente.")
		return
	}

	if link == "" {
		h.sendText(ctx, chat, fmt.Sprintf(
			"🎉 Resgate realizado! Pontos restantes: <b>%d</b>.\nFale com o suporte para receber seu acesso.", rec.Points,
		), []domain.Button{domain.LinkButton("💬 Suporte", h.cfg.SupportURL)})
		return
	}
	h.sendText(ctx, chat, fmt.Sprintf(
		"🎉 Resgate realizado! Pontos restantes: <b>%d</b>.\n\nSeu acesso: %s", rec.Points, html.EscapeString(link),
	), []domain.Button{domain.LinkButton("🔓 Acessar agora", link)})
}
