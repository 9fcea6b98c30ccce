package handler

import (
	"context"
	"log/slog"

	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"

	"github.com/set-night/vitrine/internal/domain"
	"github.com/set-night/vitrine/internal/middleware"
	"github.com/set-night/vitrine/internal/telegram"
)

func (h *Handler) handleStart(ctx context.Context, b *bot.Bot, update *models.Update) {
	if !isPrivate(update) {
		return
	}
	answer(ctx, b, update, "")

	payer, ok := middleware.GetPayer(ctx)
	if !ok {
		return
	}

	if update.Message != nil {
		payload := telegram.CommandArgs(update.Message.Text)
		added, err := h.referral.HandleStart(ctx, payer.UserID, payload)
		if err != nil {
			slog.Error("handle referral payload", "error", err, "user_id", payer.UserID)
		} else if added {
			slog.Info("referral registered", "user_id", payer.UserID, "payload", payload)
		}
	}

	h.send(ctx, chatID(update), h.welcomeNotice(ctx))
}

func (h *Handler) welcomeNotice(ctx context.Context) domain.Notice {
	welcome := h.store.Load(ctx).WelcomeMessage

	n := domain.Notice{
		Text: welcome.Text,
		Buttons: [][]domain.Button{
			{domain.CallbackButton("🛍 Ver produtos", cbList)},
			{domain.CallbackButton("🎁 Indique e ganhe", cbReferral)},
			{domain.LinkButton("💬 Suporte", h.cfg.SupportURL)},
		},
	}
	if welcome.FileID != "" && (welcome.Type == domain.MediaPhoto || welcome.Type == domain.MediaVideo) {
		n.Media = &domain.MediaRef{FileID: welcome.FileID, Type: welcome.Type}
	}
	return n
}
