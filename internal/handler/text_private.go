package handler

import (
	"context"
	"log/slog"
	"strings"

	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"

	"github.com/set-night/vitrine/internal/domain"
	"github.com/set-night/vitrine/internal/service"
)

// HandleDefault processes private messages that no command matched: input for
// an admin wizard, or anything else, which gets the main menu.
func (h *Handler) HandleDefault(ctx context.Context, b *bot.Bot, update *models.Update) {
	if update.CallbackQuery != nil {
		answer(ctx, b, update, "")
		return
	}
	if update.Message == nil || update.Message.Chat.Type != models.ChatTypePrivate {
		return
	}

	msg := update.Message
	if payer, ok := h.admin(ctx, update); ok {
		if step := h.sessions.Get(payer.UserID).Step; step != service.StepNone {
			h.wizardInput(ctx, msg, payer.UserID, step)
			return
		}
	}

	if strings.HasPrefix(msg.Text, "/") {
		return
	}
	h.sendText(ctx, msg.Chat.ID, "Use o menu abaixo 👇",
		[]domain.Button{domain.CallbackButton("🛍 Ver produtos", cbList)},
		[]domain.Button{domain.CallbackButton("🎁 Indique e ganhe", cbReferral)},
	)
}

func (h *Handler) wizardInput(ctx context.Context, msg *models.Message, userID int64, step service.WizardStep) {
	chat := msg.Chat.ID

	switch step {
	case service.StepPromoName, service.StepPromoValue, service.StepPromoLink:
		if msg.Text == "" {
			h.sendText(ctx, chat, "Envie a resposta como texto.")
			return
		}
		h.promotionInput(ctx, chat, userID, step, msg.Text)

	case service.StepWelcome:
		welcome, ok := welcomeFromMessage(msg)
		if !ok {
			h.sendText(ctx, chat, "Envie um texto, uma foto ou um vídeo.")
			return
		}
		if _, err := h.store.SaveWelcomeMessage(ctx, welcome); err != nil {
			slog.Error("save welcome message", "error", err)
			h.sendText(ctx, chat, "❌ Não foi possível salvar a mensagem.")
			return
		}
		h.sessions.SetStep(userID, service.StepNone)
		h.sendText(ctx, chat, "✅ Mensagem de boas-vindas atualizada. Veja como ficou:")
		h.send(ctx, chat, h.welcomeNotice(ctx))

	case service.StepPixPhoto:
		if len(msg.Photo) == 0 {
			h.sendText(ctx, chat, "Envie uma foto.")
			return
		}
		photo := &domain.MediaRef{FileID: msg.Photo[len(msg.Photo)-1].FileID, Type: domain.MediaPhoto}
		if _, err := h.store.SavePixPhoto(ctx, photo); err != nil {
			slog.Error("save pix photo", "error", err)
			h.sendText(ctx, chat, "❌ Não foi possível salvar a foto.")
			return
		}
		h.sessions.SetStep(userID, service.StepNone)
		h.sendText(ctx, chat, "✅ Foto do PIX atualizada.")

	case service.StepNone:
	}
}

// welcomeFromMessage builds a welcome message from text, a captioned photo or
// a captioned video. Photos use the largest size Telegram provides.
func welcomeFromMessage(msg *models.Message) (domain.WelcomeMessage, bool) {
	switch {
	case len(msg.Photo) > 0:
		return domain.WelcomeMessage{
			Type:   domain.MediaPhoto,
			Text:   msg.Caption,
			FileID: msg.Photo[len(msg.Photo)-1].FileID,
		}, true
	case msg.Video != nil:
		return domain.WelcomeMessage{
			Type:   domain.MediaVideo,
			Text:   msg.Caption,
			FileID: msg.Video.FileID,
		}, true
	case strings.TrimSpace(msg.Text) != "":
		return domain.WelcomeMessage{Type: domain.MediaText, Text: msg.Text}, true
	default:
		return domain.WelcomeMessage{}, false
	}
}
