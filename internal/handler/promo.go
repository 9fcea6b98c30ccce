package handler

import (
	"context"
	"errors"
	"fmt"
	"html"
	"log/slog"

	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"

	"github.com/set-night/vitrine/internal/domain"
	"github.com/set-night/vitrine/internal/service"
)

// handlePromotionWizard starts the /promocao flow: name, value, link.
func (h *Handler) handlePromotionWizard(ctx context.Context, b *bot.Bot, update *models.Update) {
	payer, ok := h.admin(ctx, update)
	if !ok {
		return
	}

	h.sessions.SetStep(payer.UserID, service.StepPromoName)
	h.sendText(ctx, chatID(update), "🔥 <b>Nova promoção</b>\n\nEnvie o <b>nome</b> da promoção.\nUse /cancelar para desistir.")
}

// promotionInput advances the promotion wizard with the admin's next message.
func (h *Handler) promotionInput(ctx context.Context, chat, userID int64, step service.WizardStep, text string) {
	switch step {
	case service.StepPromoName:
		name, err := service.ParsePromotionName(text)
		if err != nil {
			h.sendText(ctx, chat, "❌ Nome inválido. Envie um nome com até 100 caracteres.")
			return
		}
		h.sessions.Update(userID, func(sess *service.Session) {
			sess.PromoName = name
			sess.Step = service.StepPromoValue
		})
		h.sendText(ctx, chat, "💰 Agora envie o <b>valor</b> (ex.: 19,90).")

	case service.StepPromoValue:
		value, err := service.ParsePromotionValue(text)
		if err != nil {
			h.sendText(ctx, chat, "❌ Valor inválido. Use um número positivo com até 2 casas decimais (ex.: 19,90).")
			return
		}
		h.sessions.Update(userID, func(sess *service.Session) {
			sess.PromoValue = value
			sess.Step = service.StepPromoLink
		})
		h.sendText(ctx, chat, "🔗 Por fim, envie o <b>link de acesso</b> entregue após o pagamento.")

	case service.StepPromoLink:
		link, err := service.ParsePromotionLink(text)
		if err != nil {
			h.sendText(ctx, chat, "❌ Link inválido. Envie uma URL completa começando com https://")
			return
		}
		sess := h.sessions.Get(userID)
		h.sessions.Reset(userID)

		h.sendText(ctx, chat, "📣 Lançando promoção...")
		promo, report, err := h.promo.Launch(ctx, sess.PromoName, sess.PromoValue, link)
		if err != nil {
			slog.Error("launch promotion", "error", err)
			h.sendText(ctx, chat, "❌ Não foi possível salvar a promoção.")
			return
		}

		h.sendText(ctx, chat, fmt.Sprintf(
			"✅ Promoção <b>%s</b> lançada por %s.\n\n"+
				"Entregues: %d\nFalhas: %d\nRemovidos (bloquearam o bot): %d",
			html.EscapeString(promo.Name), domain.FormatBRL(promo.Value),
			report.Delivered(), report.Failed(), len(report.Unreachable()),
		))

	case service.StepNone, service.StepWelcome, service.StepPixPhoto:
	}
}

func promotionErrorText(err error) string {
	switch {
	case errors.Is(err, domain.ErrPromotionNotFound):
		return "😕 Esta promoção não existe mais ou já expirou."
	default:
		return "❌ Ocorreu um erro. Tente novamente."
	}
}
