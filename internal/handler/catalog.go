package handler

import (
	"context"
	"errors"
	"fmt"
	"html"
	"log/slog"
	"strings"

	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"

	"github.com/set-night/vitrine/internal/domain"
	"github.com/set-night/vitrine/internal/middleware"
)

func (h *Handler) handleList(ctx context.Context, b *bot.Bot, update *models.Update) {
	if !isPrivate(update) {
		return
	}
	answer(ctx, b, update, "")
	h.showCatalog(ctx, chatID(update))
}

func (h *Handler) showCatalog(ctx context.Context, chat int64) {
	var rows [][]domain.Button
	for _, p := range h.catalog.Products() {
		rows = append(rows, []domain.Button{
			domain.CallbackButton(fmt.Sprintf("🛒 %s - %s", p.Name, p.PriceLabel()), cbBuy+p.Code),
		})
	}
	rows = append(rows, []domain.Button{domain.CallbackButton("⬅️ Voltar", cbStart)})

	h.send(ctx, chat, domain.Notice{Text: h.catalog.Showcase(), Buttons: rows})
}

func (h *Handler) handleSelectProduct(ctx context.Context, b *bot.Bot, update *models.Update) {
	payer, ok := middleware.GetPayer(ctx)
	if !ok {
		return
	}

	code := strings.TrimPrefix(update.CallbackQuery.Data, cbBuy)
	product, err := h.catalog.Product(code)
	if err != nil {
		answer(ctx, b, update, "Produto indisponível.")
		return
	}
	answer(ctx, b, update, "")

	h.sessions.SelectProduct(payer.UserID, product)

	text := fmt.Sprintf(
		"🧾 <b>Confirme sua compra</b>\n\n"+
			"Produto: <b>%s</b>\n"+
			"Valor: <b>%s</b>\n\n"+
			"O pagamento é feito via PIX e o acesso é liberado automaticamente após a confirmação.",
		html.EscapeString(product.Name), product.PriceLabel(),
	)
	h.sendText(ctx, chatID(update), text,
		[]domain.Button{domain.CallbackButton("✅ Confirmar", cbConfirm)},
		[]domain.Button{domain.CallbackButton("⬅️ Voltar", cbList)},
	)
}

func (h *Handler) handleConfirm(ctx context.Context, b *bot.Bot, update *models.Update) {
	payer, ok := middleware.GetPayer(ctx)
	if !ok {
		return
	}

	product, ok := h.sessions.SelectedProduct(payer.UserID)
	if !ok {
		answer(ctx, b, update, "Selecione um produto primeiro.")
		h.showCatalog(ctx, chatID(update))
		return
	}
	answer(ctx, b, update, "Gerando seu PIX...")

	h.startCheckout(ctx, chatID(update), payer, product)
}

func (h *Handler) handleBuyPromotion(ctx context.Context, b *bot.Bot, update *models.Update) {
	payer, ok := middleware.GetPayer(ctx)
	if !ok {
		return
	}

	id := strings.TrimPrefix(update.CallbackQuery.Data, cbPromotion)
	product, err := h.promo.Product(ctx, id)
	if err != nil {
		answer(ctx, b, update, "")
		h.sendText(ctx, chatID(update), promotionErrorText(err),
			[]domain.Button{domain.CallbackButton("🛍 Ver produtos", cbList)},
		)
		return
	}
	answer(ctx, b, update, "Gerando seu PIX...")

	h.startCheckout(ctx, chatID(update), payer, product)
}

// startCheckout creates (or re-shows) the payer's PIX charge for product.
func (h *Handler) startCheckout(ctx context.Context, chat int64, payer domain.Payer, product domain.Product) {
	res, err := h.checkout.Checkout(ctx, product, payer)
	if err != nil {
		h.sendText(ctx, chat, checkoutErrorText(err))
		if !errors.Is(err, domain.ErrRateLimited) && !errors.Is(err, domain.ErrPendingPaymentExists) {
			slog.Error("checkout", "error", err, "user_id", payer.UserID, "product", product.Code)
			h.tgLogger.LogError(err, fmt.Sprintf("checkout user=%d product=%s", payer.UserID, product.Code))
		}
		return
	}

	h.sessions.Reset(payer.UserID)

	if res.Existing {
		h.sendText(ctx, chat, fmt.Sprintf(
			"⏳ Você já possui um pagamento pendente de <b>%s</b> (%s).\n\n"+
				"Pague o PIX enviado anteriormente e toque em <b>Verificar pagamento</b>.",
			html.EscapeString(res.Payment.Product.Name), res.Payment.Product.PriceLabel(),
		), paymentButtons()...)
		return
	}

	caption := fmt.Sprintf(
		"💳 <b>Pagamento via PIX</b>\n\n"+
			"Produto: <b>%s</b>\n"+
			"Valor: <b>%s</b>\n\n"+
			"Escaneie o QR Code ou use o código copia e cola enviado abaixo.",
		html.EscapeString(product.Name), domain.FormatBRL(res.Charge.Value),
	)
	photo := domain.Notice{Text: caption, Photo: res.Charge.QRImage}
	if pix := h.store.Load(ctx).PixPhoto; pix != nil {
		photo.Photo = nil
		photo.Media = pix
	}
	if photo.Photo != nil || photo.Media != nil {
		h.send(ctx, chat, photo)
	} else {
		h.sendText(ctx, chat, caption)
	}

	h.sendText(ctx, chat, fmt.Sprintf(
		"📋 <b>PIX copia e cola:</b>\n\n<code>%s</code>\n\n"+
			"Assim que o pagamento for confirmado você receberá o acesso aqui automaticamente.",
		html.EscapeString(res.Charge.PixPayload),
	), paymentButtons()...)
}

func paymentButtons() [][]domain.Button {
	return [][]domain.Button{
		{domain.CallbackButton("🔄 Verificar pagamento", cbCheck)},
		{domain.CallbackButton("❌ Cancelar cobrança", cbCancel)},
	}
}

func checkoutErrorText(err error) string {
	switch {
	case errors.Is(err, domain.ErrRateLimited):
		return "⚠️ Você atingiu o limite de 4 QR codes por hora. Tente novamente mais tarde."
	case errors.Is(err, domain.ErrPendingPaymentExists):
		return "⏳ Já estamos gerando sua cobrança, aguarde um instante."
	case errors.Is(err, domain.ErrGateway):
		return "❌ Não foi possível gerar o pagamento agora. Tente novamente em instantes."
	default:
		return "❌ Ocorreu um erro inesperado. Tente novamente."
	}
}
