package handler

import (
	"github.com/go-telegram/bot"
)

// Callback data understood by the bot.
const (
	cbList      = "listar"
	cbBuy       = "comprar:"
	cbConfirm   = "confirmar"
	cbCheck     = "verificar_pagamento"
	cbCancel    = "cancelar_cobranca"
	cbPromotion = "promocao:"
	cbReferral  = "indicar"
	cbRedeem    = "resgatar"
	cbStart     = "inicio"
)

// Register registers all command and callback handlers on the bot instance.
func (h *Handler) Register() {
	// Commands
	h.bot.RegisterHandler(bot.HandlerTypeMessageText, "/start", bot.MatchTypePrefix, h.handleStart)
	h.bot.RegisterHandler(bot.HandlerTypeMessageText, "/listar", bot.MatchTypePrefix, h.handleList)
	h.bot.RegisterHandler(bot.HandlerTypeMessageText, "/indicar", bot.MatchTypePrefix, h.handleReferral)
	h.bot.RegisterHandler(bot.HandlerTypeMessageText, "/resgatar", bot.MatchTypePrefix, h.handleRedeem)

	// Admin commands
	h.bot.RegisterHandler(bot.HandlerTypeMessageText, "/enviar", bot.MatchTypePrefix, h.handleBroadcast)
	h.bot.RegisterHandler(bot.HandlerTypeMessageText, "/promocao", bot.MatchTypePrefix, h.handlePromotionWizard)
	h.bot.RegisterHandler(bot.HandlerTypeMessageText, "/boasvindas", bot.MatchTypePrefix, h.handleSetWelcome)
	h.bot.RegisterHandler(bot.HandlerTypeMessageText, "/pixfoto", bot.MatchTypePrefix, h.handleSetPixPhoto)
	h.bot.RegisterHandler(bot.HandlerTypeMessageText, "/metricas", bot.MatchTypePrefix, h.handleMetrics)
	h.bot.RegisterHandler(bot.HandlerTypeMessageText, "/limpar", bot.MatchTypePrefix, h.handlePurge)
	h.bot.RegisterHandler(bot.HandlerTypeMessageText, "/cancelar", bot.MatchTypePrefix, h.handleCancelWizard)

	// Storefront callbacks
	h.bot.RegisterHandler(bot.HandlerTypeCallbackQueryData, cbStart, bot.MatchTypeExact, h.handleStart)
	h.bot.RegisterHandler(bot.HandlerTypeCallbackQueryData, cbList, bot.MatchTypeExact, h.handleList)
	h.bot.RegisterHandler(bot.HandlerTypeCallbackQueryData, cbBuy, bot.MatchTypePrefix, h.handleSelectProduct)
	h.bot.RegisterHandler(bot.HandlerTypeCallbackQueryData, cbConfirm, bot.MatchTypeExact, h.handleConfirm)
	h.bot.RegisterHandler(bot.HandlerTypeCallbackQueryData, cbPromotion, bot.MatchTypePrefix, h.handleBuyPromotion)

	// Payment callbacks
	h.bot.RegisterHandler(bot.HandlerTypeCallbackQueryData, cbCheck, bot.MatchTypeExact, h.handleCheckPayment)
	h.bot.RegisterHandler(bot.HandlerTypeCallbackQueryData, cbCancel, bot.MatchTypeExact, h.handleCancelCharge)

	// Referral callbacks
	h.bot.RegisterHandler(bot.HandlerTypeCallbackQueryData, cbReferral, bot.MatchTypeExact, h.handleReferral)
	h.bot.RegisterHandler(bot.HandlerTypeCallbackQueryData, cbRedeem, bot.MatchTypeExact, h.handleRedeem)

	// Everything else (wizard input, media for /boasvindas and /pixfoto) is
	// handled by HandleDefault, installed as the bot default handler in main.go
}
