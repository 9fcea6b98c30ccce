package config

import "time"

const (
	BackendFile     = "file"
	BackendPostgres = "postgres"
	BackendRedis    = "redis"
)

const (
	// Pending-payment reconciliation
	ReconcileInterval = 5 * time.Second
	PaymentDebounce   = 5 * time.Second
	MaxPaymentChecks  = 20

	// Charge creation limits (per user)
	ChargeRateLimit  = 4
	ChargeRateWindow = 1 * time.Hour

	// Promotions
	PromotionTTL           = 6 * time.Hour
	PromotionSweepInterval = 10 * time.Minute

	// Referral program
	ReferralAward      = 1
	ReferralRedeemCost = 5

	// Payment gateway
	GatewayTimeout = 15 * time.Second
	ChargeDueDays  = 1

	// Update flood control (per user)
	UpdateRateLimit  = 30
	UpdateRateWindow = 1 * time.Minute

	// Conversation state
	SessionTTL = 30 * time.Minute

	// Notification fan-out
	NotifyConcurrency = 8
	NotifyTimeout     = 10 * time.Second

	// Admin broadcast
	MinBroadcastLen = 10

	// Gateway purge page size
	PurgePageSize = 100

	// Telegram limits
	MaxTelegramMessageLen = 4096
	MaxCaptionLen         = 1024
)

// DefaultWelcomeText is used until an admin configures a welcome message.
const DefaultWelcomeText = "👋 Seja bem-vindo!\n\n" +
	"Este bot foi pensado para vendas rápidas e seguras.\n" +
	"Clique no botão abaixo para ver nossos produtos e receber o QR Code de pagamento."
