package handler

import (
	"context"
	"log/slog"

	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"

	"github.com/set-night/vitrine/internal/config"
	"github.com/set-night/vitrine/internal/domain"
	"github.com/set-night/vitrine/internal/repository"
	"github.com/set-night/vitrine/internal/service"
	"github.com/set-night/vitrine/internal/telegram"
)

// Handler holds all dependencies needed by command and callback handlers.
type Handler struct {
	bot         *bot.Bot
	cfg         *config.Config
	store       *repository.StateStore
	catalog     *service.Catalog
	checkout    *service.CheckoutService
	reconciler  *service.Reconciler
	promo       *service.PromoService
	referral    *service.ReferralService
	broadcast   *service.BroadcastService
	purge       *service.PurgeService
	sessions    *service.SessionService
	users       *service.UserService
	sender      service.Sender
	tgLogger    *telegram.TelegramLogger
	botUsername string
}

// Deps contains all dependencies required to construct a Handler.
type Deps struct {
	Bot         *bot.Bot
	Cfg         *config.Config
	Store       *repository.StateStore
	Catalog     *service.Catalog
	Checkout    *service.CheckoutService
	Reconciler  *service.Reconciler
	Promo       *service.PromoService
	Referral    *service.ReferralService
	Broadcast   *service.BroadcastService
	Purge       *service.PurgeService
	Sessions    *service.SessionService
	Users       *service.UserService
	Sender      service.Sender
	TgLogger    *telegram.TelegramLogger
	BotUsername string
}

// New creates a new Handler from the provided dependencies.
func New(deps Deps) *Handler {
	return &Handler{
		bot:         deps.Bot,
		cfg:         deps.Cfg,
		store:       deps.Store,
		catalog:     deps.Catalog,
		checkout:    deps.Checkout,
		reconciler:  deps.Reconciler,
		promo:       deps.Promo,
		referral:    deps.Referral,
		broadcast:   deps.Broadcast,
		purge:       deps.Purge,
		sessions:    deps.Sessions,
		users:       deps.Users,
		sender:      deps.Sender,
		tgLogger:    deps.TgLogger,
		botUsername: deps.BotUsername,
	}
}

// send delivers a notice and logs failures. Handlers never retry.
func (h *Handler) send(ctx context.Context, chatID int64, n domain.Notice) {
	if err := h.sender.Send(ctx, chatID, n); err != nil {
		slog.Error("send reply", "error", err, "chat_id", chatID)
	}
}

func (h *Handler) sendText(ctx context.Context, chatID int64, text string, buttons ...[]domain.Button) {
	h.send(ctx, chatID, domain.Notice{Text: text, Buttons: buttons})
}

// answer acknowledges a callback query, optionally with a toast.
func answer(ctx context.Context, b *bot.Bot, update *models.Update, text string) {
	if update.CallbackQuery == nil {
		return
	}
	b.AnswerCallbackQuery(ctx, &bot.AnswerCallbackQueryParams{
		CallbackQueryID: update.CallbackQuery.ID,
		Text:            text,
	})
}

// chatID returns the chat an update belongs to.
func chatID(update *models.Update) int64 {
	switch {
	case update.Message != nil:
		return update.Message.Chat.ID
	case update.CallbackQuery != nil && update.CallbackQuery.Message.Message != nil:
		return update.CallbackQuery.Message.Message.Chat.ID
	case update.CallbackQuery != nil:
		return update.CallbackQuery.From.ID
	default:
		return 0
	}
}

func isPrivate(update *models.Update) bool {
	if update.Message != nil {
		return update.Message.Chat.Type == models.ChatTypePrivate
	}
	return update.CallbackQuery != nil
}
