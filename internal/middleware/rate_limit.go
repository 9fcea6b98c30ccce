package middleware

import (
	"context"
	"log/slog"

	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"

	"github.com/set-night/vitrine/internal/service"
)

// RateLimit returns middleware that drops updates from users who exceed the
// flood limit. Admins are never limited. It runs before Interaction so dropped
// updates never touch the store.
func RateLimit(limiter *service.RateLimiter, isAdmin func(userID int64) bool) bot.Middleware {
	return func(next bot.HandlerFunc) bot.HandlerFunc {
		return func(ctx context.Context, b *bot.Bot, update *models.Update) {
			from := UpdateSender(update)
			if from == nil || (isAdmin != nil && isAdmin(from.ID)) {
				next(ctx, b, update)
				return
			}

			if !limiter.Allow(from.ID) {
				slog.Debug("rate limited", "user_id", from.ID)
				if update.CallbackQuery != nil {
					b.AnswerCallbackQuery(ctx, &bot.AnswerCallbackQueryParams{
						CallbackQueryID: update.CallbackQuery.ID,
						Text:            "⏳ Muitas solicitações. Aguarde um pouco.",
					})
				}
				return
			}

			next(ctx, b, update)
		}
	}
}
