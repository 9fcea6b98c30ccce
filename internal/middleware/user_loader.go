package middleware

import (
	"context"
	"log/slog"

	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"

	"github.com/set-night/vitrine/internal/domain"
	"github.com/set-night/vitrine/internal/repository"
)

type ctxKey string

const (
	PayerKey ctxKey = "payer"
	AdminKey ctxKey = "admin"
)

// GetPayer extracts the sender of the update from context.
func GetPayer(ctx context.Context) (domain.Payer, bool) {
	p, ok := ctx.Value(PayerKey).(domain.Payer)
	return p, ok
}

func IsAdmin(ctx context.Context) bool {
	admin, _ := ctx.Value(AdminKey).(bool)
	return admin
}

// UpdateSender returns the user an update came from, or nil.
func UpdateSender(update *models.Update) *models.User {
	switch {
	case update.Message != nil:
		return update.Message.From
	case update.CallbackQuery != nil:
		return &update.CallbackQuery.From
	default:
		return nil
	}
}

// Interaction returns middleware that records every user interaction in the
// registry and stores the payer and admin flag in context.
func Interaction(store *repository.StateStore, cfg interface{ IsAdmin(int64) bool }) bot.Middleware {
	return func(next bot.HandlerFunc) bot.HandlerFunc {
		return func(ctx context.Context, b *bot.Bot, update *models.Update) {
			from := UpdateSender(update)
			if from == nil || from.IsBot {
				next(ctx, b, update)
				return
			}

			if _, err := store.RecordInteraction(ctx, from.ID); err != nil {
				slog.Error("record interaction", "error", err, "user_id", from.ID)
			}

			ctx = context.WithValue(ctx, PayerKey, domain.Payer{
				UserID:    from.ID,
				FirstName: from.FirstName,
				LastName:  from.LastName,
				Username:  from.Username,
			})
			ctx = context.WithValue(ctx, AdminKey, cfg.IsAdmin(from.ID))

			next(ctx, b, update)
		}
	}
}
