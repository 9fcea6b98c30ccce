package middleware

import (
	"context"
	"log/slog"
	"time"

	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"
)

// Logging returns middleware that logs update processing time.
func Logging() bot.Middleware {
	return func(next bot.HandlerFunc) bot.HandlerFunc {
		return func(ctx context.Context, b *bot.Bot, update *models.Update) {
			start := time.Now()

			updateType := "unknown"
			var chatID int64
			var userID int64
			var data string

			if update.Message != nil {
				updateType = "message"
				chatID = update.Message.Chat.ID
				if update.Message.From != nil {
					userID = update.Message.From.ID
				}
			} else if update.CallbackQuery != nil {
				updateType = "callback_query"
				if update.CallbackQuery.Message.Message != nil {
					chatID = update.CallbackQuery.Message.Message.Chat.ID
				}
				userID = update.CallbackQuery.From.ID
				data = update.CallbackQuery.Data
			}

			next(ctx, b, update)

			slog.Debug("update processed",
				"type", updateType,
				"chat_id", chatID,
				"user_id", userID,
				"data", data,
				"duration", time.Since(start),
			)
		}
	}
}
