package telegram

import (
	"github.com/go-telegram/bot/models"

	"github.com/set-night/vitrine/internal/domain"
)

// InlineButton creates a single inline keyboard button.
func InlineButton(text, callbackData string) models.InlineKeyboardButton {
	return models.InlineKeyboardButton{
		Text:         text,
		CallbackData: callbackData,
	}
}

// URLButton creates a URL inline keyboard button.
func URLButton(text, url string) models.InlineKeyboardButton {
	return models.InlineKeyboardButton{
		Text: text,
		URL:  url,
	}
}

// InlineKeyboard creates an inline keyboard from rows of buttons.
func InlineKeyboard(rows ...[]models.InlineKeyboardButton) *models.InlineKeyboardMarkup {
	return &models.InlineKeyboardMarkup{
		InlineKeyboard: rows,
	}
}

// Keyboard converts notice buttons to an inline keyboard. It returns nil for
// an empty layout so the field can be passed straight to send params.
func Keyboard(rows [][]domain.Button) models.ReplyMarkup {
	if len(rows) == 0 {
		return nil
	}
	out := make([][]models.InlineKeyboardButton, 0, len(rows))
	for _, row := range rows {
		buttons := make([]models.InlineKeyboardButton, 0, len(row))
		for _, b := range row {
			if b.URL != "" {
				buttons = append(buttons, URLButton(b.Text, b.URL))
			} else {
				buttons = append(buttons, InlineButton(b.Text, b.Data))
			}
		}
		out = append(out, buttons)
	}
	return InlineKeyboard(out...)
}
