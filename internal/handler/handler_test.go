package handler

import (
	"fmt"
	"testing"

	"github.com/go-telegram/bot/models"
	"github.com/stretchr/testify/assert"

	"github.com/set-night/vitrine/internal/domain"
)

func TestWelcomeFromMessage(t *testing.T) {
	tests := []struct {
		name string
		msg  *models.Message
		want domain.WelcomeMessage
		ok   bool
	}{
		{
			name: "text",
			msg:  &models.Message{Text: "Olá!"},
			want: domain.WelcomeMessage{Type: domain.MediaText, Text: "Olá!"},
			ok:   true,
		},
		{
			name: "photo uses the largest size",
			msg: &models.Message{
				Caption: "legenda",
				Photo:   []models.PhotoSize{{FileID: "small"}, {FileID: "large"}},
			},
			want: domain.WelcomeMessage{Type: domain.MediaPhoto, Text: "legenda", FileID: "large"},
			ok:   true,
		},
		{
			name: "video",
			msg:  &models.Message{Caption: "veja", Video: &models.Video{FileID: "vid"}},
			want: domain.WelcomeMessage{Type: domain.MediaVideo, Text: "veja", FileID: "vid"},
			ok:   true,
		},
		{
			name: "blank text",
			msg:  &models.Message{Text: "   "},
		},
		{
			name: "sticker",
			msg:  &models.Message{Sticker: &models.Sticker{FileID: "st"}},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := welcomeFromMessage(tt.msg)
			assert.Equal(t, tt.ok, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestCheckoutErrorText(t *testing.T) {
	assert.Contains(t, checkoutErrorText(fmt.Errorf("checkout: %w", domain.ErrRateLimited)), "limite")
	assert.Contains(t, checkoutErrorText(domain.ErrPendingPaymentExists), "aguarde")
	assert.Contains(t, checkoutErrorText(fmt.Errorf("create charge: %w", domain.ErrGateway)), "Tente novamente em instantes")
	assert.Contains(t, checkoutErrorText(assert.AnError), "inesperado")
}

func TestChatID(t *testing.T) {
	msg := &models.Update{Message: &models.Message{Chat: models.Chat{ID: 10}}}
	assert.Equal(t, int64(10), chatID(msg))

	cb := &models.Update{CallbackQuery: &models.CallbackQuery{
		From:    models.User{ID: 5},
		Message: models.MaybeInaccessibleMessage{Message: &models.Message{Chat: models.Chat{ID: 11}}},
	}}
	assert.Equal(t, int64(11), chatID(cb))

	inaccessible := &models.Update{CallbackQuery: &models.CallbackQuery{From: models.User{ID: 5}}}
	assert.Equal(t, int64(5), chatID(inaccessible))

	assert.Equal(t, int64(0), chatID(&models.Update{}))
}
