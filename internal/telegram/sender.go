package telegram

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"

	"github.com/set-night/vitrine/internal/config"
	"github.com/set-night/vitrine/internal/domain"
)

// MessageAPI is the part of *bot.Bot used to deliver notices.
type MessageAPI interface {
	SendMessage(ctx context.Context, params *bot.SendMessageParams) (*models.Message, error)
	SendPhoto(ctx context.Context, params *bot.SendPhotoParams) (*models.Message, error)
	SendVideo(ctx context.Context, params *bot.SendVideoParams) (*models.Message, error)
}

// Sender delivers domain notices as HTML Telegram messages.
type Sender struct {
	api MessageAPI
}

func NewSender(api MessageAPI) *Sender {
	return &Sender{api: api}
}

func (s *Sender) Send(ctx context.Context, chatID int64, n domain.Notice) error {
	if err := s.send(ctx, chatID, n); err != nil {
		return ClassifyError(err)
	}
	return nil
}

func (s *Sender) send(ctx context.Context, chatID int64, n domain.Notice) error {
	markup := Keyboard(n.Buttons)

	if n.Photo == nil && n.Media == nil {
		return s.sendText(ctx, chatID, n.Text, markup)
	}

	// captions are limited; long texts follow the media as a message
	caption, rest := n.Text, ""
	if utf8.RuneCountInString(caption) > config.MaxCaptionLen {
		caption, rest = "", n.Text
	}
	mediaMarkup := markup
	if rest != "" {
		mediaMarkup = nil
	}

	if err := s.sendMedia(ctx, chatID, n, caption, mediaMarkup); err != nil {
		return err
	}
	if rest != "" {
		return s.sendText(ctx, chatID, rest, markup)
	}
	return nil
}

func (s *Sender) sendText(ctx context.Context, chatID int64, text string, markup models.ReplyMarkup) error {
	parts := SplitMessage(text, config.MaxTelegramMessageLen)
	for i, part := range parts {
		params := &bot.SendMessageParams{
			ChatID:    chatID,
			Text:      part,
			ParseMode: models.ParseModeHTML,
		}
		// keyboard goes under the last part
		if i == len(parts)-1 {
			params.ReplyMarkup = markup
		}
		if _, err := s.api.SendMessage(ctx, params); err != nil {
			return fmt.Errorf("send message: %w", err)
		}
	}
	return nil
}

func (s *Sender) sendMedia(ctx context.Context, chatID int64, n domain.Notice, caption string, markup models.ReplyMarkup) error {
	if n.Photo != nil {
		_, err := s.api.SendPhoto(ctx, &bot.SendPhotoParams{
			ChatID:      chatID,
			Photo:       &models.InputFileUpload{Filename: "qrcode.png", Data: bytes.NewReader(n.Photo)},
			Caption:     caption,
			ParseMode:   models.ParseModeHTML,
			ReplyMarkup: markup,
		})
		if err != nil {
			return fmt.Errorf("send photo: %w", err)
		}
		return nil
	}

	switch n.Media.Type {
	case domain.MediaVideo:
		_, err := s.api.SendVideo(ctx, &bot.SendVideoParams{
			ChatID:      chatID,
			Video:       &models.InputFileString{Data: n.Media.FileID},
			Caption:     caption,
			ParseMode:   models.ParseModeHTML,
			ReplyMarkup: markup,
		})
		if err != nil {
			return fmt.Errorf("send video: %w", err)
		}
	default:
		_, err := s.api.SendPhoto(ctx, &bot.SendPhotoParams{
			ChatID:      chatID,
			Photo:       &models.InputFileString{Data: n.Media.FileID},
			Caption:     caption,
			ParseMode:   models.ParseModeHTML,
			ReplyMarkup: markup,
		})
		if err != nil {
			return fmt.Errorf("send photo: %w", err)
		}
	}
	return nil
}

// ClassifyError wraps errors meaning the chat can no longer be reached with
// domain.ErrRecipientUnreachable.
func ClassifyError(err error) error {
	if err == nil {
		return nil
	}
	if IsUnreachable(err) {
		return fmt.Errorf("%w: %w", domain.ErrRecipientUnreachable, err)
	}
	return err
}

// IsUnreachable reports whether Telegram refused delivery because the user
// blocked the bot, deactivated the account or the chat does not exist.
func IsUnreachable(err error) bool {
	if errors.Is(err, bot.ErrorForbidden) {
		return true
	}
	if errors.Is(err, bot.ErrorBadRequest) {
		msg := strings.ToLower(err.Error())
		return strings.Contains(msg, "chat not found") || strings.Contains(msg, "user is deactivated")
	}
	return false
}
