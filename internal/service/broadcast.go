package service

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"unicode/utf8"

	"github.com/PuerkitoBio/goquery"

	"github.com/set-night/vitrine/internal/config"
	"github.com/set-night/vitrine/internal/domain"
	"github.com/set-night/vitrine/internal/repository"
)

// BroadcastService sends a notice to every registered user and forgets the
// users that blocked the bot.
type BroadcastService struct {
	store      *repository.StateStore
	dispatcher *Dispatcher
}

func NewBroadcastService(store *repository.StateStore, dispatcher *Dispatcher) *BroadcastService {
	return &BroadcastService{store: store, dispatcher: dispatcher}
}

// VisibleLength counts the characters a reader sees once HTML markup is
// stripped.
func VisibleLength(htmlText string) int {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(htmlText))
	if err != nil {
		return utf8.RuneCountInString(strings.TrimSpace(htmlText))
	}
	return utf8.RuneCountInString(strings.TrimSpace(doc.Text()))
}

// Validate rejects broadcasts whose visible text is too short.
func (s *BroadcastService) Validate(htmlText string) error {
	if VisibleLength(htmlText) < config.MinBroadcastLen {
		return fmt.Errorf("%w: at least %d visible characters required", domain.ErrBroadcastTooShort, config.MinBroadcastLen)
	}
	return nil
}

func (s *BroadcastService) Broadcast(ctx context.Context, notice domain.Notice) (FanoutReport, error) {
	users := s.store.Load(ctx).Metrics.Users
	report := s.dispatcher.Fanout(ctx, users, notice)

	for _, userID := range report.Unreachable() {
		if _, err := s.store.RemoveUser(ctx, userID); err != nil {
			return report, fmt.Errorf("remove unreachable user %d: %w", userID, err)
		}
	}

	slog.Info("broadcast sent",
		"recipients", len(users),
		"delivered", report.Delivered(),
		"failed", report.Failed(),
		"pruned", len(report.Unreachable()),
	)
	return report, nil
}
