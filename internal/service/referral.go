package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/set-night/vitrine/internal/config"
	"github.com/set-night/vitrine/internal/domain"
	"github.com/set-night/vitrine/internal/repository"
)

const referralPayloadPrefix = "ref_"

type ReferralService struct {
	store      *repository.StateStore
	dispatcher *Dispatcher
	accessURL  string
}

func NewReferralService(store *repository.StateStore, dispatcher *Dispatcher, accessURL string) *ReferralService {
	return &ReferralService{store: store, dispatcher: dispatcher, accessURL: accessURL}
}

// ReferralLink builds the deep link that registers a referral on /start.
func ReferralLink(botUsername string, userID int64) string {
	return fmt.Sprintf("https://t.me/%s?start=%s%s", botUsername, referralPayloadPrefix, domain.ReferralCode(userID))
}

// ParseReferralPayload extracts the referral code from a /start payload.
func ParseReferralPayload(payload string) (string, bool) {
	code, ok := strings.CutPrefix(strings.TrimSpace(payload), referralPayloadPrefix)
	if !ok || code == "" {
		return "", false
	}
	return code, true
}

// HandleStart registers the referral carried by a /start payload. It reports
// whether a new referral was recorded; repeated, self or unknown referrals are
// ignored.
func (s *ReferralService) HandleStart(ctx context.Context, refereeID int64, payload string) (bool, error) {
	if _, err := s.store.EnsureReferral(ctx, refereeID); err != nil {
		return false, fmt.Errorf("ensure referral: %w", err)
	}

	code, ok := ParseReferralPayload(payload)
	if !ok {
		return false, nil
	}

	referrerID, added, err := s.store.RegisterReferral(ctx, code, refereeID, config.ReferralAward)
	if errors.Is(err, domain.ErrSelfReferral) || errors.Is(err, domain.ErrReferrerNotFound) {
		slog.Info("referral ignored", "code", code, "user_id", refereeID, "reason", err)
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("register referral: %w", err)
	}
	if !added {
		return false, nil
	}

	rec := s.store.Referral(ctx, referrerID)
	notice := domain.Notice{Text: fmt.Sprintf(
		"🎉 Um novo usuário entrou pelo seu link! Você ganhou %d ponto.\nSaldo atual: <b>%d</b> pontos.",
		config.ReferralAward, rec.Points,
	)}
	if err := s.dispatcher.Notify(ctx, referrerID, notice); err != nil {
		slog.Warn("notify referrer", "error", err, "referrer_id", referrerID)
	}
	return true, nil
}

func (s *ReferralService) Summary(ctx context.Context, userID int64) (domain.ReferralRecord, error) {
	return s.store.EnsureReferral(ctx, userID)
}

// Redeem spends points for the access link.
func (s *ReferralService) Redeem(ctx context.Context, userID int64) (domain.ReferralRecord, string, error) {
	rec, err := s.store.RedeemPoints(ctx, userID, config.ReferralRedeemCost)
	if err != nil {
		return rec, "", err
	}
	slog.Info("referral points redeemed", "user_id", userID, "remaining", rec.Points)
	return rec, s.accessURL, nil
}
