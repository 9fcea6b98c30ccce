package repository

import (
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/set-night/vitrine/internal/config"
	"github.com/set-night/vitrine/internal/domain"
)

// rawState mirrors the persisted layout but accepts loosely typed metrics,
// since older documents stored user ids as strings.
type rawState struct {
	WelcomeMessage  *domain.WelcomeMessage            `json:"welcomeMessage"`
	Metrics         *rawMetrics                       `json:"metrics"`
	PendingPayments []domain.PendingPayment           `json:"pendingPayments"`
	Promotions      []domain.Promotion                `json:"promotions"`
	PixPhoto        *domain.MediaRef                  `json:"pixPhoto"`
	Referrals       map[string]*domain.ReferralRecord `json:"referrals"`
}

type rawMetrics struct {
	Users         []any `json:"users"`
	TotalMessages any   `json:"totalMessages"`
}

func DefaultWelcomeMessage() domain.WelcomeMessage {
	return domain.WelcomeMessage{
		Type: domain.MediaText,
		Text: config.DefaultWelcomeText,
	}
}

// DefaultState returns the state used when nothing is persisted yet.
func DefaultState() *domain.BotState {
	return Normalize(nil)
}

// Decode parses a persisted document and normalizes it.
func Decode(data []byte) (*domain.BotState, error) {
	var raw rawState
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("unmarshal state: %w", err)
	}

	state := &domain.BotState{
		PendingPayments: raw.PendingPayments,
		Promotions:      raw.Promotions,
		PixPhoto:        raw.PixPhoto,
		Referrals:       raw.Referrals,
	}
	if raw.WelcomeMessage != nil {
		state.WelcomeMessage = *raw.WelcomeMessage
	}
	if raw.Metrics != nil {
		state.Metrics.Users = coerceUserIDs(raw.Metrics.Users)
		state.Metrics.TotalMessages = coerceCount(raw.Metrics.TotalMessages)
	}
	return Normalize(state), nil
}

// Encode serializes an already normalized state.
func Encode(state *domain.BotState) ([]byte, error) {
	data, err := json.MarshalIndent(state, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("marshal state: %w", err)
	}
	return data, nil
}

// Normalize returns a copy of state in which every collection is present,
// user ids are unique, and referral records are well formed. Normalizing a
// normalized state yields an equal state.
func Normalize(state *domain.BotState) *domain.BotState {
	if state == nil {
		state = &domain.BotState{}
	}

	out := &domain.BotState{
		WelcomeMessage:  state.WelcomeMessage,
		Metrics:         domain.Metrics{Users: dedupe(state.Metrics.Users), TotalMessages: state.Metrics.TotalMessages},
		PendingPayments: make([]domain.PendingPayment, 0, len(state.PendingPayments)),
		Promotions:      make([]domain.Promotion, 0, len(state.Promotions)),
		Referrals:       make(map[string]*domain.ReferralRecord, len(state.Referrals)),
	}

	if out.WelcomeMessage.Type == "" {
		if strings.TrimSpace(out.WelcomeMessage.Text) == "" {
			out.WelcomeMessage = DefaultWelcomeMessage()
		} else {
			out.WelcomeMessage.Type = domain.MediaText
		}
	}

	if out.Metrics.TotalMessages <= 0 {
		out.Metrics.TotalMessages = int64(len(out.Metrics.Users))
	}

	seenCharges := make(map[string]struct{}, len(state.PendingPayments))
	for _, p := range state.PendingPayments {
		if p.ChargeID == "" {
			continue
		}
		if _, ok := seenCharges[p.ChargeID]; ok {
			continue
		}
		seenCharges[p.ChargeID] = struct{}{}
		if p.CheckCount < 0 {
			p.CheckCount = 0
		}
		out.PendingPayments = append(out.PendingPayments, p)
	}

	out.Promotions = append(out.Promotions, state.Promotions...)

	if state.PixPhoto != nil && state.PixPhoto.FileID != "" {
		photo := *state.PixPhoto
		out.PixPhoto = &photo
	}

	for key, rec := range state.Referrals {
		if rec == nil {
			continue
		}
		r := &domain.ReferralRecord{
			Points:        rec.Points,
			ReferredUsers: dedupe(rec.ReferredUsers),
			ReferralCode:  rec.ReferralCode,
		}
		if r.Points < 0 {
			r.Points = 0
		}
		if r.ReferralCode == "" {
			r.ReferralCode = key
		}
		out.Referrals[key] = r
	}

	return out
}

func dedupe(ids []int64) []int64 {
	out := make([]int64, 0, len(ids))
	seen := make(map[int64]struct{}, len(ids))
	for _, id := range ids {
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}

// coerceUserIDs keeps values that parse as integers and drops the rest.
func coerceUserIDs(values []any) []int64 {
	ids := make([]int64, 0, len(values))
	for _, v := range values {
		if id, ok := toInt64(v); ok {
			ids = append(ids, id)
		}
	}
	return dedupe(ids)
}

func coerceCount(v any) int64 {
	n, ok := toInt64(v)
	if !ok || n < 0 {
		return 0
	}
	return n
}

func toInt64(v any) (int64, bool) {
	switch x := v.(type) {
	case float64:
		if math.IsNaN(x) || math.IsInf(x, 0) || x != math.Trunc(x) {
			return 0, false
		}
		return int64(x), true
	case string:
		n, err := strconv.ParseInt(strings.TrimSpace(x), 10, 64)
		if err != nil {
			return 0, false
		}
		return n, true
	default:
		return 0, false
	}
}
