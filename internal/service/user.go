package service

import (
	"context"

	"github.com/set-night/vitrine/internal/clock"
	"github.com/set-night/vitrine/internal/config"
	"github.com/set-night/vitrine/internal/repository"
)

// Stats is the admin overview of the bot.
type Stats struct {
	Users            int
	TotalMessages    int64
	OpenCharges      int
	ActivePromotions int
	Referrers        int
	ReferralPoints   int
}

// UserService reads the user registry and aggregate counters.
type UserService struct {
	store *repository.StateStore
	clock clock.Clock
}

func NewUserService(store *repository.StateStore, clk clock.Clock) *UserService {
	if clk == nil {
		clk = clock.NewRealClock()
	}
	return &UserService{store: store, clock: clk}
}

func (s *UserService) Stats(ctx context.Context) Stats {
	st := s.store.Load(ctx)
	now := s.clock.Now()

	stats := Stats{
		Users:         len(st.Metrics.Users),
		TotalMessages: st.Metrics.TotalMessages,
		OpenCharges:   len(st.PendingPayments),
	}
	for _, p := range st.Promotions {
		if !p.Expired(now, config.PromotionTTL) {
			stats.ActivePromotions++
		}
	}
	for _, rec := range st.Referrals {
		if len(rec.ReferredUsers) > 0 {
			stats.Referrers++
		}
		stats.ReferralPoints += rec.Points
	}
	return stats
}
