package service

import (
	"context"
	"fmt"
	"html"
	"log/slog"
	"net/url"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
	"github.com/set-night/vitrine/internal/clock"
	"github.com/set-night/vitrine/internal/config"
	"github.com/set-night/vitrine/internal/domain"
	"github.com/set-night/vitrine/internal/repository"
	"github.com/shopspring/decimal"
)

const maxPromotionNameLen = 100

type PromoService struct {
	store     *repository.StateStore
	broadcast *BroadcastService
	events    EventLogger
	clock     clock.Clock
	ttl       time.Duration
}

func NewPromoService(store *repository.StateStore, broadcast *BroadcastService, events EventLogger, clk clock.Clock) *PromoService {
	if clk == nil {
		clk = clock.NewRealClock()
	}
	return &PromoService{
		store:     store,
		broadcast: broadcast,
		events:    orNop(events),
		clock:     clk,
		ttl:       config.PromotionTTL,
	}
}

func ParsePromotionName(input string) (string, error) {
	name := strings.TrimSpace(input)
	if name == "" || utf8.RuneCountInString(name) > maxPromotionNameLen {
		return "", domain.ErrInvalidPromotionName
	}
	return name, nil
}

// ParsePromotionValue accepts "19.90", "19,90" or "R$ 19,90".
func ParsePromotionValue(input string) (decimal.Decimal, error) {
	s := strings.TrimSpace(input)
	s = strings.TrimPrefix(s, "R$")
	s = strings.ReplaceAll(strings.TrimSpace(s), ",", ".")

	v, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, domain.ErrInvalidPromotionValue
	}
	if !v.IsPositive() || !v.Equal(v.Round(2)) {
		return decimal.Zero, domain.ErrInvalidPromotionValue
	}
	return v, nil
}

func ParsePromotionLink(input string) (string, error) {
	raw := strings.TrimSpace(input)
	u, err := url.Parse(raw)
	if err != nil || u.Host == "" || (u.Scheme != "http" && u.Scheme != "https") {
		return "", domain.ErrInvalidPromotionLink
	}
	return raw, nil
}

// Launch stores a new promotion and announces it to every registered user.
func (s *PromoService) Launch(ctx context.Context, name string, value decimal.Decimal, link string) (domain.Promotion, FanoutReport, error) {
	promo := domain.Promotion{
		ID:        uuid.NewString(),
		Name:      name,
		Value:     value,
		Link:      link,
		CreatedAt: s.clock.Now(),
	}
	if _, err := s.store.AddPromotion(ctx, promo); err != nil {
		return promo, FanoutReport{}, fmt.Errorf("add promotion: %w", err)
	}

	report, err := s.broadcast.Broadcast(ctx, PromotionNotice(promo, s.ttl))
	if err != nil {
		slog.Error("broadcast promotion", "error", err, "promotion_id", promo.ID)
	}
	s.events.LogPromotionLaunched(promo, report.Delivered(), report.Failed())
	return promo, report, nil
}

// Product resolves an active promotion to its purchasable snapshot.
func (s *PromoService) Product(ctx context.Context, id string) (domain.Product, error) {
	promo, ok := s.store.Promotion(ctx, id)
	if !ok || promo.Expired(s.clock.Now(), s.ttl) {
		return domain.Product{}, domain.ErrPromotionNotFound
	}
	return promo.Product(), nil
}

// Active returns the promotions that have not expired yet.
func (s *PromoService) Active(ctx context.Context) []domain.Promotion {
	now := s.clock.Now()
	var active []domain.Promotion
	for _, p := range s.store.Load(ctx).Promotions {
		if !p.Expired(now, s.ttl) {
			active = append(active, p)
		}
	}
	return active
}

// Sweep deletes expired promotions.
func (s *PromoService) Sweep(ctx context.Context) error {
	_, pruned, err := s.store.PruneExpiredPromotions(ctx, s.ttl)
	if err != nil {
		return fmt.Errorf("prune promotions: %w", err)
	}
	if pruned > 0 {
		slog.Info("expired promotions pruned", "count", pruned)
	}
	return nil
}

func PromotionNotice(p domain.Promotion, ttl time.Duration) domain.Notice {
	return domain.Notice{
		Text: fmt.Sprintf(
			"🔥 <b>PROMOÇÃO RELÂMPAGO</b>\n\n"+
				"<b>%s</b>\n"+
				"Por apenas <b>%s</b>\n\n"+
				"⏳ Válida por %d horas.",
			html.EscapeString(p.Name), domain.FormatBRL(p.Value), int(ttl.Hours()),
		),
		Buttons: [][]domain.Button{{domain.CallbackButton("🛒 Comprar agora", "promocao:"+p.ID)}},
	}
}
