package service

import (
	"context"
	"fmt"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/set-night/vitrine/internal/clock"
	"github.com/set-night/vitrine/internal/domain"
	"github.com/set-night/vitrine/internal/repository"
	"github.com/shopspring/decimal"
)

var testNow = time.Date(2026, 10, 18, 12, 0, 0, 0, time.UTC)

type fakeGateway struct {
	mu        sync.Mutex
	statuses  map[string]string
	statusErr error
	createErr error
	created   []domain.Product
	deleted   []string
	deleteErr map[string]error
	pending   []domain.ChargeStatus
	onList    func()
	queries   int
	nextID    int
}

func newFakeGateway() *fakeGateway {
	return &fakeGateway{statuses: make(map[string]string), deleteErr: make(map[string]error)}
}

func (g *fakeGateway) CreateCharge(_ context.Context, product domain.Product, _ domain.Payer) (*domain.Charge, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.createErr != nil {
		return nil, g.createErr
	}
	g.nextID++
	id := fmt.Sprintf("pay_%d", g.nextID)
	g.statuses[id] = "PENDING"
	g.created = append(g.created, product)
	return &domain.Charge{ChargeID: id, PixPayload: "00020126pix", QRImage: []byte{0x89, 'P', 'N', 'G'}, Value: product.Price}, nil
}

func (g *fakeGateway) GetChargeStatus(_ context.Context, chargeID string) (*domain.ChargeStatus, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.queries++
	if g.statusErr != nil {
		return nil, g.statusErr
	}
	st, ok := g.statuses[chargeID]
	if !ok {
		return nil, fmt.Errorf("%w: %w", domain.ErrGateway, domain.ErrChargeNotFound)
	}
	return &domain.ChargeStatus{ChargeID: chargeID, Status: st, Value: decimal.RequireFromString("10.00")}, nil
}

func (g *fakeGateway) DeleteCharge(_ context.Context, chargeID string) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	if err := g.deleteErr[chargeID]; err != nil {
		return err
	}
	g.deleted = append(g.deleted, chargeID)
	return nil
}

func (g *fakeGateway) ListCharges(_ context.Context, _ string, offset, limit int) (*ChargePage, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if offset >= len(g.pending) {
		return &ChargePage{}, nil
	}
	end := min(offset+limit, len(g.pending))
	if g.onList != nil {
		g.onList()
	}
	return &ChargePage{Charges: g.pending[offset:end], HasMore: end < len(g.pending)}, nil
}

func (g *fakeGateway) setStatus(chargeID, status string) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.statuses[chargeID] = status
}

type sentNotice struct {
	chatID int64
	notice domain.Notice
}

type fakeSender struct {
	mu          sync.Mutex
	sent        []sentNotice
	unreachable map[int64]bool
}

func newFakeSender() *fakeSender {
	return &fakeSender{unreachable: make(map[int64]bool)}
}

func (s *fakeSender) Send(_ context.Context, chatID int64, notice domain.Notice) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.unreachable[chatID] {
		return fmt.Errorf("send message: %w", domain.ErrRecipientUnreachable)
	}
	s.sent = append(s.sent, sentNotice{chatID: chatID, notice: notice})
	return nil
}

func (s *fakeSender) to(chatID int64) []domain.Notice {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []domain.Notice
	for _, n := range s.sent {
		if n.chatID == chatID {
			out = append(out, n.notice)
		}
	}
	return out
}

func (s *fakeSender) count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.sent)
}

func newTestStore(t *testing.T, clk clock.Clock) *repository.StateStore {
	t.Helper()
	return repository.NewStateStore(repository.NewFileBackend(filepath.Join(t.TempDir(), "state.json")), clk)
}

func testProduct() domain.Product {
	return domain.Product{Code: "assinatura", Name: "VIP", Price: decimal.RequireFromString("10.00")}
}
