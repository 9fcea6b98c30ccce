package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/set-night/vitrine/internal/domain"
	"github.com/set-night/vitrine/internal/repository"
)

// Resolver settles pending payments through the same path the periodic
// reconciliation uses. *Reconciler implements it.
type Resolver interface {
	Resolve(ctx context.Context, entry domain.PendingPayment, outcome domain.ChargeOutcome) (bool, error)
}

// CheckoutService turns a product selection into a tracked PIX charge.
type CheckoutService struct {
	store    *repository.StateStore
	gateway  Gateway
	limiter  *RateLimiter
	resolver Resolver
	events   EventLogger

	mu       sync.Mutex
	inflight map[int64]struct{}
}

func NewCheckoutService(store *repository.StateStore, gateway Gateway, limiter *RateLimiter, resolver Resolver, events EventLogger) *CheckoutService {
	return &CheckoutService{
		store:    store,
		gateway:  gateway,
		limiter:  limiter,
		resolver: resolver,
		events:   orNop(events),
		inflight: make(map[int64]struct{}),
	}
}

type CheckoutResult struct {
	Payment domain.PendingPayment
	// Charge is nil when Existing is set.
	Charge   *domain.Charge
	Existing bool
}

// Checkout returns the payer's open charge if there is one. Otherwise it
// applies the rate limit, creates a charge on the gateway and starts tracking
// it.
func (s *CheckoutService) Checkout(ctx context.Context, product domain.Product, payer domain.Payer) (*CheckoutResult, error) {
	if !s.begin(payer.UserID) {
		return nil, domain.ErrPendingPaymentExists
	}
	defer s.end(payer.UserID)

	if existing, ok := s.store.PendingPaymentByUser(ctx, payer.UserID); ok {
		return &CheckoutResult{Payment: existing, Existing: true}, nil
	}

	if !s.limiter.Allow(payer.UserID) {
		return nil, domain.ErrRateLimited
	}

	charge, err := s.gateway.CreateCharge(ctx, product, payer)
	if err != nil {
		return nil, err
	}

	payment := domain.PendingPayment{
		ChargeID: charge.ChargeID,
		UserID:   payer.UserID,
		Product:  product,
	}
	state, err := s.store.AddPendingPayment(ctx, payment)
	if err != nil {
		if delErr := s.gateway.DeleteCharge(ctx, charge.ChargeID); delErr != nil {
			slog.Error("delete untracked charge", "error", delErr, "charge_id", charge.ChargeID)
		}
		return nil, fmt.Errorf("track charge: %w", err)
	}
	if stored, ok := state.PendingPayment(charge.ChargeID); ok {
		payment = stored
	}

	slog.Info("charge created", "charge_id", charge.ChargeID, "user_id", payer.UserID, "product", product.Code)
	s.events.LogChargeCreated(payer.UserID, product, charge.ChargeID)

	return &CheckoutResult{Payment: payment, Charge: charge}, nil
}

// Cancel deletes the payer's open charge on the gateway and resolves it as
// failed. A charge the gateway already forgot is resolved the same way.
func (s *CheckoutService) Cancel(ctx context.Context, userID int64) (domain.PendingPayment, error) {
	if !s.begin(userID) {
		return domain.PendingPayment{}, domain.ErrPendingPaymentExists
	}
	defer s.end(userID)

	entry, ok := s.store.PendingPaymentByUser(ctx, userID)
	if !ok {
		return domain.PendingPayment{}, domain.ErrNoPendingPayment
	}
	if err := s.gateway.DeleteCharge(ctx, entry.ChargeID); err != nil && !errors.Is(err, domain.ErrChargeNotFound) {
		return entry, err
	}

	removed, err := s.resolver.Resolve(ctx, entry, domain.OutcomeFailed)
	if err != nil {
		return entry, fmt.Errorf("resolve cancelled charge: %w", err)
	}
	if !removed {
		// settled by the reconciler in the meantime
		return entry, domain.ErrNoPendingPayment
	}
	return entry, nil
}

// InFlight reports whether a checkout or cancel for userID is running.
func (s *CheckoutService) InFlight(userID int64) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, busy := s.inflight[userID]
	return busy
}

func (s *CheckoutService) begin(userID int64) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, busy := s.inflight[userID]; busy {
		return false
	}
	s.inflight[userID] = struct{}{}
	return true
}

func (s *CheckoutService) end(userID int64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.inflight, userID)
}
