package repository

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"sync"
	"time"

	"github.com/set-night/vitrine/internal/clock"
	"github.com/set-night/vitrine/internal/domain"
)

// StateStore owns the bot state document. Every mutation loads the whole
// document, changes it, and writes it back while holding mu, so concurrent
// handlers and the reconciler cannot overwrite each other's updates.
type StateStore struct {
	backend Backend
	clock   clock.Clock
	mu      sync.Mutex
}

func NewStateStore(backend Backend, clk clock.Clock) *StateStore {
	if clk == nil {
		clk = clock.NewRealClock()
	}
	return &StateStore{backend: backend, clock: clk}
}

// Load returns the persisted state, or the default state when the document is
// missing or unreadable. It never fails.
func (s *StateStore) Load(ctx context.Context) *domain.BotState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.load(ctx)
}

func (s *StateStore) load(ctx context.Context) *domain.BotState {
	state, err := s.read(ctx)
	if err != nil {
		slog.Error("read state document, using defaults", "error", err)
		return DefaultState()
	}
	return state
}

// read falls back to defaults for a missing or corrupt document but reports
// backend failures, so a mutation never overwrites state it could not read.
func (s *StateStore) read(ctx context.Context) (*domain.BotState, error) {
	data, err := s.backend.Read(ctx)
	if err != nil {
		if errors.Is(err, domain.ErrNoDocument) {
			slog.Info("state document not found, using defaults")
			return DefaultState(), nil
		}
		return nil, err
	}

	state, err := Decode(data)
	if err != nil {
		slog.Error("parse state document, using defaults", "error", err)
		return DefaultState(), nil
	}
	return state, nil
}

// Save normalizes state, overwrites the document, and returns the normalized copy.
func (s *StateStore) Save(ctx context.Context, state *domain.BotState) (*domain.BotState, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.save(ctx, state)
}

func (s *StateStore) save(ctx context.Context, state *domain.BotState) (*domain.BotState, error) {
	normalized := Normalize(state)
	data, err := Encode(normalized)
	if err != nil {
		return nil, err
	}
	if err := s.backend.Write(ctx, data); err != nil {
		return nil, fmt.Errorf("write state: %w", err)
	}
	return normalized, nil
}

// Update applies fn to a freshly loaded state and persists the result. When fn
// returns an error nothing is written and the loaded state is returned with it.
// Callers must use the returned state; earlier copies are stale.
func (s *StateStore) Update(ctx context.Context, fn func(state *domain.BotState) error) (*domain.BotState, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	state, err := s.read(ctx)
	if err != nil {
		return nil, fmt.Errorf("load state: %w", err)
	}
	if err := fn(state); err != nil {
		return state, err
	}
	return s.save(ctx, state)
}

// Users and metrics

func (s *StateStore) RecordInteraction(ctx context.Context, userID int64) (*domain.BotState, error) {
	return s.Update(ctx, func(st *domain.BotState) error {
		if !st.HasUser(userID) {
			st.Metrics.Users = append(st.Metrics.Users, userID)
		}
		st.Metrics.TotalMessages++
		return nil
	})
}

// RemoveUser drops a user from the registry, typically after the bot was blocked.
func (s *StateStore) RemoveUser(ctx context.Context, userID int64) (*domain.BotState, error) {
	return s.Update(ctx, func(st *domain.BotState) error {
		users := st.Metrics.Users[:0]
		for _, id := range st.Metrics.Users {
			if id != userID {
				users = append(users, id)
			}
		}
		st.Metrics.Users = users
		return nil
	})
}

func (s *StateStore) SaveWelcomeMessage(ctx context.Context, msg domain.WelcomeMessage) (*domain.BotState, error) {
	return s.Update(ctx, func(st *domain.BotState) error {
		st.WelcomeMessage = msg
		return nil
	})
}

func (s *StateStore) SavePixPhoto(ctx context.Context, photo *domain.MediaRef) (*domain.BotState, error) {
	return s.Update(ctx, func(st *domain.BotState) error {
		st.PixPhoto = photo
		return nil
	})
}

// Pending payments

func (s *StateStore) AddPendingPayment(ctx context.Context, p domain.PendingPayment) (*domain.BotState, error) {
	if p.CreatedAt.IsZero() {
		p.CreatedAt = s.clock.Now()
	}
	p.CheckCount = 0
	return s.Update(ctx, func(st *domain.BotState) error {
		if _, ok := st.PendingPayment(p.ChargeID); ok {
			return nil
		}
		st.PendingPayments = append(st.PendingPayments, p)
		return nil
	})
}

// RemovePendingPayment deletes the entry for chargeID. removed reports whether
// an entry existed, which lets exactly one caller act on a terminal transition.
func (s *StateStore) RemovePendingPayment(ctx context.Context, chargeID string) (state *domain.BotState, removed bool, err error) {
	state, err = s.Update(ctx, func(st *domain.BotState) error {
		kept := make([]domain.PendingPayment, 0, len(st.PendingPayments))
		for _, p := range st.PendingPayments {
			if p.ChargeID == chargeID {
				removed = true
				continue
			}
			kept = append(kept, p)
		}
		st.PendingPayments = kept
		return nil
	})
	if err != nil {
		return state, false, err
	}
	return state, removed, nil
}

// IncrementCheckCount durably bumps the check counter and returns the updated
// entry. found is false when the entry no longer exists.
func (s *StateStore) IncrementCheckCount(ctx context.Context, chargeID string) (entry domain.PendingPayment, found bool, err error) {
	now := s.clock.Now()
	_, err = s.Update(ctx, func(st *domain.BotState) error {
		for i := range st.PendingPayments {
			if st.PendingPayments[i].ChargeID == chargeID {
				st.PendingPayments[i].CheckCount++
				st.PendingPayments[i].LastCheckedAt = now
				entry = st.PendingPayments[i]
				found = true
				return nil
			}
		}
		return nil
	})
	if err != nil {
		return domain.PendingPayment{}, false, err
	}
	return entry, found, nil
}

// PendingPayments returns a snapshot of the open charges.
func (s *StateStore) PendingPayments(ctx context.Context) []domain.PendingPayment {
	return s.Load(ctx).PendingPayments
}

func (s *StateStore) PendingPaymentByUser(ctx context.Context, userID int64) (domain.PendingPayment, bool) {
	return s.Load(ctx).PendingPaymentByUser(userID)
}

// Promotions

func (s *StateStore) AddPromotion(ctx context.Context, promo domain.Promotion) (*domain.BotState, error) {
	if promo.CreatedAt.IsZero() {
		promo.CreatedAt = s.clock.Now()
	}
	return s.Update(ctx, func(st *domain.BotState) error {
		st.Promotions = append(st.Promotions, promo)
		return nil
	})
}

// PruneExpiredPromotions removes promotions older than ttl and reports how many were dropped.
func (s *StateStore) PruneExpiredPromotions(ctx context.Context, ttl time.Duration) (state *domain.BotState, pruned int, err error) {
	now := s.clock.Now()
	state, err = s.Update(ctx, func(st *domain.BotState) error {
		kept := make([]domain.Promotion, 0, len(st.Promotions))
		for _, p := range st.Promotions {
			if p.Expired(now, ttl) {
				pruned++
				continue
			}
			kept = append(kept, p)
		}
		st.Promotions = kept
		return nil
	})
	if err != nil {
		return state, 0, err
	}
	return state, pruned, nil
}

func (s *StateStore) Promotion(ctx context.Context, id string) (domain.Promotion, bool) {
	return s.Load(ctx).Promotion(id)
}

// Referrals

func (s *StateStore) Referral(ctx context.Context, userID int64) domain.ReferralRecord {
	st := s.Load(ctx)
	if rec, ok := st.Referrals[domain.ReferralCode(userID)]; ok {
		return *rec
	}
	return *domain.NewReferralRecord(userID)
}

func (s *StateStore) EnsureReferral(ctx context.Context, userID int64) (domain.ReferralRecord, error) {
	var rec domain.ReferralRecord
	_, err := s.Update(ctx, func(st *domain.BotState) error {
		rec = *ensureReferral(st, userID)
		return nil
	})
	return rec, err
}

// RegisterReferral links refereeID to the owner of code and credits award
// points the first time that referee is seen. added is false for repeats.
func (s *StateStore) RegisterReferral(ctx context.Context, code string, refereeID int64, award int) (referrerID int64, added bool, err error) {
	_, err = s.Update(ctx, func(st *domain.BotState) error {
		id, rec := findReferrer(st, code)
		if rec == nil {
			return domain.ErrReferrerNotFound
		}
		if id == refereeID {
			return domain.ErrSelfReferral
		}
		referrerID = id
		if rec.HasReferred(refereeID) {
			return errNoChange
		}
		rec.ReferredUsers = append(rec.ReferredUsers, refereeID)
		rec.Points += award
		added = true
		return nil
	})
	if errors.Is(err, errNoChange) {
		return referrerID, false, nil
	}
	if err != nil {
		return 0, false, err
	}
	return referrerID, added, nil
}

func (s *StateStore) AddReferralPoints(ctx context.Context, userID int64, points int) (domain.ReferralRecord, error) {
	var rec domain.ReferralRecord
	_, err := s.Update(ctx, func(st *domain.BotState) error {
		r := ensureReferral(st, userID)
		r.Points += points
		rec = *r
		return nil
	})
	return rec, err
}

// RedeemPoints deducts points atomically. It fails with
// domain.ErrInsufficientPoints without touching the document.
func (s *StateStore) RedeemPoints(ctx context.Context, userID int64, points int) (domain.ReferralRecord, error) {
	var rec domain.ReferralRecord
	_, err := s.Update(ctx, func(st *domain.BotState) error {
		r, ok := st.Referrals[domain.ReferralCode(userID)]
		if !ok || points <= 0 || r.Points < points {
			return domain.ErrInsufficientPoints
		}
		r.Points -= points
		rec = *r
		return nil
	})
	if err != nil {
		return domain.ReferralRecord{}, err
	}
	return rec, nil
}

var errNoChange = errors.New("no change")

func ensureReferral(st *domain.BotState, userID int64) *domain.ReferralRecord {
	key := domain.ReferralCode(userID)
	rec, ok := st.Referrals[key]
	if !ok {
		rec = domain.NewReferralRecord(userID)
		st.Referrals[key] = rec
	}
	return rec
}

// findReferrer resolves a referral code. Codes are derived from user ids, so a
// registered user without a record yet still resolves and gets one.
func findReferrer(st *domain.BotState, code string) (int64, *domain.ReferralRecord) {
	for key, rec := range st.Referrals {
		if rec.ReferralCode == code {
			id, err := strconv.ParseInt(key, 10, 64)
			if err != nil {
				return 0, nil
			}
			return id, rec
		}
	}
	id, err := strconv.ParseInt(code, 10, 64)
	if err != nil || !st.HasUser(id) {
		return 0, nil
	}
	return id, ensureReferral(st, id)
}
