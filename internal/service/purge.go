package service

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/set-night/vitrine/internal/config"
	"github.com/set-night/vitrine/internal/repository"
)

type PurgeReport struct {
	Scanned int
	Deleted int
	Failed  int
	Kept    int
}

// InFlightChecker reports users whose charge is being created right now.
// *CheckoutService implements it.
type InFlightChecker interface {
	InFlight(userID int64) bool
}

// PurgeService deletes gateway charges that are still PENDING but no longer
// tracked by the bot.
type PurgeService struct {
	store    *repository.StateStore
	gateway  Gateway
	inflight InFlightChecker
}

// NewPurgeService builds a PurgeService. inflight may be nil.
func NewPurgeService(store *repository.StateStore, gateway Gateway, inflight InFlightChecker) *PurgeService {
	return &PurgeService{store: store, gateway: gateway, inflight: inflight}
}

func (s *PurgeService) Purge(ctx context.Context) (PurgeReport, error) {
	tracked := make(map[string]bool)
	for _, p := range s.store.PendingPayments(ctx) {
		tracked[p.ChargeID] = true
	}

	var (
		stale  []string
		owners = make(map[string]int64)
		report PurgeReport
	)
	for offset := 0; ; offset += config.PurgePageSize {
		page, err := s.gateway.ListCharges(ctx, "PENDING", offset, config.PurgePageSize)
		if err != nil {
			return report, fmt.Errorf("list pending charges: %w", err)
		}
		for _, c := range page.Charges {
			report.Scanned++
			if tracked[c.ChargeID] {
				report.Kept++
				continue
			}
			stale = append(stale, c.ChargeID)
			if userID, ok := referenceUser(c.ExternalReference); ok {
				owners[c.ChargeID] = userID
			}
		}
		if !page.HasMore || len(page.Charges) == 0 {
			break
		}
	}

	// deleting while paging would shift offsets
	for _, id := range stale {
		if s.inUse(ctx, id, owners) {
			report.Kept++
			continue
		}
		if err := s.gateway.DeleteCharge(ctx, id); err != nil {
			report.Failed++
			slog.Warn("delete stale charge", "error", err, "charge_id", id)
			continue
		}
		report.Deleted++
	}

	slog.Info("gateway purge finished",
		"scanned", report.Scanned,
		"deleted", report.Deleted,
		"failed", report.Failed,
		"kept", report.Kept,
	)
	return report, nil
}

// inUse re-checks a charge right before deleting it: it may have been tracked
// since the scan, or its owner may be in the middle of a checkout.
func (s *PurgeService) inUse(ctx context.Context, chargeID string, owners map[string]int64) bool {
	if _, ok := s.store.Load(ctx).PendingPayment(chargeID); ok {
		return true
	}
	userID, ok := owners[chargeID]
	return ok && s.inflight != nil && s.inflight.InFlight(userID)
}
