package service

import (
	"context"
	"errors"
	"fmt"
	"html"
	"log/slog"
	"time"

	"github.com/set-night/vitrine/internal/clock"
	"github.com/set-night/vitrine/internal/config"
	"github.com/set-night/vitrine/internal/domain"
	"github.com/set-night/vitrine/internal/repository"
	"github.com/shopspring/decimal"
)

// Reconciler polls the gateway for every pending payment and resolves the
// ones that were paid, failed or ran out of checks.
type Reconciler struct {
	store      *repository.StateStore
	gateway    Gateway
	dispatcher *Dispatcher
	events     EventLogger
	clock      clock.Clock
	adminIDs   []int64
	accessURL  string
	maxChecks  int
	debounce   time.Duration
}

func NewReconciler(
	store *repository.StateStore,
	gateway Gateway,
	dispatcher *Dispatcher,
	events EventLogger,
	clk clock.Clock,
	adminIDs []int64,
	accessURL string,
) *Reconciler {
	if clk == nil {
		clk = clock.NewRealClock()
	}
	return &Reconciler{
		store:      store,
		gateway:    gateway,
		dispatcher: dispatcher,
		events:     orNop(events),
		clock:      clk,
		adminIDs:   adminIDs,
		accessURL:  accessURL,
		maxChecks:  config.MaxPaymentChecks,
		debounce:   config.PaymentDebounce,
	}
}

type TickReport struct {
	Checked int
	Skipped int
	Paid    int
	Failed  int
	Expired int
	Errors  int
}

// Tick runs one reconciliation pass over a snapshot of the pending payments.
// Entries are processed one at a time.
func (r *Reconciler) Tick(ctx context.Context) TickReport {
	var report TickReport

	for _, p := range r.store.PendingPayments(ctx) {
		if ctx.Err() != nil {
			break
		}
		if r.clock.Now().Sub(p.CreatedAt) < r.debounce {
			report.Skipped++
			continue
		}

		outcome, err := r.checkScheduled(ctx, p)
		if err != nil {
			report.Errors++
			slog.Error("reconcile payment", "error", err, "charge_id", p.ChargeID, "user_id", p.UserID)
			continue
		}

		report.Checked++
		switch outcome {
		case domain.OutcomePaid:
			report.Paid++
		case domain.OutcomeFailed:
			report.Failed++
		case domain.OutcomeExpired:
			report.Expired++
		case domain.OutcomeOpen:
		}
	}

	if report.Paid+report.Failed+report.Expired+report.Errors > 0 {
		slog.Info("reconcile tick",
			"checked", report.Checked,
			"paid", report.Paid,
			"failed", report.Failed,
			"expired", report.Expired,
			"errors", report.Errors,
		)
	}
	return report
}

func (r *Reconciler) checkScheduled(ctx context.Context, p domain.PendingPayment) (domain.ChargeOutcome, error) {
	entry, found, err := r.store.IncrementCheckCount(ctx, p.ChargeID)
	if err != nil {
		return domain.OutcomeOpen, fmt.Errorf("increment check count: %w", err)
	}
	if !found {
		// resolved by a manual check since the snapshot
		return domain.OutcomeOpen, nil
	}

	status, err := r.queryStatus(ctx, entry.ChargeID)
	if err != nil {
		slog.Warn("query charge status", "error", err, "charge_id", entry.ChargeID, "check", entry.CheckCount)
		status = nil
	}

	outcome := domain.ResolveOutcome(status, entry.CheckCount, r.maxChecks)
	if _, err := r.apply(ctx, entry, status, outcome); err != nil {
		return outcome, err
	}
	return outcome, nil
}

// queryStatus asks the gateway for a charge. A charge the gateway no longer
// knows is reported as deleted so it resolves as failed.
func (r *Reconciler) queryStatus(ctx context.Context, chargeID string) (*domain.ChargeStatus, error) {
	status, err := r.gateway.GetChargeStatus(ctx, chargeID)
	if errors.Is(err, domain.ErrChargeNotFound) {
		return &domain.ChargeStatus{ChargeID: chargeID, Status: domain.StatusDeleted}, nil
	}
	return status, err
}

// CheckNow queries the open charge of userID immediately. It does not count
// towards the expiry ceiling. A paid charge is resolved exactly as the
// periodic loop would resolve it.
func (r *Reconciler) CheckNow(ctx context.Context, userID int64) (domain.PendingPayment, domain.ChargeOutcome, error) {
	entry, ok := r.store.PendingPaymentByUser(ctx, userID)
	if !ok {
		return domain.PendingPayment{}, domain.OutcomeOpen, domain.ErrNoPendingPayment
	}

	status, err := r.queryStatus(ctx, entry.ChargeID)
	if err != nil {
		return entry, domain.OutcomeOpen, err
	}

	outcome := domain.ResolveOutcome(status, entry.CheckCount, r.maxChecks)
	if _, err := r.apply(ctx, entry, status, outcome); err != nil {
		return entry, outcome, err
	}
	return entry, outcome, nil
}

// Resolve settles entry with a terminal outcome decided outside the gateway
// check, such as a charge the payer cancelled. It reports whether this call
// removed the entry.
func (r *Reconciler) Resolve(ctx context.Context, entry domain.PendingPayment, outcome domain.ChargeOutcome) (bool, error) {
	if !outcome.Terminal() {
		return false, fmt.Errorf("resolve charge %s: outcome %s is not terminal", entry.ChargeID, outcome)
	}
	return r.apply(ctx, entry, nil, outcome)
}

// apply removes resolved entries and sends notices. The entry is removed
// before anything is sent and notices go out only when this call removed it,
// so a charge is announced at most once.
func (r *Reconciler) apply(ctx context.Context, entry domain.PendingPayment, status *domain.ChargeStatus, outcome domain.ChargeOutcome) (bool, error) {
	if !outcome.Terminal() {
		return false, nil
	}

	_, removed, err := r.store.RemovePendingPayment(ctx, entry.ChargeID)
	if err != nil {
		return false, fmt.Errorf("remove pending payment: %w", err)
	}
	if !removed {
		return false, nil
	}

	switch outcome {
	case domain.OutcomePaid:
		slog.Info("payment confirmed", "charge_id", entry.ChargeID, "user_id", entry.UserID, "product", entry.Product.Code)
		r.announcePaid(ctx, entry, status)
	case domain.OutcomeFailed:
		reason := "cancelled"
		if status != nil {
			reason = status.Status
		}
		slog.Info("payment failed", "charge_id", entry.ChargeID, "user_id", entry.UserID, "status", reason)
	case domain.OutcomeExpired:
		slog.Info("payment expired", "charge_id", entry.ChargeID, "user_id", entry.UserID, "checks", entry.CheckCount)
		if err := r.dispatcher.Notify(ctx, entry.UserID, ExpiredNotice(entry)); err != nil {
			slog.Error("send expiry notice", "error", err, "user_id", entry.UserID)
		}
	case domain.OutcomeOpen:
	}
	return true, nil
}

func (r *Reconciler) announcePaid(ctx context.Context, entry domain.PendingPayment, status *domain.ChargeStatus) {
	paidAt := r.clock.Now()
	value := entry.Product.Price
	if status != nil {
		if status.PaidAt != nil {
			paidAt = *status.PaidAt
		}
		if !status.Value.IsZero() {
			value = status.Value
		}
	}

	if err := r.dispatcher.Notify(ctx, entry.UserID, PaidNotice(entry, value, paidAt, r.accessLink(entry.Product))); err != nil {
		slog.Error("send payment confirmation", "error", err, "user_id", entry.UserID)
	}

	if len(r.adminIDs) > 0 {
		report := r.dispatcher.Fanout(ctx, r.adminIDs, SaleNotice(entry, value))
		if failed := report.Failed(); failed > 0 {
			slog.Warn("notify admins of sale", "failed", failed, "charge_id", entry.ChargeID)
		}
	}

	r.events.LogPaymentConfirmed(entry, status)
}

func (r *Reconciler) accessLink(p domain.Product) string {
	if p.Link != "" {
		return p.Link
	}
	return r.accessURL
}

func PaidNotice(entry domain.PendingPayment, value decimal.Decimal, paidAt time.Time, link string) domain.Notice {
	text := fmt.Sprintf(
		"✅ <b>Pagamento confirmado!</b>\n\n"+
			"Produto: <b>%s</b>\n"+
			"Valor: %s\n"+
			"Data: %s\n\n",
		html.EscapeString(entry.Product.Name), domain.FormatBRL(value), paidAt.Format("02/01/2006"),
	)

	n := domain.Notice{}
	if link != "" {
		text += "Seu acesso: " + html.EscapeString(link)
		n.Buttons = [][]domain.Button{{domain.LinkButton("🔓 Acessar agora", link)}}
	} else {
		text += "Em breve você receberá o seu acesso."
	}
	n.Text = text
	return n
}

func SaleNotice(entry domain.PendingPayment, value decimal.Decimal) domain.Notice {
	return domain.Notice{Text: fmt.Sprintf(
		"💰 <b>Nova venda</b>\n\n"+
			"Usuário: <code>%d</code>\n"+
			"Produto: %s\n"+
			"Valor: %s\n"+
			"Cobrança: <code>%s</code>",
		entry.UserID, html.EscapeString(entry.Product.Name), domain.FormatBRL(value), entry.ChargeID,
	)}
}

func ExpiredNotice(entry domain.PendingPayment) domain.Notice {
	return domain.Notice{
		Text: fmt.Sprintf(
			"⌛ O QR Code da sua compra de <b>%s</b> expirou sem confirmação de pagamento.\n\n"+
				"Toque abaixo para gerar um novo.",
			html.EscapeString(entry.Product.Name),
		),
		Buttons: [][]domain.Button{{domain.CallbackButton("🔄 Gerar novo QR Code", entry.Product.RegenerateAction())}},
	}
}
