package service

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/set-night/vitrine/internal/clock"
	"github.com/set-night/vitrine/internal/domain"
	"github.com/set-night/vitrine/internal/repository"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	payerID = int64(1001)
	adminID = int64(9)
)

type reconcilerFixture struct {
	clock   *clock.MockClock
	store   *repository.StateStore
	gateway *fakeGateway
	sender  *fakeSender
	rec     *Reconciler
}

func newReconcilerFixture(t *testing.T) *reconcilerFixture {
	t.Helper()
	clk := clock.NewMockClock(testNow)
	store := newTestStore(t, clk)
	gw := newFakeGateway()
	sender := newFakeSender()
	rec := NewReconciler(store, gw, NewDispatcher(sender), nil, clk, []int64{adminID}, "https://access.example/vip")
	return &reconcilerFixture{clock: clk, store: store, gateway: gw, sender: sender, rec: rec}
}

func (f *reconcilerFixture) addCharge(t *testing.T, chargeID string, product domain.Product) {
	t.Helper()
	f.gateway.setStatus(chargeID, "PENDING")
	_, err := f.store.AddPendingPayment(context.Background(), domain.PendingPayment{ChargeID: chargeID, UserID: payerID, Product: product})
	require.NoError(t, err)
}

func (f *reconcilerFixture) tick() TickReport {
	f.clock.Add(5 * time.Second)
	return f.rec.Tick(context.Background())
}

func TestReconciler_PaidAfterSeveralPendingTicks(t *testing.T) {
	f := newReconcilerFixture(t)
	f.addCharge(t, "pay_1", testProduct())

	for i := 0; i < 3; i++ {
		report := f.tick()
		assert.Equal(t, 1, report.Checked)
		assert.Zero(t, report.Paid)
	}
	entry, ok := f.store.PendingPaymentByUser(context.Background(), payerID)
	require.True(t, ok)
	assert.Equal(t, 3, entry.CheckCount)

	f.gateway.setStatus("pay_1", "RECEIVED")
	report := f.tick()
	assert.Equal(t, 1, report.Paid)

	notices := f.sender.to(payerID)
	require.Len(t, notices, 1)
	assert.Contains(t, notices[0].Text, "Pagamento confirmado")
	assert.Contains(t, notices[0].Text, "R$ 10.00")
	assert.Contains(t, notices[0].Text, "https://access.example/vip")
	require.Len(t, f.sender.to(adminID), 1)
	assert.Contains(t, f.sender.to(adminID)[0].Text, "pay_1")

	assert.Empty(t, f.store.PendingPayments(context.Background()))

	f.tick()
	assert.Len(t, f.sender.to(payerID), 1)
}

func TestReconciler_ExpiresAfterMaxChecks(t *testing.T) {
	f := newReconcilerFixture(t)
	f.addCharge(t, "pay_1", testProduct())

	for i := 1; i < 20; i++ {
		report := f.tick()
		require.Zero(t, report.Expired, "tick %d", i)
	}
	assert.Zero(t, f.sender.count())

	report := f.tick()
	assert.Equal(t, 1, report.Expired)

	notices := f.sender.to(payerID)
	require.Len(t, notices, 1)
	assert.Contains(t, notices[0].Text, "expirou")
	require.Len(t, notices[0].Buttons, 1)
	assert.Equal(t, "comprar:assinatura", notices[0].Buttons[0][0].Data)

	f.tick()
	f.tick()
	assert.Equal(t, 1, f.sender.count())
	assert.Empty(t, f.store.PendingPayments(context.Background()))
}

func TestReconciler_ExpiresEvenWhenGatewayKeepsFailing(t *testing.T) {
	f := newReconcilerFixture(t)
	promo := domain.Promotion{ID: "abc", Name: "Promo", Value: testProduct().Price, Link: "https://promo.example"}
	f.addCharge(t, "pay_1", promo.Product())
	f.gateway.statusErr = errors.Join(domain.ErrGateway, errors.New("timeout"))

	for i := 0; i < 20; i++ {
		f.tick()
	}

	notices := f.sender.to(payerID)
	require.Len(t, notices, 1)
	assert.Equal(t, "promocao:abc", notices[0].Buttons[0][0].Data)
	assert.Empty(t, f.store.PendingPayments(context.Background()))
}

func TestReconciler_FailedChargeIsDroppedSilently(t *testing.T) {
	f := newReconcilerFixture(t)
	f.addCharge(t, "pay_1", testProduct())
	f.gateway.setStatus("pay_1", "REFUNDED")

	report := f.tick()
	assert.Equal(t, 1, report.Failed)
	assert.Zero(t, f.sender.count())
	assert.Empty(t, f.store.PendingPayments(context.Background()))
}

func TestReconciler_UnknownStatusStaysOpen(t *testing.T) {
	f := newReconcilerFixture(t)
	f.addCharge(t, "pay_1", testProduct())
	f.gateway.setStatus("pay_1", "SOMETHING_NEW")

	report := f.tick()
	assert.Equal(t, 1, report.Checked)
	assert.Zero(t, report.Paid+report.Failed+report.Expired)
	assert.Len(t, f.store.PendingPayments(context.Background()), 1)
}

func TestReconciler_DebouncesFreshCharges(t *testing.T) {
	f := newReconcilerFixture(t)
	f.addCharge(t, "pay_1", testProduct())

	f.clock.Add(2 * time.Second)
	report := f.rec.Tick(context.Background())
	assert.Equal(t, 1, report.Skipped)
	assert.Zero(t, f.gateway.queries)

	entry, ok := f.store.PendingPaymentByUser(context.Background(), payerID)
	require.True(t, ok)
	assert.Zero(t, entry.CheckCount)
}

func TestReconciler_CheckNowResolvesOnce(t *testing.T) {
	f := newReconcilerFixture(t)
	ctx := context.Background()
	f.addCharge(t, "pay_1", testProduct())

	_, outcome, err := f.rec.CheckNow(ctx, payerID)
	require.NoError(t, err)
	assert.Equal(t, domain.OutcomeOpen, outcome)

	entry, _ := f.store.PendingPaymentByUser(ctx, payerID)
	assert.Zero(t, entry.CheckCount)

	f.gateway.setStatus("pay_1", "CONFIRMED")
	_, outcome, err = f.rec.CheckNow(ctx, payerID)
	require.NoError(t, err)
	assert.Equal(t, domain.OutcomePaid, outcome)

	f.tick()
	_, _, err = f.rec.CheckNow(ctx, payerID)
	assert.ErrorIs(t, err, domain.ErrNoPendingPayment)

	paid := 0
	for _, n := range f.sender.to(payerID) {
		if strings.Contains(n.Text, "Pagamento confirmado") {
			paid++
		}
	}
	assert.Equal(t, 1, paid)
}

func TestReconciler_CheckNowReportsGatewayErrors(t *testing.T) {
	f := newReconcilerFixture(t)
	f.addCharge(t, "pay_1", testProduct())
	f.gateway.statusErr = domain.ErrGateway

	_, _, err := f.rec.CheckNow(context.Background(), payerID)
	assert.ErrorIs(t, err, domain.ErrGateway)
	assert.Len(t, f.store.PendingPayments(context.Background()), 1)
}

func TestReconciler_PaidNoticeSurvivesUnreachablePayer(t *testing.T) {
	f := newReconcilerFixture(t)
	f.addCharge(t, "pay_1", testProduct())
	f.sender.unreachable[payerID] = true
	f.gateway.setStatus("pay_1", "RECEIVED")

	report := f.tick()
	assert.Equal(t, 1, report.Paid)
	assert.Zero(t, report.Errors)

	require.Len(t, f.sender.to(adminID), 1)
	assert.Empty(t, f.sender.to(payerID))
	assert.Empty(t, f.store.PendingPayments(context.Background()))
}

func TestReconciler_ChargeUnknownToGatewayResolvesAsFailed(t *testing.T) {
	f := newReconcilerFixture(t)
	ctx := context.Background()
	_, err := f.store.AddPendingPayment(ctx, domain.PendingPayment{ChargeID: "pay_gone", UserID: payerID, Product: testProduct()})
	require.NoError(t, err)

	report := f.tick()
	assert.Equal(t, 1, report.Failed)
	assert.Zero(t, report.Errors)
	assert.Zero(t, f.sender.count())
	assert.Empty(t, f.store.PendingPayments(ctx))
}

func TestReconciler_CheckNowChargeUnknownToGateway(t *testing.T) {
	f := newReconcilerFixture(t)
	ctx := context.Background()
	_, err := f.store.AddPendingPayment(ctx, domain.PendingPayment{ChargeID: "pay_gone", UserID: payerID, Product: testProduct()})
	require.NoError(t, err)

	_, outcome, err := f.rec.CheckNow(ctx, payerID)
	require.NoError(t, err)
	assert.Equal(t, domain.OutcomeFailed, outcome)
	assert.Empty(t, f.store.PendingPayments(ctx))

	_, _, err = f.rec.CheckNow(ctx, payerID)
	assert.ErrorIs(t, err, domain.ErrNoPendingPayment)
}

func TestReconciler_Resolve(t *testing.T) {
	f := newReconcilerFixture(t)
	ctx := context.Background()
	f.addCharge(t, "pay_1", testProduct())
	entry, ok := f.store.PendingPaymentByUser(ctx, payerID)
	require.True(t, ok)

	_, err := f.rec.Resolve(ctx, entry, domain.OutcomeOpen)
	assert.Error(t, err)
	assert.Len(t, f.store.PendingPayments(ctx), 1)

	removed, err := f.rec.Resolve(ctx, entry, domain.OutcomeFailed)
	require.NoError(t, err)
	assert.True(t, removed)

	removed, err = f.rec.Resolve(ctx, entry, domain.OutcomeFailed)
	require.NoError(t, err)
	assert.False(t, removed)

	assert.Zero(t, f.sender.count())
	assert.Empty(t, f.store.PendingPayments(ctx))
}
