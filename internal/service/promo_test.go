package service

import (
	"context"
	"testing"
	"time"

	"github.com/set-night/vitrine/internal/clock"
	"github.com/set-night/vitrine/internal/domain"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParsePromotionValue(t *testing.T) {
	tests := []struct {
		in      string
		want    string
		wantErr bool
	}{
		{in: "19.90", want: "19.9"},
		{in: "19,90", want: "19.9"},
		{in: "R$ 5", want: "5"},
		{in: " 7,5 ", want: "7.5"},
		{in: "0", wantErr: true},
		{in: "-3", wantErr: true},
		{in: "1.999", wantErr: true},
		{in: "abc", wantErr: true},
		{in: "", wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParsePromotionValue(tt.in)
			if tt.wantErr {
				assert.ErrorIs(t, err, domain.ErrInvalidPromotionValue)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got.String())
		})
	}
}

func TestParsePromotionLink(t *testing.T) {
	for _, ok := range []string{"https://t.me/+abc", "http://example.com/x?y=1"} {
		_, err := ParsePromotionLink(ok)
		assert.NoError(t, err, ok)
	}
	for _, bad := range []string{"", "t.me/abc", "ftp://example.com", "https://", "javascript:alert(1)"} {
		_, err := ParsePromotionLink(bad)
		assert.ErrorIs(t, err, domain.ErrInvalidPromotionLink, bad)
	}
}

func TestParsePromotionName(t *testing.T) {
	name, err := ParsePromotionName("  Black Friday  ")
	require.NoError(t, err)
	assert.Equal(t, "Black Friday", name)

	_, err = ParsePromotionName("   ")
	assert.ErrorIs(t, err, domain.ErrInvalidPromotionName)
}

func TestPromoService_LaunchAndExpire(t *testing.T) {
	ctx := context.Background()
	clk := clock.NewMockClock(testNow)
	store := newTestStore(t, clk)
	sender := newFakeSender()
	sender.unreachable[3] = true
	for _, id := range []int64{1, 2, 3} {
		_, err := store.RecordInteraction(ctx, id)
		require.NoError(t, err)
	}
	svc := NewPromoService(store, NewBroadcastService(store, NewDispatcher(sender)), nil, clk)

	promo, report, err := svc.Launch(ctx, "Flash", decimal.RequireFromString("4.90"), "https://promo.example")
	require.NoError(t, err)
	assert.NotEmpty(t, promo.ID)
	assert.Equal(t, 2, report.Delivered())

	notices := sender.to(1)
	require.Len(t, notices, 1)
	assert.Equal(t, "promocao:"+promo.ID, notices[0].Buttons[0][0].Data)
	assert.Contains(t, notices[0].Text, "R$ 4.90")

	assert.False(t, store.Load(ctx).HasUser(3), "unreachable users are pruned")

	product, err := svc.Product(ctx, promo.ID)
	require.NoError(t, err)
	assert.Equal(t, "promo-"+promo.ID, product.Code)
	assert.Equal(t, "https://promo.example", product.Link)
	assert.Len(t, svc.Active(ctx), 1)

	clk.Add(6 * time.Hour)
	_, err = svc.Product(ctx, promo.ID)
	assert.ErrorIs(t, err, domain.ErrPromotionNotFound)

	require.NoError(t, svc.Sweep(ctx))
	_, ok := store.Promotion(ctx, promo.ID)
	assert.False(t, ok)
}

func TestPromoService_UnknownPromotion(t *testing.T) {
	clk := clock.NewMockClock(testNow)
	store := newTestStore(t, clk)
	svc := NewPromoService(store, NewBroadcastService(store, NewDispatcher(newFakeSender())), nil, clk)

	_, err := svc.Product(context.Background(), "nope")
	assert.ErrorIs(t, err, domain.ErrPromotionNotFound)
}
