package repository

import (
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/set-night/vitrine/internal/config"
	"github.com/set-night/vitrine/internal/domain"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecode_CoercesAndDedupesUsers(t *testing.T) {
	doc := `{
		"metrics": {"users": [10, "10", " 11 ", "abc", 12.5, null, 13], "totalMessages": "7"},
		"referrals": {"10": {"points": -3, "referredUsers": [11, 11, 13]}}
	}`

	state, err := Decode([]byte(doc))
	require.NoError(t, err)

	assert.Equal(t, []int64{10, 11, 13}, state.Metrics.Users)
	assert.Equal(t, int64(7), state.Metrics.TotalMessages)

	rec := state.Referrals["10"]
	require.NotNil(t, rec)
	assert.Equal(t, 0, rec.Points)
	assert.Equal(t, []int64{11, 13}, rec.ReferredUsers)
	assert.Equal(t, "10", rec.ReferralCode)
}

func TestDecode_BackfillsMissingCollections(t *testing.T) {
	state, err := Decode([]byte(`{}`))
	require.NoError(t, err)

	assert.NotNil(t, state.PendingPayments)
	assert.NotNil(t, state.Promotions)
	assert.NotNil(t, state.Referrals)
	assert.NotNil(t, state.Metrics.Users)
	assert.Nil(t, state.PixPhoto)
	assert.Equal(t, domain.MediaText, state.WelcomeMessage.Type)
	assert.Equal(t, config.DefaultWelcomeText, state.WelcomeMessage.Text)
}

func TestDecode_TotalMessagesFallsBackToUserCount(t *testing.T) {
	state, err := Decode([]byte(`{"metrics": {"users": [1, 2, 3]}}`))
	require.NoError(t, err)
	assert.Equal(t, int64(3), state.Metrics.TotalMessages)
}

func TestDecode_RejectsGarbage(t *testing.T) {
	_, err := Decode([]byte(`not json`))
	assert.Error(t, err)
}

func TestNormalize_DropsDuplicateCharges(t *testing.T) {
	state := Normalize(&domain.BotState{
		PendingPayments: []domain.PendingPayment{
			{ChargeID: "pay_1", UserID: 1, CheckCount: 2},
			{ChargeID: "pay_1", UserID: 1, CheckCount: 5},
			{ChargeID: "", UserID: 2},
			{ChargeID: "pay_2", UserID: 3, CheckCount: -1},
		},
	})

	require.Len(t, state.PendingPayments, 2)
	assert.Equal(t, 2, state.PendingPayments[0].CheckCount)
	assert.Equal(t, 0, state.PendingPayments[1].CheckCount)
}

func TestNormalize_IsFixedPointThroughEncoding(t *testing.T) {
	created := time.Date(2026, 10, 18, 12, 0, 0, 0, time.UTC)
	state := Normalize(&domain.BotState{
		WelcomeMessage: domain.WelcomeMessage{Type: domain.MediaPhoto, Text: "oi", FileID: "file-1"},
		Metrics:        domain.Metrics{Users: []int64{5, 6, 5}, TotalMessages: 40},
		PendingPayments: []domain.PendingPayment{{
			ChargeID:   "pay_1",
			UserID:     5,
			Product:    domain.Product{Code: "assinatura", Name: "VIP", Price: decimal.RequireFromString("10.00")},
			CreatedAt:  created,
			CheckCount: 3,
		}},
		Promotions: []domain.Promotion{{
			ID: "p1", Name: "Promo", Value: decimal.RequireFromString("7.5"), Link: "https://example.com", CreatedAt: created,
		}},
		PixPhoto:  &domain.MediaRef{FileID: "pix", Type: domain.MediaPhoto},
		Referrals: map[string]*domain.ReferralRecord{"5": {Points: 2, ReferredUsers: []int64{6}, ReferralCode: "5"}},
	})

	data, err := Encode(state)
	require.NoError(t, err)
	again, err := Decode(data)
	require.NoError(t, err)

	if diff := cmp.Diff(state, again); diff != "" {
		t.Errorf("state changed after encode/decode (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff(state, Normalize(again)); diff != "" {
		t.Errorf("normalize is not idempotent (-want +got):\n%s", diff)
	}
}
