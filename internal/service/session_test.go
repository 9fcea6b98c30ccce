package service

import (
	"testing"
	"time"

	"github.com/set-night/vitrine/internal/clock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSessionService_SelectionExpires(t *testing.T) {
	clk := clock.NewMockClock(testNow)
	s := NewSessionService(clk)

	s.SelectProduct(1, testProduct())
	p, ok := s.SelectedProduct(1)
	require.True(t, ok)
	assert.Equal(t, "assinatura", p.Code)

	_, ok = s.SelectedProduct(2)
	assert.False(t, ok)

	clk.Add(31 * time.Minute)
	_, ok = s.SelectedProduct(1)
	assert.False(t, ok)
}

func TestSessionService_WizardSteps(t *testing.T) {
	s := NewSessionService(clock.NewMockClock(testNow))

	s.SetStep(1, StepPromoName)
	s.Update(1, func(sess *Session) {
		sess.PromoName = "Flash"
		sess.Step = StepPromoValue
	})
	assert.Equal(t, StepPromoValue, s.Get(1).Step)
	assert.Equal(t, "Flash", s.Get(1).PromoName)

	s.SetStep(1, StepPromoName)
	assert.Empty(t, s.Get(1).PromoName)

	s.Reset(1)
	assert.Equal(t, StepNone, s.Get(1).Step)
}
