package service

import "github.com/set-night/vitrine/internal/domain"

// EventLogger mirrors business events to an operator channel.
type EventLogger interface {
	LogError(err error, context string)
	LogChargeCreated(userID int64, product domain.Product, chargeID string)
	LogPaymentConfirmed(payment domain.PendingPayment, status *domain.ChargeStatus)
	LogPromotionLaunched(promo domain.Promotion, delivered, failed int)
}

type nopEvents struct{}

func (nopEvents) LogError(error, string)                                          {}
func (nopEvents) LogChargeCreated(int64, domain.Product, string)                  {}
func (nopEvents) LogPaymentConfirmed(domain.PendingPayment, *domain.ChargeStatus) {}
func (nopEvents) LogPromotionLaunched(domain.Promotion, int, int)                 {}

func orNop(events EventLogger) EventLogger {
	if events == nil {
		return nopEvents{}
	}
	return events
}
