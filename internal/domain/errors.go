package domain

import "errors"

var (
	ErrGateway               = errors.New("payment gateway unavailable")
	ErrChargeNotFound        = errors.New("charge not found")
	ErrNoPendingPayment      = errors.New("no pending payment")
	ErrPendingPaymentExists  = errors.New("user already has an open charge")
	ErrRateLimited           = errors.New("charge creation rate limit reached")
	ErrProductNotFound       = errors.New("product not found")
	ErrPromotionNotFound     = errors.New("promotion not found")
	ErrInvalidPromotionName  = errors.New("invalid promotion name")
	ErrInvalidPromotionValue = errors.New("invalid promotion value")
	ErrInvalidPromotionLink  = errors.New("invalid promotion link")
	ErrBroadcastTooShort     = errors.New("broadcast text too short")
	ErrInsufficientPoints    = errors.New("insufficient referral points")
	ErrSelfReferral          = errors.New("user cannot refer themselves")
	ErrReferrerNotFound      = errors.New("referrer not found")
	ErrRecipientUnreachable  = errors.New("recipient unreachable")
	ErrNoDocument            = errors.New("state document not found")
)
