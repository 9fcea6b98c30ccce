package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// PendingPayment is an open PIX charge awaiting reconciliation.
type PendingPayment struct {
	ChargeID      string    `json:"chargeId"`
	UserID        int64     `json:"userId"`
	Product       Product   `json:"product"`
	CreatedAt     time.Time `json:"createdAt"`
	LastCheckedAt time.Time `json:"lastCheckedAt,omitzero"`
	CheckCount    int       `json:"checkCount"`
}

// Payer identifies the customer a charge is created for.
type Payer struct {
	UserID    int64
	FirstName string
	LastName  string
	Username  string
}

// Charge is the result of creating a PIX charge on the gateway.
type Charge struct {
	ChargeID   string
	PixPayload string
	QRImage    []byte
	Value      decimal.Decimal
	DueDate    string
}

// ChargeStatus is the gateway view of a charge.
type ChargeStatus struct {
	ChargeID          string
	Status            string
	Value             decimal.Decimal
	PaidAt            *time.Time
	ExternalReference string
}

// StatusDeleted is reported for charges the gateway no longer knows.
const StatusDeleted = "DELETED"

func (s ChargeStatus) Class() ChargeStatusClass {
	return ClassifyStatus(s.Status)
}

type ChargeStatusClass int

const (
	StatusClassPending ChargeStatusClass = iota
	StatusClassPaid
	StatusClassFailed
)

// ClassifyStatus maps an Asaas payment status to its class. Unknown values are
// treated as pending so the expiry ceiling still bounds them.
func ClassifyStatus(status string) ChargeStatusClass {
	switch status {
	case "RECEIVED", "CONFIRMED", "RECEIVED_IN_CASH":
		return StatusClassPaid
	case "OVERDUE", "REFUNDED", "REFUND_REQUESTED", "REFUND_IN_PROGRESS",
		"CHARGEBACK_REQUESTED", "CHARGEBACK_DISPUTE", "AWAITING_CHARGEBACK_REVERSAL",
		"DUNNING_REQUESTED", "DUNNING_RECEIVED", StatusDeleted:
		return StatusClassFailed
	default:
		return StatusClassPending
	}
}

// ChargeOutcome is the state of a pending payment after one check.
type ChargeOutcome int

const (
	OutcomeOpen ChargeOutcome = iota
	OutcomePaid
	OutcomeFailed
	OutcomeExpired
)

func (o ChargeOutcome) String() string {
	switch o {
	case OutcomeOpen:
		return "open"
	case OutcomePaid:
		return "paid"
	case OutcomeFailed:
		return "failed"
	case OutcomeExpired:
		return "expired"
	default:
		return "unknown"
	}
}

func (o ChargeOutcome) Terminal() bool {
	return o != OutcomeOpen
}

// ResolveOutcome decides the next state of a pending payment. status is nil
// when the gateway query failed. checkCount is the already persisted count.
func ResolveOutcome(status *ChargeStatus, checkCount, maxChecks int) ChargeOutcome {
	if status != nil {
		switch status.Class() {
		case StatusClassPaid:
			return OutcomePaid
		case StatusClassFailed:
			return OutcomeFailed
		case StatusClassPending:
		}
	}
	if checkCount >= maxChecks {
		return OutcomeExpired
	}
	return OutcomeOpen
}
