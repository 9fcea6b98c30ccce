package domain

type MediaType string

const (
	MediaText  MediaType = "text"
	MediaPhoto MediaType = "photo"
	MediaVideo MediaType = "video"
)

type WelcomeMessage struct {
	Type   MediaType `json:"type"`
	Text   string    `json:"text"`
	FileID string    `json:"fileId,omitempty"`
}

// MediaRef points at a file already uploaded to Telegram.
type MediaRef struct {
	FileID string    `json:"fileId"`
	Type   MediaType `json:"type"`
}

type Metrics struct {
	Users         []int64 `json:"users"`
	TotalMessages int64   `json:"totalMessages"`
}

// BotState is the single persisted document holding all mutable bot state.
type BotState struct {
	WelcomeMessage  WelcomeMessage             `json:"welcomeMessage"`
	Metrics         Metrics                    `json:"metrics"`
	PendingPayments []PendingPayment           `json:"pendingPayments"`
	Promotions      []Promotion                `json:"promotions"`
	PixPhoto        *MediaRef                  `json:"pixPhoto"`
	Referrals       map[string]*ReferralRecord `json:"referrals"`
}

func (s *BotState) PendingPayment(chargeID string) (PendingPayment, bool) {
	for _, p := range s.PendingPayments {
		if p.ChargeID == chargeID {
			return p, true
		}
	}
	return PendingPayment{}, false
}

func (s *BotState) PendingPaymentByUser(userID int64) (PendingPayment, bool) {
	for _, p := range s.PendingPayments {
		if p.UserID == userID {
			return p, true
		}
	}
	return PendingPayment{}, false
}

func (s *BotState) Promotion(id string) (Promotion, bool) {
	for _, p := range s.Promotions {
		if p.ID == id {
			return p, true
		}
	}
	return Promotion{}, false
}

func (s *BotState) HasUser(userID int64) bool {
	for _, id := range s.Metrics.Users {
		if id == userID {
			return true
		}
	}
	return false
}
