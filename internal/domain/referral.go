package domain

import "strconv"

type ReferralRecord struct {
	Points        int     `json:"points"`
	ReferredUsers []int64 `json:"referredUsers"`
	ReferralCode  string  `json:"referralCode"`
}

// ReferralCode derives the referral code of a user.
func ReferralCode(userID int64) string {
	return strconv.FormatInt(userID, 10)
}

func NewReferralRecord(userID int64) *ReferralRecord {
	return &ReferralRecord{
		ReferredUsers: []int64{},
		ReferralCode:  ReferralCode(userID),
	}
}

func (r *ReferralRecord) HasReferred(userID int64) bool {
	for _, id := range r.ReferredUsers {
		if id == userID {
			return true
		}
	}
	return false
}
