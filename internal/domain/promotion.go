package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

type Promotion struct {
	ID        string          `json:"id"`
	Name      string          `json:"name"`
	Value     decimal.Decimal `json:"value"`
	Link      string          `json:"link"`
	CreatedAt time.Time       `json:"createdAt"`
}

func (p Promotion) Expired(now time.Time, ttl time.Duration) bool {
	return now.Sub(p.CreatedAt) >= ttl
}

// Product returns the purchasable snapshot of the promotion.
func (p Promotion) Product() Product {
	return Product{
		Code:        "promo-" + p.ID,
		Name:        p.Name,
		Price:       p.Value,
		Link:        p.Link,
		PromotionID: p.ID,
	}
}
