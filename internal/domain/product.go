package domain

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// Product is a purchasable item. Pending payments keep a copy of it so later
// catalog edits never change the terms of an existing charge.
type Product struct {
	Code        string          `json:"code"`
	Name        string          `json:"name"`
	Description string          `json:"description,omitempty"`
	Price       decimal.Decimal `json:"price"`
	Link        string          `json:"link,omitempty"`
	PromotionID string          `json:"promotionId,omitempty"`
}

func (p Product) IsPromotion() bool {
	return p.PromotionID != ""
}

// RegenerateAction is the callback data that starts a new purchase of the same product.
func (p Product) RegenerateAction() string {
	if p.IsPromotion() {
		return "promocao:" + p.PromotionID
	}
	return "comprar:" + p.Code
}

// PriceLabel formats the price as Brazilian reais.
func (p Product) PriceLabel() string {
	return FormatBRL(p.Price)
}

func FormatBRL(v decimal.Decimal) string {
	return fmt.Sprintf("R$ %s", v.StringFixed(2))
}
