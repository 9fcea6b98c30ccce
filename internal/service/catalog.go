package service

import (
	"fmt"
	"html"
	"strings"

	"github.com/set-night/vitrine/internal/domain"
	"github.com/shopspring/decimal"
)

// Catalog is the fixed list of products offered by the bot.
type Catalog struct {
	products []domain.Product
}

func NewCatalog(products ...domain.Product) *Catalog {
	return &Catalog{products: products}
}

// DefaultCatalog returns the storefront's standard offer.
func DefaultCatalog(accessURL string) *Catalog {
	return NewCatalog(domain.Product{
		Code:        "assinatura",
		Name:        "VITALÍCIO + BÔNUS + ACESSO BLACK",
		Description: "Acesso vitalício ao conteúdo com todos os bônus inclusos.",
		Price:       decimal.RequireFromString("10.00"),
		Link:        accessURL,
	})
}

func (c *Catalog) Products() []domain.Product {
	return c.products
}

func (c *Catalog) Product(code string) (domain.Product, error) {
	for _, p := range c.products {
		if p.Code == code {
			return p, nil
		}
	}
	return domain.Product{}, fmt.Errorf("product %q: %w", code, domain.ErrProductNotFound)
}

// Showcase renders the catalog as HTML.
func (c *Catalog) Showcase() string {
	var sb strings.Builder
	sb.WriteString("🛍 <b>Nossos produtos</b>\n")
	for _, p := range c.products {
		fmt.Fprintf(&sb, "\n<b>%s</b> (%s)\n", html.EscapeString(p.Name), p.PriceLabel())
		if p.Description != "" {
			sb.WriteString(html.EscapeString(p.Description) + "\n")
		}
	}
	return sb.String()
}
