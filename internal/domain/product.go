package domain

import (
	"strings"

	"github.com/shopspring/decimal"
)

// ProductSuggestion is a product card lifted out of a bot reply. Prices stay display strings.
type ProductSuggestion struct {
	Title         string `json:"title"`
	Price         string `json:"price"`
	OriginalPrice string `json:"originalPrice,omitempty"`
	Color         string `json:"color,omitempty"`
	ImageURL      string `json:"imageUrl"`
	ProductURL    string `json:"productUrl"`
	IsStealDeal   bool   `json:"isStealDeal"`
}

// ProductID is the last path segment of ProductURL, cut at the first underscore.
func (p ProductSuggestion) ProductID() string {
	parts := strings.Split(p.ProductURL, "/")
	last := parts[len(parts)-1]
	if id, _, found := strings.Cut(last, "_"); found {
		return id
	}
	return last
}

func (p ProductSuggestion) InternalURL() string {
	return "/product/" + p.ProductID()
}

type CatalogProduct struct {
	ID            string          `json:"id"`
	ProductURL    string          `json:"productUrl"`
	Brand         string          `json:"brand"`
	Description   string          `json:"description"`
	ImageURL      string          `json:"imageUrl"`
	Gender        string          `json:"gender"`
	DiscountPrice decimal.Decimal `json:"discountPrice"`
	Price         decimal.Decimal `json:"price"`
	Color         string          `json:"color"`
}

// DiscountPercent returns the rounded percent off, or nil when there is no discount.
func (p *CatalogProduct) DiscountPercent() *int64 {
	if !p.Price.GreaterThan(p.DiscountPrice) || p.Price.IsZero() {
		return nil
	}
	pct := decimal.NewFromInt(1).Sub(p.DiscountPrice.Div(p.Price)).Mul(decimal.NewFromInt(100)).Round(0).IntPart()
	return &pct
}
