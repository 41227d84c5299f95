// Package catalog serves the static storefront listing with pagination and facets.
package catalog

import (
	"sort"
	"strconv"
	"strings"

	"github.com/set-night/shopassist/internal/config"
	"github.com/set-night/shopassist/internal/domain"
	"github.com/shopspring/decimal"
)

type Filter struct {
	Brands      []string
	Genders     []string
	Colors      []string
	MinDiscount int
	MinPrice    *decimal.Decimal
	MaxPrice    *decimal.Decimal
}

type FacetCount struct {
	ID    string `json:"id"`
	Count int    `json:"count"`
}

type Facets struct {
	Brands    []FacetCount    `json:"brands"`
	Genders   []FacetCount    `json:"genders"`
	Colors    []FacetCount    `json:"colors"`
	Discounts []FacetCount    `json:"discounts"`
	MinPrice  decimal.Decimal `json:"minPrice"`
	MaxPrice  decimal.Decimal `json:"maxPrice"`
}

type Page struct {
	Products   []domain.CatalogProduct `json:"products"`
	Page       int                     `json:"page"`
	TotalPages int                     `json:"totalPages"`
	Total      int                     `json:"total"`
}

type Catalog struct {
	products []domain.CatalogProduct
	perPage  int
	byID     map[string]int
}

func New(products []domain.CatalogProduct) *Catalog {
	byID := make(map[string]int, len(products))
	for i, p := range products {
		byID[p.ID] = i
	}
	return &Catalog{products: products, perPage: config.ProductsPerPage, byID: byID}
}

func (c *Catalog) Get(id string) (*domain.CatalogProduct, error) {
	i, ok := c.byID[id]
	if !ok {
		return nil, domain.ErrProductNotFound
	}
	p := c.products[i]
	return &p, nil
}

// List filters the catalog and returns the requested page. Pages are 1-based and clamp to range.
func (c *Catalog) List(f Filter, page int) Page {
	matched := make([]domain.CatalogProduct, 0, len(c.products))
	for _, p := range c.products {
		if f.matches(&p) {
			matched = append(matched, p)
		}
	}
	return paginate(matched, page, c.perPage)
}

func paginate(items []domain.CatalogProduct, page, perPage int) Page {
	totalPages := (len(items) + perPage - 1) / perPage
	if page > totalPages {
		page = totalPages
	}
	if page < 1 {
		page = 1
	}

	start := (page - 1) * perPage
	end := start + perPage
	if start > len(items) {
		start = len(items)
	}
	if end > len(items) {
		end = len(items)
	}

	return Page{
		Products:   items[start:end],
		Page:       page,
		TotalPages: totalPages,
		Total:      len(items),
	}
}

// Facets counts every facet value over the whole catalog.
func (c *Catalog) Facets() Facets {
	brands := map[string]int{}
	genders := map[string]int{}
	colors := map[string]int{}
	discounts := make([]FacetCount, len(config.DiscountThresholds))
	var facets Facets

	for i, p := range c.products {
		brands[p.Brand]++
		genders[p.Gender]++
		colors[p.Color]++

		pct := p.DiscountPercent()
		for j, threshold := range config.DiscountThresholds {
			discounts[j].ID = discountID(threshold)
			if pct != nil && *pct >= int64(threshold) {
				discounts[j].Count++
			}
		}

		if i == 0 || p.DiscountPrice.LessThan(facets.MinPrice) {
			facets.MinPrice = p.DiscountPrice
		}
		if i == 0 || p.DiscountPrice.GreaterThan(facets.MaxPrice) {
			facets.MaxPrice = p.DiscountPrice
		}
	}

	facets.Brands = sortedCounts(brands)
	facets.Genders = sortedCounts(genders)
	facets.Colors = sortedCounts(colors)
	facets.Discounts = discounts
	return facets
}

func (f Filter) matches(p *domain.CatalogProduct) bool {
	if !anyEqual(f.Brands, p.Brand) || !anyEqual(f.Genders, p.Gender) || !anyEqual(f.Colors, p.Color) {
		return false
	}
	if f.MinDiscount > 0 {
		pct := p.DiscountPercent()
		if pct == nil || *pct < int64(f.MinDiscount) {
			return false
		}
	}
	if f.MinPrice != nil && p.DiscountPrice.LessThan(*f.MinPrice) {
		return false
	}
	if f.MaxPrice != nil && p.DiscountPrice.GreaterThan(*f.MaxPrice) {
		return false
	}
	return true
}

// anyEqual is true for an empty selection.
func anyEqual(selected []string, v string) bool {
	if len(selected) == 0 {
		return true
	}
	for _, s := range selected {
		if strings.EqualFold(s, v) {
			return true
		}
	}
	return false
}

func sortedCounts(m map[string]int) []FacetCount {
	out := make([]FacetCount, 0, len(m))
	for id, n := range m {
		out = append(out, FacetCount{ID: id, Count: n})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

func discountID(threshold int) string {
	return strconv.Itoa(threshold) + "-percent"
}
