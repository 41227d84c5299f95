package catalog

import (
	"testing"

	"github.com/set-night/shopassist/internal/domain"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultProducts(t *testing.T) {
	products := DefaultProducts()
	require.Len(t, products, 30)

	assert.Equal(t, "441137362_var1", products[5].ID)
	assert.Equal(t, "Premium Checked Polo T-shirt", products[5].Description)
	assert.Equal(t, "Tapered Fit Flat-Front Trousers - Limited Edition", products[6].Description)
	assert.Equal(t, "441137362_var2", products[10].ID)

	seen := map[string]bool{}
	for _, p := range products {
		assert.False(t, seen[p.ID], "duplicate id %s", p.ID)
		seen[p.ID] = true
	}
}

func TestList_Pagination(t *testing.T) {
	c := New(DefaultProducts())

	first := c.List(Filter{}, 1)
	assert.Equal(t, 1, first.Page)
	assert.Equal(t, 3, first.TotalPages)
	assert.Equal(t, 30, first.Total)
	assert.Len(t, first.Products, 10)
	assert.Equal(t, "441137362", first.Products[0].ID)

	last := c.List(Filter{}, 99)
	assert.Equal(t, 3, last.Page)
	assert.Len(t, last.Products, 10)

	assert.Equal(t, 1, c.List(Filter{}, 0).Page)
}

func TestList_Filters(t *testing.T) {
	c := New(DefaultProducts())

	netplay := c.List(Filter{Brands: []string{"NetPlay"}}, 1)
	assert.Equal(t, 12, netplay.Total)
	assert.Equal(t, 2, netplay.TotalPages)

	base := New(baseProducts)
	assert.Equal(t, 2, base.List(Filter{MinDiscount: 50}, 1).Total)

	lo, hi := decimal.NewFromInt(400), decimal.NewFromInt(800)
	ranged := base.List(Filter{MinPrice: &lo, MaxPrice: &hi}, 1)
	require.Equal(t, 3, ranged.Total)
	for _, p := range ranged.Products {
		assert.True(t, p.DiscountPrice.GreaterThanOrEqual(lo) && p.DiscountPrice.LessThanOrEqual(hi))
	}

	empty := base.List(Filter{Colors: []string{"purple"}}, 1)
	assert.Zero(t, empty.Total)
	assert.Empty(t, empty.Products)
	assert.Equal(t, 1, empty.Page)
}

func TestFacets(t *testing.T) {
	f := New(baseProducts).Facets()

	assert.Equal(t, []FacetCount{
		{ID: "john-players-jeans", Count: 1},
		{ID: "netplay", Count: 2},
		{ID: "performax", Count: 1},
		{ID: "the-indian-garage-co", Count: 1},
	}, f.Brands)
	assert.Equal(t, []FacetCount{{ID: "Men", Count: 5}}, f.Genders)
	assert.Equal(t, []FacetCount{
		{ID: "10-percent", Count: 5},
		{ID: "25-percent", Count: 3},
		{ID: "50-percent", Count: 2},
		{ID: "70-percent", Count: 1},
	}, f.Discounts)
	assert.True(t, f.MinPrice.Equal(decimal.NewFromInt(329)))
	assert.True(t, f.MaxPrice.Equal(decimal.NewFromInt(899)))
}

func TestGet(t *testing.T) {
	c := New(DefaultProducts())

	p, err := c.Get("441124497")
	require.NoError(t, err)
	assert.Equal(t, "navy", p.Color)
	require.NotNil(t, p.DiscountPercent())
	assert.EqualValues(t, 52, *p.DiscountPercent())

	_, err = c.Get("missing")
	assert.ErrorIs(t, err, domain.ErrProductNotFound)
}
