package catalog

import (
	"fmt"

	"github.com/set-night/shopassist/internal/domain"
	"github.com/shopspring/decimal"
)

var baseProducts = []domain.CatalogProduct{
	{
		ID:            "441137362",
		ProductURL:    "https://www.ajio.com/netplay-checked-polo-t-shirt/p/441137362_white",
		Brand:         "netplay",
		Description:   "Checked Polo T-shirt",
		ImageURL:      "https://assets.ajio.com/medias/sys_master/root/20220309/inTn/6227b81faeb26921afcde577/-286Wx359H-441137362-white-MODEL.jpg",
		Gender:        "Men",
		DiscountPrice: decimal.NewFromInt(559),
		Price:         decimal.NewFromInt(699),
		Color:         "white",
	},
	{
		ID:            "441124497",
		ProductURL:    "https://www.ajio.com/netplay-tapered-fit-flat-front-trousers/p/441124497_navy",
		Brand:         "netplay",
		Description:   "Tapered Fit Flat-Front Trousers",
		ImageURL:      "https://assets.ajio.com/medias/sys_master/root/20210907/vQKt/6136775cf997ddce89bddeea/-286Wx359H-441124497-navy-MODEL.jpg",
		Gender:        "Men",
		DiscountPrice: decimal.NewFromInt(720),
		Price:         decimal.NewFromInt(1499),
		Color:         "navy",
	},
	{
		ID:            "460453612",
		ProductURL:    "https://www.ajio.com/the-indian-garage-co-striped-slim-fit-shirt-with-patch-pocket/p/460453612_white",
		Brand:         "the-indian-garage-co",
		Description:   "Striped Slim Fit Shirt with Patch Pocket",
		ImageURL:      "https://assets.ajio.com/medias/sys_master/root/20211228/s1km/61ca36a4aeb26901101f7552/-286Wx359H-460453612-white-MODEL.jpg",
		Gender:        "Men",
		DiscountPrice: decimal.NewFromInt(495),
		Price:         decimal.NewFromInt(1649),
		Color:         "white",
	},
	{
		ID:            "441036730",
		ProductURL:    "https://www.ajio.com/performax-heathered-crew-neck-t-shirt/p/441036730_charcoal",
		Brand:         "performax",
		Description:   "Heathered Crew-Neck T-shirt",
		ImageURL:      "https://assets.ajio.com/medias/sys_master/root/20220120/lLur/61e981aef997dd66232f4792/-286Wx359H-441036730-charcoal-MODEL.jpg",
		Gender:        "Men",
		DiscountPrice: decimal.NewFromInt(329),
		Price:         decimal.NewFromInt(599),
		Color:         "charcoal",
	},
	{
		ID:            "441128531",
		ProductURL:    "https://www.ajio.com/john-players-jeans-washed-skinny-fit-jeans-with-whiskers/p/441128531_jetblack",
		Brand:         "john-players-jeans",
		Description:   "Washed Skinny Fit Jeans with Whiskers",
		ImageURL:      "https://assets.ajio.com/medias/sys_master/root/20210728/I1Im/61005afff997ddb3123c0416/-286Wx359H-441128531-jetblack-MODEL.jpg",
		Gender:        "Men",
		DiscountPrice: decimal.NewFromInt(899),
		Price:         decimal.NewFromInt(999),
		Color:         "jetblack",
	},
}

const variationCount = 25

var variationLabels = [3]string{"Premium %s", "%s - Limited Edition", "%s - New Arrival"}

// priceFactors spread variation prices over 0.9x .. 1.1x of the base product.
var priceFactors = []decimal.Decimal{
	decimal.RequireFromString("0.90"),
	decimal.RequireFromString("0.95"),
	decimal.RequireFromString("1.00"),
	decimal.RequireFromString("1.05"),
	decimal.RequireFromString("1.10"),
	decimal.RequireFromString("0.97"),
	decimal.RequireFromString("1.03"),
}

// DefaultProducts returns the base products followed by their generated variations.
func DefaultProducts() []domain.CatalogProduct {
	out := make([]domain.CatalogProduct, 0, len(baseProducts)+variationCount)
	out = append(out, baseProducts...)

	for i := 0; i < variationCount; i++ {
		base := baseProducts[i%len(baseProducts)]
		v := base
		v.ID = fmt.Sprintf("%s_var%d", base.ID, i/len(baseProducts)+1)
		v.Description = fmt.Sprintf(variationLabels[i%3], base.Description)
		v.DiscountPrice = base.DiscountPrice.Mul(priceFactors[i%len(priceFactors)]).Round(0)
		v.Price = base.Price.Mul(priceFactors[(i+3)%len(priceFactors)]).Round(0)
		out = append(out, v)
	}
	return out
}
