package markdown

import (
	"regexp"
	"strings"

	"github.com/set-night/shopassist/internal/domain"
)

// Extractor lifts product records out of a bot reply. Text that does not follow the
// extractor's layout yields no products and no error.
type Extractor interface {
	Extract(text string) []domain.ProductSuggestion
}

const (
	StrategyCard    = "card"
	StrategyListing = "listing"
)

// ByName returns the named extraction strategy.
func ByName(name string) (Extractor, bool) {
	switch name {
	case StrategyCard:
		return CardExtractor{}, true
	case StrategyListing:
		return ListingExtractor{}, true
	default:
		return nil, false
	}
}

// cardPattern is one product block as the chat widget expects it, lines in this exact order:
//
//	**Title**
//	- Price: ₹499 ~~₹999~~
//	- Color: blue
//	- ![alt](image)
//	- Product link: [text](url)
//	- 🔥 Steal deal          (optional)
var cardPattern = regexp.MustCompile(
	`\*\*(.+?)\*\*\s*[\r\n]+` +
		`- Price: (₹[\d,]+)(?:\s*~~(₹[\d,]+)~~)?\s*[\r\n]+` +
		`- Color: (\w+)\s*[\r\n]+` +
		`- !\[.*?\]\((.*?)\)\s*[\r\n]+` +
		`- Product link: \[(.*?)\]\((.*?)\)` +
		`(?:\s*[\r\n]+- (🔥.*))?`,
)

// CardExtractor reads the strict card layout used inside chat replies.
type CardExtractor struct{}

func (CardExtractor) Extract(text string) []domain.ProductSuggestion {
	matches := cardPattern.FindAllStringSubmatch(text, -1)
	products := make([]domain.ProductSuggestion, 0, len(matches))
	for _, m := range matches {
		products = append(products, domain.ProductSuggestion{
			Title:         m[1],
			Price:         m[2],
			OriginalPrice: m[3],
			Color:         m[4],
			ImageURL:      m[5],
			ProductURL:    m[7],
			IsStealDeal:   m[8] != "",
		})
	}
	return products
}

var (
	blockSeparator = regexp.MustCompile(`\n\s*\n`)
	listingName    = regexp.MustCompile(`\*\*(.*?)\*\*`)
	listingPrice   = regexp.MustCompile(`for ₹([\d,]+)`)
	listingStruck  = regexp.MustCompile(`~~₹([\d,]+)~~`)
	listingImage   = regexp.MustCompile(`!\[.*?\]\((.*?)\)`)
	listingLink    = regexp.MustCompile(`\[Product Link\]\((.*?)\)`)
)

// ListingExtractor reads the looser paragraph layout the bot uses for listing pages:
// blocks separated by blank lines, each field found independently.
type ListingExtractor struct{}

func (ListingExtractor) Extract(text string) []domain.ProductSuggestion {
	text = strings.TrimSpace(text)
	if text == "" {
		return []domain.ProductSuggestion{}
	}

	blocks := blockSeparator.Split(text, -1)
	products := make([]domain.ProductSuggestion, 0, len(blocks))
	for _, block := range blocks {
		name := firstGroup(listingName, block)
		if name == "" {
			continue
		}
		p := domain.ProductSuggestion{
			Title:      name,
			ImageURL:   firstGroup(listingImage, block),
			ProductURL: firstGroup(listingLink, block),
		}
		if price := firstGroup(listingPrice, block); price != "" {
			p.Price = "₹" + price
		}
		if original := firstGroup(listingStruck, block); original != "" {
			p.OriginalPrice = "₹" + original
		}
		products = append(products, p)
	}
	return products
}

func firstGroup(re *regexp.Regexp, s string) string {
	m := re.FindStringSubmatch(s)
	if len(m) < 2 {
		return ""
	}
	return m[1]
}
