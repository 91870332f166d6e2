package catalog

import (
	"net/url"
	"strings"

	"github.com/shopspring/decimal"
	"golang.org/x/text/cases"
)

// Category tokens that toggle the offers banner instead of filtering.
var offersTokens = []string{"ofertas", "offers"}

// Criteria is the request-scoped product filter. Zero value matches
// everything.
type Criteria struct {
	Category string
	Query    string
	MinPrice *decimal.Decimal
	MaxPrice *decimal.Decimal
	Offers   bool
}

// ParseCriteria reads category, q, min_price and max_price. Unusable price
// bounds fall back to the open range rather than failing the request.
func ParseCriteria(v url.Values) Criteria {
	c := Criteria{
		Category: strings.TrimSpace(v.Get("category")),
		Query:    strings.TrimSpace(v.Get("q")),
		MinPrice: parseBound(v.Get("min_price")),
		MaxPrice: parseBound(v.Get("max_price")),
	}

	for _, tok := range offersTokens {
		if strings.EqualFold(c.Category, tok) {
			c.Category = ""
			c.Offers = true
			break
		}
	}
	return c
}

func parseBound(s string) *decimal.Decimal {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	d, err := decimal.NewFromString(s)
	if err != nil || d.IsNegative() {
		return nil
	}
	return &d
}

func (c Criteria) hasPriceRange() bool {
	return c.MinPrice != nil || c.MaxPrice != nil
}

func (c Criteria) min() decimal.Decimal {
	if c.MinPrice == nil {
		return decimal.Zero
	}
	return *c.MinPrice
}

// Match evaluates the same predicate BuildQuery emits, for stores that filter
// in memory.
func (c Criteria) Match(r Row) bool {
	if c.hasPriceRange() {
		p := ParsePrice(r.PriceUSD)
		if p.LessThan(c.min()) {
			return false
		}
		if c.MaxPrice != nil && p.GreaterThan(*c.MaxPrice) {
			return false
		}
	}

	fold := cases.Fold()
	if c.Category != "" && !containsFold(fold, r.Category, c.Category) {
		return false
	}
	if c.Query != "" && !containsFold(fold, r.Name, c.Query) && !containsFold(fold, r.Specs, c.Query) {
		return false
	}
	return true
}

func containsFold(fold cases.Caser, s, sub string) bool {
	return strings.Contains(fold.String(s), fold.String(sub))
}
