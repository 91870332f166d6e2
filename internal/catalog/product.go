package catalog

import (
	"context"
	"errors"
	"strings"

	"github.com/shopspring/decimal"
)

var (
	ErrInvalidProduct = errors.New("invalid product")
	ErrUnavailable    = errors.New("product store unavailable")
)

// Row is a product as stored. Prices stay text so a malformed value degrades
// to zero at assembly time instead of failing the scan.
type Row struct {
	ID        int64
	Name      string
	Category  string
	Specs     string
	PriceUSD  string
	PriceCOP  string
	ImageURLs string
}

// Product is the display record handed to clients.
type Product struct {
	ID       int64           `json:"id"`
	Name     string          `json:"name"`
	Category string          `json:"category"`
	Specs    string          `json:"specs"`
	PriceUSD decimal.Decimal `json:"price_usd"`
	PriceCOP decimal.Decimal `json:"price_cop"`
	Images   []string        `json:"images"`
}

// NewProduct is the admin insert payload. PriceCOP is only written for the
// legacy column; reads always recompute it.
type NewProduct struct {
	Name      string
	Category  string
	Specs     string
	PriceUSD  decimal.Decimal
	PriceCOP  decimal.Decimal
	ImageURLs []string
}

func (p NewProduct) Validate() error {
	if strings.TrimSpace(p.Name) == "" {
		return errors.Join(ErrInvalidProduct, errors.New("name required"))
	}
	if p.PriceUSD.IsNegative() {
		return errors.Join(ErrInvalidProduct, errors.New("price_usd must be non-negative"))
	}
	return nil
}

func (p NewProduct) joinedImages() string {
	return strings.Join(p.ImageURLs, ",")
}

type Store interface {
	Ping(ctx context.Context) error
	List(ctx context.Context, c Criteria) ([]Row, error)
	Categories(ctx context.Context) ([]string, error)
	Insert(ctx context.Context, p NewProduct) (int64, error)
}

// SplitImages turns the stored comma-joined list into URLs, keeping every
// entry in order. Only an empty field yields an empty, non-nil slice.
func SplitImages(field string) []string {
	if field == "" {
		return []string{}
	}
	return strings.Split(field, ",")
}

// ParseImageURLs reads admin input: comma separated, entries trimmed, blanks
// dropped, so the joined column never carries empty entries.
func ParseImageURLs(field string) []string {
	out := make([]string, 0, strings.Count(field, ",")+1)
	for _, u := range strings.Split(field, ",") {
		if u = strings.TrimSpace(u); u != "" {
			out = append(out, u)
		}
	}
	return out
}

// ParsePrice parses a stored price, treating anything unparsable as zero.
func ParsePrice(s string) decimal.Decimal {
	d, err := decimal.NewFromString(strings.TrimSpace(s))
	if err != nil {
		return decimal.Zero
	}
	return d
}
