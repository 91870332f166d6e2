package catalog

import (
	"strconv"
	"strings"
)

const selectProducts = `SELECT id, name, COALESCE(category, ''), COALESCE(specs, ''),
	price_usd::text, COALESCE(price_cop::text, ''), COALESCE(image_urls, '')
FROM products`

const selectCategories = `SELECT DISTINCT category
FROM products
WHERE category IS NOT NULL AND category <> ''
ORDER BY category`

const insertProduct = `INSERT INTO products (name, category, specs, price_usd, price_cop, image_urls)
VALUES ($1, $2, $3, $4, $5, $6)
RETURNING id`

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

// BuildQuery renders the product listing query for c. Every user value is a
// bound parameter; only placeholders are written into the text.
func BuildQuery(c Criteria) (string, []any) {
	var (
		sb   strings.Builder
		args = make([]any, 0, 4)
	)
	bind := func(v any) string {
		args = append(args, v)
		return "$" + strconv.Itoa(len(args))
	}

	sb.WriteString(selectProducts)
	sb.WriteString("\nWHERE TRUE")

	if c.hasPriceRange() {
		sb.WriteString(" AND price_usd >= " + bind(c.min()))
		if c.MaxPrice != nil {
			sb.WriteString(" AND price_usd <= " + bind(*c.MaxPrice))
		}
	}
	if c.Category != "" {
		sb.WriteString(" AND category ILIKE " + bind(likePattern(c.Category)))
	}
	if c.Query != "" {
		p := bind(likePattern(c.Query))
		sb.WriteString(" AND (name ILIKE " + p + " OR specs ILIKE " + p + ")")
	}

	sb.WriteString("\nORDER BY id DESC")
	return sb.String(), args
}

func likePattern(s string) string {
	return "%" + likeEscaper.Replace(s) + "%"
}
