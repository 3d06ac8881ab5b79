package reconcile

import (
	"fmt"
	"strconv"
	"strings"

	domain "github.com/VASILIYKAS/seller-apis/internal/domain"
)

// NormalizePrice reduces a locale formatted price such as "5'990.00 руб." to its
// integer digits ("5990"). Everything from the first "." on is discarded, then every
// non-digit character is dropped. The result may be empty.
func NormalizePrice(price string) string {
	head, _, _ := strings.Cut(price, ".")
	var b strings.Builder
	b.Grow(len(head))
	for _, r := range head {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	return b.String()
}

// NormalizePriceValue normalises an untyped cell value. Only strings are accepted.
func NormalizePriceValue(value any) (string, error) {
	s, ok := value.(string)
	if !ok {
		return "", fmt.Errorf("%w: price must be a string, got %T", ErrTypeKind, value)
	}
	return NormalizePrice(s), nil
}

// Prices emits one price update per spreadsheet row whose code is listed in the catalog.
// Unlisted rows are skipped and repeated codes keep their first occurrence. Catalog ids
// without a row get no price record.
func Prices(rows []domain.InventoryRow, catalog domain.Catalog, schema domain.Schema) []domain.PriceUpdate {
	out := make([]domain.PriceUpdate, 0, min(len(rows), catalog.Len()))
	seen := make(map[string]struct{}, catalog.Len())
	for _, row := range rows {
		code := strings.TrimSpace(row.Code)
		if !catalog.Has(code) {
			continue
		}
		if _, ok := seen[code]; ok {
			continue
		}
		seen[code] = struct{}{}
		out = append(out, domain.PriceUpdate{
			OfferID:  code,
			Price:    NormalizePrice(row.Price),
			Currency: schema.Currency,
		})
	}
	return out
}

// CheckIntegerPrices reports the first price that does not parse as an integer, e.g. an
// empty string left by a cell without digits.
func CheckIntegerPrices(prices []domain.PriceUpdate) error {
	for _, p := range prices {
		if _, err := strconv.Atoi(p.Price); err != nil {
			return fmt.Errorf("%w: offer %s: price %q is not an integer", ErrValidation, p.OfferID, p.Price)
		}
	}
	return nil
}
