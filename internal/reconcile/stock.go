package reconcile

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	domain "github.com/VASILIYKAS/seller-apis/internal/domain"
)

const (
	quantityPlenty   = ">10"
	quantityLastUnit = "1"
	stockForPlenty   = 100
	stockForLastUnit = 0
	stockForUnlisted = 0
)

// StockQuantity maps a spreadsheet quantity to the stock level sent to marketplaces.
// ">10" becomes 100 and "1" becomes 0 (the last unit is held back); any other value
// must be a non-negative integer.
func StockQuantity(quantity string) (int, error) {
	q := strings.TrimSpace(quantity)
	switch q {
	case quantityPlenty:
		return stockForPlenty, nil
	case quantityLastUnit:
		return stockForLastUnit, nil
	}
	n, err := strconv.Atoi(q)
	if err != nil {
		return 0, fmt.Errorf("%w: quantity %q is not a number", ErrValidation, quantity)
	}
	if n < 0 {
		return 0, fmt.Errorf("%w: quantity %q is negative", ErrValidation, quantity)
	}
	return n, nil
}

// Stocks reconciles spreadsheet rows against a catalog. Rows whose code is listed
// produce a record with the mapped quantity; every listed id that no row matched is
// then emitted with stock 0. The result covers each catalog id exactly once, matched
// rows first. The catalog is not modified.
//
// When the schema stamps updates, every record carries now in UTC truncated to the second.
func Stocks(rows []domain.InventoryRow, catalog domain.Catalog, schema domain.Schema, now time.Time) ([]domain.StockUpdate, error) {
	var stamp time.Time
	if schema.StampUpdates {
		stamp = now.UTC().Truncate(time.Second)
	}
	record := func(offerID string, stock int) domain.StockUpdate {
		return domain.StockUpdate{
			OfferID:     offerID,
			Stock:       stock,
			WarehouseID: schema.WarehouseID,
			UpdatedAt:   stamp,
		}
	}

	out := make([]domain.StockUpdate, 0, catalog.Len())
	matched := make(map[string]struct{}, catalog.Len())
	for i, row := range rows {
		code := strings.TrimSpace(row.Code)
		if !catalog.Has(code) {
			continue
		}
		if _, ok := matched[code]; ok {
			continue
		}
		stock, err := StockQuantity(row.Quantity)
		if err != nil {
			return nil, fmt.Errorf("row %d, code %s: %w", i, code, err)
		}
		matched[code] = struct{}{}
		out = append(out, record(code, stock))
	}

	for _, id := range catalog.IDs() {
		if _, ok := matched[id]; ok {
			continue
		}
		out = append(out, record(id, stockForUnlisted))
	}
	return out, nil
}

// NonZero returns the records with a positive stock level.
func NonZero(stocks []domain.StockUpdate) []domain.StockUpdate {
	out := make([]domain.StockUpdate, 0, len(stocks))
	for _, s := range stocks {
		if s.Stock != 0 {
			out = append(out, s)
		}
	}
	return out
}
