package domain

import (
	"strings"
	"time"
)

// Marketplace identifiers used in segment names and logs.
const (
	MarketplaceOzon   = "ozon"
	MarketplaceYandex = "yandex"
)

// Fulfillment programs supported by Yandex Market campaigns.
const (
	ProgramFBS = "fbs"
	ProgramDBS = "dbs"
)

// Currency codes expected by the marketplace price endpoints.
const (
	CurrencyRUB = "RUB"
	CurrencyRUR = "RUR"
)

// InventoryRow is a single spreadsheet line from the merchant's stock snapshot.
// Every cell is carried as text; numeric codes are rendered without a fractional part.
type InventoryRow struct {
	Code     string
	Quantity string
	Price    string
	Name     string
}

// StockUpdate is the marketplace-neutral stock record produced by reconciliation.
// WarehouseID and UpdatedAt are only set when the segment schema asks for them.
type StockUpdate struct {
	OfferID     string
	Stock       int
	WarehouseID string
	UpdatedAt   time.Time
}

// PriceUpdate is the marketplace-neutral price record produced by reconciliation.
type PriceUpdate struct {
	OfferID  string
	Price    string
	Currency string
}

// Schema parameterises reconciliation and upload for one marketplace segment.
type Schema struct {
	Marketplace    string
	Program        string
	WarehouseID    string
	StampUpdates   bool
	// IntegerPrices is set when the endpoint takes integer price values.
	IntegerPrices  bool
	Currency       string
	StockBatchSize int
	PriceBatchSize int
}

// Segment returns the segment name, e.g. "ozon" or "yandex-fbs".
func (s Schema) Segment() string {
	name := strings.TrimSpace(s.Marketplace)
	if program := strings.TrimSpace(s.Program); program != "" {
		return name + "-" + program
	}
	return name
}

// CursorPage packages one page of results with the token for the next page.
// Total is the overall item count when the backend reports it, zero otherwise.
type CursorPage[T any] struct {
	Items         []T
	NextPageToken string
	Total         int
}

// Catalog is the immutable set of offer ids a marketplace knows for the seller.
// Iteration order follows the order in which ids were first added.
type Catalog struct {
	ids   []string
	index map[string]struct{}
}

// NewCatalog builds a catalog from ids, trimming whitespace and dropping blanks and duplicates.
func NewCatalog(ids ...string) Catalog {
	c := Catalog{
		ids:   make([]string, 0, len(ids)),
		index: make(map[string]struct{}, len(ids)),
	}
	for _, id := range ids {
		id = strings.TrimSpace(id)
		if id == "" {
			continue
		}
		if _, ok := c.index[id]; ok {
			continue
		}
		c.index[id] = struct{}{}
		c.ids = append(c.ids, id)
	}
	return c
}

// Has reports whether the offer id is listed.
func (c Catalog) Has(id string) bool {
	_, ok := c.index[id]
	return ok
}

// Len returns the number of distinct offer ids.
func (c Catalog) Len() int {
	return len(c.ids)
}

// IDs returns a copy of the offer ids in insertion order.
func (c Catalog) IDs() []string {
	out := make([]string, len(c.ids))
	copy(out, c.ids)
	return out
}
