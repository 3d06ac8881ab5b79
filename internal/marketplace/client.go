// Package marketplace defines the seller API surface the sync job needs from each marketplace.
package marketplace

import (
	"context"

	"github.com/VASILIYKAS/seller-apis/internal/domain"
)

// Client talks to one marketplace segment (a seller account, or a campaign for programme-based APIs).
type Client interface {
	// FetchCatalogPage returns one page of listed offer ids. An empty token requests the first page.
	FetchCatalogPage(ctx context.Context, pageToken string) (domain.CursorPage[string], error)
	// PushStocks sends one batch of stock records. The batch never exceeds the segment batch size.
	PushStocks(ctx context.Context, stocks []domain.StockUpdate) error
	// PushPrices sends one batch of price records.
	PushPrices(ctx context.Context, prices []domain.PriceUpdate) error
}
