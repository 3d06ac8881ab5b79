package services

import (
	"context"
	"time"

	"github.com/VASILIYKAS/seller-apis/internal/domain"
)

type stubMarketplace struct {
	pages      map[string]domain.CursorPage[string]
	pageErr    error
	stocksFn   func(ctx context.Context, stocks []domain.StockUpdate) error
	pricesFn   func(ctx context.Context, prices []domain.PriceUpdate) error
	stockCalls [][]domain.StockUpdate
	priceCalls [][]domain.PriceUpdate
}

func (s *stubMarketplace) FetchCatalogPage(_ context.Context, token string) (domain.CursorPage[string], error) {
	if s.pageErr != nil {
		return domain.CursorPage[string]{}, s.pageErr
	}
	return s.pages[token], nil
}

func (s *stubMarketplace) PushStocks(ctx context.Context, stocks []domain.StockUpdate) error {
	s.stockCalls = append(s.stockCalls, stocks)
	if s.stocksFn != nil {
		return s.stocksFn(ctx, stocks)
	}
	return nil
}

func (s *stubMarketplace) PushPrices(ctx context.Context, prices []domain.PriceUpdate) error {
	s.priceCalls = append(s.priceCalls, prices)
	if s.pricesFn != nil {
		return s.pricesFn(ctx, prices)
	}
	return nil
}

func singlePage(ids ...string) map[string]domain.CursorPage[string] {
	return map[string]domain.CursorPage[string]{"": {Items: ids}}
}

type stubInventory struct {
	rows []domain.InventoryRow
	err  error
}

func (s stubInventory) Load(context.Context) ([]domain.InventoryRow, error) {
	return s.rows, s.err
}

type recordedBatch struct {
	segment string
	kind    string
	size    int
	failed  bool
}

type captureMetrics struct {
	batches  []recordedBatch
	catalogs map[string]int
}

func (c *captureMetrics) RecordBatch(_ context.Context, segment, kind string, size int, _ time.Duration, err error) {
	c.batches = append(c.batches, recordedBatch{segment: segment, kind: kind, size: size, failed: err != nil})
}

func (c *captureMetrics) RecordCatalog(_ context.Context, segment string, size int) {
	if c.catalogs == nil {
		c.catalogs = map[string]int{}
	}
	c.catalogs[segment] = size
}

type captureEvents struct {
	events []string
	fields []map[string]any
}

func (c *captureEvents) log(_ context.Context, event string, fields map[string]any) {
	c.events = append(c.events, event)
	c.fields = append(c.fields, fields)
}

func (c *captureEvents) has(event string) bool {
	for _, e := range c.events {
		if e == event {
			return true
		}
	}
	return false
}
