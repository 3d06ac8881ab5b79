package services

import (
	"context"
	"time"

	"github.com/VASILIYKAS/seller-apis/internal/domain"
	"github.com/VASILIYKAS/seller-apis/internal/marketplace"
)

// InventorySource yields the merchant's current inventory snapshot.
type InventorySource interface {
	Load(ctx context.Context) ([]domain.InventoryRow, error)
}

// CatalogService builds the set of offer ids a marketplace segment has listed.
type CatalogService interface {
	FetchCatalog(ctx context.Context, client marketplace.Client) (domain.Catalog, error)
}

// Uploader pushes reconciled records to a marketplace in schema-sized batches.
// Both methods return the number of records accepted before any failure.
type Uploader interface {
	UploadStocks(ctx context.Context, client marketplace.Client, schema domain.Schema, stocks []domain.StockUpdate) (int, error)
	UploadPrices(ctx context.Context, client marketplace.Client, schema domain.Schema, prices []domain.PriceUpdate) (int, error)
}

// SyncService runs one full synchronisation across all configured segments.
type SyncService interface {
	Run(ctx context.Context) (RunReport, error)
}

// ReportPublisher announces finished runs to downstream consumers.
type ReportPublisher interface {
	PublishRunReport(ctx context.Context, report RunReport) (string, error)
}

// ReportArchiver stores finished run reports and returns their location.
type ReportArchiver interface {
	ArchiveRunReport(ctx context.Context, report RunReport) (string, error)
}

// SyncMetrics receives batch and catalog measurements.
type SyncMetrics interface {
	RecordBatch(ctx context.Context, segment, kind string, size int, elapsed time.Duration, err error)
	RecordCatalog(ctx context.Context, segment string, size int)
}

// Segment pairs a marketplace client with the schema that drives reconciliation and upload.
type Segment struct {
	Schema domain.Schema
	Client marketplace.Client
}

type noopMetrics struct{}

func (noopMetrics) RecordBatch(context.Context, string, string, int, time.Duration, error) {}
func (noopMetrics) RecordCatalog(context.Context, string, int) {}

func noopLogger(context.Context, string, map[string]any) {}
