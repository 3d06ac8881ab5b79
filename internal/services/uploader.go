package services

import (
	"context"
	"fmt"
	"time"

	"github.com/VASILIYKAS/seller-apis/internal/domain"
	"github.com/VASILIYKAS/seller-apis/internal/marketplace"
	"github.com/VASILIYKAS/seller-apis/internal/platform/runctx"
	"github.com/VASILIYKAS/seller-apis/internal/reconcile"
)

// Upload kinds reported in UploadError and metrics.
const (
	KindStocks = "stocks"
	KindPrices = "prices"

	eventUploadBatch  = "upload.batch"
	eventUploadDryRun = "upload.dry_run"
)

// UploadError reports which batch failed and how many records had already been accepted.
// Earlier batches are not rolled back.
type UploadError struct {
	Kind  string
	Batch int
	Sent  int
	Err   error
}

func (e *UploadError) Error() string {
	if e == nil {
		return ""
	}
	return fmt.Sprintf("upload %s: batch %d failed after %d records sent: %v", e.Kind, e.Batch, e.Sent, e.Err)
}

func (e *UploadError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

// UploaderDeps bundles the collaborators required to construct an uploader.
type UploaderDeps struct {
	// DryRun logs each batch instead of sending it.
	DryRun  bool
	Metrics SyncMetrics
	Clock   func() time.Time
	Logger  func(ctx context.Context, event string, fields map[string]any)
}

type uploader struct {
	dryRun  bool
	metrics SyncMetrics
	clock   func() time.Time
	logger  func(context.Context, string, map[string]any)
}

// NewUploader wires dependencies into a concrete Uploader implementation.
func NewUploader(deps UploaderDeps) (Uploader, error) {
	clock := deps.Clock
	if clock == nil {
		clock = time.Now
	}
	metrics := deps.Metrics
	if metrics == nil {
		metrics = noopMetrics{}
	}
	logger := deps.Logger
	if logger == nil {
		logger = noopLogger
	}
	return &uploader{dryRun: deps.DryRun, metrics: metrics, clock: clock, logger: logger}, nil
}

func (u *uploader) UploadStocks(ctx context.Context, client marketplace.Client, schema domain.Schema, stocks []domain.StockUpdate) (int, error) {
	return uploadBatches(ctx, u, KindStocks, stocks, schema.StockBatchSize, client.PushStocks)
}

func (u *uploader) UploadPrices(ctx context.Context, client marketplace.Client, schema domain.Schema, prices []domain.PriceUpdate) (int, error) {
	return uploadBatches(ctx, u, KindPrices, prices, schema.PriceBatchSize, client.PushPrices)
}

func uploadBatches[T any](ctx context.Context, u *uploader, kind string, records []T, size int, push func(context.Context, []T) error) (int, error) {
	batches, err := reconcile.ChunkSeq(records, size)
	if err != nil {
		return 0, &UploadError{Kind: kind, Err: err}
	}

	segment := runctx.Segment(ctx)
	sent := 0
	batch := 0
	for chunk := range batches {
		batch++
		if err := ctx.Err(); err != nil {
			return sent, &UploadError{Kind: kind, Batch: batch, Sent: sent, Err: err}
		}
		if u.dryRun {
			u.logger(ctx, eventUploadDryRun, map[string]any{"kind": kind, "batch": batch, "records": len(chunk)})
			sent += len(chunk)
			continue
		}

		started := u.clock()
		err := push(ctx, chunk)
		u.metrics.RecordBatch(ctx, segment, kind, len(chunk), u.clock().Sub(started), err)
		if err != nil {
			return sent, &UploadError{Kind: kind, Batch: batch, Sent: sent, Err: err}
		}
		sent += len(chunk)
		u.logger(ctx, eventUploadBatch, map[string]any{"kind": kind, "batch": batch, "records": len(chunk), "sent": sent})
	}
	return sent, nil
}
