package services

import (
	"context"
	"errors"
	"net/http"
	"testing"
	"time"

	"github.com/VASILIYKAS/seller-apis/internal/domain"
	"github.com/VASILIYKAS/seller-apis/internal/platform/httpx"
	"github.com/VASILIYKAS/seller-apis/internal/platform/runctx"
	"github.com/VASILIYKAS/seller-apis/internal/reconcile"
)

var syncNow = time.Date(2024, 3, 5, 10, 4, 5, 0, time.UTC)

func ozonSchema() domain.Schema {
	return domain.Schema{
		Marketplace:    domain.MarketplaceOzon,
		Currency:       domain.CurrencyRUB,
		StockBatchSize: 100,
		PriceBatchSize: 1000,
	}
}

func yandexSchema(program, warehouse string) domain.Schema {
	return domain.Schema{
		Marketplace:    domain.MarketplaceYandex,
		Program:        program,
		WarehouseID:    warehouse,
		StampUpdates:   true,
		IntegerPrices:  true,
		Currency:       domain.CurrencyRUR,
		StockBatchSize: 2000,
		PriceBatchSize: 500,
	}
}

type captureReports struct {
	published []RunReport
	archived  []RunReport
	err       error
}

func (c *captureReports) PublishRunReport(_ context.Context, report RunReport) (string, error) {
	c.published = append(c.published, report)
	return "msg-1", c.err
}

func (c *captureReports) ArchiveRunReport(_ context.Context, report RunReport) (string, error) {
	c.archived = append(c.archived, report)
	return "gs://bucket/report.json", c.err
}

func newTestSyncService(t *testing.T, deps SyncServiceDeps) SyncService {
	t.Helper()
	if deps.Catalog == nil {
		catalog, err := NewCatalogService(CatalogServiceDeps{})
		if err != nil {
			t.Fatalf("catalog: %v", err)
		}
		deps.Catalog = catalog
	}
	if deps.Uploader == nil {
		up, err := NewUploader(UploaderDeps{})
		if err != nil {
			t.Fatalf("uploader: %v", err)
		}
		deps.Uploader = up
	}
	if deps.Clock == nil {
		deps.Clock = func() time.Time { return syncNow }
	}
	if deps.IDGenerator == nil {
		deps.IDGenerator = func() string { return "run-1" }
	}
	svc, err := NewSyncService(deps)
	if err != nil {
		t.Fatalf("new sync service: %v", err)
	}
	return svc
}

func TestSyncServiceReconcilesAndPushesEachSegment(t *testing.T) {
	rows := []domain.InventoryRow{{Code: "63433", Quantity: ">10", Price: "2'240.00 руб."}}
	ozon := &stubMarketplace{pages: singlePage("63433", "99999")}
	fbs := &stubMarketplace{pages: singlePage("63433")}
	sinks := &captureReports{}

	svc := newTestSyncService(t, SyncServiceDeps{
		Inventory: stubInventory{rows: rows},
		Segments: []Segment{
			{Schema: ozonSchema(), Client: ozon},
			{Schema: yandexSchema(domain.ProgramFBS, "77"), Client: fbs},
		},
		Publisher: sinks,
		Archiver:  sinks,
	})

	report, err := svc.Run(context.Background())
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if report.Failed() {
		t.Fatalf("expected success, got %+v", report)
	}
	if report.RunID != "run-1" || report.InventoryRows != 1 || len(report.Segments) != 2 {
		t.Fatalf("unexpected report %+v", report)
	}

	wantStocks := []domain.StockUpdate{{OfferID: "63433", Stock: 100}, {OfferID: "99999", Stock: 0}}
	if len(ozon.stockCalls) != 1 || len(ozon.stockCalls[0]) != 2 {
		t.Fatalf("unexpected ozon stock calls %v", ozon.stockCalls)
	}
	for i, got := range ozon.stockCalls[0] {
		if got != wantStocks[i] {
			t.Fatalf("stock %d: got %+v want %+v", i, got, wantStocks[i])
		}
	}
	if got := ozon.priceCalls[0]; len(got) != 1 || got[0] != (domain.PriceUpdate{OfferID: "63433", Price: "2240", Currency: domain.CurrencyRUB}) {
		t.Fatalf("unexpected ozon prices %v", got)
	}

	fbsStock := fbs.stockCalls[0][0]
	if fbsStock.WarehouseID != "77" || !fbsStock.UpdatedAt.Equal(syncNow) {
		t.Fatalf("expected warehouse and timestamp on yandex stock, got %+v", fbsStock)
	}

	ozonResult := report.Segments[0]
	if ozonResult.Segment != "ozon" || ozonResult.CatalogSize != 2 || ozonResult.StocksSent != 2 || ozonResult.NonZeroStocks != 1 || ozonResult.PricesSent != 1 {
		t.Fatalf("unexpected ozon result %+v", ozonResult)
	}
	if report.Segments[1].Segment != "yandex-fbs" {
		t.Fatalf("unexpected segment name %s", report.Segments[1].Segment)
	}
	if len(sinks.published) != 1 || len(sinks.archived) != 1 {
		t.Fatalf("expected report to reach both sinks")
	}
}

func TestSyncServiceIsolatesSegmentFailures(t *testing.T) {
	rows := []domain.InventoryRow{{Code: "A", Quantity: "3", Price: "10"}}
	failing := &stubMarketplace{pageErr: &httpx.TransportError{Op: http.MethodPost, Kind: httpx.KindTimeout, Err: context.DeadlineExceeded}}
	healthy := &stubMarketplace{pages: singlePage("A")}
	events := &captureEvents{}

	svc := newTestSyncService(t, SyncServiceDeps{
		Inventory: stubInventory{rows: rows},
		Segments: []Segment{
			{Schema: ozonSchema(), Client: failing},
			{Schema: yandexSchema(domain.ProgramDBS, "5"), Client: healthy},
		},
		Logger: events.log,
	})

	report, err := svc.Run(context.Background())
	if err != nil {
		t.Fatalf("segment failure must not fail the run call: %v", err)
	}
	if !report.Failed() {
		t.Fatalf("expected failed report")
	}
	first := report.Segments[0]
	if first.FailedStage != StageCatalog || first.FailureKind != FailureTimeout {
		t.Fatalf("unexpected failure classification %+v", first)
	}
	if report.Segments[1].Failed() || len(healthy.stockCalls) != 1 {
		t.Fatalf("second segment should still run")
	}
	if got := report.FailedSegments(); len(got) != 1 || got[0] != "ozon" {
		t.Fatalf("unexpected failed segments %v", got)
	}
	if !events.has(eventSegmentFailed) {
		t.Fatalf("expected segment failure event, got %v", events.events)
	}
}

func TestSyncServiceReportsValidationFailure(t *testing.T) {
	rows := []domain.InventoryRow{{Code: "A", Quantity: "много", Price: "10"}}
	client := &stubMarketplace{pages: singlePage("A")}

	svc := newTestSyncService(t, SyncServiceDeps{
		Inventory: stubInventory{rows: rows},
		Segments:  []Segment{{Schema: ozonSchema(), Client: client}},
	})

	report, err := svc.Run(context.Background())
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	result := report.Segments[0]
	if result.FailedStage != StageReconcile || result.FailureKind != FailureValidation {
		t.Fatalf("unexpected result %+v", result)
	}
	if !errors.Is(result.Err, reconcile.ErrValidation) {
		t.Fatalf("expected validation error, got %v", result.Err)
	}
	if len(client.stockCalls) != 0 {
		t.Fatalf("nothing should be pushed after a validation failure")
	}
}

func TestSyncServiceRejectsNonIntegerPricesBeforePushing(t *testing.T) {
	rows := []domain.InventoryRow{
		{Code: "A", Quantity: "3", Price: "1'000.00 руб."},
		{Code: "B", Quantity: "4", Price: "руб."},
	}
	client := &stubMarketplace{pages: singlePage("A", "B")}
	schema := yandexSchema(domain.ProgramFBS, "77")
	schema.StockBatchSize = 1
	schema.PriceBatchSize = 1

	svc := newTestSyncService(t, SyncServiceDeps{
		Inventory: stubInventory{rows: rows},
		Segments:  []Segment{{Schema: schema, Client: client}},
	})

	report, err := svc.Run(context.Background())
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	result := report.Segments[0]
	if result.FailedStage != StageReconcile || result.FailureKind != FailureValidation {
		t.Fatalf("unexpected result %+v", result)
	}
	if !errors.Is(result.Err, reconcile.ErrValidation) {
		t.Fatalf("expected validation error, got %v", result.Err)
	}
	if len(client.priceCalls) != 0 || len(client.stockCalls) != 0 {
		t.Fatalf("expected no pushes, got %d price and %d stock batches", len(client.priceCalls), len(client.stockCalls))
	}
	if result.PricesSent != 0 || result.StocksSent != 0 {
		t.Fatalf("unexpected sent counts %+v", result)
	}
}

func TestSyncServiceReportsPartialUpload(t *testing.T) {
	rows := []domain.InventoryRow{{Code: "A", Quantity: "2", Price: "10"}}
	client := &stubMarketplace{
		pages: singlePage("A", "B", "C"),
		stocksFn: func(_ context.Context, stocks []domain.StockUpdate) error {
			if stocks[0].OfferID == "C" {
				return &httpx.StatusError{StatusCode: http.StatusBadGateway}
			}
			return nil
		},
	}
	schema := ozonSchema()
	schema.StockBatchSize = 2

	svc := newTestSyncService(t, SyncServiceDeps{
		Inventory: stubInventory{rows: rows},
		Segments:  []Segment{{Schema: schema, Client: client}},
	})

	report, _ := svc.Run(context.Background())
	result := report.Segments[0]
	if result.FailedStage != StageStocks || result.FailureKind != FailureStatus || result.StocksSent != 2 {
		t.Fatalf("unexpected result %+v", result)
	}
	var uploadErr *UploadError
	if !errors.As(result.Err, &uploadErr) || uploadErr.Batch != 2 {
		t.Fatalf("expected upload error on batch 2, got %v", result.Err)
	}
	if len(client.priceCalls) != 0 {
		t.Fatalf("prices must not be sent after stock failure")
	}
}

func TestSyncServiceFailsRunWhenInventoryUnavailable(t *testing.T) {
	boom := errors.New("download failed")
	client := &stubMarketplace{pages: singlePage("A")}
	sinks := &captureReports{}

	svc := newTestSyncService(t, SyncServiceDeps{
		Inventory: stubInventory{err: boom},
		Segments:  []Segment{{Schema: ozonSchema(), Client: client}},
		Publisher: sinks,
	})

	report, err := svc.Run(context.Background())
	if !errors.Is(err, boom) {
		t.Fatalf("expected inventory error, got %v", err)
	}
	if !report.Failed() || report.InventoryError == "" {
		t.Fatalf("expected failed report, got %+v", report)
	}
	if len(client.stockCalls) != 0 || len(report.Segments) != 0 {
		t.Fatalf("segments must not run without inventory")
	}
	if len(sinks.published) != 1 {
		t.Fatalf("failed runs are still reported")
	}
}

func TestSyncServiceSinkFailureIsNotFatal(t *testing.T) {
	sinks := &captureReports{err: errors.New("pubsub down")}
	events := &captureEvents{}
	svc := newTestSyncService(t, SyncServiceDeps{
		Inventory: stubInventory{},
		Publisher: sinks,
		Logger:    events.log,
	})

	report, err := svc.Run(context.Background())
	if err != nil || report.Failed() {
		t.Fatalf("sink failure must not fail the run: %v", err)
	}
	if !events.has(eventReportSinkFailure) {
		t.Fatalf("expected sink failure event")
	}
}

func TestSyncServiceTagsContextWithRunAndSegment(t *testing.T) {
	var seenRun, seenSegment string
	client := &stubMarketplace{
		pages: singlePage("A"),
		stocksFn: func(ctx context.Context, _ []domain.StockUpdate) error {
			seenRun = runctx.RunID(ctx)
			seenSegment = runctx.Segment(ctx)
			return nil
		},
	}
	svc := newTestSyncService(t, SyncServiceDeps{
		Inventory: stubInventory{},
		Segments:  []Segment{{Schema: yandexSchema(domain.ProgramFBS, "1"), Client: client}},
	})

	if _, err := svc.Run(context.Background()); err != nil {
		t.Fatalf("run: %v", err)
	}
	if seenRun != "run-1" || seenSegment != "yandex-fbs" {
		t.Fatalf("unexpected context values %q %q", seenRun, seenSegment)
	}
}

func TestNewSyncServiceRejectsDuplicateSegments(t *testing.T) {
	client := &stubMarketplace{}
	catalog, _ := NewCatalogService(CatalogServiceDeps{})
	up, _ := NewUploader(UploaderDeps{})
	_, err := NewSyncService(SyncServiceDeps{
		Inventory: stubInventory{},
		Catalog:   catalog,
		Uploader:  up,
		Segments:  []Segment{{Schema: ozonSchema(), Client: client}, {Schema: ozonSchema(), Client: client}},
	})
	if err == nil {
		t.Fatalf("expected duplicate segment error")
	}
}
