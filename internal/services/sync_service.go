package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/oklog/ulid/v2"

	"github.com/VASILIYKAS/seller-apis/internal/domain"
	"github.com/VASILIYKAS/seller-apis/internal/platform/httpx"
	"github.com/VASILIYKAS/seller-apis/internal/platform/observability"
	"github.com/VASILIYKAS/seller-apis/internal/platform/runctx"
	"github.com/VASILIYKAS/seller-apis/internal/reconcile"
)

const (
	eventRunStarted        = "sync.run.started"
	eventRunFinished       = "sync.run.finished"
	eventInventoryFailed   = "sync.inventory.failed"
	eventSegmentFinished   = "sync.segment.finished"
	eventSegmentFailed     = "sync.segment.failed"
	eventReportPublished   = "sync.report.published"
	eventReportArchived    = "sync.report.archived"
	eventReportSinkFailure = "sync.report.sink_failed"
)

// Stages at which a segment can fail.
const (
	StageCatalog   = "catalog"
	StageReconcile = "reconcile"
	StageStocks    = "stocks"
	StagePrices    = "prices"
)

// Failure classes recorded on a failed segment.
const (
	FailureTimeout    = "timeout"
	FailureConnection = "connection"
	FailureStatus     = "status"
	FailureValidation = "validation"
	FailureCancelled  = "cancelled"
	FailureOther      = "other"
)

// SegmentResult captures the outcome of one marketplace segment.
type SegmentResult struct {
	Segment       string    `json:"segment"`
	Marketplace   string    `json:"marketplace"`
	Program       string    `json:"program,omitempty"`
	CatalogSize   int       `json:"catalogSize"`
	StockRecords  int       `json:"stockRecords"`
	NonZeroStocks int       `json:"nonZeroStocks"`
	StocksSent    int       `json:"stocksSent"`
	PriceRecords  int       `json:"priceRecords"`
	PricesSent    int       `json:"pricesSent"`
	StartedAt     time.Time `json:"startedAt"`
	FinishedAt    time.Time `json:"finishedAt"`
	FailedStage   string    `json:"failedStage,omitempty"`
	FailureKind   string    `json:"failureKind,omitempty"`
	Error         string    `json:"error,omitempty"`

	// NonZero holds the stock records with a positive count that were pushed.
	NonZero []domain.StockUpdate `json:"-"`
	Err     error                `json:"-"`
}

// Failed reports whether the segment stopped early.
func (r SegmentResult) Failed() bool {
	return r.Err != nil
}

// RunReport summarises one invocation of the sync job.
type RunReport struct {
	RunID          string          `json:"runId"`
	StartedAt      time.Time       `json:"startedAt"`
	FinishedAt     time.Time       `json:"finishedAt"`
	DryRun         bool            `json:"dryRun"`
	InventoryRows  int             `json:"inventoryRows"`
	InventoryError string          `json:"inventoryError,omitempty"`
	Segments       []SegmentResult `json:"segments"`
}

// Failed reports whether the inventory load or any segment failed.
func (r RunReport) Failed() bool {
	if r.InventoryError != "" {
		return true
	}
	for _, s := range r.Segments {
		if s.Failed() {
			return true
		}
	}
	return false
}

// FailedSegments lists the names of failed segments.
func (r RunReport) FailedSegments() []string {
	var out []string
	for _, s := range r.Segments {
		if s.Failed() {
			out = append(out, s.Segment)
		}
	}
	return out
}

// SyncServiceDeps bundles the collaborators required to construct a sync service.
type SyncServiceDeps struct {
	Inventory InventorySource
	Segments  []Segment
	Catalog   CatalogService
	Uploader  Uploader
	Publisher ReportPublisher
	Archiver  ReportArchiver
	DryRun    bool

	Clock       func() time.Time
	IDGenerator func() string
	Logger      func(ctx context.Context, event string, fields map[string]any)
}

type syncService struct {
	inventory InventorySource
	segments  []Segment
	catalog   CatalogService
	uploader  Uploader
	publisher ReportPublisher
	archiver  ReportArchiver
	dryRun    bool

	clock  func() time.Time
	newID  func() string
	logger func(context.Context, string, map[string]any)
}

// NewSyncService wires dependencies into a concrete SyncService implementation.
func NewSyncService(deps SyncServiceDeps) (SyncService, error) {
	if deps.Inventory == nil {
		return nil, errors.New("sync service: inventory source is required")
	}
	if deps.Catalog == nil {
		return nil, errors.New("sync service: catalog service is required")
	}
	if deps.Uploader == nil {
		return nil, errors.New("sync service: uploader is required")
	}
	seen := make(map[string]struct{}, len(deps.Segments))
	for _, seg := range deps.Segments {
		if seg.Client == nil {
			return nil, fmt.Errorf("sync service: segment %q has no client", seg.Schema.Segment())
		}
		name := seg.Schema.Segment()
		if _, dup := seen[name]; dup {
			return nil, fmt.Errorf("sync service: duplicate segment %q", name)
		}
		seen[name] = struct{}{}
	}

	clock := deps.Clock
	if clock == nil {
		clock = time.Now
	}

	idGen := deps.IDGenerator
	if idGen == nil {
		idGen = func() string {
			return ulid.Make().String()
		}
	}

	logger := deps.Logger
	if logger == nil {
		logger = noopLogger
	}

	return &syncService{
		inventory: deps.Inventory,
		segments:  append([]Segment(nil), deps.Segments...),
		catalog:   deps.Catalog,
		uploader:  deps.Uploader,
		publisher: deps.Publisher,
		archiver:  deps.Archiver,
		dryRun:    deps.DryRun,
		clock: func() time.Time {
			return clock().UTC()
		},
		newID:  idGen,
		logger: logger,
	}, nil
}

// Run loads the inventory once and synchronises each segment in turn. A failing segment is
// recorded in the report and does not stop the others. The returned error is non-nil only when
// the inventory could not be loaded; segment failures are reported through RunReport.Failed.
func (s *syncService) Run(ctx context.Context) (RunReport, error) {
	report := RunReport{
		RunID:     s.newID(),
		StartedAt: s.now(),
		DryRun:    s.dryRun,
	}
	ctx = runctx.WithRunID(ctx, report.RunID)
	ctx, span := observability.StartSpan(ctx, "marketsync.run")

	s.logger(ctx, eventRunStarted, map[string]any{"segments": len(s.segments), "dry_run": s.dryRun})

	rows, err := s.inventory.Load(ctx)
	if err != nil {
		report.InventoryError = err.Error()
		report.FinishedAt = s.now()
		s.logger(ctx, eventInventoryFailed, map[string]any{"error": err})
		s.emitReport(ctx, report)
		observability.EndSpan(span, err)
		return report, fmt.Errorf("sync: load inventory: %w", err)
	}
	report.InventoryRows = len(rows)

	for _, seg := range s.segments {
		report.Segments = append(report.Segments, s.runSegment(ctx, seg, rows))
	}
	report.FinishedAt = s.now()

	s.logger(ctx, eventRunFinished, map[string]any{
		"inventory_rows":  report.InventoryRows,
		"failed_segments": report.FailedSegments(),
		"duration_ms":     report.FinishedAt.Sub(report.StartedAt).Milliseconds(),
	})
	s.emitReport(ctx, report)

	var runErr error
	if report.Failed() {
		runErr = fmt.Errorf("segments failed: %s", strings.Join(report.FailedSegments(), ", "))
	}
	observability.EndSpan(span, runErr)
	return report, nil
}

func (s *syncService) runSegment(ctx context.Context, seg Segment, rows []domain.InventoryRow) SegmentResult {
	schema := seg.Schema
	result := SegmentResult{
		Segment:     schema.Segment(),
		Marketplace: schema.Marketplace,
		Program:     schema.Program,
		StartedAt:   s.now(),
	}
	ctx = runctx.WithSegment(ctx, result.Segment)
	ctx, span := observability.StartSpan(ctx, "marketsync.segment")

	fail := func(stage string, err error) SegmentResult {
		result.FailedStage = stage
		result.FailureKind = classifyFailure(err)
		result.Err = err
		result.Error = err.Error()
		result.FinishedAt = s.now()
		s.logger(ctx, eventSegmentFailed, map[string]any{
			"stage":   stage,
			"failure": result.FailureKind,
			"error":   err,
		})
		observability.EndSpan(span, err)
		return result
	}

	catalog, err := s.catalog.FetchCatalog(ctx, seg.Client)
	if err != nil {
		return fail(StageCatalog, err)
	}
	result.CatalogSize = catalog.Len()

	stocks, err := reconcile.Stocks(rows, catalog, schema, s.now())
	if err != nil {
		return fail(StageReconcile, err)
	}
	result.StockRecords = len(stocks)

	prices := reconcile.Prices(rows, catalog, schema)
	result.PriceRecords = len(prices)
	if schema.IntegerPrices {
		if err := reconcile.CheckIntegerPrices(prices); err != nil {
			return fail(StageReconcile, err)
		}
	}

	sent, err := s.uploader.UploadStocks(ctx, seg.Client, schema, stocks)
	result.StocksSent = sent
	if err != nil {
		return fail(StageStocks, err)
	}
	result.NonZero = reconcile.NonZero(stocks)
	result.NonZeroStocks = len(result.NonZero)

	sent, err = s.uploader.UploadPrices(ctx, seg.Client, schema, prices)
	result.PricesSent = sent
	if err != nil {
		return fail(StagePrices, err)
	}

	result.FinishedAt = s.now()
	s.logger(ctx, eventSegmentFinished, map[string]any{
		"catalog":         result.CatalogSize,
		"stocks_sent":     result.StocksSent,
		"non_zero_stocks": result.NonZeroStocks,
		"prices_sent":     result.PricesSent,
	})
	observability.EndSpan(span, nil)
	return result
}

func (s *syncService) emitReport(ctx context.Context, report RunReport) {
	if s.publisher != nil {
		id, err := s.publisher.PublishRunReport(ctx, report)
		if err != nil {
			s.logger(ctx, eventReportSinkFailure, map[string]any{"sink": "publisher", "error": err})
		} else {
			s.logger(ctx, eventReportPublished, map[string]any{"message_id": id})
		}
	}
	if s.archiver != nil {
		location, err := s.archiver.ArchiveRunReport(ctx, report)
		if err != nil {
			s.logger(ctx, eventReportSinkFailure, map[string]any{"sink": "archiver", "error": err})
		} else {
			s.logger(ctx, eventReportArchived, map[string]any{"location": location})
		}
	}
}

func (s *syncService) now() time.Time {
	return s.clock()
}

func classifyFailure(err error) string {
	var statusErr *httpx.StatusError
	switch {
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded) && !httpx.IsTimeout(err):
		return FailureCancelled
	case httpx.IsTimeout(err):
		return FailureTimeout
	case httpx.IsConnection(err):
		return FailureConnection
	case errors.As(err, &statusErr):
		return FailureStatus
	case errors.Is(err, reconcile.ErrValidation), errors.Is(err, reconcile.ErrInvalidArgument), errors.Is(err, reconcile.ErrTypeKind):
		return FailureValidation
	default:
		return FailureOther
	}
}
