package observability

import (
	"context"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.uber.org/zap"
)

// SyncMetrics records batch and catalog instruments for sync runs.
// A zero or nil SyncMetrics is valid and records nothing.
type SyncMetrics struct {
	records        metric.Int64Counter
	recordsEnabled bool
	batches        metric.Int64Counter
	batchesEnabled bool
	latency        metric.Float64Histogram
	latencyEnabled bool
	catalog        metric.Int64Histogram
	catalogEnabled bool
}

// NewSyncMetrics registers the sync instruments on meter, or on the global meter provider when nil.
// Registration failures are logged and leave the affected instrument disabled.
func NewSyncMetrics(meter metric.Meter, logger *zap.Logger) *SyncMetrics {
	if meter == nil {
		meter = otel.GetMeterProvider().Meter(instrumentationName)
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	m := &SyncMetrics{}
	var err error

	m.records, err = meter.Int64Counter(
		"marketsync.records.pushed",
		metric.WithDescription("Count of stock and price records accepted by marketplaces"),
	)
	m.recordsEnabled = err == nil
	if err != nil {
		logger.Warn("metrics: unable to register records counter", zap.Error(err))
	}

	m.batches, err = meter.Int64Counter(
		"marketsync.batches",
		metric.WithDescription("Count of batch write calls by outcome"),
	)
	m.batchesEnabled = err == nil
	if err != nil {
		logger.Warn("metrics: unable to register batch counter", zap.Error(err))
	}

	m.latency, err = meter.Float64Histogram(
		"marketsync.batch.latency",
		metric.WithUnit("ms"),
		metric.WithDescription("Latency in milliseconds of batch write calls"),
	)
	m.latencyEnabled = err == nil
	if err != nil {
		logger.Warn("metrics: unable to register batch latency", zap.Error(err))
	}

	m.catalog, err = meter.Int64Histogram(
		"marketsync.catalog.size",
		metric.WithDescription("Offer ids fetched per catalog walk"),
	)
	m.catalogEnabled = err == nil
	if err != nil {
		logger.Warn("metrics: unable to register catalog size", zap.Error(err))
	}

	return m
}

// RecordBatch records the outcome of one batch write call.
func (m *SyncMetrics) RecordBatch(ctx context.Context, segment, kind string, size int, elapsed time.Duration, err error) {
	if m == nil {
		return
	}
	outcome := "ok"
	if err != nil {
		outcome = "error"
	}
	attrs := metric.WithAttributes(
		attribute.String("segment", segment),
		attribute.String("kind", kind),
		attribute.String("outcome", outcome),
	)
	if m.batchesEnabled {
		m.batches.Add(ctx, 1, attrs)
	}
	if m.latencyEnabled {
		m.latency.Record(ctx, float64(elapsed)/float64(time.Millisecond), attrs)
	}
	if err == nil && m.recordsEnabled {
		m.records.Add(ctx, int64(size), metric.WithAttributes(
			attribute.String("segment", segment),
			attribute.String("kind", kind),
		))
	}
}

// RecordCatalog records the number of offer ids fetched for a segment.
func (m *SyncMetrics) RecordCatalog(ctx context.Context, segment string, size int) {
	if m == nil || !m.catalogEnabled {
		return
	}
	m.catalog.Record(ctx, int64(size), metric.WithAttributes(attribute.String("segment", segment)))
}
