// Package runctx carries per-run values (logger, run id, segment) through context.
package runctx

import (
	"context"

	"go.uber.org/zap"
)

type contextKey string

const (
	loggerContextKey  contextKey = "github.com/VASILIYKAS/seller-apis/internal/platform/runctx/logger"
	runIDContextKey   contextKey = "github.com/VASILIYKAS/seller-apis/internal/platform/runctx/run"
	segmentContextKey contextKey = "github.com/VASILIYKAS/seller-apis/internal/platform/runctx/segment"
)

var noopLogger = zap.NewNop()

// WithLogger stores the logger in context for downstream consumers.
func WithLogger(ctx context.Context, logger *zap.Logger) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	if logger == nil {
		logger = noopLogger
	}
	return context.WithValue(ctx, loggerContextKey, logger)
}

// Logger retrieves the zap logger from context or returns a no-op logger.
func Logger(ctx context.Context) *zap.Logger {
	if ctx == nil {
		return noopLogger
	}
	if logger, ok := ctx.Value(loggerContextKey).(*zap.Logger); ok && logger != nil {
		return logger
	}
	return noopLogger
}

// NoopLogger exposes the shared noop logger instance used across the package.
func NoopLogger() *zap.Logger { return noopLogger }

// WithRunID records the identifier of the current sync run.
func WithRunID(ctx context.Context, runID string) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	return context.WithValue(ctx, runIDContextKey, runID)
}

// RunID returns the current run identifier, or "" outside a run.
func RunID(ctx context.Context) string {
	if ctx == nil {
		return ""
	}
	id, _ := ctx.Value(runIDContextKey).(string)
	return id
}

// WithSegment records the segment (e.g. "yandex-fbs") being processed.
func WithSegment(ctx context.Context, segment string) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	return context.WithValue(ctx, segmentContextKey, segment)
}

// Segment returns the segment being processed, or "" when none is set.
func Segment(ctx context.Context) string {
	if ctx == nil {
		return ""
	}
	segment, _ := ctx.Value(segmentContextKey).(string)
	return segment
}
