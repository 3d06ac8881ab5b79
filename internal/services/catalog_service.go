package services

import (
	"context"
	"errors"
	"fmt"

	"github.com/VASILIYKAS/seller-apis/internal/domain"
	"github.com/VASILIYKAS/seller-apis/internal/marketplace"
	"github.com/VASILIYKAS/seller-apis/internal/platform/pagination"
	"github.com/VASILIYKAS/seller-apis/internal/platform/runctx"
)

const eventCatalogFetched = "catalog.fetched"

// CatalogServiceDeps bundles the collaborators required to construct a catalog service.
type CatalogServiceDeps struct {
	MaxPages int
	Metrics  SyncMetrics
	Logger   func(ctx context.Context, event string, fields map[string]any)
}

type catalogService struct {
	maxPages int
	metrics  SyncMetrics
	logger   func(context.Context, string, map[string]any)
}

// NewCatalogService wires dependencies into a concrete CatalogService implementation.
func NewCatalogService(deps CatalogServiceDeps) (CatalogService, error) {
	if deps.MaxPages < 0 {
		return nil, errors.New("catalog service: max pages must not be negative")
	}
	metrics := deps.Metrics
	if metrics == nil {
		metrics = noopMetrics{}
	}
	logger := deps.Logger
	if logger == nil {
		logger = noopLogger
	}
	return &catalogService{maxPages: deps.MaxPages, metrics: metrics, logger: logger}, nil
}

// FetchCatalog walks every catalog page. Status and transport errors from the client are
// returned unchanged so callers can classify them.
func (s *catalogService) FetchCatalog(ctx context.Context, client marketplace.Client) (domain.Catalog, error) {
	if client == nil {
		return domain.Catalog{}, errors.New("catalog service: client is required")
	}

	ids, err := pagination.Collect[string](ctx, client.FetchCatalogPage, pagination.Options{MaxPages: s.maxPages})
	if err != nil {
		return domain.Catalog{}, fmt.Errorf("fetch catalog: %w", err)
	}

	catalog := domain.NewCatalog(ids...)
	s.metrics.RecordCatalog(ctx, runctx.Segment(ctx), catalog.Len())
	s.logger(ctx, eventCatalogFetched, map[string]any{
		"offers":  catalog.Len(),
		"skipped": len(ids) - catalog.Len(),
	})
	return catalog, nil
}
