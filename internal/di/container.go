package di

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"cloud.google.com/go/pubsub"
	cloudstorage "cloud.google.com/go/storage"
	"go.opentelemetry.io/otel"
	"go.uber.org/zap"

	"github.com/VASILIYKAS/seller-apis/internal/domain"
	"github.com/VASILIYKAS/seller-apis/internal/inventory"
	"github.com/VASILIYKAS/seller-apis/internal/marketplace"
	"github.com/VASILIYKAS/seller-apis/internal/marketplace/ozon"
	"github.com/VASILIYKAS/seller-apis/internal/marketplace/yandex"
	"github.com/VASILIYKAS/seller-apis/internal/platform/config"
	"github.com/VASILIYKAS/seller-apis/internal/platform/httpx"
	"github.com/VASILIYKAS/seller-apis/internal/platform/jobs"
	"github.com/VASILIYKAS/seller-apis/internal/platform/observability"
	platformstorage "github.com/VASILIYKAS/seller-apis/internal/platform/storage"
	"github.com/VASILIYKAS/seller-apis/internal/services"
)

const meterName = "github.com/VASILIYKAS/seller-apis"

// Clients carries the cloud clients owned by the caller. A nil client disables the features
// that need it; configuring such a feature anyway is an error.
type Clients struct {
	Storage *cloudstorage.Client
	PubSub  *pubsub.Client
}

// Services bundles the service-layer contracts the job runs.
type Services struct {
	Catalog  services.CatalogService
	Uploader services.Uploader
	Sync     services.SyncService
}

// Container wires marketplace clients, the inventory source, report sinks and services.
type Container struct {
	Config   config.Config
	Segments []services.Segment
	Services Services

	topic *pubsub.Topic
}

// NewContainer constructs the runtime dependencies from cfg.
func NewContainer(ctx context.Context, cfg config.Config, clients Clients, logger *zap.Logger) (*Container, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	segments, err := buildSegments(cfg, logger)
	if err != nil {
		return nil, err
	}

	var archiver *services.BucketArchiver
	if bucket := strings.TrimSpace(cfg.Report.Bucket); bucket != "" {
		if clients.Storage == nil {
			return nil, errors.New("di: storage client is required for the report bucket")
		}
		archiver, err = newBucketArchiver(clients.Storage, bucket)
		if err != nil {
			return nil, fmt.Errorf("build report archiver: %w", err)
		}
	}

	loader, err := newInventoryLoader(cfg, clients.Storage, archiver, logger)
	if err != nil {
		return nil, fmt.Errorf("build inventory loader: %w", err)
	}

	c := &Container{Config: cfg, Segments: segments}

	var publisher services.ReportPublisher
	if topicName := strings.TrimSpace(cfg.Report.Topic); topicName != "" {
		if clients.PubSub == nil {
			return nil, errors.New("di: pubsub client is required for the report topic")
		}
		c.topic = clients.PubSub.Topic(topicName)
		pub, err := jobs.NewPubSubReportPublisher(c.topic)
		if err != nil {
			return nil, fmt.Errorf("build report publisher: %w", err)
		}
		publisher = pub
	}

	svc, err := buildServices(ctx, cfg, loader, segments, publisher, archiver, logger)
	if err != nil {
		_ = c.Close(ctx)
		return nil, err
	}
	c.Services = svc
	return c, nil
}

// Close flushes pending report publishes. Clients passed in stay open.
func (c *Container) Close(ctx context.Context) error {
	if c == nil || c.topic == nil {
		return nil
	}
	c.topic.Stop()
	return nil
}

func buildServices(_ context.Context, cfg config.Config, loader services.InventorySource, segments []services.Segment, publisher services.ReportPublisher, archiver *services.BucketArchiver, logger *zap.Logger) (Services, error) {
	var svc Services

	metrics := observability.NewSyncMetrics(otel.GetMeterProvider().Meter(meterName), logger.Named("metrics"))
	events := observability.EventLogger(logger.Named("sync"))

	catalogSvc, err := services.NewCatalogService(services.CatalogServiceDeps{
		MaxPages: cfg.Catalog.MaxPages,
		Metrics:  metrics,
		Logger:   events,
	})
	if err != nil {
		return Services{}, fmt.Errorf("build catalog service: %w", err)
	}
	svc.Catalog = catalogSvc

	uploader, err := services.NewUploader(services.UploaderDeps{
		DryRun:  cfg.Run.DryRun,
		Metrics: metrics,
		Logger:  events,
	})
	if err != nil {
		return Services{}, fmt.Errorf("build uploader: %w", err)
	}
	svc.Uploader = uploader

	deps := services.SyncServiceDeps{
		Inventory: loader,
		Segments:  segments,
		Catalog:   catalogSvc,
		Uploader:  uploader,
		Publisher: publisher,
		DryRun:    cfg.Run.DryRun,
		Logger:    events,
	}
	if archiver != nil {
		deps.Archiver = archiver
	}
	syncSvc, err := services.NewSyncService(deps)
	if err != nil {
		return Services{}, fmt.Errorf("build sync service: %w", err)
	}
	svc.Sync = syncSvc

	return svc, nil
}

func httpOptions(cfg config.Config, logger *zap.Logger) []httpx.Option {
	opts := []httpx.Option{
		httpx.WithTimeout(cfg.HTTP.Timeout),
		httpx.WithMaxRetries(cfg.HTTP.MaxRetries),
		httpx.WithLogger(logger),
	}
	if cfg.HTTP.RPS > 0 {
		opts = append(opts, httpx.WithRateLimit(cfg.HTTP.RPS))
	}
	return opts
}

func buildSegments(cfg config.Config, logger *zap.Logger) ([]services.Segment, error) {
	segments := make([]services.Segment, 0, len(cfg.Segments))
	for _, seg := range cfg.Segments {
		schema := seg.Schema()
		named := logger.Named(schema.Segment())

		var client marketplace.Client
		switch schema.Marketplace {
		case domain.MarketplaceOzon:
			c, err := ozon.NewClient(ozon.Config{
				BaseURL:  cfg.Ozon.BaseURL,
				ClientID: cfg.Ozon.ClientID,
				APIKey:   cfg.Ozon.APIKey,
				Logger:   named,
			}, httpOptions(cfg, named)...)
			if err != nil {
				return nil, fmt.Errorf("segment %s: %w", schema.Segment(), err)
			}
			client = c
			named.Info("segment configured", zap.String("client_id", observability.MaskCredential(cfg.Ozon.ClientID)))
		case domain.MarketplaceYandex:
			c, err := yandex.NewClient(yandex.Config{
				BaseURL:    cfg.Yandex.BaseURL,
				Token:      cfg.Yandex.Token,
				CampaignID: seg.CampaignID,
				Logger:     named,
			}, httpOptions(cfg, named)...)
			if err != nil {
				return nil, fmt.Errorf("segment %s: %w", schema.Segment(), err)
			}
			client = c
			named.Info("segment configured",
				zap.String("campaign_id", seg.CampaignID),
				zap.String("warehouse_id", seg.WarehouseID),
				zap.String("token", observability.MaskCredential(cfg.Yandex.Token)),
			)
		default:
			return nil, fmt.Errorf("segment %s: unsupported marketplace %q", schema.Segment(), schema.Marketplace)
		}
		segments = append(segments, services.Segment{Schema: schema, Client: client})
	}
	return segments, nil
}

func newBucketArchiver(client *cloudstorage.Client, bucket string) (*services.BucketArchiver, error) {
	objects, err := platformstorage.NewObjects(client)
	if err != nil {
		return nil, err
	}
	copier, err := platformstorage.NewCopier(client)
	if err != nil {
		return nil, err
	}
	return services.NewBucketArchiver(services.BucketArchiverDeps{
		Bucket:  bucket,
		Objects: objects,
		Copier:  copier,
	})
}

func newInventoryLoader(cfg config.Config, client *cloudstorage.Client, archiver *services.BucketArchiver, logger *zap.Logger) (*inventory.Loader, error) {
	named := logger.Named("inventory")
	loaderCfg := inventory.Config{
		URL:       cfg.Inventory.URL,
		Member:    cfg.Inventory.File,
		HeaderRow: cfg.Inventory.HeaderRow,
		Charset:   cfg.Inventory.Charset,
		Columns: inventory.Columns{
			Code:     cfg.Inventory.Columns["code"],
			Quantity: cfg.Inventory.Columns["quantity"],
			Price:    cfg.Inventory.Columns["price"],
			Name:     cfg.Inventory.Columns["name"],
		},
	}

	source := strings.TrimSpace(cfg.Inventory.URL)
	switch {
	case platformstorage.IsGCSURL(source):
		if client == nil {
			return nil, errors.New("storage client is required for gs:// inventory")
		}
		objects, err := platformstorage.NewObjects(client)
		if err != nil {
			return nil, err
		}
		loaderCfg.Objects = objects
	case strings.HasPrefix(source, "http://") || strings.HasPrefix(source, "https://"):
		httpClient, err := httpx.NewClient(source, httpOptions(cfg, named)...)
		if err != nil {
			return nil, err
		}
		loaderCfg.HTTP = httpClient
	}

	if archiver != nil {
		loaderCfg.Archive = archiver.ArchiveSnapshot
	}
	return inventory.NewLoader(loaderCfg)
}
