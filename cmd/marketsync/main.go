package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"cloud.google.com/go/pubsub"
	cloudstorage "cloud.google.com/go/storage"
	"go.uber.org/zap"
	"google.golang.org/api/option"

	"github.com/VASILIYKAS/seller-apis/internal/di"
	"github.com/VASILIYKAS/seller-apis/internal/platform/config"
	"github.com/VASILIYKAS/seller-apis/internal/platform/observability"
	"github.com/VASILIYKAS/seller-apis/internal/platform/secrets"
	platformstorage "github.com/VASILIYKAS/seller-apis/internal/platform/storage"
	"github.com/VASILIYKAS/seller-apis/internal/services"
)

func main() {
	os.Exit(run())
}

func run() int {
	dryRun := flag.Bool("dry-run", false, "reconcile and log batches without pushing them")
	segmentFilter := flag.String("segments", "", "comma separated segments to sync (ozon,yandex-fbs,yandex-dbs)")
	envFile := flag.String("env-file", ".env", "dotenv file with local overrides")
	flag.Parse()

	baseLogger, err := observability.NewLogger()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to initialise logger: %v\n", err)
		return 1
	}
	defer func() {
		_ = baseLogger.Sync()
	}()

	logger := baseLogger.Named("marketsync")
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	ctx = observability.WithLogger(ctx, logger)

	overrides := flagOverrides(*dryRun, *segmentFilter)
	envValues, err := config.EnvironmentValues(config.WithEnvFile(*envFile), config.WithEnvMap(overrides))
	if err != nil {
		logger.Error("failed to read environment values", zap.Error(err))
		return 1
	}

	fetcher, err := newSecretFetcher(ctx, logger, envValues)
	if err != nil {
		logger.Error("failed to initialise secret fetcher", zap.Error(err))
		return 1
	}
	defer func() {
		if err := fetcher.Close(); err != nil {
			logger.Warn("secret fetcher close error", zap.Error(err))
		}
	}()

	cfg, err := config.Load(ctx,
		config.WithEnvFile(*envFile),
		config.WithEnvMap(overrides),
		config.WithSecretResolver(config.SecretResolverFunc(fetcher.Resolve)),
		config.WithRequiredSecrets(requiredSecretNames(envValues)...),
	)
	if err != nil {
		var missing *config.MissingSecretsError
		if errors.As(err, &missing) {
			logger.Error("missing required secrets", zap.Strings("secrets", missing.RedactedNames()))
			return 1
		}
		logger.Error("failed to load configuration", zap.Error(err))
		return 1
	}
	if len(cfg.Segments) == 0 {
		logger.Warn("no marketplace segments configured, nothing to sync")
		return 0
	}

	var clients di.Clients
	if platformstorage.IsGCSURL(cfg.Inventory.URL) || cfg.Report.Bucket != "" {
		storageClient, err := cloudstorage.NewClient(ctx)
		if err != nil {
			logger.Error("failed to initialise storage client", zap.Error(err))
			return 1
		}
		defer func() {
			if err := storageClient.Close(); err != nil {
				logger.Warn("storage close error", zap.Error(err))
			}
		}()
		clients.Storage = storageClient
	}
	if cfg.Report.Topic != "" {
		pubsubClient, err := pubsub.NewClient(ctx, cfg.Report.ProjectID)
		if err != nil {
			logger.Error("failed to initialise pubsub client", zap.Error(err))
			return 1
		}
		defer func() {
			if err := pubsubClient.Close(); err != nil {
				logger.Warn("pubsub close error", zap.Error(err))
			}
		}()
		clients.PubSub = pubsubClient
	}

	container, err := di.NewContainer(ctx, cfg, clients, logger)
	if err != nil {
		logger.Error("failed to initialise dependencies", zap.Error(err))
		return 1
	}
	defer func() {
		_ = container.Close(context.Background())
	}()

	runCtx, cancel := context.WithTimeout(ctx, cfg.Run.Timeout)
	defer cancel()

	report, err := container.Services.Sync.Run(runCtx)
	if err != nil {
		logger.Error("sync run aborted", zap.String("run_id", report.RunID), zap.Error(err))
		return 1
	}
	logReport(logger, report)
	if report.Failed() {
		return 1
	}
	return 0
}

func flagOverrides(dryRun bool, segments string) map[string]string {
	overrides := make(map[string]string)
	if dryRun {
		overrides["MARKETSYNC_DRY_RUN"] = "true"
	}
	if s := strings.TrimSpace(segments); s != "" {
		overrides["MARKETSYNC_SEGMENTS"] = s
	}
	return overrides
}

func logReport(logger *zap.Logger, report services.RunReport) {
	for _, seg := range report.Segments {
		fields := []zap.Field{
			zap.String("run_id", report.RunID),
			zap.String("segment", seg.Segment),
			zap.Int("catalog", seg.CatalogSize),
			zap.Int("stocks_sent", seg.StocksSent),
			zap.Int("non_zero_stocks", seg.NonZeroStocks),
			zap.Int("prices_sent", seg.PricesSent),
		}
		if seg.Failed() {
			fields = append(fields,
				zap.String("stage", seg.FailedStage),
				zap.String("kind", seg.FailureKind),
				zap.Error(seg.Err),
			)
			logger.Error(failureMessage(seg.FailureKind), fields...)
			continue
		}
		logger.Info("segment synced", fields...)
	}
	logger.Info("sync run finished",
		zap.String("run_id", report.RunID),
		zap.Int("inventory_rows", report.InventoryRows),
		zap.Bool("dry_run", report.DryRun),
		zap.Duration("elapsed", report.FinishedAt.Sub(report.StartedAt)),
		zap.Strings("failed_segments", report.FailedSegments()),
	)
}

func failureMessage(kind string) string {
	switch kind {
	case services.FailureTimeout:
		return "segment failed: marketplace did not respond in time"
	case services.FailureConnection:
		return "segment failed: marketplace unreachable"
	case services.FailureStatus:
		return "segment failed: marketplace rejected the request"
	default:
		return "segment failed"
	}
}

func newSecretFetcher(ctx context.Context, logger *zap.Logger, env map[string]string) (*secrets.Fetcher, error) {
	lookup := func(key string) string {
		if env == nil {
			return ""
		}
		return strings.TrimSpace(env[key])
	}

	envLabel := strings.ToLower(lookup("MARKETSYNC_ENVIRONMENT"))
	if envLabel == "" {
		envLabel = "local"
	}
	fallbackPath := lookup("MARKETSYNC_SECRETS_FALLBACK_FILE")
	if fallbackPath == "" {
		fallbackPath = ".secrets.local"
	}

	opts := []secrets.Option{
		secrets.WithEnvironment(envLabel),
		secrets.WithLogger(logger.Named("secrets")),
		secrets.WithFallbackFile(fallbackPath),
	}
	if projects := parseKeyValueList(lookup("MARKETSYNC_SECRETS_PROJECTS"), true); len(projects) > 0 {
		opts = append(opts, secrets.WithProjectMap(projects))
	}
	if project := lookup("MARKETSYNC_SECRETS_PROJECT_ID"); project != "" {
		opts = append(opts, secrets.WithDefaultProject(project))
	}
	if pins := secretVersionPinsFromEnv(lookup("MARKETSYNC_SECRETS_VERSION_PINS")); len(pins) > 0 {
		opts = append(opts, secrets.WithVersionPins(pins))
	}
	if credentialsFile := lookup("GOOGLE_APPLICATION_CREDENTIALS"); credentialsFile != "" {
		opts = append(opts, secrets.WithClientOptions(option.WithCredentialsFile(credentialsFile)))
	}

	return secrets.NewFetcher(ctx, opts...)
}

// requiredSecretNames marks a marketplace credential as mandatory once the marketplace is
// partially configured.
func requiredSecretNames(env map[string]string) []string {
	var required []string
	if strings.TrimSpace(env["MARKETSYNC_OZON_CLIENT_ID"]) != "" {
		required = append(required, "Ozon.APIKey")
	}
	if strings.TrimSpace(env["MARKETSYNC_YANDEX_FBS_CAMPAIGN_ID"]) != "" || strings.TrimSpace(env["MARKETSYNC_YANDEX_DBS_CAMPAIGN_ID"]) != "" {
		required = append(required, "Yandex.Token")
	}
	return required
}

func secretVersionPinsFromEnv(raw string) map[string]string {
	pins := make(map[string]string)
	for ref, version := range parseKeyValueList(raw, false) {
		var prefix string
		if idx := strings.Index(ref, ":"); idx > 0 {
			schemeSplit := strings.Index(ref, "://")
			if schemeSplit == -1 || idx < schemeSplit {
				prefix = strings.ToLower(strings.TrimSpace(ref[:idx])) + ":"
				ref = strings.TrimSpace(ref[idx+1:])
			}
		}
		if strings.HasPrefix(ref, "sm://") {
			ref = "secret://" + strings.TrimPrefix(ref, "sm://")
		} else if !strings.HasPrefix(ref, "secret://") {
			ref = "secret://" + ref
		}
		pins[prefix+ref] = version
	}
	return pins
}

func parseKeyValueList(raw string, lowerKeys bool) map[string]string {
	result := make(map[string]string)
	if strings.TrimSpace(raw) == "" {
		return result
	}
	for _, entry := range strings.Split(raw, ",") {
		entry = strings.TrimSpace(entry)
		if entry == "" {
			continue
		}
		parts := strings.SplitN(entry, "=", 2)
		if len(parts) != 2 {
			continue
		}
		key := strings.TrimSpace(parts[0])
		value := strings.TrimSpace(parts[1])
		if key == "" || value == "" {
			continue
		}
		if lowerKeys {
			key = strings.ToLower(key)
		}
		result[key] = value
	}
	return result
}
