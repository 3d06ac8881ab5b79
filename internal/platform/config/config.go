package config

import (
	"bufio"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/VASILIYKAS/seller-apis/internal/domain"
)

const (
	defaultEnvFile          = ".env"
	defaultEnvironment      = "local"
	defaultRunTimeout       = 15 * time.Minute
	defaultInventoryURL     = "https://timeworld.ru/upload/files/ostatki.zip"
	defaultInventoryFile    = "ostatki.xls"
	defaultInventoryHeader  = 17
	defaultInventoryCharset = "utf-8"
	defaultInventoryColumns = "code=Код,quantity=Количество,price=Цена,name=Наименование"
	defaultHTTPTimeout      = 30 * time.Second
	defaultHTTPMaxRetries   = 2
	defaultCatalogMaxPages  = 1000
	defaultOzonBaseURL      = "https://api-seller.ozon.ru"
	defaultOzonStockBatch   = 100
	defaultOzonPriceBatch   = 1000
	defaultYandexBaseURL    = "https://api.partner.market.yandex.ru"
	defaultYandexStockBatch = 2000
	defaultYandexPriceBatch = 500
	defaultSecretsFallback  = ".secrets.local"
)

// Config captures all runtime configuration organised by concern.
type Config struct {
	Run       RunConfig
	Inventory InventoryConfig
	HTTP      HTTPConfig
	Catalog   CatalogConfig
	Ozon      OzonConfig
	Yandex    YandexConfig
	Secrets   SecretsConfig
	Report    ReportConfig

	// Segments lists the marketplace segments that have credentials and pass the filter.
	Segments []SegmentConfig
}

// RunConfig controls a single invocation of the job.
type RunConfig struct {
	Environment   string
	Timeout       time.Duration
	DryRun        bool
	SegmentFilter []string
	SegmentsFile  string
}

// InventoryConfig locates and describes the merchant's stock snapshot.
type InventoryConfig struct {
	URL       string
	File      string
	HeaderRow int
	Charset   string

	// Columns maps logical field names (code, quantity, price, name) to header captions.
	Columns map[string]string
}

// HTTPConfig tunes the outbound marketplace transport.
type HTTPConfig struct {
	Timeout    time.Duration
	MaxRetries int
	RPS        float64
}

// CatalogConfig bounds catalog pagination.
type CatalogConfig struct {
	MaxPages int
}

// OzonConfig holds Ozon Seller API credentials and batch limits.
type OzonConfig struct {
	BaseURL    string
	ClientID   string
	APIKey     string
	StockBatch int
	PriceBatch int
}

// Configured reports whether both Ozon credentials are present.
func (c OzonConfig) Configured() bool {
	return strings.TrimSpace(c.ClientID) != "" && strings.TrimSpace(c.APIKey) != ""
}

// YandexConfig holds Yandex Market Partner API credentials, campaigns and batch limits.
type YandexConfig struct {
	BaseURL    string
	Token      string
	FBS        YandexCampaign
	DBS        YandexCampaign
	StockBatch int
	PriceBatch int
}

// YandexCampaign identifies one fulfillment program.
type YandexCampaign struct {
	CampaignID  string
	WarehouseID string
}

// SecretsConfig configures Secret Manager lookups.
type SecretsConfig struct {
	ProjectID    string
	Projects     map[string]string
	FallbackFile string
}

// ReportConfig configures run report sinks. Empty values disable the sink.
type ReportConfig struct {
	Topic     string
	ProjectID string
	Bucket    string
}

// SegmentConfig describes one marketplace segment. It is also the YAML shape of SEGMENTS_FILE entries.
type SegmentConfig struct {
	Marketplace string `yaml:"marketplace"`
	Program     string `yaml:"program"`
	CampaignID  string `yaml:"campaign_id"`
	WarehouseID string `yaml:"warehouse_id"`
	Currency    string `yaml:"currency"`
	StockBatch  int    `yaml:"stock_batch"`
	PriceBatch  int    `yaml:"price_batch"`
}

// Name returns the segment name, e.g. "yandex-dbs".
func (s SegmentConfig) Name() string {
	return s.Schema().Segment()
}

// Schema converts the segment into the reconciliation schema.
func (s SegmentConfig) Schema() domain.Schema {
	marketplace := strings.ToLower(strings.TrimSpace(s.Marketplace))
	return domain.Schema{
		Marketplace:    marketplace,
		Program:        strings.ToLower(strings.TrimSpace(s.Program)),
		WarehouseID:    strings.TrimSpace(s.WarehouseID),
		StampUpdates:   marketplace == domain.MarketplaceYandex,
		IntegerPrices:  marketplace == domain.MarketplaceYandex,
		Currency:       s.Currency,
		StockBatchSize: s.StockBatch,
		PriceBatchSize: s.PriceBatch,
	}
}

type segmentsFile struct {
	Segments []SegmentConfig `yaml:"segments"`
}

// SecretResolver resolves references to external secrets (e.g. Secret Manager URIs).
type SecretResolver interface {
	ResolveSecret(ctx context.Context, ref string) (string, error)
}

// SecretResolverFunc adapts ordinary functions to SecretResolver.
type SecretResolverFunc func(context.Context, string) (string, error)

// ResolveSecret resolves the secret using the wrapped function.
func (f SecretResolverFunc) ResolveSecret(ctx context.Context, ref string) (string, error) {
	return f(ctx, ref)
}

// ValidationError is returned when required configuration fields are missing or invalid.
type ValidationError struct {
	fields []string
}

// Error implements the error interface.
func (e *ValidationError) Error() string {
	return fmt.Sprintf("config validation failed: missing or invalid fields [%s]", strings.Join(e.fields, ", "))
}

// Fields returns a copy of the missing/invalid field list.
func (e *ValidationError) Fields() []string {
	out := make([]string, len(e.fields))
	copy(out, e.fields)
	return out
}

// SecretError describes failures while resolving a secret reference.
type SecretError struct {
	Ref string
	Err error
}

// Error implements the error interface.
func (e *SecretError) Error() string {
	return fmt.Sprintf("secret resolution failed for ref %q: %v", e.Ref, e.Err)
}

// Unwrap exposes the underlying error.
func (e *SecretError) Unwrap() error { return e.Err }

// MissingSecretsError indicates that one or more required secrets failed to resolve.
type MissingSecretsError struct {
	secrets []missingSecret
}

type missingSecret struct {
	name     string
	redacted string
}

// Error implements the error interface.
func (e *MissingSecretsError) Error() string {
	if e == nil || len(e.secrets) == 0 {
		return "missing required secrets"
	}
	names := make([]string, 0, len(e.secrets))
	for _, secret := range e.secrets {
		names = append(names, secret.redacted)
	}
	sort.Strings(names)
	return fmt.Sprintf("missing required secrets [%s]", strings.Join(names, ", "))
}

// RedactedNames returns a copy of the redacted secret identifiers.
func (e *MissingSecretsError) RedactedNames() []string {
	if e == nil || len(e.secrets) == 0 {
		return nil
	}
	out := make([]string, 0, len(e.secrets))
	for _, secret := range e.secrets {
		out = append(out, secret.redacted)
	}
	sort.Strings(out)
	return out
}

// Names returns the underlying secret identifiers.
func (e *MissingSecretsError) Names() []string {
	if e == nil || len(e.secrets) == 0 {
		return nil
	}
	out := make([]string, 0, len(e.secrets))
	for _, secret := range e.secrets {
		out = append(out, secret.name)
	}
	sort.Strings(out)
	return out
}

var errSecretResolverNotConfigured = errors.New("secret resolver not configured")

// Option customises Load behaviour.
type Option func(*loaderOptions)

type loaderOptions struct {
	envFile         string
	envMap          map[string]string
	useSystemEnv    bool
	secret          SecretResolver
	requiredSecrets []string
}

// EnvironmentValues returns the effective key/value environment map after applying the same precedence
// rules as Load (dotenv < OS env < explicit env map). Callers can use the result to initialise
// dependencies before invoking Load.
func EnvironmentValues(opts ...Option) (map[string]string, error) {
	options := loaderOptions{
		envFile:      defaultEnvFile,
		useSystemEnv: true,
	}

	for _, opt := range opts {
		opt(&options)
	}

	dotEnvValues, err := loadDotEnv(options.envFile)
	if err != nil {
		return nil, err
	}

	values := make(map[string]string)
	merge := func(source map[string]string) {
		if source == nil {
			return
		}
		for key, value := range source {
			values[key] = value
		}
	}

	merge(dotEnvValues)

	if options.useSystemEnv {
		system := make(map[string]string)
		for _, entry := range os.Environ() {
			if entry == "" {
				continue
			}
			parts := strings.SplitN(entry, "=", 2)
			if len(parts) != 2 {
				continue
			}
			key := strings.TrimSpace(parts[0])
			if key == "" {
				continue
			}
			system[key] = parts[1]
		}
		merge(system)
	}

	merge(options.envMap)

	return values, nil
}

// WithEnvFile overrides the .env file path used for local overrides.
func WithEnvFile(path string) Option {
	return func(o *loaderOptions) {
		o.envFile = path
	}
}

// WithEnvMap injects an explicit key/value map for environment lookups. Values in the map
// take precedence over system environment variables.
func WithEnvMap(values map[string]string) Option {
	return func(o *loaderOptions) {
		o.envMap = values
	}
}

// WithoutSystemEnv disables reading from os.Getenv, relying only on provided maps and .env files.
func WithoutSystemEnv() Option {
	return func(o *loaderOptions) {
		o.useSystemEnv = false
	}
}

// WithSecretResolver sets a custom secret resolver used for sm:// references.
func WithSecretResolver(resolver SecretResolver) Option {
	return func(o *loaderOptions) {
		o.secret = resolver
	}
}

// WithRequiredSecrets marks the provided secret identifiers as mandatory.
// Identifiers should match the config field names recorded by the loader
// (e.g. "Ozon.APIKey" or "Yandex.Token").
func WithRequiredSecrets(names ...string) Option {
	return func(o *loaderOptions) {
		o.requiredSecrets = append(o.requiredSecrets, names...)
	}
}

// Load assembles the job configuration by combining defaults, .env overrides,
// environment variables, and optional secret manager lookups.
func Load(ctx context.Context, opts ...Option) (Config, error) {
	options := loaderOptions{
		envFile:      defaultEnvFile,
		useSystemEnv: true,
		secret: SecretResolverFunc(func(ctx context.Context, ref string) (string, error) {
			return "", &SecretError{Ref: ref, Err: errSecretResolverNotConfigured}
		}),
	}

	for _, opt := range opts {
		opt(&options)
	}

	dotEnvValues, err := loadDotEnv(options.envFile)
	if err != nil {
		return Config{}, err
	}

	lookup := func(key string) (string, bool) {
		if options.envMap != nil {
			if value, ok := options.envMap[key]; ok {
				return value, true
			}
		}
		if options.useSystemEnv {
			if value, ok := os.LookupEnv(key); ok {
				return value, true
			}
		}
		if dotEnvValues != nil {
			if value, ok := dotEnvValues[key]; ok {
				return value, true
			}
		}
		return "", false
	}

	cfg := Config{
		Run: RunConfig{
			Environment:   strings.ToLower(stringWithDefault(lookup, "MARKETSYNC_ENVIRONMENT", defaultEnvironment)),
			Timeout:       durationWithDefault(lookup, "MARKETSYNC_RUN_TIMEOUT", defaultRunTimeout),
			DryRun:        boolWithDefault(lookup, "MARKETSYNC_DRY_RUN", false),
			SegmentFilter: csvWithDefault(lookup, "MARKETSYNC_SEGMENTS"),
			SegmentsFile:  stringWithDefault(lookup, "MARKETSYNC_SEGMENTS_FILE", ""),
		},
		Inventory: InventoryConfig{
			URL:       stringWithDefault(lookup, "MARKETSYNC_INVENTORY_URL", defaultInventoryURL),
			File:      stringWithDefault(lookup, "MARKETSYNC_INVENTORY_FILE", defaultInventoryFile),
			HeaderRow: intWithDefault(lookup, "MARKETSYNC_INVENTORY_HEADER_ROW", defaultInventoryHeader),
			Charset:   stringWithDefault(lookup, "MARKETSYNC_INVENTORY_CHARSET", defaultInventoryCharset),
			Columns:   columnsWithDefault(lookup, "MARKETSYNC_INVENTORY_COLUMNS"),
		},
		HTTP: HTTPConfig{
			Timeout:    durationWithDefault(lookup, "MARKETSYNC_HTTP_TIMEOUT", defaultHTTPTimeout),
			MaxRetries: intWithDefault(lookup, "MARKETSYNC_HTTP_MAX_RETRIES", defaultHTTPMaxRetries),
			RPS:        floatWithDefault(lookup, "MARKETSYNC_HTTP_RPS", 0),
		},
		Catalog: CatalogConfig{
			MaxPages: intWithDefault(lookup, "MARKETSYNC_CATALOG_MAX_PAGES", defaultCatalogMaxPages),
		},
		Ozon: OzonConfig{
			BaseURL:    stringWithDefault(lookup, "MARKETSYNC_OZON_BASE_URL", defaultOzonBaseURL),
			ClientID:   stringWithDefault(lookup, "MARKETSYNC_OZON_CLIENT_ID", ""),
			APIKey:     stringWithDefault(lookup, "MARKETSYNC_OZON_API_KEY", ""),
			StockBatch: intWithDefault(lookup, "MARKETSYNC_OZON_STOCK_BATCH", defaultOzonStockBatch),
			PriceBatch: intWithDefault(lookup, "MARKETSYNC_OZON_PRICE_BATCH", defaultOzonPriceBatch),
		},
		Yandex: YandexConfig{
			BaseURL: stringWithDefault(lookup, "MARKETSYNC_YANDEX_BASE_URL", defaultYandexBaseURL),
			Token:   stringWithDefault(lookup, "MARKETSYNC_YANDEX_TOKEN", ""),
			FBS: YandexCampaign{
				CampaignID:  stringWithDefault(lookup, "MARKETSYNC_YANDEX_FBS_CAMPAIGN_ID", ""),
				WarehouseID: stringWithDefault(lookup, "MARKETSYNC_YANDEX_FBS_WAREHOUSE_ID", ""),
			},
			DBS: YandexCampaign{
				CampaignID:  stringWithDefault(lookup, "MARKETSYNC_YANDEX_DBS_CAMPAIGN_ID", ""),
				WarehouseID: stringWithDefault(lookup, "MARKETSYNC_YANDEX_DBS_WAREHOUSE_ID", ""),
			},
			StockBatch: intWithDefault(lookup, "MARKETSYNC_YANDEX_STOCK_BATCH", defaultYandexStockBatch),
			PriceBatch: intWithDefault(lookup, "MARKETSYNC_YANDEX_PRICE_BATCH", defaultYandexPriceBatch),
		},
		Secrets: SecretsConfig{
			ProjectID:    stringWithDefault(lookup, "MARKETSYNC_SECRETS_PROJECT_ID", ""),
			Projects:     mapWithDefault(lookup, "MARKETSYNC_SECRETS_PROJECTS"),
			FallbackFile: stringWithDefault(lookup, "MARKETSYNC_SECRETS_FALLBACK_FILE", defaultSecretsFallback),
		},
		Report: ReportConfig{
			Topic:     stringWithDefault(lookup, "MARKETSYNC_REPORT_TOPIC", ""),
			ProjectID: stringWithDefault(lookup, "MARKETSYNC_REPORT_PROJECT_ID", ""),
			Bucket:    stringWithDefault(lookup, "MARKETSYNC_REPORT_BUCKET", ""),
		},
	}

	resolvedSecrets := make(map[string]string)
	recordSecret := func(name, value string) {
		resolvedSecrets[name] = strings.TrimSpace(value)
	}
	resolveField := func(name string, field *string) error {
		resolved, err := resolveSecret(ctx, *field, options.secret)
		if err != nil {
			return err
		}
		*field = resolved
		recordSecret(name, resolved)
		return nil
	}

	// Resolve secrets when values reference Secret Manager.
	secretFields := []struct {
		name  string
		field *string
	}{
		{"Ozon.ClientID", &cfg.Ozon.ClientID},
		{"Ozon.APIKey", &cfg.Ozon.APIKey},
		{"Yandex.Token", &cfg.Yandex.Token},
	}
	for _, target := range secretFields {
		if err := resolveField(target.name, target.field); err != nil {
			return Config{}, err
		}
	}

	// Report project defaults to the secrets project when unspecified.
	if cfg.Report.ProjectID == "" {
		cfg.Report.ProjectID = cfg.Secrets.ProjectID
	}

	candidates, defined, err := candidateSegments(cfg)
	if err != nil {
		return Config{}, err
	}

	if err := validateConfig(cfg, candidates, defined); err != nil {
		return Config{}, err
	}
	cfg.Segments = filterSegments(candidates, cfg.Run.SegmentFilter)

	if missing := findMissingSecrets(options.requiredSecrets, resolvedSecrets); missing != nil {
		return Config{}, missing
	}

	return cfg, nil
}

// candidateSegments returns the segments defined by SEGMENTS_FILE, or the env-derived ones,
// dropping marketplaces whose credentials are absent. The second result holds the names of
// every defined segment, skipped or not.
func candidateSegments(cfg Config) ([]SegmentConfig, map[string]struct{}, error) {
	var defined []SegmentConfig
	if cfg.Run.SegmentsFile != "" {
		fromFile, err := loadSegmentsFile(cfg.Run.SegmentsFile)
		if err != nil {
			return nil, nil, err
		}
		defined = fromFile
	} else {
		defined = []SegmentConfig{
			{Marketplace: domain.MarketplaceOzon},
			{Marketplace: domain.MarketplaceYandex, Program: domain.ProgramFBS, CampaignID: cfg.Yandex.FBS.CampaignID, WarehouseID: cfg.Yandex.FBS.WarehouseID},
			{Marketplace: domain.MarketplaceYandex, Program: domain.ProgramDBS, CampaignID: cfg.Yandex.DBS.CampaignID, WarehouseID: cfg.Yandex.DBS.WarehouseID},
		}
	}

	out := make([]SegmentConfig, 0, len(defined))
	names := make(map[string]struct{}, len(defined))
	for _, seg := range defined {
		seg.Marketplace = strings.ToLower(strings.TrimSpace(seg.Marketplace))
		seg.Program = strings.ToLower(strings.TrimSpace(seg.Program))
		names[seg.Name()] = struct{}{}
		switch seg.Marketplace {
		case domain.MarketplaceOzon:
			if !cfg.Ozon.Configured() {
				continue
			}
			if seg.Currency == "" {
				seg.Currency = domain.CurrencyRUB
			}
			if seg.StockBatch == 0 {
				seg.StockBatch = cfg.Ozon.StockBatch
			}
			if seg.PriceBatch == 0 {
				seg.PriceBatch = cfg.Ozon.PriceBatch
			}
		case domain.MarketplaceYandex:
			if strings.TrimSpace(cfg.Yandex.Token) == "" || strings.TrimSpace(seg.CampaignID) == "" {
				continue
			}
			if seg.Currency == "" {
				seg.Currency = domain.CurrencyRUR
			}
			if seg.StockBatch == 0 {
				seg.StockBatch = cfg.Yandex.StockBatch
			}
			if seg.PriceBatch == 0 {
				seg.PriceBatch = cfg.Yandex.PriceBatch
			}
		default:
			return nil, nil, &ValidationError{fields: []string{fmt.Sprintf("Segments[%s].Marketplace", seg.Marketplace)}}
		}
		out = append(out, seg)
	}
	return out, names, nil
}

func loadSegmentsFile(path string) ([]SegmentConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config: unable to read segments file %s: %w", path, err)
	}
	var file segmentsFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("config: failed parsing segments file %s: %w", path, err)
	}
	return file.Segments, nil
}

func filterSegments(segments []SegmentConfig, filter []string) []SegmentConfig {
	if len(filter) == 0 {
		return segments
	}
	wanted := make(map[string]struct{}, len(filter))
	for _, name := range filter {
		wanted[strings.ToLower(name)] = struct{}{}
	}
	out := make([]SegmentConfig, 0, len(segments))
	for _, seg := range segments {
		if _, ok := wanted[seg.Name()]; ok {
			out = append(out, seg)
		}
	}
	return out
}

func resolveSecret(ctx context.Context, value string, resolver SecretResolver) (string, error) {
	if value == "" {
		return value, nil
	}
	if !isSecretReference(value) {
		return value, nil
	}
	if resolver == nil {
		normalized := normalizeSecretReference(value)
		return "", &SecretError{Ref: normalized, Err: errSecretResolverNotConfigured}
	}
	normalized := normalizeSecretReference(value)
	secret, err := resolver.ResolveSecret(ctx, normalized)
	if err != nil {
		return "", &SecretError{Ref: normalized, Err: err}
	}
	return secret, nil
}

func validateConfig(cfg Config, segments []SegmentConfig, defined map[string]struct{}) error {
	var missing []string

	if cfg.Run.Timeout <= 0 {
		missing = append(missing, "Run.Timeout")
	}
	if strings.TrimSpace(cfg.Inventory.URL) == "" {
		missing = append(missing, "Inventory.URL")
	}
	if cfg.Inventory.HeaderRow < 0 {
		missing = append(missing, "Inventory.HeaderRow")
	}
	for _, column := range []string{"code", "quantity", "price"} {
		if strings.TrimSpace(cfg.Inventory.Columns[column]) == "" {
			missing = append(missing, fmt.Sprintf("Inventory.Columns[%s]", column))
		}
	}
	if cfg.HTTP.Timeout <= 0 {
		missing = append(missing, "HTTP.Timeout")
	}
	if cfg.HTTP.MaxRetries < 0 {
		missing = append(missing, "HTTP.MaxRetries")
	}
	if cfg.HTTP.RPS < 0 {
		missing = append(missing, "HTTP.RPS")
	}
	if cfg.Catalog.MaxPages <= 0 {
		missing = append(missing, "Catalog.MaxPages")
	}
	if cfg.Ozon.StockBatch <= 0 {
		missing = append(missing, "Ozon.StockBatch")
	}
	if cfg.Ozon.PriceBatch <= 0 {
		missing = append(missing, "Ozon.PriceBatch")
	}
	if cfg.Yandex.StockBatch <= 0 {
		missing = append(missing, "Yandex.StockBatch")
	}
	if cfg.Yandex.PriceBatch <= 0 {
		missing = append(missing, "Yandex.PriceBatch")
	}

	known := make(map[string]struct{}, len(segments))
	for _, seg := range segments {
		name := seg.Name()
		if _, dup := known[name]; dup {
			missing = append(missing, fmt.Sprintf("Segments[%s]", name))
			continue
		}
		known[name] = struct{}{}
		if seg.StockBatch <= 0 {
			missing = append(missing, fmt.Sprintf("Segments[%s].StockBatch", name))
		}
		if seg.PriceBatch <= 0 {
			missing = append(missing, fmt.Sprintf("Segments[%s].PriceBatch", name))
		}
		if seg.Marketplace == domain.MarketplaceYandex {
			if seg.Program == "" {
				missing = append(missing, fmt.Sprintf("Segments[%s].Program", name))
			}
			if _, err := strconv.ParseInt(strings.TrimSpace(seg.WarehouseID), 10, 64); err != nil {
				missing = append(missing, fmt.Sprintf("Segments[%s].WarehouseID", name))
			}
		}
	}
	for _, name := range cfg.Run.SegmentFilter {
		if _, ok := defined[strings.ToLower(name)]; !ok {
			missing = append(missing, fmt.Sprintf("Run.SegmentFilter[%s]", name))
		}
	}

	if len(missing) > 0 {
		return &ValidationError{fields: missing}
	}
	return nil
}

func findMissingSecrets(required []string, resolved map[string]string) *MissingSecretsError {
	if len(required) == 0 {
		return nil
	}
	missing := make([]missingSecret, 0, len(required))
	seen := make(map[string]struct{})
	for _, name := range required {
		trimmed := strings.TrimSpace(name)
		if trimmed == "" {
			continue
		}
		if _, ok := seen[trimmed]; ok {
			continue
		}
		seen[trimmed] = struct{}{}
		if value := strings.TrimSpace(resolved[trimmed]); value != "" {
			continue
		}
		missing = append(missing, missingSecret{
			name:     trimmed,
			redacted: redactSecretName(trimmed),
		})
	}
	if len(missing) == 0 {
		return nil
	}
	return &MissingSecretsError{secrets: missing}
}

func isSecretReference(value string) bool {
	trimmed := strings.TrimSpace(value)
	return strings.HasPrefix(trimmed, "secret://") || strings.HasPrefix(trimmed, "sm://")
}

func normalizeSecretReference(value string) string {
	trimmed := strings.TrimSpace(value)
	if strings.HasPrefix(trimmed, "sm://") {
		return "secret://" + strings.TrimPrefix(trimmed, "sm://")
	}
	return trimmed
}

func redactSecretName(name string) string {
	sum := sha256.Sum256([]byte(name))
	return hex.EncodeToString(sum[:8])
}

func loadDotEnv(path string) (map[string]string, error) {
	if path == "" {
		return nil, nil
	}

	absPath, err := filepath.Abs(path)
	if err != nil {
		absPath = path
	}

	file, err := os.Open(absPath)
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("config: unable to read %s: %w", absPath, err)
	}
	defer file.Close()

	scanner := bufio.NewScanner(file)
	values := make(map[string]string)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		if strings.HasPrefix(line, "export ") {
			line = strings.TrimSpace(strings.TrimPrefix(line, "export "))
		}
		parts := strings.SplitN(line, "=", 2)
		if len(parts) != 2 {
			continue
		}
		key := strings.TrimSpace(parts[0])
		value := strings.TrimSpace(parts[1])
		if key == "" {
			continue
		}
		value = strings.Trim(value, "\"'")
		values[key] = value
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("config: failed parsing %s: %w", absPath, err)
	}
	return values, nil
}

func stringWithDefault(lookup func(string) (string, bool), key, fallback string) string {
	if value, ok := lookup(key); ok && value != "" {
		return value
	}
	return fallback
}

func durationWithDefault(lookup func(string) (string, bool), key string, fallback time.Duration) time.Duration {
	if value, ok := lookup(key); ok && value != "" {
		d, err := time.ParseDuration(value)
		if err == nil {
			return d
		}
	}
	return fallback
}

func intWithDefault(lookup func(string) (string, bool), key string, fallback int) int {
	if value, ok := lookup(key); ok && value != "" {
		if parsed, err := strconv.Atoi(value); err == nil {
			return parsed
		}
	}
	return fallback
}

func boolWithDefault(lookup func(string) (string, bool), key string, fallback bool) bool {
	if value, ok := lookup(key); ok && value != "" {
		switch strings.ToLower(value) {
		case "true", "1", "yes", "on":
			return true
		case "false", "0", "no", "off":
			return false
		}
	}
	return fallback
}

func csvWithDefault(lookup func(string) (string, bool), key string) []string {
	raw, ok := lookup(key)
	if !ok || strings.TrimSpace(raw) == "" {
		return []string{}
	}
	parts := strings.Split(raw, ",")
	out := make([]string, 0, len(parts))
	for _, part := range parts {
		trimmed := strings.TrimSpace(part)
		if trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}

func mapWithDefault(lookup func(string) (string, bool), key string) map[string]string {
	values := make(map[string]string)
	raw, ok := lookup(key)
	if !ok || strings.TrimSpace(raw) == "" {
		return values
	}
	entries := strings.Split(raw, ",")
	for _, entry := range entries {
		entry = strings.TrimSpace(entry)
		if entry == "" {
			continue
		}
		parts := strings.SplitN(entry, "=", 2)
		if len(parts) != 2 {
			continue
		}
		name := strings.ToLower(strings.TrimSpace(parts[0]))
		secret := strings.TrimSpace(parts[1])
		if name == "" || secret == "" {
			continue
		}
		values[name] = secret
	}
	return values
}

func floatWithDefault(lookup func(string) (string, bool), key string, fallback float64) float64 {
	if value, ok := lookup(key); ok && value != "" {
		if parsed, err := strconv.ParseFloat(value, 64); err == nil {
			return parsed
		}
	}
	return fallback
}

// columnsWithDefault overlays the configured header mapping on the merchant's default captions.
func columnsWithDefault(lookup func(string) (string, bool), key string) map[string]string {
	values := mapWithDefault(func(string) (string, bool) { return defaultInventoryColumns, true }, key)
	for name, caption := range mapWithDefault(lookup, key) {
		values[name] = caption
	}
	return values
}
