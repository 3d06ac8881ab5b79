// Package inventory downloads the merchant's stock snapshot and turns it into inventory rows.
package inventory

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"os"
	"path"
	"strings"

	"go.uber.org/zap"

	"github.com/VASILIYKAS/seller-apis/internal/domain"
	"github.com/VASILIYKAS/seller-apis/internal/platform/httpx"
	"github.com/VASILIYKAS/seller-apis/internal/platform/observability"
	"github.com/VASILIYKAS/seller-apis/internal/platform/storage"
)

// Defaults matching the merchant's published export.
const (
	DefaultURL       = "https://timeworld.ru/upload/files/ostatki.zip"
	DefaultMember    = "ostatki.xls"
	DefaultHeaderRow = 17
	DefaultCharset   = "utf-8"
)

var (
	// ErrSource is returned when the snapshot cannot be retrieved.
	ErrSource = errors.New("inventory: source unavailable")
	// ErrFormat is returned when the snapshot cannot be parsed.
	ErrFormat = errors.New("inventory: invalid snapshot")
)

// Columns maps row fields to spreadsheet header captions.
type Columns struct {
	Code     string
	Quantity string
	Price    string
	Name     string
}

// DefaultColumns returns the captions used by the merchant's export.
func DefaultColumns() Columns {
	return Columns{Code: "Код", Quantity: "Количество", Price: "Цена", Name: "Наименование"}
}

// ObjectReader reads whole Cloud Storage objects.
type ObjectReader interface {
	Read(ctx context.Context, bucket, object string) ([]byte, error)
}

// Config describes where the snapshot lives and how it is laid out.
type Config struct {
	// URL is an http(s)://, gs:// or file path reference. A ".zip" suffix means the
	// spreadsheet named by Member is extracted from the archive.
	URL       string
	Member    string
	HeaderRow int
	Charset   string
	Columns   Columns

	HTTP    *httpx.Client
	Objects ObjectReader
	// Archive receives the raw payload after a successful download. Failures are logged only.
	Archive func(ctx context.Context, source string, data []byte) error

	// Logger defaults to the context logger of each Load call.
	Logger *zap.Logger
}

// Loader implements the inventory source used by the sync service.
type Loader struct {
	cfg    Config
	logger *zap.Logger
}

// NewLoader validates cfg and fills defaults.
func NewLoader(cfg Config) (*Loader, error) {
	cfg.URL = strings.TrimSpace(cfg.URL)
	if cfg.URL == "" {
		cfg.URL = DefaultURL
	}
	cfg.Member = strings.TrimSpace(cfg.Member)
	if cfg.Member == "" {
		cfg.Member = DefaultMember
	}
	if cfg.HeaderRow < 0 {
		return nil, fmt.Errorf("inventory: header row must not be negative, got %d", cfg.HeaderRow)
	}
	cfg.Charset = strings.TrimSpace(cfg.Charset)
	if cfg.Charset == "" {
		cfg.Charset = DefaultCharset
	}
	if cfg.Columns == (Columns{}) {
		cfg.Columns = DefaultColumns()
	}
	if strings.TrimSpace(cfg.Columns.Code) == "" || strings.TrimSpace(cfg.Columns.Quantity) == "" || strings.TrimSpace(cfg.Columns.Price) == "" {
		return nil, errors.New("inventory: code, quantity and price columns are required")
	}

	switch {
	case storage.IsGCSURL(cfg.URL):
		if cfg.Objects == nil {
			return nil, errors.New("inventory: object reader is required for gs:// sources")
		}
	case isHTTPURL(cfg.URL):
		if cfg.HTTP == nil {
			client, err := httpx.NewClient(cfg.URL)
			if err != nil {
				return nil, err
			}
			cfg.HTTP = client
		}
	}

	return &Loader{cfg: cfg, logger: cfg.Logger}, nil
}

// Load fetches, extracts and parses the snapshot.
func (l *Loader) Load(ctx context.Context) ([]domain.InventoryRow, error) {
	logger := l.logger
	if logger == nil {
		logger = observability.FromContext(ctx).Named("inventory")
	}

	data, err := l.fetch(ctx)
	if err != nil {
		return nil, err
	}
	logger.Info("inventory: snapshot downloaded", zap.String("source", l.cfg.URL), zap.Int("bytes", len(data)))

	if l.cfg.Archive != nil {
		if err := l.cfg.Archive(ctx, l.cfg.URL, data); err != nil {
			logger.Warn("inventory: archive snapshot failed", zap.Error(err))
		}
	}

	name := sourceName(l.cfg.URL)
	if strings.EqualFold(path.Ext(name), ".zip") {
		data, err = extractMember(data, l.cfg.Member)
		if err != nil {
			return nil, err
		}
		name = l.cfg.Member
	}

	table, err := parseTable(name, data, l.cfg.Charset)
	if err != nil {
		return nil, err
	}
	rows, err := buildRows(table, l.cfg.HeaderRow, l.cfg.Columns)
	if err != nil {
		return nil, err
	}
	logger.Info("inventory: rows parsed", zap.String("file", name), zap.Int("rows", len(rows)))
	return rows, nil
}

func (l *Loader) fetch(ctx context.Context) ([]byte, error) {
	switch {
	case storage.IsGCSURL(l.cfg.URL):
		bucket, object, err := storage.ParseURL(l.cfg.URL)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrSource, err)
		}
		data, err := l.cfg.Objects.Read(ctx, bucket, object)
		if err != nil {
			return nil, fmt.Errorf("%w: %w", ErrSource, err)
		}
		return data, nil
	case isHTTPURL(l.cfg.URL):
		data, err := l.cfg.HTTP.Fetch(ctx, "", nil)
		if err != nil {
			return nil, fmt.Errorf("%w: %w", ErrSource, err)
		}
		return data, nil
	default:
		data, err := os.ReadFile(strings.TrimPrefix(l.cfg.URL, "file://"))
		if err != nil {
			return nil, fmt.Errorf("%w: %w", ErrSource, err)
		}
		return data, nil
	}
}

func isHTTPURL(raw string) bool {
	lower := strings.ToLower(raw)
	return strings.HasPrefix(lower, "http://") || strings.HasPrefix(lower, "https://")
}

func sourceName(raw string) string {
	if parsed, err := url.Parse(raw); err == nil && parsed.Path != "" {
		return path.Base(parsed.Path)
	}
	return path.Base(raw)
}
