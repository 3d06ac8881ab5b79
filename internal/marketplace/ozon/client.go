// Package ozon implements the marketplace client for the Ozon Seller API.
package ozon

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"go.uber.org/zap"

	"github.com/VASILIYKAS/seller-apis/internal/domain"
	"github.com/VASILIYKAS/seller-apis/internal/marketplace"
	"github.com/VASILIYKAS/seller-apis/internal/platform/httpx"
)

const (
	// DefaultBaseURL is the production Seller API endpoint.
	DefaultBaseURL = "https://api-seller.ozon.ru"

	catalogPageLimit = 1000

	pathProductList  = "/v2/product/list"
	pathImportStocks = "/v1/product/import/stocks"
	pathImportPrices = "/v1/product/import/prices"
)

// Config carries the seller credentials.
type Config struct {
	BaseURL  string
	ClientID string
	APIKey   string
	Logger   *zap.Logger
}

// Client is the Ozon implementation of marketplace.Client.
type Client struct {
	http   *httpx.Client
	logger *zap.Logger
}

var _ marketplace.Client = (*Client)(nil)

// NewClient builds a client authenticated with the Client-Id and Api-Key headers.
func NewClient(cfg Config, opts ...httpx.Option) (*Client, error) {
	clientID := strings.TrimSpace(cfg.ClientID)
	apiKey := strings.TrimSpace(cfg.APIKey)
	if clientID == "" || apiKey == "" {
		return nil, errors.New("ozon: client id and api key are required")
	}
	baseURL := strings.TrimSpace(cfg.BaseURL)
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	all := []httpx.Option{
		httpx.WithHeader("Client-Id", clientID),
		httpx.WithHeader("Api-Key", apiKey),
		httpx.WithLogger(logger),
	}
	all = append(all, opts...)
	hc, err := httpx.NewClient(baseURL, all...)
	if err != nil {
		return nil, err
	}
	return &Client{http: hc, logger: logger}, nil
}

type productListFilter struct {
	Visibility string `json:"visibility"`
}

type productListRequest struct {
	Filter productListFilter `json:"filter"`
	LastID string            `json:"last_id"`
	Limit  int               `json:"limit"`
}

type productListResponse struct {
	Result struct {
		Items []struct {
			OfferID string `json:"offer_id"`
		} `json:"items"`
		Total  int    `json:"total"`
		LastID string `json:"last_id"`
	} `json:"result"`
}

// FetchCatalogPage lists every product regardless of visibility. The token is Ozon's last_id cursor.
func (c *Client) FetchCatalogPage(ctx context.Context, pageToken string) (domain.CursorPage[string], error) {
	req := productListRequest{
		Filter: productListFilter{Visibility: "ALL"},
		LastID: pageToken,
		Limit:  catalogPageLimit,
	}
	var resp productListResponse
	if err := c.http.DoJSON(ctx, http.MethodPost, pathProductList, nil, req, &resp); err != nil {
		return domain.CursorPage[string]{}, err
	}

	ids := make([]string, 0, len(resp.Result.Items))
	for _, item := range resp.Result.Items {
		ids = append(ids, item.OfferID)
	}
	return domain.CursorPage[string]{
		Items:         ids,
		NextPageToken: resp.Result.LastID,
		Total:         resp.Result.Total,
	}, nil
}

type stockItem struct {
	OfferID string `json:"offer_id"`
	Stock   int    `json:"stock"`
}

type priceItem struct {
	AutoActionEnabled string `json:"auto_action_enabled"`
	CurrencyCode      string `json:"currency_code"`
	OfferID           string `json:"offer_id"`
	OldPrice          string `json:"old_price"`
	Price             string `json:"price"`
}

// importResponse is shared by the stock and price import endpoints.
type importResponse struct {
	Result []struct {
		OfferID string `json:"offer_id"`
		Updated bool   `json:"updated"`
		Errors  []struct {
			Code    string `json:"code"`
			Message string `json:"message"`
		} `json:"errors"`
	} `json:"result"`
}

// PushStocks sends a batch to /v1/product/import/stocks.
func (c *Client) PushStocks(ctx context.Context, stocks []domain.StockUpdate) error {
	items := make([]stockItem, 0, len(stocks))
	for _, s := range stocks {
		items = append(items, stockItem{OfferID: s.OfferID, Stock: s.Stock})
	}
	var resp importResponse
	if err := c.http.DoJSON(ctx, http.MethodPost, pathImportStocks, nil, map[string]any{"stocks": items}, &resp); err != nil {
		return err
	}
	c.logRejected(pathImportStocks, resp)
	return nil
}

// PushPrices sends a batch to /v1/product/import/prices.
func (c *Client) PushPrices(ctx context.Context, prices []domain.PriceUpdate) error {
	items := make([]priceItem, 0, len(prices))
	for _, p := range prices {
		currency := p.Currency
		if currency == "" {
			currency = domain.CurrencyRUB
		}
		items = append(items, priceItem{
			AutoActionEnabled: "UNKNOWN",
			CurrencyCode:      currency,
			OfferID:           p.OfferID,
			OldPrice:          "0",
			Price:             p.Price,
		})
	}
	var resp importResponse
	if err := c.http.DoJSON(ctx, http.MethodPost, pathImportPrices, nil, map[string]any{"prices": items}, &resp); err != nil {
		return err
	}
	c.logRejected(pathImportPrices, resp)
	return nil
}

// logRejected reports offers the API accepted the request for but did not update.
func (c *Client) logRejected(endpoint string, resp importResponse) {
	for _, r := range resp.Result {
		if r.Updated {
			continue
		}
		codes := make([]string, 0, len(r.Errors))
		for _, e := range r.Errors {
			codes = append(codes, e.Code)
		}
		c.logger.Warn("ozon: offer not updated",
			zap.String("endpoint", endpoint),
			zap.String("offer_id", r.OfferID),
			zap.Strings("codes", codes),
		)
	}
}
