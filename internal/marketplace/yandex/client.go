// Package yandex implements the marketplace client for the Yandex Market Partner API.
// Each client is bound to one campaign, i.e. one fulfillment programme (FBS or DBS).
package yandex

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"
	"golang.org/x/oauth2"

	"github.com/VASILIYKAS/seller-apis/internal/domain"
	"github.com/VASILIYKAS/seller-apis/internal/marketplace"
	"github.com/VASILIYKAS/seller-apis/internal/platform/httpx"
	"github.com/VASILIYKAS/seller-apis/internal/reconcile"
)

const (
	// DefaultBaseURL is the production Partner API endpoint.
	DefaultBaseURL = "https://api.partner.market.yandex.ru"

	catalogPageLimit = 200
	stockTypeFit     = "FIT"
	updatedAtLayout  = "2006-01-02T15:04:05Z"
)

// Config carries the OAuth token and the campaign the client writes to.
type Config struct {
	BaseURL    string
	Token      string
	CampaignID string
	Logger     *zap.Logger
}

// Client is the Yandex implementation of marketplace.Client.
type Client struct {
	http       *httpx.Client
	campaignID string
}

var _ marketplace.Client = (*Client)(nil)

// NewClient builds a client that sends the token as an OAuth2 bearer credential.
func NewClient(cfg Config, opts ...httpx.Option) (*Client, error) {
	token := strings.TrimSpace(cfg.Token)
	if token == "" {
		return nil, errors.New("yandex: token is required")
	}
	campaignID := strings.TrimSpace(cfg.CampaignID)
	if campaignID == "" {
		return nil, errors.New("yandex: campaign id is required")
	}
	baseURL := strings.TrimSpace(cfg.BaseURL)
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}

	source := oauth2.StaticTokenSource(&oauth2.Token{AccessToken: token, TokenType: "Bearer"})
	all := []httpx.Option{httpx.WithHTTPClient(oauth2.NewClient(context.Background(), source))}
	if cfg.Logger != nil {
		all = append(all, httpx.WithLogger(cfg.Logger))
	}
	all = append(all, opts...)

	hc, err := httpx.NewClient(baseURL, all...)
	if err != nil {
		return nil, err
	}
	return &Client{http: hc, campaignID: campaignID}, nil
}

func (c *Client) campaignPath(suffix string) string {
	return "/campaigns/" + url.PathEscape(c.campaignID) + suffix
}

type offerMappingResponse struct {
	Result struct {
		Paging struct {
			NextPageToken string `json:"nextPageToken"`
		} `json:"paging"`
		OfferMappingEntries []struct {
			Offer struct {
				ShopSku string `json:"shopSku"`
			} `json:"offer"`
		} `json:"offerMappingEntries"`
	} `json:"result"`
}

// FetchCatalogPage lists the campaign's offer mapping entries, returning shop SKUs.
func (c *Client) FetchCatalogPage(ctx context.Context, pageToken string) (domain.CursorPage[string], error) {
	query := url.Values{"limit": {strconv.Itoa(catalogPageLimit)}}
	if pageToken != "" {
		query.Set("page_token", pageToken)
	}
	var resp offerMappingResponse
	if err := c.http.DoJSON(ctx, http.MethodGet, c.campaignPath("/offer-mapping-entries"), query, nil, &resp); err != nil {
		return domain.CursorPage[string]{}, err
	}

	ids := make([]string, 0, len(resp.Result.OfferMappingEntries))
	for _, entry := range resp.Result.OfferMappingEntries {
		ids = append(ids, entry.Offer.ShopSku)
	}
	return domain.CursorPage[string]{Items: ids, NextPageToken: resp.Result.Paging.NextPageToken}, nil
}

type stockCount struct {
	Count     int    `json:"count"`
	Type      string `json:"type"`
	UpdatedAt string `json:"updatedAt,omitempty"`
}

type skuStock struct {
	SKU         string       `json:"sku"`
	WarehouseID int64        `json:"warehouseId"`
	Items       []stockCount `json:"items"`
}

// PushStocks sends a batch to the campaign stocks endpoint.
func (c *Client) PushStocks(ctx context.Context, stocks []domain.StockUpdate) error {
	skus := make([]skuStock, 0, len(stocks))
	for _, s := range stocks {
		warehouseID, err := strconv.ParseInt(strings.TrimSpace(s.WarehouseID), 10, 64)
		if err != nil {
			return fmt.Errorf("%w: offer %s: warehouse id %q", reconcile.ErrValidation, s.OfferID, s.WarehouseID)
		}
		count := stockCount{Count: s.Stock, Type: stockTypeFit}
		if !s.UpdatedAt.IsZero() {
			count.UpdatedAt = s.UpdatedAt.UTC().Truncate(time.Second).Format(updatedAtLayout)
		}
		skus = append(skus, skuStock{SKU: s.OfferID, WarehouseID: warehouseID, Items: []stockCount{count}})
	}
	return c.http.DoJSON(ctx, http.MethodPut, c.campaignPath("/offers/stocks"), nil, map[string]any{"skus": skus}, nil)
}

type offerPrice struct {
	Value      int    `json:"value"`
	CurrencyID string `json:"currencyId"`
}

type priceOffer struct {
	ID    string     `json:"id"`
	Price offerPrice `json:"price"`
}

// PushPrices sends a batch to the campaign price update endpoint.
// Prices must be integer digit strings; anything else is a validation error.
func (c *Client) PushPrices(ctx context.Context, prices []domain.PriceUpdate) error {
	offers := make([]priceOffer, 0, len(prices))
	for _, p := range prices {
		value, err := strconv.Atoi(p.Price)
		if err != nil {
			return fmt.Errorf("%w: offer %s: price %q is not an integer", reconcile.ErrValidation, p.OfferID, p.Price)
		}
		currency := p.Currency
		if currency == "" {
			currency = domain.CurrencyRUR
		}
		offers = append(offers, priceOffer{ID: p.OfferID, Price: offerPrice{Value: value, CurrencyID: currency}})
	}
	return c.http.DoJSON(ctx, http.MethodPost, c.campaignPath("/offer-prices/updates"), nil, map[string]any{"offers": offers}, nil)
}
