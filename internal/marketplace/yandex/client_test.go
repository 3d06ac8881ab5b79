package yandex

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/require"

	"github.com/VASILIYKAS/seller-apis/internal/domain"
	"github.com/VASILIYKAS/seller-apis/internal/platform/httpx"
	"github.com/VASILIYKAS/seller-apis/internal/reconcile"
)

type fakePartner struct {
	pages      map[string]string
	stockBody  []byte
	priceBody  []byte
	tokensSeen []string
	calls      int
}

func (f *fakePartner) router(t *testing.T) http.Handler {
	r := chi.NewRouter()
	r.Use(func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
			if req.Header.Get("Authorization") != "Bearer token" {
				w.WriteHeader(http.StatusUnauthorized)
				return
			}
			f.calls++
			next.ServeHTTP(w, req)
		})
	})
	r.Route("/campaigns/{campaignID}", func(r chi.Router) {
		r.Use(func(next http.Handler) http.Handler {
			return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
				if chi.URLParam(req, "campaignID") != "42" {
					w.WriteHeader(http.StatusNotFound)
					return
				}
				next.ServeHTTP(w, req)
			})
		})
		r.Get("/offer-mapping-entries", func(w http.ResponseWriter, req *http.Request) {
			require.Equal(t, "200", req.URL.Query().Get("limit"))
			token := req.URL.Query().Get("page_token")
			f.tokensSeen = append(f.tokensSeen, token)
			_, _ = w.Write([]byte(f.pages[token]))
		})
		r.Put("/offers/stocks", func(w http.ResponseWriter, req *http.Request) {
			var raw json.RawMessage
			require.NoError(t, json.NewDecoder(req.Body).Decode(&raw))
			f.stockBody = raw
			_, _ = w.Write([]byte(`{"status":"OK"}`))
		})
		r.Post("/offer-prices/updates", func(w http.ResponseWriter, req *http.Request) {
			var raw json.RawMessage
			require.NoError(t, json.NewDecoder(req.Body).Decode(&raw))
			f.priceBody = raw
			_, _ = w.Write([]byte(`{"status":"OK"}`))
		})
	})
	return r
}

func newTestClient(t *testing.T, fake *fakePartner) *Client {
	t.Helper()
	srv := httptest.NewServer(fake.router(t))
	t.Cleanup(srv.Close)

	client, err := NewClient(Config{BaseURL: srv.URL, Token: "token", CampaignID: "42"}, httpx.WithMaxRetries(0))
	require.NoError(t, err)
	return client
}

func TestNewClientValidatesConfig(t *testing.T) {
	_, err := NewClient(Config{CampaignID: "42"})
	require.Error(t, err)
	_, err = NewClient(Config{Token: "token"})
	require.Error(t, err)
}

func TestFetchCatalogPageReadsShopSkus(t *testing.T) {
	fake := &fakePartner{pages: map[string]string{
		"":   `{"result":{"paging":{"nextPageToken":"p2"},"offerMappingEntries":[{"offer":{"shopSku":"A"}},{"offer":{"shopSku":"B"}}]}}`,
		"p2": `{"result":{"paging":{},"offerMappingEntries":[{"offer":{"shopSku":"C"}}]}}`,
	}}
	client := newTestClient(t, fake)

	first, err := client.FetchCatalogPage(context.Background(), "")
	require.NoError(t, err)
	require.Equal(t, []string{"A", "B"}, first.Items)
	require.Equal(t, "p2", first.NextPageToken)

	second, err := client.FetchCatalogPage(context.Background(), "p2")
	require.NoError(t, err)
	require.Equal(t, []string{"C"}, second.Items)
	require.Empty(t, second.NextPageToken)
	require.Equal(t, []string{"", "p2"}, fake.tokensSeen)
}

func TestPushStocksEncodesWarehouseAndTimestamp(t *testing.T) {
	fake := &fakePartner{}
	client := newTestClient(t, fake)

	stamp := time.Date(2024, 3, 5, 10, 4, 5, 900, time.UTC)
	err := client.PushStocks(context.Background(), []domain.StockUpdate{
		{OfferID: "A", Stock: 100, WarehouseID: "77", UpdatedAt: stamp},
	})
	require.NoError(t, err)
	require.JSONEq(t,
		`{"skus":[{"sku":"A","warehouseId":77,"items":[{"count":100,"type":"FIT","updatedAt":"2024-03-05T10:04:05Z"}]}]}`,
		string(fake.stockBody))
}

func TestPushStocksRejectsNonNumericWarehouse(t *testing.T) {
	fake := &fakePartner{}
	client := newTestClient(t, fake)

	err := client.PushStocks(context.Background(), []domain.StockUpdate{{OfferID: "A", WarehouseID: "main"}})
	require.ErrorIs(t, err, reconcile.ErrValidation)
	require.Zero(t, fake.calls)
}

func TestPushPricesConvertsToInteger(t *testing.T) {
	fake := &fakePartner{}
	client := newTestClient(t, fake)

	err := client.PushPrices(context.Background(), []domain.PriceUpdate{{OfferID: "A", Price: "2240", Currency: domain.CurrencyRUR}})
	require.NoError(t, err)
	require.JSONEq(t, `{"offers":[{"id":"A","price":{"value":2240,"currencyId":"RUR"}}]}`, string(fake.priceBody))
}

func TestPushPricesRejectsEmptyPrice(t *testing.T) {
	fake := &fakePartner{}
	client := newTestClient(t, fake)

	err := client.PushPrices(context.Background(), []domain.PriceUpdate{{OfferID: "A", Price: ""}})
	require.True(t, errors.Is(err, reconcile.ErrValidation))
	require.Zero(t, fake.calls)
}

func TestUnknownCampaignIsStatusError(t *testing.T) {
	fake := &fakePartner{}
	srv := httptest.NewServer(fake.router(t))
	t.Cleanup(srv.Close)

	client, err := NewClient(Config{BaseURL: srv.URL, Token: "token", CampaignID: "7"}, httpx.WithMaxRetries(0))
	require.NoError(t, err)

	_, err = client.FetchCatalogPage(context.Background(), "")
	var statusErr *httpx.StatusError
	require.ErrorAs(t, err, &statusErr)
	require.Equal(t, http.StatusNotFound, statusErr.StatusCode)
}
