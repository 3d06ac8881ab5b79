package reconcile

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	domain "github.com/VASILIYKAS/seller-apis/internal/domain"
)

func TestStockQuantity(t *testing.T) {
	cases := map[string]int{
		">10":  100,
		"1":    0,
		"0":    0,
		"2":    2,
		"10":   10,
		" 7 ":  7,
		">10 ": 100,
	}
	for in, want := range cases {
		got, err := StockQuantity(in)
		require.NoError(t, err, "input %q", in)
		require.Equal(t, want, got, "input %q", in)
	}
}

func TestStockQuantityRejectsGarbage(t *testing.T) {
	for _, in := range []string{"", "много", ">5", "1.5", "-3", "10+"} {
		_, err := StockQuantity(in)
		require.ErrorIs(t, err, ErrValidation, "input %q", in)
	}
}

func TestStocksScenario(t *testing.T) {
	rows := []domain.InventoryRow{{Code: "63433", Quantity: ">10", Price: "2'240.00 руб."}}
	catalog := domain.NewCatalog("63433", "99999")

	stocks, err := Stocks(rows, catalog, domain.Schema{}, time.Now())
	require.NoError(t, err)
	require.Equal(t, []domain.StockUpdate{
		{OfferID: "63433", Stock: 100},
		{OfferID: "99999", Stock: 0},
	}, stocks)
}

func TestStocksEmptyRowsZeroEverything(t *testing.T) {
	stocks, err := Stocks(nil, domain.NewCatalog("A", "B"), domain.Schema{}, time.Now())
	require.NoError(t, err)
	require.Equal(t, []domain.StockUpdate{
		{OfferID: "A", Stock: 0},
		{OfferID: "B", Stock: 0},
	}, stocks)
}

func TestStocksLastUnitIsHeldBack(t *testing.T) {
	rows := []domain.InventoryRow{{Code: "A", Quantity: "1"}}
	stocks, err := Stocks(rows, domain.NewCatalog("A"), domain.Schema{}, time.Now())
	require.NoError(t, err)
	require.Len(t, stocks, 1)
	require.Equal(t, 0, stocks[0].Stock)
}

func TestStocksCoverCatalogExactlyOnce(t *testing.T) {
	rows := []domain.InventoryRow{
		{Code: "C", Quantity: "3"},
		{Code: "unlisted", Quantity: "5"},
		{Code: "A", Quantity: ">10"},
		{Code: "C", Quantity: "9"},
		{Code: " B ", Quantity: "2"},
	}
	catalog := domain.NewCatalog("A", "B", "C", "D", "E")

	stocks, err := Stocks(rows, catalog, domain.Schema{}, time.Now())
	require.NoError(t, err)
	require.Len(t, stocks, catalog.Len())

	counts := map[string]int{}
	for _, s := range stocks {
		counts[s.OfferID]++
	}
	for _, id := range catalog.IDs() {
		require.Equal(t, 1, counts[id], "offer %s", id)
	}
	require.NotContains(t, counts, "unlisted")

	require.Equal(t, []domain.StockUpdate{
		{OfferID: "C", Stock: 3},
		{OfferID: "A", Stock: 100},
		{OfferID: "B", Stock: 2},
		{OfferID: "D", Stock: 0},
		{OfferID: "E", Stock: 0},
	}, stocks)
}

func TestStocksDoNotMutateCatalog(t *testing.T) {
	catalog := domain.NewCatalog("A", "B")
	_, err := Stocks([]domain.InventoryRow{{Code: "A", Quantity: "4"}}, catalog, domain.Schema{}, time.Now())
	require.NoError(t, err)
	require.Equal(t, []string{"A", "B"}, catalog.IDs())
}

func TestStocksStampedSchema(t *testing.T) {
	now := time.Date(2025, 1, 20, 20, 14, 52, 987654321, time.FixedZone("MSK", 3*60*60))
	schema := domain.Schema{WarehouseID: "1122334455", StampUpdates: true}

	stocks, err := Stocks([]domain.InventoryRow{{Code: "A", Quantity: "6"}}, domain.NewCatalog("A", "B"), schema, now)
	require.NoError(t, err)

	want := time.Date(2025, 1, 20, 17, 14, 52, 0, time.UTC)
	for _, s := range stocks {
		require.Equal(t, "1122334455", s.WarehouseID)
		require.True(t, want.Equal(s.UpdatedAt), "got %s", s.UpdatedAt)
		require.Equal(t, time.UTC, s.UpdatedAt.Location())
	}
}

func TestStocksUnstampedSchemaLeavesTimeZero(t *testing.T) {
	stocks, err := Stocks(nil, domain.NewCatalog("A"), domain.Schema{}, time.Now())
	require.NoError(t, err)
	require.True(t, stocks[0].UpdatedAt.IsZero())
}

func TestStocksFailOnMalformedQuantity(t *testing.T) {
	rows := []domain.InventoryRow{
		{Code: "unlisted", Quantity: "n/a"},
		{Code: "A", Quantity: "n/a"},
	}
	_, err := Stocks(rows, domain.NewCatalog("A"), domain.Schema{}, time.Now())
	require.ErrorIs(t, err, ErrValidation)
	require.Contains(t, err.Error(), "code A")
}

func TestNonZero(t *testing.T) {
	stocks := []domain.StockUpdate{{OfferID: "A", Stock: 0}, {OfferID: "B", Stock: 3}}
	require.Equal(t, []domain.StockUpdate{{OfferID: "B", Stock: 3}}, NonZero(stocks))
}
