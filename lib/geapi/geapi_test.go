package geapi

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) *Client {
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return NewClient(Config{
		Endpoints: Endpoints{
			Index:   srv.URL + "/index",
			Details: srv.URL + "/detail",
			Prices:  srv.URL + "/prices",
		},
		UserAgent: "osrs-economy test suite",
	})
}

func TestListActiveIDs(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "osrs-economy test suite", r.Header.Get("User-Agent"))
		w.Write([]byte(`{"data": {"10": {}, "2": {}, "nonsense": {}, "7": {}}}`))
	})

	ids := client.ListActiveIDs(context.Background())
	require.Equal(t, []int{2, 7, 10}, ids)
}

func TestListActiveIDsFailure(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	})
	require.Empty(t, client.ListActiveIDs(context.Background()))

	client = newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`not json`))
	})
	require.Empty(t, client.ListActiveIDs(context.Background()))
}

func TestItemDetail(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "4151", r.URL.Query().Get("item"))
		w.Write([]byte(`{"item": {
			"id": 4151,
			"name": "Abyssal whip",
			"description": "A weapon from the abyss.",
			"members": "true",
			"icon": "https://example.com/4151.gif",
			"current": {"trend": "neutral", "price": "1.6m"}
		}}`))
	})

	detail, err := client.ItemDetail(context.Background(), 4151)
	require.NoError(t, err)
	require.Equal(t, 4151, detail.ID)
	require.Equal(t, "Abyssal whip", detail.Name)
	require.Equal(t, "true", detail.Members)
	require.Equal(t, "https://example.com/4151.gif", detail.Icon)
}

func TestItemDetailErrors(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	})
	_, err := client.ItemDetail(context.Background(), 99999)
	require.Error(t, err)

	client = newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`<html>not json</html>`))
	})
	_, err = client.ItemDetail(context.Background(), 99999)
	require.Error(t, err)
}

func TestPrices(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "1|2|3", r.URL.Query().Get("id"))
		w.Write([]byte(`{
			"1": {"id": "1", "timestamp": "2024-06-01T00:00:00.000Z", "price": 150, "volume": 1000},
			"2": {"id": "2", "timestamp": "2024-06-01T00:00:00.000Z", "price": 42, "volume": 0},
			"success": true
		}`))
	})

	quotes := client.Prices(context.Background(), []int{1, 2, 3})
	require.Len(t, quotes, 2)
	require.Equal(t, int64(150), quotes["1"].Price)
	require.Equal(t, int64(42), quotes["2"].Price)
	require.NotContains(t, quotes, "success")
}

func TestPricesFailure(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	})
	require.Empty(t, client.Prices(context.Background(), []int{1, 2}))
}
