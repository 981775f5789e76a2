package collector

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"crypto-paper-trading/pkg/models"
)

var testCoins = []models.Coin{
	{Symbol: "BTC", Name: "Bitcoin", CoinGeckoID: "bitcoin"},
	{Symbol: "ETH", Name: "Ethereum", CoinGeckoID: "ethereum"},
	{Symbol: "DOGE", Name: "Dogecoin", CoinGeckoID: "dogecoin"},
}

func TestFetchPrices(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/v3/simple/price", r.URL.Path)
		assert.Equal(t, "usd", r.URL.Query().Get("vs_currencies"))
		assert.Contains(t, r.URL.Query().Get("ids"), "bitcoin")

		w.Header().Set("Content-Type", "application/json")
		// dogecoin deliberately missing from the response
		w.Write([]byte(`{
            "bitcoin": {"usd": 67421.12345678},
            "ethereum": {"usd": 3512.5}
        }`))
	}))
	defer server.Close()

	fetcher := NewFetcher(server.URL, 5*time.Second, quietLogger())

	prices, err := fetcher.FetchPrices(context.Background(), testCoins)
	require.NoError(t, err)

	require.Len(t, prices, 2, "coins absent from the feed are skipped, not fatal")
	assert.True(t, prices["BTC"].Equal(dec("67421.12345678")),
		"feed price survives without float truncation: %s", prices["BTC"])
	assert.True(t, prices["ETH"].Equal(dec("3512.5")))
	_, ok := prices["DOGE"]
	assert.False(t, ok)
}

func TestFetchPricesUpstreamError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer server.Close()

	fetcher := NewFetcher(server.URL, 5*time.Second, quietLogger())

	_, err := fetcher.FetchPrices(context.Background(), testCoins)
	assert.ErrorIs(t, err, ErrUpstreamUnavailable)
}

func TestFetchPricesMalformedBody(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`not json`))
	}))
	defer server.Close()

	fetcher := NewFetcher(server.URL, 5*time.Second, quietLogger())

	_, err := fetcher.FetchPrices(context.Background(), testCoins)
	assert.ErrorIs(t, err, ErrUpstreamUnavailable)
}

func TestFetchPricesNoCoins(t *testing.T) {
	fetcher := NewFetcher("http://unused.invalid", time.Second, quietLogger())

	prices, err := fetcher.FetchPrices(context.Background(), nil)
	require.NoError(t, err)
	assert.Empty(t, prices)
}
