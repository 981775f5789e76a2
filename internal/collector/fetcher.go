package collector

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"

	"crypto-paper-trading/pkg/models"
)

// ErrUpstreamUnavailable marks price feed failures. A failed fetch never
// crashes the cycle; the collector logs it and retries on the next tick.
var ErrUpstreamUnavailable = fmt.Errorf("price feed unavailable")

const simplePricePath = "/api/v3/simple/price"

// Fetcher pulls current prices from the CoinGecko simple/price endpoint.
type Fetcher struct {
	client *resty.Client
	logger *logrus.Logger
}

func NewFetcher(baseURL string, timeout time.Duration, logger *logrus.Logger) *Fetcher {
	client := resty.New()
	client.SetBaseURL(baseURL)
	client.SetTimeout(timeout)
	client.SetRetryCount(2)
	client.SetRetryWaitTime(1 * time.Second)
	client.SetHeader("User-Agent", "paper-trading-collector/1.0")

	return &Fetcher{
		client: client,
		logger: logger,
	}
}

// FetchPrices returns the current price per coin symbol. Coins missing from
// the feed response are skipped with a log line; malformed prices likewise.
func (f *Fetcher) FetchPrices(ctx context.Context, coins []models.Coin) (map[string]decimal.Decimal, error) {
	if len(coins) == 0 {
		return map[string]decimal.Decimal{}, nil
	}

	ids := make([]string, 0, len(coins))
	for _, coin := range coins {
		ids = append(ids, coin.CoinGeckoID)
	}

	start := time.Now()
	resp, err := f.client.R().
		SetContext(ctx).
		SetQueryParams(map[string]string{
			"ids":           strings.Join(ids, ","),
			"vs_currencies": "usd",
		}).
		Get(simplePricePath)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUpstreamUnavailable, err)
	}
	if resp.StatusCode() != 200 {
		return nil, fmt.Errorf("%w: status %d: %s", ErrUpstreamUnavailable, resp.StatusCode(), resp.String())
	}

	// Decode with json.Number so feed prices reach decimal without a float64
	// detour.
	var payload map[string]map[string]json.Number
	decoder := json.NewDecoder(strings.NewReader(resp.String()))
	decoder.UseNumber()
	if err := decoder.Decode(&payload); err != nil {
		return nil, fmt.Errorf("%w: decode: %v", ErrUpstreamUnavailable, err)
	}

	prices := make(map[string]decimal.Decimal, len(coins))
	for _, coin := range coins {
		quote, ok := payload[coin.CoinGeckoID]
		if !ok {
			f.logger.WithField("coin_id", coin.Symbol).Warn("Coin missing from price feed response")
			continue
		}
		raw, ok := quote["usd"]
		if !ok {
			f.logger.WithField("coin_id", coin.Symbol).Warn("Price feed response has no usd quote")
			continue
		}
		price, err := decimal.NewFromString(raw.String())
		if err != nil {
			f.logger.WithFields(logrus.Fields{
				"coin_id": coin.Symbol,
				"value":   raw.String(),
			}).Warn("Failed to parse feed price")
			continue
		}
		if !price.IsPositive() {
			f.logger.WithField("coin_id", coin.Symbol).Warn("Skipping non-positive feed price")
			continue
		}
		prices[coin.Symbol] = price
	}

	f.logger.WithFields(logrus.Fields{
		"requested":   len(coins),
		"received":    len(prices),
		"duration_ms": time.Since(start).Milliseconds(),
	}).Info("Fetched prices from feed")

	return prices, nil
}
