package collector

import (
	"context"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"

	"crypto-paper-trading/pkg/models"
)

// PriceStore is the slice of the price repository the collector writes
// through.
type PriceStore interface {
	Coins(ctx context.Context) ([]models.Coin, error)
	UpsertPrice(ctx context.Context, symbol string, price decimal.Decimal, at time.Time) error
	RecordSnapshot(ctx context.Context, at time.Time) error
	PruneHistory(ctx context.Context, olderThan time.Time) error
}

// Processor persists fetched prices.
type Processor struct {
	store  PriceStore
	logger *logrus.Logger
}

func NewProcessor(store PriceStore, logger *logrus.Logger) *Processor {
	return &Processor{
		store:  store,
		logger: logger,
	}
}

// UpsertPrices overwrites each coin's current price. A single failed upsert
// aborts: a partially refreshed price table is better caught loudly than
// silently mixed.
func (p *Processor) UpsertPrices(ctx context.Context, prices map[string]decimal.Decimal, at time.Time) error {
	for symbol, price := range prices {
		if err := p.store.UpsertPrice(ctx, symbol, price, at); err != nil {
			return fmt.Errorf("failed to store price for %s: %w", symbol, err)
		}
	}

	p.logger.WithFields(logrus.Fields{
		"coins":      len(prices),
		"updated_at": at,
	}).Info("Updated current prices")
	return nil
}
