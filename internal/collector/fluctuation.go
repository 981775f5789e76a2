package collector

import (
	"context"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"

	"crypto-paper-trading/internal/alert"
	"crypto-paper-trading/pkg/models"
)

var hundred = decimal.NewFromInt(100)

// TrackingSource supplies the (user, coin) pairs to check, already joined
// with the current price and the newest history entry old enough to compare
// against.
type TrackingSource interface {
	PairsWithWindow(ctx context.Context, cutoff time.Time) ([]models.TrackingPair, error)
}

// FluctuationChecker emits an alert event for every tracking pair whose price
// moved at least the threshold fraction across the comparison window.
type FluctuationChecker struct {
	source    TrackingSource
	notifier  alert.Notifier
	threshold decimal.Decimal
	window    time.Duration
	logger    *logrus.Logger
}

func NewFluctuationChecker(source TrackingSource, notifier alert.Notifier, threshold float64, window time.Duration, logger *logrus.Logger) *FluctuationChecker {
	return &FluctuationChecker{
		source:    source,
		notifier:  notifier,
		threshold: decimal.NewFromFloat(threshold),
		window:    window,
		logger:    logger,
	}
}

// Check evaluates all tracking pairs against the snapshot taken at least one
// window before now. A notifier failure for one pair is logged and does not
// stop delivery for the rest.
func (c *FluctuationChecker) Check(ctx context.Context, now time.Time) error {
	pairs, err := c.source.PairsWithWindow(ctx, now.Add(-c.window))
	if err != nil {
		return fmt.Errorf("failed to load tracking pairs: %w", err)
	}

	fired := 0
	for _, pair := range pairs {
		event, ok := c.Evaluate(pair, now)
		if !ok {
			continue
		}
		if err := c.notifier.Notify(ctx, event); err != nil {
			c.logger.WithError(err).WithFields(logrus.Fields{
				"user_id": pair.UserID,
				"coin_id": pair.Symbol,
			}).Error("Failed to deliver fluctuation alert")
			continue
		}
		fired++
	}

	c.logger.WithFields(logrus.Fields{
		"pairs_checked": len(pairs),
		"alerts_fired":  fired,
	}).Debug("Fluctuation check completed")
	return nil
}

// Evaluate decides whether one pair alerts. Pairs with a zero previous price
// are skipped; the relative change is undefined there.
func (c *FluctuationChecker) Evaluate(pair models.TrackingPair, now time.Time) (alert.Event, bool) {
	if pair.PreviousPrice.IsZero() {
		return alert.Event{}, false
	}

	change := pair.CurrentPrice.Sub(pair.PreviousPrice).Div(pair.PreviousPrice)
	if change.Abs().LessThan(c.threshold) {
		return alert.Event{}, false
	}

	return alert.Event{
		UserID:        pair.UserID,
		Symbol:        pair.Symbol,
		ChangePercent: change.Mul(hundred).Round(2),
		Previous:      pair.PreviousPrice,
		Current:       pair.CurrentPrice,
		At:            now,
	}, true
}
