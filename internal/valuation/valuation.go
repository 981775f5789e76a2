package valuation

import (
	"context"
	"fmt"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"

	"crypto-paper-trading/pkg/models"
)

var hundred = decimal.NewFromInt(100)

// JournalSource is the read-only view of the ledger the valuation engine
// needs. PositionAggregates must come from a single consistent snapshot of
// journal and prices.
type JournalSource interface {
	Balance(ctx context.Context, userID string) (decimal.Decimal, error)
	PositionAggregates(ctx context.Context, userID string) ([]models.PositionAggregate, error)
}

// Engine derives holdings, cost basis and profit from the journal. It never
// writes.
type Engine struct {
	journal JournalSource
	logger  *logrus.Logger
}

func NewEngine(journal JournalSource, logger *logrus.Logger) *Engine {
	return &Engine{
		journal: journal,
		logger:  logger,
	}
}

// Portfolio values every coin the user still holds. Coins whose net quantity
// is zero or negative are excluded even when they have trade history; a sold
// out position contributes nothing to market value by definition.
func (e *Engine) Portfolio(ctx context.Context, userID string) (*models.Portfolio, error) {
	balance, err := e.journal.Balance(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to read balance: %w", err)
	}

	aggregates, err := e.journal.PositionAggregates(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to read position aggregates: %w", err)
	}

	portfolio := &models.Portfolio{Balance: balance}
	summary := &portfolio.Summary

	for _, agg := range aggregates {
		quantity := agg.TotalBuyQty.Sub(agg.TotalSellQty)
		if !quantity.IsPositive() {
			continue
		}

		averageCost := decimal.Zero
		if agg.TotalBuyQty.IsPositive() {
			averageCost = agg.TotalBuyCost.Div(agg.TotalBuyQty)
		}

		marketValue := quantity.Mul(agg.CurrentPrice)
		netProfit := marketValue.Add(agg.TotalSellIncome).Sub(agg.TotalBuyCost)

		summary.TotalMarketValue = summary.TotalMarketValue.Add(marketValue)
		summary.TotalBuyCost = summary.TotalBuyCost.Add(agg.TotalBuyCost)
		summary.TotalSellIncome = summary.TotalSellIncome.Add(agg.TotalSellIncome)
		summary.TotalNetProfit = summary.TotalNetProfit.Add(netProfit)

		portfolio.Positions = append(portfolio.Positions, models.Position{
			Symbol:         agg.Symbol,
			Quantity:       quantity,
			AverageBuyCost: averageCost,
			CurrentPrice:   agg.CurrentPrice,
			MarketValue:    marketValue,
			NetProfit:      netProfit,
		})
	}

	if summary.TotalBuyCost.IsPositive() {
		summary.TotalReturnRate = summary.TotalNetProfit.Div(summary.TotalBuyCost).Mul(hundred)
	}

	return portfolio, nil
}
