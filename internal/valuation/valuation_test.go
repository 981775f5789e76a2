package valuation

import (
	"context"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"crypto-paper-trading/pkg/models"
)

type fakeJournal struct {
	balance    decimal.Decimal
	aggregates []models.PositionAggregate
}

func (f *fakeJournal) Balance(context.Context, string) (decimal.Decimal, error) {
	return f.balance, nil
}

func (f *fakeJournal) PositionAggregates(context.Context, string) ([]models.PositionAggregate, error) {
	return f.aggregates, nil
}

func dec(s string) decimal.Decimal {
	d, err := decimal.NewFromString(s)
	if err != nil {
		panic(err)
	}
	return d
}

func newTestEngine(journal *fakeJournal) *Engine {
	logger := logrus.New()
	logger.SetLevel(logrus.PanicLevel)
	return NewEngine(journal, logger)
}

func TestPortfolioValuation(t *testing.T) {
	journal := &fakeJournal{
		balance: dec("4949950"),
		aggregates: []models.PositionAggregate{
			{
				Symbol:       "BTC",
				TotalBuyQty:  dec("2"),
				TotalBuyCost: dec("100000"),
				TotalSellQty: dec("1"),
				// sold one at 52,000
				TotalSellIncome: dec("52000"),
				CurrentPrice:    dec("55000"),
			},
		},
	}
	engine := newTestEngine(journal)

	portfolio, err := engine.Portfolio(context.Background(), "user-1")
	require.NoError(t, err)

	require.Len(t, portfolio.Positions, 1)
	pos := portfolio.Positions[0]
	assert.Equal(t, "BTC", pos.Symbol)
	assert.True(t, pos.Quantity.Equal(dec("1")))
	assert.True(t, pos.AverageBuyCost.Equal(dec("50000")))
	assert.True(t, pos.MarketValue.Equal(dec("55000")))
	// 55,000 market + 52,000 sold - 100,000 spent
	assert.True(t, pos.NetProfit.Equal(dec("7000")), "net profit = %s", pos.NetProfit)

	assert.True(t, portfolio.Summary.TotalNetProfit.Equal(dec("7000")))
	assert.True(t, portfolio.Summary.TotalReturnRate.Equal(dec("7")),
		"return rate = %s", portfolio.Summary.TotalReturnRate)
}

func TestPortfolioExcludesClosedPositions(t *testing.T) {
	journal := &fakeJournal{
		balance: dec("5000899"),
		aggregates: []models.PositionAggregate{
			{
				Symbol:          "BTC",
				TotalBuyQty:     dec("1"),
				TotalBuyCost:    dec("50000"),
				TotalSellQty:    dec("1"),
				TotalSellIncome: dec("51000"),
				CurrentPrice:    dec("51000"),
			},
			{
				Symbol:       "ETH",
				TotalBuyQty:  dec("3"),
				TotalBuyCost: dec("9000"),
				CurrentPrice: dec("3100"),
			},
		},
	}
	engine := newTestEngine(journal)

	portfolio, err := engine.Portfolio(context.Background(), "user-1")
	require.NoError(t, err)

	require.Len(t, portfolio.Positions, 1, "sold-out coin is excluded despite its trade history")
	assert.Equal(t, "ETH", portfolio.Positions[0].Symbol)

	// Summary only covers coins still held.
	assert.True(t, portfolio.Summary.TotalBuyCost.Equal(dec("9000")))
	assert.True(t, portfolio.Summary.TotalMarketValue.Equal(dec("9300")))
}

func TestPortfolioEmptyJournal(t *testing.T) {
	journal := &fakeJournal{balance: models.DefaultBalance}
	engine := newTestEngine(journal)

	portfolio, err := engine.Portfolio(context.Background(), "user-1")
	require.NoError(t, err)

	assert.Empty(t, portfolio.Positions)
	assert.True(t, portfolio.Summary.TotalReturnRate.IsZero(),
		"return rate is defined as 0 when nothing was ever bought")
	assert.True(t, portfolio.Balance.Equal(models.DefaultBalance))
}

func TestPortfolioNeverBoughtButHolding(t *testing.T) {
	// A coin with sells only nets out negative and is excluded; average cost
	// guards the zero-buy division.
	journal := &fakeJournal{
		balance: dec("5000000"),
		aggregates: []models.PositionAggregate{
			{
				Symbol:          "DOGE",
				TotalSellQty:    dec("5"),
				TotalSellIncome: dec("1"),
				CurrentPrice:    dec("0.2"),
			},
		},
	}
	engine := newTestEngine(journal)

	portfolio, err := engine.Portfolio(context.Background(), "user-1")
	require.NoError(t, err)
	assert.Empty(t, portfolio.Positions)
}
