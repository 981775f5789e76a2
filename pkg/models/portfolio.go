package models

import "github.com/shopspring/decimal"

// PositionAggregate is the per-coin journal rollup the valuation engine works
// from: buy/sell sums for one user and coin, joined with the current price.
type PositionAggregate struct {
	Symbol          string
	TotalBuyQty     decimal.Decimal
	TotalBuyCost    decimal.Decimal
	TotalSellQty    decimal.Decimal
	TotalSellIncome decimal.Decimal
	CurrentPrice    decimal.Decimal
}

// Position is one open holding in a user's portfolio.
type Position struct {
	Symbol         string
	Quantity       decimal.Decimal
	AverageBuyCost decimal.Decimal
	CurrentPrice   decimal.Decimal
	MarketValue    decimal.Decimal
	NetProfit      decimal.Decimal
}

// PortfolioSummary aggregates a whole portfolio.
type PortfolioSummary struct {
	TotalMarketValue decimal.Decimal
	TotalBuyCost     decimal.Decimal
	TotalSellIncome  decimal.Decimal
	TotalNetProfit   decimal.Decimal
	TotalReturnRate  decimal.Decimal
}

// Portfolio is the full valuation response for one user. Positions with net
// holdings of zero or less are excluded.
type Portfolio struct {
	Balance   decimal.Decimal
	Positions []Position
	Summary   PortfolioSummary
}
