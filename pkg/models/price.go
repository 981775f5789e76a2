package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Coin is a tradable asset. Rows are immutable once referenced by trades.
type Coin struct {
	Symbol      string `json:"coin_id"`
	Name        string `json:"coin_name"`
	CoinGeckoID string `json:"-"`
}

// PricePoint is the current price of a coin, overwritten on every poll.
type PricePoint struct {
	Symbol    string          `json:"coin_id"`
	Price     decimal.Decimal `json:"price"`
	UpdatedAt time.Time       `json:"update_time"`
}

// HistoryEntry is one append-only price snapshot used for charting and
// fluctuation checks.
type HistoryEntry struct {
	Symbol     string          `json:"coin_id"`
	Price      decimal.Decimal `json:"price"`
	RecordedAt time.Time       `json:"label"`
}
