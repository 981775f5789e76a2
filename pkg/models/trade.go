package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

const (
	ActionBuy  = "buy"
	ActionSell = "sell"
	ActionFee  = "fee"

	// FeeSymbol is the sentinel coin identifier used for fee journal rows.
	// Fee rows carry the fee amount as quantity with price fixed at 1, so
	// total fees stay reconstructable from the journal alone.
	FeeSymbol = "FEE"
)

// DefaultBalance is the starting paper-trading balance for new accounts.
var DefaultBalance = decimal.NewFromInt(5_000_000)

// JournalEntry is one append-only row in the trade/fee journal. Entries are
// never mutated; the only delete path is a full account reset.
type JournalEntry struct {
	ID       uuid.UUID
	UserID   string
	Symbol   string
	Action   string
	Quantity decimal.Decimal
	Price    decimal.Decimal
	TradedAt time.Time
}

// TrackedCoin is a coin on a user's follow list, enriched with its display
// name and current price for listing.
type TrackedCoin struct {
	Symbol string          `json:"coin_id"`
	Name   string          `json:"coin_name"`
	Price  decimal.Decimal `json:"price"`
}

// TrackingPair is one (user, coin) subscription together with the prices the
// fluctuation check compares: the current price and the most recent history
// entry old enough to span the comparison window.
type TrackingPair struct {
	UserID        string
	Symbol        string
	CurrentPrice  decimal.Decimal
	PreviousPrice decimal.Decimal
}
