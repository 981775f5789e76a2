package trader

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"

	"crypto-paper-trading/pkg/models"
)

// FeeRate is the flat transaction fee applied to every trade (0.1%).
var FeeRate = decimal.NewFromFloat(0.001)

// PriceSource supplies the current price of a coin. The second return value
// is false when no price row exists for the symbol.
type PriceSource interface {
	LatestPrice(ctx context.Context, symbol string) (decimal.Decimal, bool, error)
}

// Ledger is the transactional boundary for balance and journal mutations.
// InTx runs fn inside a single storage transaction; if fn returns an error
// nothing is committed. The row lock taken by BalanceForUpdate serializes
// concurrent trades by the same user.
type Ledger interface {
	InTx(ctx context.Context, fn func(Tx) error) error
}

// Tx exposes the ledger operations valid inside one transaction. The ledger
// performs no trade arithmetic; the engine computes every value it writes.
type Tx interface {
	BalanceForUpdate(userID string) (decimal.Decimal, error)
	Holdings(userID, symbol string) (decimal.Decimal, error)
	SetBalance(userID string, balance decimal.Decimal) error
	AppendTrade(userID, symbol, action string, quantity, price decimal.Decimal, at time.Time) error
	AppendFee(userID string, amount decimal.Decimal, at time.Time) error
}

// TradeRequest describes one buy or sell. Exactly one of Quantity and Total
// must be positive; when only Total is given the quantity is derived from the
// current price.
type TradeRequest struct {
	UserID   string
	Symbol   string
	Action   string
	Quantity decimal.Decimal
	Total    decimal.Decimal
}

// TradeResult reports a committed trade. All values retain full precision;
// rounding happens at the response boundary only.
type TradeResult struct {
	Action      string
	Symbol      string
	Quantity    decimal.Decimal
	Price       decimal.Decimal
	Fee         decimal.Decimal
	NewBalance  decimal.Decimal
	TotalCost   decimal.Decimal // buy only: notional + fee
	GrossIncome decimal.Decimal // sell only: notional
	NetIncome   decimal.Decimal // sell only: notional - fee
}

// TradeInfo is the pre-trade lookup: current balance plus the coin's price
// when one is known.
type TradeInfo struct {
	Balance decimal.Decimal
	Price   *decimal.Decimal
}

// BalanceSource reads a user's balance outside a trade transaction. Unknown
// users resolve to the default starting balance.
type BalanceSource interface {
	Balance(ctx context.Context, userID string) (decimal.Decimal, error)
}

type Engine struct {
	prices   PriceSource
	ledger   Ledger
	balances BalanceSource
	logger   *logrus.Logger
	now      func() time.Time
}

func NewEngine(prices PriceSource, ledger Ledger, balances BalanceSource, logger *logrus.Logger) *Engine {
	return &Engine{
		prices:   prices,
		ledger:   ledger,
		balances: balances,
		logger:   logger,
		now:      time.Now,
	}
}

// Execute runs one trade through validate -> price lookup -> balance/holdings
// check -> commit. The commit is all-or-nothing: the balance update and both
// journal rows land in one transaction or not at all.
func (e *Engine) Execute(ctx context.Context, req TradeRequest) (*TradeResult, error) {
	if req.UserID == "" || req.Symbol == "" {
		return nil, fmt.Errorf("%w: user_id and coin_id are required", ErrInvalidInput)
	}

	action := strings.ToLower(req.Action)
	if action != models.ActionBuy && action != models.ActionSell {
		return nil, fmt.Errorf("%w: %q", ErrInvalidAction, req.Action)
	}

	price, found, err := e.prices.LatestPrice(ctx, req.Symbol)
	if err != nil {
		return nil, fmt.Errorf("%w: price lookup: %v", ErrStoreUnavailable, err)
	}
	if !found {
		return nil, fmt.Errorf("%w: %s", ErrCoinNotFound, req.Symbol)
	}
	if !price.IsPositive() {
		return nil, fmt.Errorf("%w: %s has no usable price", ErrCoinNotFound, req.Symbol)
	}

	quantity, err := resolveQuantity(req, price)
	if err != nil {
		return nil, err
	}

	notional := price.Mul(quantity)
	fee := notional.Mul(FeeRate)
	tradedAt := e.now().UTC()

	var result *TradeResult
	err = e.ledger.InTx(ctx, func(tx Tx) error {
		balance, err := tx.BalanceForUpdate(req.UserID)
		if err != nil {
			return err
		}

		switch action {
		case models.ActionBuy:
			result, err = e.buy(tx, req.UserID, req.Symbol, quantity, price, notional, fee, balance, tradedAt)
		case models.ActionSell:
			result, err = e.sell(tx, req.UserID, req.Symbol, quantity, price, notional, fee, balance, tradedAt)
		}
		return err
	})
	if err != nil {
		if IsDomain(err) {
			return nil, err
		}
		return nil, fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}

	e.logger.WithFields(logrus.Fields{
		"user_id":  req.UserID,
		"coin_id":  req.Symbol,
		"action":   action,
		"quantity": quantity.String(),
		"price":    price.String(),
		"fee":      fee.String(),
	}).Info("Trade executed")

	return result, nil
}

func (e *Engine) buy(tx Tx, userID, symbol string, quantity, price, notional, fee, balance decimal.Decimal, at time.Time) (*TradeResult, error) {
	cost := notional.Add(fee)
	if cost.GreaterThan(balance) {
		return nil, fmt.Errorf("%w: need %s including fee %s, have %s",
			ErrInsufficientBalance, cost.Round(2), fee.Round(2), balance.Round(2))
	}

	newBalance := balance.Sub(cost)
	if err := tx.SetBalance(userID, newBalance); err != nil {
		return nil, err
	}
	if err := tx.AppendTrade(userID, symbol, models.ActionBuy, quantity, price, at); err != nil {
		return nil, err
	}
	if err := tx.AppendFee(userID, fee, at); err != nil {
		return nil, err
	}

	return &TradeResult{
		Action:     models.ActionBuy,
		Symbol:     symbol,
		Quantity:   quantity,
		Price:      price,
		Fee:        fee,
		NewBalance: newBalance,
		TotalCost:  cost,
	}, nil
}

func (e *Engine) sell(tx Tx, userID, symbol string, quantity, price, notional, fee, balance decimal.Decimal, at time.Time) (*TradeResult, error) {
	holdings, err := tx.Holdings(userID, symbol)
	if err != nil {
		return nil, err
	}
	if quantity.GreaterThan(holdings) {
		return nil, fmt.Errorf("%w: selling %s but only %s held",
			ErrInsufficientHoldings, quantity, holdings)
	}

	income := notional.Sub(fee)
	newBalance := balance.Add(income)
	if err := tx.SetBalance(userID, newBalance); err != nil {
		return nil, err
	}
	if err := tx.AppendTrade(userID, symbol, models.ActionSell, quantity, price, at); err != nil {
		return nil, err
	}
	if err := tx.AppendFee(userID, fee, at); err != nil {
		return nil, err
	}

	return &TradeResult{
		Action:      models.ActionSell,
		Symbol:      symbol,
		Quantity:    quantity,
		Price:       price,
		Fee:         fee,
		NewBalance:  newBalance,
		GrossIncome: notional,
		NetIncome:   income,
	}, nil
}

// Info returns the user's balance and, when the symbol is known, its current
// price. Unknown symbols yield a nil price rather than an error so the
// pre-trade form can still render the balance.
func (e *Engine) Info(ctx context.Context, userID, symbol string) (*TradeInfo, error) {
	if userID == "" {
		return nil, fmt.Errorf("%w: user_id is required", ErrInvalidInput)
	}

	balance, err := e.balances.Balance(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}

	info := &TradeInfo{Balance: balance}
	if symbol != "" {
		price, found, err := e.prices.LatestPrice(ctx, symbol)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
		}
		if found {
			info.Price = &price
		}
	}
	return info, nil
}

func resolveQuantity(req TradeRequest, price decimal.Decimal) (decimal.Decimal, error) {
	if req.Quantity.IsNegative() || req.Total.IsNegative() {
		return decimal.Zero, fmt.Errorf("%w: quantity and total must be positive", ErrInvalidInput)
	}
	if req.Quantity.IsPositive() {
		return req.Quantity, nil
	}
	if req.Total.IsPositive() {
		return req.Total.Div(price), nil
	}
	return decimal.Zero, fmt.Errorf("%w: either quantity or total is required", ErrInvalidInput)
}
