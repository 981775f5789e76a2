package ledger

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"

	"crypto-paper-trading/internal/trader"
	"crypto-paper-trading/pkg/database"
	"crypto-paper-trading/pkg/models"
)

// Repository owns the users and journal tables. It is the only mutator of
// balance and journal state; every mutation runs inside a single storage
// transaction so a balance update can never land without its journal rows.
type Repository struct {
	db             *database.DB
	logger         *logrus.Logger
	defaultBalance decimal.Decimal
}

func NewRepository(db *database.DB, logger *logrus.Logger) *Repository {
	return &Repository{
		db:             db,
		logger:         logger,
		defaultBalance: models.DefaultBalance,
	}
}

// Balance returns the user's balance, provisioning a row with the default
// starting balance on first contact. Reads outside a trade transaction take
// no lock.
func (r *Repository) Balance(ctx context.Context, userID string) (decimal.Decimal, error) {
	var balance database.Decimal
	err := r.db.QueryRowContext(ctx,
		`SELECT balance FROM users WHERE user_id = $1`, userID).Scan(&balance)
	if err == sql.ErrNoRows {
		if err := r.provision(ctx, r.db.DB, userID); err != nil {
			return decimal.Zero, err
		}
		return r.defaultBalance, nil
	}
	if err != nil {
		return decimal.Zero, fmt.Errorf("failed to read balance: %w", err)
	}
	return balance.Decimal, nil
}

type execer interface {
	ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error)
}

func (r *Repository) provision(ctx context.Context, db execer, userID string) error {
	_, err := db.ExecContext(ctx, `
        INSERT INTO users (user_id, balance)
        VALUES ($1, $2)
        ON CONFLICT (user_id) DO NOTHING
    `, userID, database.Decimal{Decimal: r.defaultBalance})
	if err != nil {
		return fmt.Errorf("failed to provision user: %w", err)
	}
	r.logger.WithField("user_id", userID).Info("Provisioned new account")
	return nil
}

// InTx runs fn inside one database transaction and commits only when fn
// succeeds. It implements trader.Ledger.
func (r *Repository) InTx(ctx context.Context, fn func(trader.Tx) error) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	lt := &ledgerTx{ctx: ctx, tx: tx, repo: r}
	if err := fn(lt); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

// ResetAccount wipes the user's journal and restores the default balance in
// one transaction. Running it twice is harmless.
func (r *Repository) ResetAccount(ctx context.Context, userID string) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx,
		`DELETE FROM journal WHERE user_id = $1`, userID); err != nil {
		return fmt.Errorf("failed to clear journal: %w", err)
	}

	if _, err := tx.ExecContext(ctx, `
        INSERT INTO users (user_id, balance)
        VALUES ($1, $2)
        ON CONFLICT (user_id) DO UPDATE SET balance = EXCLUDED.balance
    `, userID, database.Decimal{Decimal: r.defaultBalance}); err != nil {
		return fmt.Errorf("failed to reset balance: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}

	r.logger.WithField("user_id", userID).Info("Account reset to default balance")
	return nil
}

// PositionAggregates rolls the journal up per coin and joins the current
// price in a single statement, so the valuation engine always sees one
// consistent snapshot. Fee rows are excluded; they carry the sentinel symbol.
func (r *Repository) PositionAggregates(ctx context.Context, userID string) ([]models.PositionAggregate, error) {
	query := `
        SELECT j.symbol,
               COALESCE(SUM(CASE WHEN j.action = 'buy' THEN j.quantity ELSE 0 END), 0)  AS total_buy_qty,
               COALESCE(SUM(CASE WHEN j.action = 'buy' THEN j.quantity * j.price ELSE 0 END), 0) AS total_buy_cost,
               COALESCE(SUM(CASE WHEN j.action = 'sell' THEN j.quantity ELSE 0 END), 0) AS total_sell_qty,
               COALESCE(SUM(CASE WHEN j.action = 'sell' THEN j.quantity * j.price ELSE 0 END), 0) AS total_sell_income,
               COALESCE(p.price, 0) AS current_price
        FROM journal j
        LEFT JOIN prices p ON p.symbol = j.symbol
        WHERE j.user_id = $1 AND j.symbol <> $2
        GROUP BY j.symbol, p.price
        ORDER BY j.symbol
    `

	rows, err := r.db.QueryContext(ctx, query, userID, models.FeeSymbol)
	if err != nil {
		return nil, fmt.Errorf("failed to query position aggregates: %w", err)
	}
	defer rows.Close()

	var aggregates []models.PositionAggregate
	for rows.Next() {
		var agg models.PositionAggregate
		var buyQty, buyCost, sellQty, sellIncome, price database.Decimal
		if err := rows.Scan(&agg.Symbol, &buyQty, &buyCost, &sellQty, &sellIncome, &price); err != nil {
			return nil, fmt.Errorf("failed to scan position aggregate: %w", err)
		}
		agg.TotalBuyQty = buyQty.Decimal
		agg.TotalBuyCost = buyCost.Decimal
		agg.TotalSellQty = sellQty.Decimal
		agg.TotalSellIncome = sellIncome.Decimal
		agg.CurrentPrice = price.Decimal
		aggregates = append(aggregates, agg)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating position aggregates: %w", err)
	}

	return aggregates, nil
}

// ledgerTx implements trader.Tx over one open *sql.Tx.
type ledgerTx struct {
	ctx  context.Context
	tx   *sql.Tx
	repo *Repository
}

// BalanceForUpdate row-locks the user's balance, provisioning the account
// first if this is the user's first contact. The lock serializes concurrent
// trades by the same user without blocking other users.
func (t *ledgerTx) BalanceForUpdate(userID string) (decimal.Decimal, error) {
	var balance database.Decimal
	err := t.tx.QueryRowContext(t.ctx,
		`SELECT balance FROM users WHERE user_id = $1 FOR UPDATE`, userID).Scan(&balance)
	if err == sql.ErrNoRows {
		if err := t.repo.provision(t.ctx, t.tx, userID); err != nil {
			return decimal.Zero, err
		}
		err = t.tx.QueryRowContext(t.ctx,
			`SELECT balance FROM users WHERE user_id = $1 FOR UPDATE`, userID).Scan(&balance)
	}
	if err != nil {
		return decimal.Zero, fmt.Errorf("failed to lock balance: %w", err)
	}
	return balance.Decimal, nil
}

// Holdings is computed from the journal inside the same transaction as the
// trade, so a partially committed trade can never be observed.
func (t *ledgerTx) Holdings(userID, symbol string) (decimal.Decimal, error) {
	var holdings database.Decimal
	err := t.tx.QueryRowContext(t.ctx, `
        SELECT COALESCE(SUM(CASE WHEN action = 'buy' THEN quantity ELSE 0 END), 0) -
               COALESCE(SUM(CASE WHEN action = 'sell' THEN quantity ELSE 0 END), 0)
        FROM journal
        WHERE user_id = $1 AND symbol = $2
    `, userID, symbol).Scan(&holdings)
	if err != nil {
		return decimal.Zero, fmt.Errorf("failed to compute holdings: %w", err)
	}
	return holdings.Decimal, nil
}

func (t *ledgerTx) SetBalance(userID string, balance decimal.Decimal) error {
	result, err := t.tx.ExecContext(t.ctx,
		`UPDATE users SET balance = $1 WHERE user_id = $2`,
		database.Decimal{Decimal: balance}, userID)
	if err != nil {
		return fmt.Errorf("failed to set balance: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if affected == 0 {
		return fmt.Errorf("%w: %s", trader.ErrUserNotFound, userID)
	}
	return nil
}

func (t *ledgerTx) AppendTrade(userID, symbol, action string, quantity, price decimal.Decimal, at time.Time) error {
	return t.append(models.JournalEntry{
		ID:       uuid.New(),
		UserID:   userID,
		Symbol:   symbol,
		Action:   action,
		Quantity: quantity,
		Price:    price,
		TradedAt: at,
	})
}

// AppendFee records the fee as a journal row under the sentinel symbol, with
// the fee amount as quantity and price fixed at 1.
func (t *ledgerTx) AppendFee(userID string, amount decimal.Decimal, at time.Time) error {
	return t.append(models.JournalEntry{
		ID:       uuid.New(),
		UserID:   userID,
		Symbol:   models.FeeSymbol,
		Action:   models.ActionFee,
		Quantity: amount,
		Price:    decimal.NewFromInt(1),
		TradedAt: at,
	})
}

func (t *ledgerTx) append(entry models.JournalEntry) error {
	_, err := t.tx.ExecContext(t.ctx, `
        INSERT INTO journal (id, user_id, symbol, action, quantity, price, traded_at)
        VALUES ($1, $2, $3, $4, $5, $6, $7)
    `, entry.ID, entry.UserID, entry.Symbol, entry.Action,
		database.Decimal{Decimal: entry.Quantity},
		database.Decimal{Decimal: entry.Price},
		entry.TradedAt)
	if err != nil {
		return fmt.Errorf("failed to append journal entry: %w", err)
	}
	return nil
}
