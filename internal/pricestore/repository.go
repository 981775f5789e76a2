package pricestore

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"

	"crypto-paper-trading/pkg/database"
	"crypto-paper-trading/pkg/models"
)

// Repository owns the coins, prices and price_history tables.
type Repository struct {
	db     *database.DB
	logger *logrus.Logger
}

func NewRepository(db *database.DB, logger *logrus.Logger) *Repository {
	return &Repository{
		db:     db,
		logger: logger,
	}
}

// Coins lists the supported coin set with their external price-feed IDs.
func (r *Repository) Coins(ctx context.Context) ([]models.Coin, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT symbol, name, coingecko_id FROM coins ORDER BY symbol`)
	if err != nil {
		return nil, fmt.Errorf("failed to query coins: %w", err)
	}
	defer rows.Close()

	var coins []models.Coin
	for rows.Next() {
		var coin models.Coin
		if err := rows.Scan(&coin.Symbol, &coin.Name, &coin.CoinGeckoID); err != nil {
			return nil, fmt.Errorf("failed to scan coin: %w", err)
		}
		coins = append(coins, coin)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating coins: %w", err)
	}
	return coins, nil
}

// UpsertPrice replaces the current price for a coin. Reads within the same
// process see the new value as soon as this returns.
func (r *Repository) UpsertPrice(ctx context.Context, symbol string, price decimal.Decimal, at time.Time) error {
	_, err := r.db.ExecContext(ctx, `
        INSERT INTO prices (symbol, price, updated_at)
        VALUES ($1, $2, $3)
        ON CONFLICT (symbol) DO UPDATE SET
            price = EXCLUDED.price,
            updated_at = EXCLUDED.updated_at
    `, symbol, database.Decimal{Decimal: price}, at)
	if err != nil {
		return fmt.Errorf("failed to upsert price for %s: %w", symbol, err)
	}
	return nil
}

// LatestPrice returns the current price for a symbol; found is false when the
// coin has no price row.
func (r *Repository) LatestPrice(ctx context.Context, symbol string) (decimal.Decimal, bool, error) {
	var price database.Decimal
	err := r.db.QueryRowContext(ctx,
		`SELECT price FROM prices WHERE symbol = $1`, symbol).Scan(&price)
	if err == sql.ErrNoRows {
		return decimal.Zero, false, nil
	}
	if err != nil {
		return decimal.Zero, false, fmt.Errorf("failed to get latest price: %w", err)
	}
	return price.Decimal, true, nil
}

// CurrentPrices returns the current price of every coin that has one.
func (r *Repository) CurrentPrices(ctx context.Context) ([]models.PricePoint, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT symbol, price, updated_at FROM prices ORDER BY symbol`)
	if err != nil {
		return nil, fmt.Errorf("failed to query current prices: %w", err)
	}
	defer rows.Close()

	var points []models.PricePoint
	for rows.Next() {
		var point models.PricePoint
		var price database.Decimal
		if err := rows.Scan(&point.Symbol, &price, &point.UpdatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan price point: %w", err)
		}
		point.Price = price.Decimal
		points = append(points, point)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating current prices: %w", err)
	}
	return points, nil
}

// RecordSnapshot appends one history row per coin with a current price, all
// stamped at the given time. Callers pass a minute-truncated timestamp; a
// second call with the same timestamp appends duplicate rows, which is an
// accepted limitation of the snapshot model.
func (r *Repository) RecordSnapshot(ctx context.Context, at time.Time) error {
	result, err := r.db.ExecContext(ctx, `
        INSERT INTO price_history (symbol, price, recorded_at)
        SELECT symbol, price, $1 FROM prices
    `, at)
	if err != nil {
		return fmt.Errorf("failed to record snapshot: %w", err)
	}

	recorded, _ := result.RowsAffected()
	r.logger.WithFields(logrus.Fields{
		"recorded_at": at,
		"rows":        recorded,
	}).Debug("Recorded price snapshot")
	return nil
}

// History returns the ascending price series for a coin since the given
// time.
func (r *Repository) History(ctx context.Context, symbol string, since time.Time) ([]models.HistoryEntry, error) {
	rows, err := r.db.QueryContext(ctx, `
        SELECT symbol, price, recorded_at
        FROM price_history
        WHERE symbol = $1 AND recorded_at >= $2
        ORDER BY recorded_at ASC
    `, symbol, since)
	if err != nil {
		return nil, fmt.Errorf("failed to query price history: %w", err)
	}
	defer rows.Close()

	var entries []models.HistoryEntry
	for rows.Next() {
		var entry models.HistoryEntry
		var price database.Decimal
		if err := rows.Scan(&entry.Symbol, &price, &entry.RecordedAt); err != nil {
			return nil, fmt.Errorf("failed to scan history entry: %w", err)
		}
		entry.Price = price.Decimal
		entries = append(entries, entry)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating price history: %w", err)
	}
	return entries, nil
}

// PruneHistory deletes history rows strictly older than the cutoff. It is
// idempotent and only touches rows no reader still wants, so it can run
// concurrently with snapshot inserts.
func (r *Repository) PruneHistory(ctx context.Context, olderThan time.Time) error {
	result, err := r.db.ExecContext(ctx,
		`DELETE FROM price_history WHERE recorded_at < $1`, olderThan)
	if err != nil {
		return fmt.Errorf("failed to prune price history: %w", err)
	}

	deleted, _ := result.RowsAffected()
	r.logger.WithFields(logrus.Fields{
		"rows_deleted": deleted,
		"cutoff_time":  olderThan,
	}).Info("Pruned old price history")
	return nil
}
