package tracker

import (
	"context"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"

	"crypto-paper-trading/pkg/database"
	"crypto-paper-trading/pkg/models"
)

// Repository owns the tracking table: (user, coin) subscriptions that decide
// who receives fluctuation alerts.
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

// Add subscribes a user to a coin. Adding an existing pair is a no-op.
func (r *Repository) Add(ctx context.Context, userID, symbol string) error {
	_, err := r.db.ExecContext(ctx, `
        INSERT INTO tracking (user_id, symbol)
        VALUES ($1, $2)
        ON CONFLICT (user_id, symbol) DO NOTHING
    `, userID, symbol)
	if err != nil {
		return fmt.Errorf("failed to add tracking pair: %w", err)
	}
	return nil
}

// Remove drops a subscription; removing an absent pair is a no-op.
func (r *Repository) Remove(ctx context.Context, userID, symbol string) error {
	_, err := r.db.ExecContext(ctx,
		`DELETE FROM tracking WHERE user_id = $1 AND symbol = $2`, userID, symbol)
	if err != nil {
		return fmt.Errorf("failed to remove tracking pair: %w", err)
	}
	return nil
}

// Tracked lists the user's subscriptions with display name and current
// price.
func (r *Repository) Tracked(ctx context.Context, userID string) ([]models.TrackedCoin, error) {
	rows, err := r.db.QueryContext(ctx, `
        SELECT c.symbol, c.name, COALESCE(p.price, 0)
        FROM tracking t
        JOIN coins c ON c.symbol = t.symbol
        LEFT JOIN prices p ON p.symbol = c.symbol
        WHERE t.user_id = $1
        ORDER BY c.symbol
    `, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to query tracked coins: %w", err)
	}
	defer rows.Close()

	var tracked []models.TrackedCoin
	for rows.Next() {
		var coin models.TrackedCoin
		var price database.Decimal
		if err := rows.Scan(&coin.Symbol, &coin.Name, &price); err != nil {
			return nil, fmt.Errorf("failed to scan tracked coin: %w", err)
		}
		coin.Price = price.Decimal
		tracked = append(tracked, coin)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating tracked coins: %w", err)
	}
	return tracked, nil
}

// Untracked lists the coins the user is not yet subscribed to.
func (r *Repository) Untracked(ctx context.Context, userID string) ([]models.Coin, error) {
	rows, err := r.db.QueryContext(ctx, `
        SELECT symbol, name
        FROM coins
        WHERE symbol NOT IN (SELECT symbol FROM tracking WHERE user_id = $1)
        ORDER BY symbol
    `, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to query untracked coins: %w", err)
	}
	defer rows.Close()

	var coins []models.Coin
	for rows.Next() {
		var coin models.Coin
		if err := rows.Scan(&coin.Symbol, &coin.Name); err != nil {
			return nil, fmt.Errorf("failed to scan untracked coin: %w", err)
		}
		coins = append(coins, coin)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating untracked coins: %w", err)
	}
	return coins, nil
}

// PairsWithWindow returns every tracking pair together with the current price
// and the most recent history entry recorded at or before the cutoff. Pairs
// whose coin has no old-enough history row are omitted; the fluctuation check
// has nothing to compare them against yet.
func (r *Repository) PairsWithWindow(ctx context.Context, cutoff time.Time) ([]models.TrackingPair, error) {
	rows, err := r.db.QueryContext(ctx, `
        SELECT t.user_id, t.symbol, p.price AS current_price, h.price AS previous_price
        FROM tracking t
        JOIN prices p ON p.symbol = t.symbol
        JOIN price_history h ON h.symbol = t.symbol
        WHERE h.recorded_at = (
            SELECT MAX(recorded_at)
            FROM price_history
            WHERE symbol = t.symbol AND recorded_at <= $1
        )
    `, cutoff)
	if err != nil {
		return nil, fmt.Errorf("failed to query tracking pairs: %w", err)
	}
	defer rows.Close()

	var pairs []models.TrackingPair
	for rows.Next() {
		var pair models.TrackingPair
		var current, previous database.Decimal
		if err := rows.Scan(&pair.UserID, &pair.Symbol, &current, &previous); err != nil {
			return nil, fmt.Errorf("failed to scan tracking pair: %w", err)
		}
		pair.CurrentPrice = current.Decimal
		pair.PreviousPrice = previous.Decimal
		pairs = append(pairs, pair)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating tracking pairs: %w", err)
	}
	return pairs, nil
}
