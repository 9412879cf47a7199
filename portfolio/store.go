// Package portfolio tracks per-user holdings and personalizes chat answers
// with portfolio analysis.
package portfolio

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

const (
	RiskConservative = "conservative"
	RiskModerate     = "moderate"
	RiskAggressive   = "aggressive"
)

type Transaction struct {
	Kind       string    `json:"kind"`
	Quantity   float64   `json:"quantity"`
	Price      float64   `json:"price"`
	ExecutedAt time.Time `json:"executedAt"`
}

type Holding struct {
	Symbol       string        `json:"symbol"`
	Quantity     float64       `json:"quantity"`
	Transactions []Transaction `json:"transactions"`
}

type Preferences struct {
	RiskProfile       string   `json:"riskProfile"`
	InvestmentHorizon string   `json:"investmentHorizon"`
	WatchlistSectors  []string `json:"watchlistSectors"`
}

type Portfolio struct {
	UserID      string      `json:"userId"`
	Holdings    []Holding   `json:"holdings"`
	Preferences Preferences `json:"preferences"`
}

type Store interface {
	Load(ctx context.Context, userID string) (Portfolio, error)
	AddHolding(ctx context.Context, userID, symbol string, quantity, price float64) error
	UpdatePreferences(ctx context.Context, userID string, prefs Preferences) error
}

type PostgresStore struct {
	pool *pgxpool.Pool
}

func NewPostgresStore(pool *pgxpool.Pool) *PostgresStore {
	return &PostgresStore{pool: pool}
}

// Load returns the user's portfolio, or an empty default with moderate risk
// when the user has none yet.
func (s *PostgresStore) Load(ctx context.Context, userID string) (Portfolio, error) {
	portfolio := Portfolio{
		UserID: userID,
		Preferences: Preferences{
			RiskProfile:       RiskModerate,
			InvestmentHorizon: "medium",
		},
	}

	err := s.pool.QueryRow(ctx,
		"SELECT risk_profile, investment_horizon, watchlist_sectors FROM portfolios WHERE user_id = $1", userID,
	).Scan(&portfolio.Preferences.RiskProfile, &portfolio.Preferences.InvestmentHorizon, &portfolio.Preferences.WatchlistSectors)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return portfolio, nil
		}
		return Portfolio{}, fmt.Errorf("query portfolio: %w", err)
	}

	rows, err := s.pool.Query(ctx, `
        SELECT h.id, h.symbol, h.quantity
        FROM portfolio_holdings h
        WHERE h.user_id = $1
        ORDER BY h.symbol
    `, userID)
	if err != nil {
		return Portfolio{}, fmt.Errorf("query holdings: %w", err)
	}
	defer rows.Close()

	holdingIDs := make([]uuid.UUID, 0)
	for rows.Next() {
		var id uuid.UUID
		var holding Holding
		if err := rows.Scan(&id, &holding.Symbol, &holding.Quantity); err != nil {
			return Portfolio{}, fmt.Errorf("scan holding: %w", err)
		}
		holdingIDs = append(holdingIDs, id)
		portfolio.Holdings = append(portfolio.Holdings, holding)
	}
	if rows.Err() != nil {
		return Portfolio{}, rows.Err()
	}

	for i, id := range holdingIDs {
		txs, err := s.loadTransactions(ctx, id)
		if err != nil {
			return Portfolio{}, err
		}
		portfolio.Holdings[i].Transactions = txs
	}

	return portfolio, nil
}

func (s *PostgresStore) loadTransactions(ctx context.Context, holdingID uuid.UUID) ([]Transaction, error) {
	rows, err := s.pool.Query(ctx, `
        SELECT kind, quantity, price, executed_at
        FROM portfolio_transactions
        WHERE holding_id = $1
        ORDER BY executed_at
    `, holdingID)
	if err != nil {
		return nil, fmt.Errorf("query transactions: %w", err)
	}
	defer rows.Close()

	txs := make([]Transaction, 0)
	for rows.Next() {
		var tx Transaction
		if err := rows.Scan(&tx.Kind, &tx.Quantity, &tx.Price, &tx.ExecutedAt); err != nil {
			return nil, fmt.Errorf("scan transaction: %w", err)
		}
		txs = append(txs, tx)
	}
	return txs, rows.Err()
}

// AddHolding records a buy: it upserts the holding row, bumps the share count,
// and appends a buy transaction, all in one transaction.
func (s *PostgresStore) AddHolding(ctx context.Context, userID, symbol string, quantity, price float64) (err error) {
	if quantity <= 0 {
		return fmt.Errorf("quantity must be positive")
	}
	if price < 0 {
		return fmt.Errorf("price cannot be negative")
	}

	tx, err := s.pool.BeginTx(ctx, pgx.TxOptions{IsoLevel: pgx.ReadCommitted})
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback(ctx)
		}
	}()

	if err = ensurePortfolio(ctx, tx, userID); err != nil {
		return err
	}

	var holdingID uuid.UUID
	err = tx.QueryRow(ctx,
		"SELECT id FROM portfolio_holdings WHERE user_id = $1 AND symbol = $2", userID, symbol,
	).Scan(&holdingID)
	if err != nil {
		if !errors.Is(err, pgx.ErrNoRows) {
			return fmt.Errorf("query holding: %w", err)
		}
		holdingID = uuid.New()
		if _, err = tx.Exec(ctx, `
			INSERT INTO portfolio_holdings (id, user_id, symbol, quantity, created_at, updated_at)
			VALUES ($1, $2, $3, 0, NOW(), NOW())
		`, holdingID, userID, symbol); err != nil {
			return fmt.Errorf("insert holding: %w", err)
		}
	}

	if _, err = tx.Exec(ctx, `
		UPDATE portfolio_holdings
		SET quantity = quantity + $2, updated_at = NOW()
		WHERE id = $1
	`, holdingID, quantity); err != nil {
		return fmt.Errorf("update holding quantity: %w", err)
	}

	if _, err = tx.Exec(ctx, `
		INSERT INTO portfolio_transactions (id, holding_id, kind, quantity, price, executed_at)
		VALUES ($1, $2, 'buy', $3, $4, NOW())
	`, uuid.New(), holdingID, quantity, price); err != nil {
		return fmt.Errorf("insert transaction: %w", err)
	}

	if err = tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}
	return nil
}

func (s *PostgresStore) UpdatePreferences(ctx context.Context, userID string, prefs Preferences) (err error) {
	switch prefs.RiskProfile {
	case RiskConservative, RiskModerate, RiskAggressive:
	default:
		return fmt.Errorf("unknown risk profile: %s", prefs.RiskProfile)
	}

	tx, err := s.pool.BeginTx(ctx, pgx.TxOptions{IsoLevel: pgx.ReadCommitted})
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback(ctx)
		}
	}()

	if err = ensurePortfolio(ctx, tx, userID); err != nil {
		return err
	}

	if prefs.WatchlistSectors == nil {
		prefs.WatchlistSectors = []string{}
	}

	if _, err = tx.Exec(ctx, `
		UPDATE portfolios
		SET risk_profile = $2, investment_horizon = $3, watchlist_sectors = $4, updated_at = NOW()
		WHERE user_id = $1
	`, userID, prefs.RiskProfile, prefs.InvestmentHorizon, prefs.WatchlistSectors); err != nil {
		return fmt.Errorf("update preferences: %w", err)
	}

	if err = tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}
	return nil
}

func ensurePortfolio(ctx context.Context, tx pgx.Tx, userID string) error {
	if _, err := tx.Exec(ctx, `
		INSERT INTO portfolios (user_id, created_at, updated_at)
		VALUES ($1, NOW(), NOW())
		ON CONFLICT (user_id) DO NOTHING
	`, userID); err != nil {
		return fmt.Errorf("ensure portfolio row: %w", err)
	}
	return nil
}

var _ Store = (*PostgresStore)(nil)
