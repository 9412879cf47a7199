package database

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
)

// EnsureSchema creates the knowledge-base and portfolio tables if they do not
// exist. The embedding column is sized to the configured model dimension, so
// switching embedding models requires re-ingesting into a fresh database.
func EnsureSchema(ctx context.Context, pool *pgxpool.Pool, dimension int) error {
	if dimension <= 0 {
		return fmt.Errorf("embedding dimension must be positive")
	}

	stmts := []string{
		"CREATE EXTENSION IF NOT EXISTS vector",
		`CREATE TABLE IF NOT EXISTS kb_documents (
			id UUID PRIMARY KEY,
			source_path TEXT UNIQUE NOT NULL,
			title TEXT,
			sha256 TEXT NOT NULL,
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		)`,
		fmt.Sprintf(`CREATE TABLE IF NOT EXISTS kb_chunks (
			id UUID PRIMARY KEY,
			document_id UUID NOT NULL REFERENCES kb_documents(id) ON DELETE CASCADE,
			chunk_index INT NOT NULL,
			content TEXT NOT NULL,
			embedding VECTOR(%d) NOT NULL,
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			UNIQUE(document_id, chunk_index)
		)`, dimension),
		"CREATE INDEX IF NOT EXISTS idx_kb_chunks_document ON kb_chunks(document_id)",
		"CREATE INDEX IF NOT EXISTS idx_kb_chunks_embedding ON kb_chunks USING ivfflat (embedding vector_l2_ops)",
		`CREATE TABLE IF NOT EXISTS portfolios (
			user_id TEXT PRIMARY KEY,
			risk_profile TEXT NOT NULL DEFAULT 'moderate',
			investment_horizon TEXT NOT NULL DEFAULT 'medium',
			watchlist_sectors TEXT[] NOT NULL DEFAULT '{}',
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		)`,
		`CREATE TABLE IF NOT EXISTS portfolio_holdings (
			id UUID PRIMARY KEY,
			user_id TEXT NOT NULL REFERENCES portfolios(user_id) ON DELETE CASCADE,
			symbol TEXT NOT NULL,
			quantity DOUBLE PRECISION NOT NULL,
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			UNIQUE(user_id, symbol)
		)`,
		`CREATE TABLE IF NOT EXISTS portfolio_transactions (
			id UUID PRIMARY KEY,
			holding_id UUID NOT NULL REFERENCES portfolio_holdings(id) ON DELETE CASCADE,
			kind TEXT NOT NULL,
			quantity DOUBLE PRECISION NOT NULL,
			price DOUBLE PRECISION NOT NULL,
			executed_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		)`,
		"CREATE INDEX IF NOT EXISTS idx_portfolio_holdings_user ON portfolio_holdings(user_id)",
	}

	for _, stmt := range stmts {
		if _, err := pool.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("execute schema statement: %w", err)
		}
	}

	return nil
}
