package retrieval

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/pgvector/pgvector-go"
)

type VectorStore interface {
	SimilarChunks(ctx context.Context, embedding []float32, limit int) ([]Chunk, error)
	AllChunks(ctx context.Context) ([]Chunk, error)
	ChunkCount(ctx context.Context) (int, error)
}

type PostgresVectorStore struct {
	pool *pgxpool.Pool
}

func NewPostgresVectorStore(pool *pgxpool.Pool) *PostgresVectorStore {
	return &PostgresVectorStore{pool: pool}
}

// SimilarChunks returns up to limit chunks ordered by ascending L2 distance to
// the query embedding. Equal-distance chunks are ordered by source path and
// chunk index so repeated calls against the same data return the same ranking.
func (s *PostgresVectorStore) SimilarChunks(ctx context.Context, embedding []float32, limit int) ([]Chunk, error) {
	if s.pool == nil {
		return nil, fmt.Errorf("postgres pool is nil")
	}
	if len(embedding) == 0 {
		return nil, fmt.Errorf("embedding is empty")
	}
	if limit <= 0 {
		limit = 5
	}

	conn, err := s.pool.Acquire(ctx)
	if err != nil {
		return nil, fmt.Errorf("acquire connection: %w", err)
	}
	defer conn.Release()

	probes := limit * 10
	if probes < 10 {
		probes = 10
	}
	if _, err := conn.Exec(ctx, fmt.Sprintf("SET ivfflat.probes = %d", probes)); err != nil {
		return nil, fmt.Errorf("set ivfflat probes: %w", err)
	}

	rows, err := conn.Query(ctx, `
        SELECT
            kc.id,
            kc.document_id,
            kd.title,
            kd.source_path,
            kc.chunk_index,
            kc.content,
            (kc.embedding <-> $1::vector) AS distance
        FROM kb_chunks kc
        JOIN kb_documents kd ON kd.id = kc.document_id
        ORDER BY kc.embedding <-> $1::vector, kd.source_path, kc.chunk_index
        LIMIT $2
    `, pgvector.NewVector(embedding), limit)
	if err != nil {
		return nil, fmt.Errorf("query similar chunks: %w", err)
	}
	defer rows.Close()

	results := make([]Chunk, 0, limit)
	for rows.Next() {
		var item Chunk
		var distance float64
		if scanErr := rows.Scan(&item.ChunkID, &item.DocumentID, &item.Title, &item.Path, &item.Index, &item.Content, &distance); scanErr != nil {
			return nil, fmt.Errorf("scan similar chunk: %w", scanErr)
		}
		item.Score = 1 / (1 + distance)
		results = append(results, item)
	}

	if rows.Err() != nil {
		return nil, rows.Err()
	}

	return results, nil
}

// AllChunks loads the full corpus in document order. Used to build the sparse
// keyword index for hybrid retrieval.
func (s *PostgresVectorStore) AllChunks(ctx context.Context) ([]Chunk, error) {
	if s.pool == nil {
		return nil, fmt.Errorf("postgres pool is nil")
	}

	rows, err := s.pool.Query(ctx, `
        SELECT kc.id, kc.document_id, kd.title, kd.source_path, kc.chunk_index, kc.content
        FROM kb_chunks kc
        JOIN kb_documents kd ON kd.id = kc.document_id
        ORDER BY kd.source_path, kc.chunk_index
    `)
	if err != nil {
		return nil, fmt.Errorf("query chunks: %w", err)
	}
	defer rows.Close()

	results := make([]Chunk, 0)
	for rows.Next() {
		var item Chunk
		if scanErr := rows.Scan(&item.ChunkID, &item.DocumentID, &item.Title, &item.Path, &item.Index, &item.Content); scanErr != nil {
			return nil, fmt.Errorf("scan chunk: %w", scanErr)
		}
		results = append(results, item)
	}

	if rows.Err() != nil {
		return nil, rows.Err()
	}

	return results, nil
}

func (s *PostgresVectorStore) ChunkCount(ctx context.Context) (int, error) {
	if s.pool == nil {
		return 0, fmt.Errorf("postgres pool is nil")
	}

	var count int
	if err := s.pool.QueryRow(ctx, "SELECT COUNT(*) FROM kb_chunks").Scan(&count); err != nil {
		return 0, fmt.Errorf("count chunks: %w", err)
	}
	return count, nil
}

var _ VectorStore = (*PostgresVectorStore)(nil)
