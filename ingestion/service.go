package ingestion

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io/fs"
	"log"
	"os"
	"path/filepath"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/pgvector/pgvector-go"

	"github.com/finsight-ai/finsight/database"
	"github.com/finsight-ai/finsight/embeddings"
)

type Service struct {
	pool      *pgxpool.Pool
	embedder  embeddings.Embedder
	logger    *log.Logger
	dimension int
}

func NewService(pool *pgxpool.Pool, embedder embeddings.Embedder, logger *log.Logger, dimension int) *Service {
	if logger == nil {
		logger = log.Default()
	}

	return &Service{
		pool:      pool,
		embedder:  embedder,
		logger:    logger,
		dimension: dimension,
	}
}

// IngestDirectory walks dir and ingests every supported document. Files whose
// content hash is unchanged are skipped, so embeddings are computed exactly
// once per content version. A failing file is logged and does not abort the
// rest of the run.
func (s *Service) IngestDirectory(ctx context.Context, dir string) error {
	if s.embedder == nil {
		return fmt.Errorf("embedder not configured")
	}
	if err := database.EnsureSchema(ctx, s.pool, s.dimension); err != nil {
		return fmt.Errorf("ensure schema: %w", err)
	}

	if _, err := os.Stat(dir); err != nil {
		return fmt.Errorf("knowledge directory: %w", err)
	}

	entries := make([]string, 0)
	if err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, walkErr error) error {
		if walkErr != nil {
			return walkErr
		}
		if d.IsDir() {
			return nil
		}
		if DetectFormat(path) != FormatUnknown {
			entries = append(entries, path)
		}
		return nil
	}); err != nil {
		return fmt.Errorf("walk knowledge directory: %w", err)
	}

	if len(entries) == 0 {
		s.logger.Printf("no supported documents found in %s", dir)
		return nil
	}

	for _, path := range entries {
		if err := s.IngestFile(ctx, dir, path); err != nil {
			s.logger.Printf("ingest failed for %s: %v", path, err)
		}
	}

	return nil
}

func (s *Service) IngestFile(ctx context.Context, root, path string) (err error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read file: %w", err)
	}

	relPath, relErr := filepath.Rel(root, path)
	if relErr != nil {
		relPath = path
	}
	relPath = filepath.ToSlash(relPath)

	parser := ParserFor(DetectFormat(path))
	if parser == nil {
		return fmt.Errorf("unsupported format: %s", path)
	}

	parsed, err := parser.Parse(ctx, DocumentPayload{Path: relPath, Data: data})
	if err != nil {
		return fmt.Errorf("parse document: %w", err)
	}

	if len(parsed.Chunks) == 0 {
		s.logger.Printf("skip empty document %s", relPath)
		return nil
	}

	hash := sha256.Sum256(data)
	hashHex := hex.EncodeToString(hash[:])

	tx, err := s.pool.BeginTx(ctx, pgx.TxOptions{IsoLevel: pgx.ReadCommitted})
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer func() {
		if err != nil {
			if rbErr := tx.Rollback(ctx); rbErr != nil && !errors.Is(rbErr, pgx.ErrTxClosed) {
				s.logger.Printf("rollback error: %v", rbErr)
			}
		}
	}()

	docID, changed, err := upsertDocument(ctx, tx, relPath, parsed.Title, hashHex)
	if err != nil {
		return err
	}

	if !changed {
		if commitErr := tx.Commit(ctx); commitErr != nil {
			return fmt.Errorf("commit transaction: %w", commitErr)
		}
		s.logger.Printf("unchanged %s, skipping", relPath)
		return nil
	}

	vectors, err := s.embedder.Embed(ctx, parsed.Chunks)
	if err != nil {
		return fmt.Errorf("generate embeddings: %w", err)
	}
	if len(vectors) != len(parsed.Chunks) {
		return fmt.Errorf("embedding count mismatch: have %d chunks, %d embeddings", len(parsed.Chunks), len(vectors))
	}

	if _, err = tx.Exec(ctx, "DELETE FROM kb_chunks WHERE document_id = $1", docID); err != nil {
		return fmt.Errorf("clear existing chunks: %w", err)
	}

	for idx, text := range parsed.Chunks {
		if _, err = tx.Exec(ctx, `
			INSERT INTO kb_chunks (id, document_id, chunk_index, content, embedding, created_at)
			VALUES ($1, $2, $3, $4, $5, NOW())
		`, uuid.New(), docID, idx, text, pgvector.NewVector(vectors[idx])); err != nil {
			return fmt.Errorf("insert chunk %d: %w", idx, err)
		}
	}

	if commitErr := tx.Commit(ctx); commitErr != nil {
		return fmt.Errorf("commit transaction: %w", commitErr)
	}

	s.logger.Printf("ingested %s (%d chunks)", relPath, len(parsed.Chunks))
	return nil
}

func upsertDocument(ctx context.Context, tx pgx.Tx, path, title, sha string) (uuid.UUID, bool, error) {
	var (
		docID        uuid.UUID
		existingHash string
	)

	err := tx.QueryRow(ctx, "SELECT id, sha256 FROM kb_documents WHERE source_path = $1", path).Scan(&docID, &existingHash)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			newID := uuid.New()
			_, execErr := tx.Exec(ctx, `
				INSERT INTO kb_documents (id, source_path, title, sha256, created_at, updated_at)
				VALUES ($1, $2, $3, $4, NOW(), NOW())
			`, newID, path, title, sha)
			if execErr != nil {
				return uuid.Nil, false, fmt.Errorf("insert document: %w", execErr)
			}
			return newID, true, nil
		}
		return uuid.Nil, false, fmt.Errorf("query document: %w", err)
	}

	if existingHash == sha {
		return docID, false, nil
	}

	if _, err := tx.Exec(ctx, `
		UPDATE kb_documents
		SET title = $2,
		    sha256 = $3,
		    updated_at = NOW()
		WHERE id = $1
	`, docID, title, sha); err != nil {
		return uuid.Nil, false, fmt.Errorf("update document: %w", err)
	}

	return docID, true, nil
}
