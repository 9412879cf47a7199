package retrieval

import (
	"context"
	"fmt"
	"testing"
)

type stubVectorStore struct {
	chunks    []Chunk
	lastLimit int
	err       error
}

func (s *stubVectorStore) SimilarChunks(_ context.Context, _ []float32, limit int) ([]Chunk, error) {
	s.lastLimit = limit
	if s.err != nil {
		return nil, s.err
	}
	if len(s.chunks) > limit {
		return s.chunks[:limit], nil
	}
	return s.chunks, nil
}

func (s *stubVectorStore) AllChunks(context.Context) ([]Chunk, error) {
	return s.chunks, nil
}

func (s *stubVectorStore) ChunkCount(context.Context) (int, error) {
	return len(s.chunks), nil
}

type stubEmbedder struct {
	err error
}

func (s *stubEmbedder) Embed(_ context.Context, texts []string) ([][]float32, error) {
	if s.err != nil {
		return nil, s.err
	}
	vectors := make([][]float32, len(texts))
	for i := range texts {
		vectors[i] = []float32{0.1, 0.2, 0.3}
	}
	return vectors, nil
}

func TestRetrieveReturnsStoreResults(t *testing.T) {
	store := &stubVectorStore{chunks: corpusChunks()}
	r := NewRetriever(store, &stubEmbedder{})

	chunks, err := r.Retrieve(context.Background(), "what is the sharpe ratio", 2)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(chunks) != 2 {
		t.Fatalf("expected 2 chunks, got %d", len(chunks))
	}
	if store.lastLimit != 2 {
		t.Fatalf("expected store limit 2, got %d", store.lastLimit)
	}
}

func TestRetrieveEmptyQuery(t *testing.T) {
	r := NewRetriever(&stubVectorStore{}, &stubEmbedder{})

	if _, err := r.Retrieve(context.Background(), "   ", 5); err == nil {
		t.Fatal("expected error for empty query")
	}
}

func TestRetrieveDefaultsLimit(t *testing.T) {
	store := &stubVectorStore{}
	r := NewRetriever(store, &stubEmbedder{})

	if _, err := r.Retrieve(context.Background(), "bonds", 0); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if store.lastLimit != defaultLimit {
		t.Fatalf("expected default limit %d, got %d", defaultLimit, store.lastLimit)
	}
}

func TestRetrieveEmptyKnowledgeBase(t *testing.T) {
	r := NewRetriever(&stubVectorStore{}, &stubEmbedder{})

	chunks, err := r.Retrieve(context.Background(), "anything", 5)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(chunks) != 0 {
		t.Fatalf("expected no chunks, got %d", len(chunks))
	}
}

func TestRetrieveEmbedderError(t *testing.T) {
	r := NewRetriever(&stubVectorStore{}, &stubEmbedder{err: fmt.Errorf("boom")})

	if _, err := r.Retrieve(context.Background(), "anything", 5); err == nil {
		t.Fatal("expected embed error to propagate")
	}
}
