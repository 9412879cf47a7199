package retrieval

import (
	"context"
	"fmt"
	"strings"

	"github.com/finsight-ai/finsight/embeddings"
)

const defaultLimit = 5

// Retriever embeds a query and looks up its nearest chunks in the vector
// store. It never returns more than k chunks and returns an empty slice when
// the knowledge base holds no data.
type Retriever struct {
	store    VectorStore
	embedder embeddings.Embedder
}

func NewRetriever(store VectorStore, embedder embeddings.Embedder) *Retriever {
	return &Retriever{store: store, embedder: embedder}
}

func (r *Retriever) Retrieve(ctx context.Context, query string, k int) ([]Chunk, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, fmt.Errorf("query cannot be empty")
	}
	if r.embedder == nil {
		return nil, fmt.Errorf("embedder is not configured")
	}
	if r.store == nil {
		return nil, fmt.Errorf("vector store is not configured")
	}
	if k <= 0 {
		k = defaultLimit
	}

	vectors, err := r.embedder.Embed(ctx, []string{query})
	if err != nil {
		return nil, fmt.Errorf("embed query: %w", err)
	}
	if len(vectors) == 0 {
		return nil, fmt.Errorf("embedder returned no vectors")
	}

	chunks, err := r.store.SimilarChunks(ctx, vectors[0], k)
	if err != nil {
		return nil, fmt.Errorf("vector search: %w", err)
	}

	return chunks, nil
}
