// Package retrieval finds knowledge-base chunks relevant to a query, using
// dense vector similarity, optionally fused with sparse BM25 keyword scores.
package retrieval

type Chunk struct {
	ChunkID    string
	DocumentID string
	Title      string
	Path       string
	Index      int
	Content    string
	Score      float64
}
