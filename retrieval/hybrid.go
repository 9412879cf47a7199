package retrieval

import (
	"context"
	"fmt"
	"sort"
)

const defaultAlpha = 0.5

// HybridRetriever fuses dense vector search with sparse BM25 keyword scores.
// Both result lists are min-max normalized and combined as
// alpha*dense + (1-alpha)*sparse, then the merged ranking is cut to k.
type HybridRetriever struct {
	dense  *Retriever
	sparse *BM25Index
	alpha  float64
}

func NewHybridRetriever(dense *Retriever, sparse *BM25Index, alpha float64) *HybridRetriever {
	if alpha <= 0 || alpha > 1 {
		alpha = defaultAlpha
	}
	return &HybridRetriever{dense: dense, sparse: sparse, alpha: alpha}
}

func (h *HybridRetriever) Retrieve(ctx context.Context, query string, k int) ([]Chunk, error) {
	if h.dense == nil {
		return nil, fmt.Errorf("dense retriever is not configured")
	}
	if k <= 0 {
		k = defaultLimit
	}

	// Over-fetch candidates from both sides before fusing.
	denseResults, err := h.dense.Retrieve(ctx, query, k*2)
	if err != nil {
		return nil, err
	}

	if h.sparse == nil || h.sparse.Len() == 0 {
		if len(denseResults) > k {
			denseResults = denseResults[:k]
		}
		return denseResults, nil
	}

	sparseResults := h.sparse.Search(query, k*2)
	merged := fusionMerge(denseResults, sparseResults, h.alpha)

	if len(merged) > k {
		merged = merged[:k]
	}
	return merged, nil
}

func fusionMerge(dense, sparse []Chunk, alpha float64) []Chunk {
	type scored struct {
		chunk Chunk
		score float64
		order int
	}

	combined := make(map[string]*scored, len(dense)+len(sparse))
	next := 0

	add := func(chunk Chunk, weight float64) {
		entry, ok := combined[chunk.ChunkID]
		if !ok {
			entry = &scored{chunk: chunk, order: next}
			next++
			combined[chunk.ChunkID] = entry
		}
		entry.score += weight
	}

	for i, chunk := range dense {
		add(chunk, alpha*normalize(chunk.Score, dense, i))
	}
	for i, chunk := range sparse {
		add(chunk, (1-alpha)*normalize(chunk.Score, sparse, i))
	}

	entries := make([]*scored, 0, len(combined))
	for _, entry := range combined {
		entries = append(entries, entry)
	}

	sort.Slice(entries, func(i, j int) bool {
		if entries[i].score != entries[j].score {
			return entries[i].score > entries[j].score
		}
		return entries[i].order < entries[j].order
	})

	results := make([]Chunk, len(entries))
	for i, entry := range entries {
		chunk := entry.chunk
		chunk.Score = entry.score
		results[i] = chunk
	}
	return results
}

// normalize min-max scales a score within its result list. A list with a flat
// score range maps everything to 1 so that rank position still matters via
// the fusion weights.
func normalize(score float64, list []Chunk, _ int) float64 {
	if len(list) == 0 {
		return 0
	}
	minScore, maxScore := list[0].Score, list[0].Score
	for _, chunk := range list[1:] {
		if chunk.Score < minScore {
			minScore = chunk.Score
		}
		if chunk.Score > maxScore {
			maxScore = chunk.Score
		}
	}
	if maxScore == minScore {
		return 1
	}
	return (score - minScore) / (maxScore - minScore)
}
