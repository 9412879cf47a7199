package retrieval

import (
	"math"
	"strings"
	"unicode"
)

// Okapi BM25 parameters, matching the common defaults.
const (
	bm25K1 = 1.5
	bm25B  = 0.75
)

// BM25Index is a sparse keyword index over a fixed corpus of chunks. It is
// immutable after construction; rebuild it after re-ingestion.
type BM25Index struct {
	chunks    []Chunk
	termFreqs []map[string]int
	docLens   []float64
	docFreq   map[string]int
	avgDocLen float64
}

func NewBM25Index(chunks []Chunk) *BM25Index {
	idx := &BM25Index{
		chunks:    chunks,
		termFreqs: make([]map[string]int, len(chunks)),
		docLens:   make([]float64, len(chunks)),
		docFreq:   make(map[string]int),
	}

	var totalLen float64
	for i, chunk := range chunks {
		tokens := Tokenize(chunk.Content)
		freqs := make(map[string]int, len(tokens))
		for _, tok := range tokens {
			freqs[tok]++
		}
		for term := range freqs {
			idx.docFreq[term]++
		}
		idx.termFreqs[i] = freqs
		idx.docLens[i] = float64(len(tokens))
		totalLen += float64(len(tokens))
	}

	if len(chunks) > 0 {
		idx.avgDocLen = totalLen / float64(len(chunks))
	}

	return idx
}

func (idx *BM25Index) Len() int {
	return len(idx.chunks)
}

// Search scores every chunk against the query terms and returns the top k in
// descending score order. Chunks that match no term are omitted. Ties are
// broken by corpus order, which follows (source path, chunk index).
func (idx *BM25Index) Search(query string, k int) []Chunk {
	if idx.Len() == 0 || k <= 0 {
		return nil
	}

	queryTokens := Tokenize(query)
	if len(queryTokens) == 0 {
		return nil
	}

	scores := make([]float64, len(idx.chunks))
	n := float64(len(idx.chunks))

	for _, term := range queryTokens {
		df, ok := idx.docFreq[term]
		if !ok {
			continue
		}
		idf := math.Log(1 + (n-float64(df)+0.5)/(float64(df)+0.5))
		for i := range idx.chunks {
			tf := float64(idx.termFreqs[i][term])
			if tf == 0 {
				continue
			}
			norm := bm25K1 * (1 - bm25B + bm25B*idx.docLens[i]/idx.avgDocLen)
			scores[i] += idf * tf * (bm25K1 + 1) / (tf + norm)
		}
	}

	order := make([]int, 0, len(idx.chunks))
	for i, score := range scores {
		if score > 0 {
			order = append(order, i)
		}
	}

	// Insertion sort keeps the tie-break stable on corpus order.
	for i := 1; i < len(order); i++ {
		for j := i; j > 0 && scores[order[j]] > scores[order[j-1]]; j-- {
			order[j], order[j-1] = order[j-1], order[j]
		}
	}

	if len(order) > k {
		order = order[:k]
	}

	results := make([]Chunk, 0, len(order))
	for _, i := range order {
		chunk := idx.chunks[i]
		chunk.Score = scores[i]
		results = append(results, chunk)
	}

	return results
}

// Tokenize lowercases text and splits it on any non-alphanumeric rune.
func Tokenize(text string) []string {
	return strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
}
