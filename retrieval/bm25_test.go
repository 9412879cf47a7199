package retrieval

import (
	"reflect"
	"testing"
)

func corpusChunks() []Chunk {
	return []Chunk{
		{ChunkID: "c1", DocumentID: "d1", Title: "Ratios", Path: "ratios.md", Index: 0, Content: "The Sharpe Ratio measures risk-adjusted return of a portfolio."},
		{ChunkID: "c2", DocumentID: "d1", Title: "Ratios", Path: "ratios.md", Index: 1, Content: "The P/E ratio compares a company's share price to its earnings."},
		{ChunkID: "c3", DocumentID: "d2", Title: "Bonds", Path: "bonds.md", Index: 0, Content: "Government bonds pay a fixed coupon and return principal at maturity."},
		{ChunkID: "c4", DocumentID: "d3", Title: "Diversification", Path: "diversify.md", Index: 0, Content: "Diversification spreads portfolio risk across asset classes."},
	}
}

func TestBM25SearchRanksKeywordMatchesFirst(t *testing.T) {
	idx := NewBM25Index(corpusChunks())

	results := idx.Search("Sharpe Ratio risk-adjusted", 2)
	if len(results) == 0 {
		t.Fatal("expected results, got none")
	}
	if results[0].ChunkID != "c1" {
		t.Fatalf("expected c1 first, got %s", results[0].ChunkID)
	}
	if results[0].Score <= 0 {
		t.Fatalf("expected positive score, got %f", results[0].Score)
	}
}

func TestBM25SearchOmitsNonMatches(t *testing.T) {
	idx := NewBM25Index(corpusChunks())

	results := idx.Search("bonds coupon", 10)
	for _, chunk := range results {
		if chunk.ChunkID == "c2" {
			t.Fatalf("chunk without matching terms should be omitted: %s", chunk.ChunkID)
		}
	}
}

func TestBM25SearchRespectsK(t *testing.T) {
	idx := NewBM25Index(corpusChunks())

	results := idx.Search("portfolio risk", 1)
	if len(results) != 1 {
		t.Fatalf("expected 1 result, got %d", len(results))
	}
}

func TestBM25SearchDeterministic(t *testing.T) {
	idx := NewBM25Index(corpusChunks())

	first := idx.Search("portfolio risk", 3)
	for i := 0; i < 5; i++ {
		again := idx.Search("portfolio risk", 3)
		if !reflect.DeepEqual(first, again) {
			t.Fatalf("ranking changed between runs:\nfirst: %v\nagain: %v", first, again)
		}
	}
}

func TestBM25SearchEmptyCases(t *testing.T) {
	empty := NewBM25Index(nil)
	if got := empty.Search("anything", 5); got != nil {
		t.Fatalf("expected nil from empty index, got %v", got)
	}

	idx := NewBM25Index(corpusChunks())
	if got := idx.Search("", 5); got != nil {
		t.Fatalf("expected nil for empty query, got %v", got)
	}
	if got := idx.Search("portfolio", 0); got != nil {
		t.Fatalf("expected nil for k=0, got %v", got)
	}
	if got := idx.Search("zzz qqq unknownterm", 5); len(got) != 0 {
		t.Fatalf("expected no results for unknown terms, got %v", got)
	}
}

func TestTokenize(t *testing.T) {
	tests := []struct {
		input string
		want  []string
	}{
		{"The Sharpe Ratio", []string{"the", "sharpe", "ratio"}},
		{"risk-adjusted return!", []string{"risk", "adjusted", "return"}},
		{"P/E: 15.2", []string{"p", "e", "15", "2"}},
		{"", nil},
	}

	for _, tc := range tests {
		got := Tokenize(tc.input)
		if len(got) == 0 && len(tc.want) == 0 {
			continue
		}
		if !reflect.DeepEqual(got, tc.want) {
			t.Errorf("Tokenize(%q) = %v, want %v", tc.input, got, tc.want)
		}
	}
}
