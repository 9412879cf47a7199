package ingestion

import (
	"context"
	"strings"
	"testing"
)

func TestDetectFormat(t *testing.T) {
	tests := []struct {
		path string
		want DocumentFormat
	}{
		{"notes.txt", FormatText},
		{"guide.md", FormatMarkdown},
		{"guide.MARKDOWN", FormatMarkdown},
		{"report.pdf", FormatPDF},
		{"prices.csv", FormatCSV},
		{"image.png", FormatUnknown},
		{"noext", FormatUnknown},
	}

	for _, tc := range tests {
		if got := DetectFormat(tc.path); got != tc.want {
			t.Errorf("DetectFormat(%q) = %q, want %q", tc.path, got, tc.want)
		}
	}
}

func TestParserForUnknownFormat(t *testing.T) {
	if p := ParserFor(FormatUnknown); p != nil {
		t.Fatal("expected nil parser for unknown format")
	}
}

func TestTextParser(t *testing.T) {
	payload := DocumentPayload{
		Path: "kb/glossary.txt",
		Data: []byte("Financial Glossary\n\nAlpha measures excess return over a benchmark."),
	}

	doc, err := ParserFor(FormatText).Parse(context.Background(), payload)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if doc.Title != "Financial Glossary" {
		t.Fatalf("expected first line as title, got %q", doc.Title)
	}
	if len(doc.Chunks) != 1 {
		t.Fatalf("expected 1 chunk, got %d", len(doc.Chunks))
	}
}

func TestTextParserFallbackTitle(t *testing.T) {
	payload := DocumentPayload{Path: "kb/glossary.txt", Data: []byte("")}

	doc, err := ParserFor(FormatText).Parse(context.Background(), payload)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if doc.Title != "glossary" {
		t.Fatalf("expected filename fallback title, got %q", doc.Title)
	}
}

func TestMarkdownParserUsesHeading(t *testing.T) {
	payload := DocumentPayload{
		Path: "kb/ratios.md",
		Data: []byte("## Key Ratios\n\nThe Sharpe Ratio measures risk-adjusted return."),
	}

	doc, err := ParserFor(FormatMarkdown).Parse(context.Background(), payload)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if doc.Title != "Key Ratios" {
		t.Fatalf("expected heading title, got %q", doc.Title)
	}
}

func TestCSVParserFormatsRows(t *testing.T) {
	payload := DocumentPayload{
		Path: "kb/prices.csv",
		Data: []byte("symbol,price\nAAPL,150.25\nMSFT,300.10\n"),
	}

	doc, err := ParserFor(FormatCSV).Parse(context.Background(), payload)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if doc.Title != "prices" {
		t.Fatalf("expected filename title, got %q", doc.Title)
	}
	if len(doc.Chunks) != 1 {
		t.Fatalf("expected 1 chunk, got %d", len(doc.Chunks))
	}
	for _, want := range []string{"Row 1", "symbol: AAPL", "price: 150.25", "Row 2", "symbol: MSFT"} {
		if !strings.Contains(doc.Chunks[0], want) {
			t.Errorf("chunk missing %q:\n%s", want, doc.Chunks[0])
		}
	}
}

func TestCSVParserEmptyFile(t *testing.T) {
	doc, err := ParserFor(FormatCSV).Parse(context.Background(), DocumentPayload{Path: "kb/empty.csv", Data: []byte("")})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(doc.Chunks) != 0 {
		t.Fatalf("expected no chunks for empty csv, got %d", len(doc.Chunks))
	}
}

func TestExtractTitle(t *testing.T) {
	tests := []struct {
		content  string
		fallback string
		want     string
	}{
		{"# Top Heading\ntext", "fallback.md", "Top Heading"},
		{"intro\n\n## Later Heading", "fallback.md", "Later Heading"},
		{"no headings here", "fallback.md", "fallback.md"},
	}

	for _, tc := range tests {
		if got := ExtractTitle(tc.content, tc.fallback); got != tc.want {
			t.Errorf("ExtractTitle(%q) = %q, want %q", tc.content, got, tc.want)
		}
	}
}

func TestFormatCSVRowRaggedRows(t *testing.T) {
	got := formatCSVRow([]string{"symbol", "price"}, []string{"AAPL", "150", "extra"}, 0)
	for _, want := range []string{"Row 1", "symbol: AAPL", "price: 150", "Extra 3: extra"} {
		if !strings.Contains(got, want) {
			t.Errorf("row missing %q: %s", want, got)
		}
	}
}
