package market

import (
	"context"
	"fmt"
	"strings"
	"testing"
	"time"
)

type stubDataSource struct {
	quotes    map[string]*Quote
	news      []NewsItem
	quoteErr  error
	newsErr   error
	newsTopic string
}

func (s *stubDataSource) StockQuote(_ context.Context, symbol string) (*Quote, error) {
	if s.quoteErr != nil {
		return nil, s.quoteErr
	}
	return s.quotes[symbol], nil
}

func (s *stubDataSource) MarketNews(_ context.Context, topic string, _ int) ([]NewsItem, error) {
	s.newsTopic = topic
	if s.newsErr != nil {
		return nil, s.newsErr
	}
	return s.news, nil
}

func TestEnrichAppendsQuotes(t *testing.T) {
	source := &stubDataSource{
		quotes: map[string]*Quote{
			"AAPL": {Symbol: "AAPL", Price: "150.25", ChangePercent: "1.2%", Volume: "1000000", FetchedAt: time.Now()},
		},
	}
	e := NewEnricher(source, nil)

	answer := e.Enrich(context.Background(), "What is the price of AAPL?", "Base answer.")
	for _, want := range []string{"Base answer.", "## Current Market Data", "**AAPL**: $150.25 (1.2%)", "Alpha Vantage"} {
		if !strings.Contains(answer, want) {
			t.Errorf("enriched answer missing %q:\n%s", want, answer)
		}
	}
}

func TestEnrichPassthroughWithoutEntities(t *testing.T) {
	e := NewEnricher(&stubDataSource{}, nil)

	base := "Plain savings advice."
	if got := e.Enrich(context.Background(), "how should i budget my month", base); got != base {
		t.Fatalf("expected passthrough, got %q", got)
	}
}

func TestEnrichFetchesNewsWhenAsked(t *testing.T) {
	source := &stubDataSource{
		news: []NewsItem{{Title: "Markets rally", Summary: "Stocks rose.", URL: "https://example.com/a"}},
	}
	e := NewEnricher(source, nil)

	answer := e.Enrich(context.Background(), "Any news on the crypto market?", "Base.")
	if !strings.Contains(answer, "## Latest Market News") {
		t.Fatalf("expected news section:\n%s", answer)
	}
	if source.newsTopic != "crypto" {
		t.Fatalf("expected asset class as news topic, got %q", source.newsTopic)
	}
}

func TestEnrichNewsFallbackWhenNoQuotes(t *testing.T) {
	source := &stubDataSource{
		news: []NewsItem{{Title: "Bond yields climb", Summary: "Yields up.", URL: "https://example.com/b"}},
	}
	e := NewEnricher(source, nil)

	// ZZZZ has no quote data, so the enricher falls back to news.
	answer := e.Enrich(context.Background(), "What is the dividend outlook for ZZZZ?", "Base.")
	if !strings.Contains(answer, "Bond yields climb") {
		t.Fatalf("expected news fallback:\n%s", answer)
	}
}

func TestEnrichDegradesOnErrors(t *testing.T) {
	source := &stubDataSource{
		quoteErr: fmt.Errorf("rate limited"),
		newsErr:  fmt.Errorf("rate limited"),
	}
	e := NewEnricher(source, nil)

	base := "Base answer."
	if got := e.Enrich(context.Background(), "What is the price of AAPL?", base); got != base {
		t.Fatalf("expected base answer on provider errors, got %q", got)
	}
}

func TestEnrichNilSource(t *testing.T) {
	e := NewEnricher(nil, nil)

	base := "Base."
	if got := e.Enrich(context.Background(), "price of AAPL", base); got != base {
		t.Fatalf("expected passthrough with nil source, got %q", got)
	}
}

func TestMergeLiveDataTruncatesSummaries(t *testing.T) {
	long := strings.Repeat("s", 200)
	merged := MergeLiveData("Base.", LiveData{News: []NewsItem{{Title: "T", Summary: long, URL: "u"}}})

	if strings.Contains(merged, long) {
		t.Fatal("expected summary truncated")
	}
	if !strings.Contains(merged, strings.Repeat("s", 150)+"...") {
		t.Fatal("expected 150-char summary with ellipsis")
	}
}
