package market

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) *AlphaVantageClient {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	c := NewAlphaVantageClient("test-key")
	c.baseURL = server.URL
	return c
}

func TestStockQuote(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if got := r.URL.Query().Get("function"); got != "GLOBAL_QUOTE" {
			t.Errorf("unexpected function param: %q", got)
		}
		if got := r.URL.Query().Get("symbol"); got != "AAPL" {
			t.Errorf("unexpected symbol param: %q", got)
		}
		w.Write([]byte(`{"Global Quote": {
			"01. symbol": "AAPL",
			"05. price": "150.2500",
			"06. volume": "58231245",
			"09. change": "1.7500",
			"10. change percent": "1.1785%"
		}}`))
	})

	quote, err := c.StockQuote(context.Background(), "AAPL")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if quote == nil {
		t.Fatal("expected a quote")
	}
	if quote.Price != "150.2500" || quote.ChangePercent != "1.1785%" || quote.Volume != "58231245" {
		t.Fatalf("unexpected quote fields: %+v", quote)
	}
	if quote.FetchedAt.IsZero() {
		t.Fatal("expected FetchedAt to be set")
	}
}

func TestStockQuoteNoData(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
		w.Write([]byte(`{"Global Quote": {}}`))
	})

	quote, err := c.StockQuote(context.Background(), "ZZZZ")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if quote != nil {
		t.Fatalf("expected nil quote for unknown symbol, got %+v", quote)
	}
}

func TestStockQuoteHTTPError(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "rate limit exceeded", http.StatusTooManyRequests)
	})

	if _, err := c.StockQuote(context.Background(), "AAPL"); err == nil {
		t.Fatal("expected error for HTTP failure")
	}
}

func TestMarketNews(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if got := r.URL.Query().Get("function"); got != "NEWS_SENTIMENT" {
			t.Errorf("unexpected function param: %q", got)
		}
		if got := r.URL.Query().Get("topics"); got != "crypto" {
			t.Errorf("unexpected topics param: %q", got)
		}
		w.Write([]byte(`{"feed": [
			{"title": "One", "summary": "s1", "url": "u1", "time_published": "20260825T100000"},
			{"title": "Two", "summary": "s2", "url": "u2", "time_published": "20260825T110000"},
			{"title": "Three", "summary": "s3", "url": "u3", "time_published": "20260825T120000"},
			{"title": "Four", "summary": "s4", "url": "u4", "time_published": "20260825T130000"}
		]}`))
	})

	news, err := c.MarketNews(context.Background(), "crypto", 2)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(news) != 2 {
		t.Fatalf("expected news truncated to limit, got %d", len(news))
	}
	if news[0].Title != "One" || news[0].Published != "20260825T100000" {
		t.Fatalf("unexpected first item: %+v", news[0])
	}
}

func TestMarketNewsDefaultsTopic(t *testing.T) {
	var gotTopic string
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		gotTopic = r.URL.Query().Get("topics")
		w.Write([]byte(`{"feed": []}`))
	})

	if _, err := c.MarketNews(context.Background(), "", 0); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if gotTopic != "financial_markets" {
		t.Fatalf("expected default topic, got %q", gotTopic)
	}
}
