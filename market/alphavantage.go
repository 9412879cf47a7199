package market

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"
)

const alphaVantageURL = "https://www.alphavantage.co/query"

type Quote struct {
	Symbol        string
	Price         string
	Change        string
	ChangePercent string
	Volume        string
	FetchedAt     time.Time
}

type NewsItem struct {
	Title     string
	Summary   string
	URL       string
	Published string
}

// DataSource is the quote/news provider used by the Enricher. Satisfied by
// AlphaVantageClient; stubbed in tests.
type DataSource interface {
	StockQuote(ctx context.Context, symbol string) (*Quote, error)
	MarketNews(ctx context.Context, topic string, limit int) ([]NewsItem, error)
}

type AlphaVantageClient struct {
	apiKey  string
	baseURL string
	client  *http.Client
}

func NewAlphaVantageClient(apiKey string) *AlphaVantageClient {
	return &AlphaVantageClient{
		apiKey:  apiKey,
		baseURL: alphaVantageURL,
		client: &http.Client{
			Timeout: 15 * time.Second,
		},
	}
}

type globalQuoteResponse struct {
	GlobalQuote map[string]string `json:"Global Quote"`
}

// StockQuote fetches the GLOBAL_QUOTE for a symbol. Returns (nil, nil) when
// Alpha Vantage has no data for the symbol.
func (c *AlphaVantageClient) StockQuote(ctx context.Context, symbol string) (*Quote, error) {
	params := url.Values{}
	params.Set("function", "GLOBAL_QUOTE")
	params.Set("symbol", symbol)
	params.Set("apikey", c.apiKey)

	var payload globalQuoteResponse
	if err := c.get(ctx, params, &payload); err != nil {
		return nil, err
	}

	if len(payload.GlobalQuote) == 0 {
		return nil, nil
	}

	return &Quote{
		Symbol:        symbol,
		Price:         payload.GlobalQuote["05. price"],
		Change:        payload.GlobalQuote["09. change"],
		ChangePercent: payload.GlobalQuote["10. change percent"],
		Volume:        payload.GlobalQuote["06. volume"],
		FetchedAt:     time.Now(),
	}, nil
}

type newsResponse struct {
	Feed []struct {
		Title         string `json:"title"`
		Summary       string `json:"summary"`
		URL           string `json:"url"`
		TimePublished string `json:"time_published"`
	} `json:"feed"`
}

func (c *AlphaVantageClient) MarketNews(ctx context.Context, topic string, limit int) ([]NewsItem, error) {
	if topic == "" {
		topic = "financial_markets"
	}
	if limit <= 0 {
		limit = 3
	}

	params := url.Values{}
	params.Set("function", "NEWS_SENTIMENT")
	params.Set("topics", topic)
	params.Set("apikey", c.apiKey)
	params.Set("limit", fmt.Sprintf("%d", limit))

	var payload newsResponse
	if err := c.get(ctx, params, &payload); err != nil {
		return nil, err
	}

	if len(payload.Feed) > limit {
		payload.Feed = payload.Feed[:limit]
	}

	items := make([]NewsItem, 0, len(payload.Feed))
	for _, entry := range payload.Feed {
		items = append(items, NewsItem{
			Title:     entry.Title,
			Summary:   entry.Summary,
			URL:       entry.URL,
			Published: entry.TimePublished,
		})
	}

	return items, nil
}

func (c *AlphaVantageClient) get(ctx context.Context, params url.Values, dst any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"?"+params.Encode(), nil)
	if err != nil {
		return fmt.Errorf("create alpha vantage request: %w", err)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("call alpha vantage: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		data, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("alpha vantage returned %s: %s", resp.Status, string(data))
	}

	if err := json.NewDecoder(resp.Body).Decode(dst); err != nil {
		return fmt.Errorf("decode alpha vantage response: %w", err)
	}

	return nil
}

var _ DataSource = (*AlphaVantageClient)(nil)
