package market

import (
	"context"
	"fmt"
	"log"
	"strings"
)

// Enricher appends live market data sections to a generated answer. Any
// failure degrades to the base answer; enrichment never breaks a response.
type Enricher struct {
	source DataSource
	logger *log.Logger
}

func NewEnricher(source DataSource, logger *log.Logger) *Enricher {
	if logger == nil {
		logger = log.Default()
	}
	return &Enricher{source: source, logger: logger}
}

type LiveData struct {
	Quotes []Quote
	News   []NewsItem
}

// Enrich extracts financial entities from the query, fetches live data for
// them, and merges it into the base answer. Queries without financial
// entities pass through untouched.
func (e *Enricher) Enrich(ctx context.Context, query, baseAnswer string) string {
	if e.source == nil {
		return baseAnswer
	}

	entities := ExtractEntities(query)
	if entities.Empty() {
		return baseAnswer
	}

	live := e.fetchLiveData(ctx, entities)
	if len(live.Quotes) == 0 && len(live.News) == 0 {
		return baseAnswer
	}

	return MergeLiveData(baseAnswer, live)
}

func (e *Enricher) fetchLiveData(ctx context.Context, entities Entities) LiveData {
	var live LiveData

	for _, symbol := range entities.Symbols {
		quote, err := e.source.StockQuote(ctx, symbol)
		if err != nil {
			e.logger.Printf("fetch quote for %s: %v", symbol, err)
			continue
		}
		if quote != nil {
			live.Quotes = append(live.Quotes, *quote)
		}
	}

	// Pull news when the query asked for it, or when quotes came up empty.
	wantNews := len(live.Quotes) == 0
	for _, metric := range entities.Metrics {
		if metric == "news" {
			wantNews = true
		}
	}

	if wantNews {
		topic := "financial_markets"
		if len(entities.AssetClasses) > 0 {
			topic = entities.AssetClasses[0]
		}
		news, err := e.source.MarketNews(ctx, topic, 3)
		if err != nil {
			e.logger.Printf("fetch market news: %v", err)
		} else {
			live.News = news
		}
	}

	return live
}

// MergeLiveData appends markdown sections for quotes and news to the answer.
func MergeLiveData(baseAnswer string, live LiveData) string {
	if len(live.Quotes) == 0 && len(live.News) == 0 {
		return baseAnswer
	}

	var sb strings.Builder
	sb.WriteString(baseAnswer)

	if len(live.Quotes) > 0 {
		ts := live.Quotes[0].FetchedAt.Format("2006-01-02 15:04:05")
		fmt.Fprintf(&sb, "\n\n## Current Market Data (as of %s)\n", ts)
		for _, quote := range live.Quotes {
			fmt.Fprintf(&sb, "\n**%s**: $%s (%s) | Volume: %s", quote.Symbol, quote.Price, quote.ChangePercent, quote.Volume)
		}
	}

	if len(live.News) > 0 {
		sb.WriteString("\n\n## Latest Market News\n")
		for _, item := range live.News {
			summary := item.Summary
			if len(summary) > 150 {
				summary = summary[:150] + "..."
			}
			fmt.Fprintf(&sb, "\n- **%s**\n  %s\n  [Read more](%s)", item.Title, summary, item.URL)
		}
	}

	sb.WriteString("\n\n*Note: Real-time data provided by Alpha Vantage.*")
	return sb.String()
}
