// Package market enriches chat answers with real-time quotes and news from
// Alpha Vantage.
package market

import (
	"regexp"
	"strings"
)

const maxSymbols = 3

var symbolPattern = regexp.MustCompile(`\b[A-Z]{1,5}\b`)

// Words that match the ticker pattern but are almost never tickers in a
// question.
var symbolStopWords = map[string]struct{}{
	"I": {}, "A": {}, "THE": {}, "TO": {}, "IN": {}, "IS": {}, "IT": {},
	"AND": {}, "OR": {}, "FOR": {}, "OF": {}, "ON": {}, "AT": {}, "MY": {},
	"DO": {}, "HOW": {}, "WHAT": {}, "ETF": {},
}

var metricKeywords = []string{
	"price", "return", "dividend", "yield", "eps", "p/e", "market cap",
	"volume", "revenue", "profit", "growth", "performance", "trend", "news",
}

var assetClasses = []string{
	"stock", "bond", "etf", "forex", "crypto", "commodity", "index",
}

type Entities struct {
	Symbols      []string
	Metrics      []string
	AssetClasses []string
}

func (e Entities) Empty() bool {
	return len(e.Symbols) == 0 && len(e.Metrics) == 0 && len(e.AssetClasses) == 0
}

// ExtractEntities pulls ticker symbols, metric keywords, and asset classes out
// of a free-text query. At most maxSymbols symbols are kept to bound API
// calls.
func ExtractEntities(query string) Entities {
	entities := Entities{}
	lower := strings.ToLower(query)

	for _, candidate := range symbolPattern.FindAllString(query, -1) {
		if _, stop := symbolStopWords[candidate]; stop {
			continue
		}
		entities.Symbols = append(entities.Symbols, candidate)
		if len(entities.Symbols) == maxSymbols {
			break
		}
	}

	for _, metric := range metricKeywords {
		if strings.Contains(lower, metric) {
			entities.Metrics = append(entities.Metrics, metric)
		}
	}

	for _, asset := range assetClasses {
		if strings.Contains(lower, asset) {
			entities.AssetClasses = append(entities.AssetClasses, asset)
		}
	}

	return entities
}
