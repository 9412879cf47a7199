package portfolio

import (
	"context"
	"fmt"
	"log"
	"strconv"
	"strings"

	"github.com/finsight-ai/finsight/market"
)

type HoldingSummary struct {
	Symbol          string  `json:"symbol"`
	Quantity        float64 `json:"quantity"`
	CurrentPrice    float64 `json:"currentPrice"`
	MarketValue     float64 `json:"marketValue"`
	AvgPrice        float64 `json:"avgPrice"`
	CostBasis       float64 `json:"costBasis"`
	GainLoss        float64 `json:"gainLoss"`
	GainLossPercent float64 `json:"gainLossPercent"`
}

type Summary struct {
	TotalValue       float64            `json:"totalValue"`
	Holdings         []HoldingSummary   `json:"holdings"`
	TotalGain        float64            `json:"totalGain"`
	TotalGainPercent float64            `json:"totalGainPercent"`
	AssetAllocation  map[string]float64 `json:"assetAllocation"`
	RiskProfile      string             `json:"riskProfile"`
}

// Manager values portfolios with live prices and personalizes answers for
// portfolio-related questions.
type Manager struct {
	store  Store
	quotes market.DataSource
	logger *log.Logger
}

func NewManager(store Store, quotes market.DataSource, logger *log.Logger) *Manager {
	if logger == nil {
		logger = log.Default()
	}
	return &Manager{store: store, quotes: quotes, logger: logger}
}

func (m *Manager) Load(ctx context.Context, userID string) (Portfolio, error) {
	return m.store.Load(ctx, userID)
}

func (m *Manager) AddHolding(ctx context.Context, userID, symbol string, quantity, price float64) error {
	return m.store.AddHolding(ctx, userID, strings.ToUpper(strings.TrimSpace(symbol)), quantity, price)
}

func (m *Manager) UpdatePreferences(ctx context.Context, userID string, prefs Preferences) error {
	return m.store.UpdatePreferences(ctx, userID, prefs)
}

// Summarize values each holding at its live quote. Holdings without a live
// price are skipped; cost basis averages across recorded buy transactions.
func (m *Manager) Summarize(ctx context.Context, userID string) (Summary, error) {
	portfolio, err := m.store.Load(ctx, userID)
	if err != nil {
		return Summary{}, fmt.Errorf("load portfolio: %w", err)
	}

	summary := Summary{
		AssetAllocation: make(map[string]float64),
		RiskProfile:     portfolio.Preferences.RiskProfile,
		Holdings:        make([]HoldingSummary, 0, len(portfolio.Holdings)),
	}

	var totalCost float64
	for _, holding := range portfolio.Holdings {
		price, ok := m.livePrice(ctx, holding.Symbol)
		if !ok {
			continue
		}

		avgPrice := averageBuyPrice(holding.Transactions)
		marketValue := holding.Quantity * price
		costBasis := holding.Quantity * avgPrice
		gainLoss := marketValue - costBasis

		entry := HoldingSummary{
			Symbol:       holding.Symbol,
			Quantity:     holding.Quantity,
			CurrentPrice: price,
			MarketValue:  marketValue,
			AvgPrice:     avgPrice,
			CostBasis:    costBasis,
			GainLoss:     gainLoss,
		}
		if costBasis > 0 {
			entry.GainLossPercent = gainLoss / costBasis * 100
		}

		summary.Holdings = append(summary.Holdings, entry)
		summary.TotalValue += marketValue
		totalCost += costBasis
	}

	if totalCost > 0 {
		summary.TotalGain = summary.TotalValue - totalCost
		summary.TotalGainPercent = summary.TotalGain / totalCost * 100
	}

	for _, holding := range summary.Holdings {
		if summary.TotalValue > 0 {
			summary.AssetAllocation[holding.Symbol] = holding.MarketValue / summary.TotalValue * 100
		}
	}

	return summary, nil
}

func (m *Manager) livePrice(ctx context.Context, symbol string) (float64, bool) {
	if m.quotes == nil {
		return 0, false
	}
	quote, err := m.quotes.StockQuote(ctx, symbol)
	if err != nil || quote == nil {
		if err != nil {
			m.logger.Printf("quote for %s: %v", symbol, err)
		}
		return 0, false
	}
	price, err := strconv.ParseFloat(quote.Price, 64)
	if err != nil {
		return 0, false
	}
	return price, true
}

var portfolioKeywords = []string{
	"my portfolio", "my investments", "my stocks", "my holdings",
	"my watchlist", "my performance", "my returns", "my balance",
}

var possessiveMarkers = []string{"my", "i own", "i have"}

// IsPortfolioRelated reports whether the query refers to the user's own
// portfolio, either through a portfolio phrase or by naming an owned symbol
// alongside a possessive.
func IsPortfolioRelated(query string, portfolio Portfolio) bool {
	lower := strings.ToLower(query)

	for _, keyword := range portfolioKeywords {
		if strings.Contains(lower, keyword) {
			return true
		}
	}

	for _, holding := range portfolio.Holdings {
		if !strings.Contains(lower, strings.ToLower(holding.Symbol)) {
			continue
		}
		for _, marker := range possessiveMarkers {
			if strings.Contains(lower, marker) {
				return true
			}
		}
	}

	return false
}

// Personalize appends portfolio analysis and profile-based advice to the base
// answer when the query is portfolio-related. Any failure returns the base
// answer unchanged.
func (m *Manager) Personalize(ctx context.Context, userID, query, baseAnswer string) string {
	portfolio, err := m.store.Load(ctx, userID)
	if err != nil {
		m.logger.Printf("load portfolio for %s: %v", userID, err)
		return baseAnswer
	}

	if !IsPortfolioRelated(query, portfolio) {
		return baseAnswer
	}

	summary, err := m.Summarize(ctx, userID)
	if err != nil {
		m.logger.Printf("summarize portfolio for %s: %v", userID, err)
		return baseAnswer
	}

	return contextualize(baseAnswer, summary)
}

func contextualize(baseAnswer string, summary Summary) string {
	var sb strings.Builder
	sb.WriteString("Based on your investment profile:\n\n")
	sb.WriteString(baseAnswer)

	sb.WriteString("\n\n## Your Portfolio Analysis\n")
	fmt.Fprintf(&sb, "You have a %s risk profile with a portfolio valued at $%.2f.\n", summary.RiskProfile, summary.TotalValue)
	for _, holding := range summary.Holdings {
		fmt.Fprintf(&sb, "- %s: %g shares ($%.2f, %.2f%% return)\n",
			holding.Symbol, holding.Quantity, holding.MarketValue, holding.GainLossPercent)
	}
	fmt.Fprintf(&sb, "Overall return: $%.2f (%.2f%%)", summary.TotalGain, summary.TotalGainPercent)

	if summary.TotalValue > 0 {
		sb.WriteString("\n\n## Personalized Insights\n")
		switch summary.RiskProfile {
		case RiskConservative:
			sb.WriteString("\nConsidering your conservative risk profile, you might want to focus on stability and income.")
		case RiskAggressive:
			sb.WriteString("\nWith your aggressive risk profile, you might be open to higher-growth opportunities, balanced with your existing positions.")
		default:
			sb.WriteString("\nWith your moderate risk approach, continuing to balance growth and stability may be appropriate.")
		}

		if len(summary.Holdings) < 3 {
			sb.WriteString("\n\nYour portfolio appears to have limited diversification. Consider adding positions across different sectors to reduce risk.")
		}

		if summary.TotalGainPercent < 0 {
			sb.WriteString("\n\nYour portfolio is currently showing a loss. Remember that investing is long-term, and short-term fluctuations are normal.")
		} else if summary.TotalGainPercent > 20 {
			sb.WriteString("\n\nYour portfolio is performing well. Consider whether rebalancing might be appropriate to lock in some gains while maintaining your desired allocation.")
		}
	}

	return sb.String()
}

func averageBuyPrice(txs []Transaction) float64 {
	var totalCost, totalShares float64
	for _, tx := range txs {
		if tx.Kind != "buy" {
			continue
		}
		totalCost += tx.Price * tx.Quantity
		totalShares += tx.Quantity
	}
	if totalShares == 0 {
		return 0
	}
	return totalCost / totalShares
}
