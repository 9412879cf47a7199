package api

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/finsight-ai/finsight/portfolio"
)

type holdingRequest struct {
	Symbol   string  `json:"symbol"`
	Quantity float64 `json:"quantity"`
	Price    float64 `json:"price"`
}

type addHoldingsRequest struct {
	UserID   string           `json:"user_id"`
	Holdings []holdingRequest `json:"holdings"`
}

type preferencesRequest struct {
	UserID            string   `json:"user_id"`
	RiskProfile       string   `json:"risk_profile"`
	InvestmentHorizon string   `json:"investment_horizon"`
	WatchlistSectors  []string `json:"watchlist_sectors"`
}

func (s *Server) handlePortfolio(w http.ResponseWriter, r *http.Request) {
	if s.portfolios == nil {
		s.writeError(w, http.StatusServiceUnavailable, fmt.Errorf("portfolio service is not configured"))
		return
	}

	switch r.Method {
	case http.MethodGet:
		s.handlePortfolioSummary(w, r)
	case http.MethodPost:
		s.handlePortfolioAdd(w, r)
	case http.MethodPut:
		s.handlePortfolioPreferences(w, r)
	default:
		s.methodNotAllowed(w, "GET, POST, PUT")
	}
}

func (s *Server) handlePortfolioSummary(w http.ResponseWriter, r *http.Request) {
	userID := strings.TrimSpace(r.URL.Query().Get("user_id"))
	if userID == "" {
		s.writeError(w, http.StatusBadRequest, fmt.Errorf("user_id is required"))
		return
	}

	summary, err := s.portfolios.Summarize(r.Context(), userID)
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, fmt.Errorf("portfolio summary: %w", err))
		return
	}

	s.writeJSON(w, http.StatusOK, summary)
}

func (s *Server) handlePortfolioAdd(w http.ResponseWriter, r *http.Request) {
	var req addHoldingsRequest
	if err := decodeJSON(r, &req); err != nil {
		s.writeError(w, http.StatusBadRequest, fmt.Errorf("decode request: %w", err))
		return
	}

	if strings.TrimSpace(req.UserID) == "" {
		s.writeError(w, http.StatusBadRequest, fmt.Errorf("user_id is required"))
		return
	}
	if len(req.Holdings) == 0 {
		s.writeError(w, http.StatusBadRequest, fmt.Errorf("holdings are required"))
		return
	}

	for _, holding := range req.Holdings {
		if strings.TrimSpace(holding.Symbol) == "" {
			s.writeError(w, http.StatusBadRequest, fmt.Errorf("holding symbol is required"))
			return
		}
		if err := s.portfolios.AddHolding(r.Context(), req.UserID, holding.Symbol, holding.Quantity, holding.Price); err != nil {
			s.writeError(w, http.StatusInternalServerError, fmt.Errorf("add holding %s: %w", holding.Symbol, err))
			return
		}
	}

	s.writeJSON(w, http.StatusOK, messageResponse{Message: fmt.Sprintf("%d holdings added", len(req.Holdings))})
}

func (s *Server) handlePortfolioPreferences(w http.ResponseWriter, r *http.Request) {
	var req preferencesRequest
	if err := decodeJSON(r, &req); err != nil {
		s.writeError(w, http.StatusBadRequest, fmt.Errorf("decode request: %w", err))
		return
	}

	if strings.TrimSpace(req.UserID) == "" {
		s.writeError(w, http.StatusBadRequest, fmt.Errorf("user_id is required"))
		return
	}

	sectors := make([]string, 0, len(req.WatchlistSectors))
	for _, sector := range req.WatchlistSectors {
		if trimmed := strings.ToLower(strings.TrimSpace(sector)); trimmed != "" {
			sectors = append(sectors, trimmed)
		}
	}

	prefs := portfolio.Preferences{
		RiskProfile:       strings.ToLower(strings.TrimSpace(req.RiskProfile)),
		InvestmentHorizon: strings.ToLower(strings.TrimSpace(req.InvestmentHorizon)),
		WatchlistSectors:  sectors,
	}
	if err := s.portfolios.UpdatePreferences(r.Context(), req.UserID, prefs); err != nil {
		s.writeError(w, http.StatusBadRequest, fmt.Errorf("update preferences: %w", err))
		return
	}

	s.writeJSON(w, http.StatusOK, messageResponse{Message: "preferences updated"})
}
