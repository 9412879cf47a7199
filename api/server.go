// Package api exposes the REST, WebSocket, and static-UI surfaces.
package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"strings"

	"github.com/finsight-ai/finsight/bot"
	"github.com/finsight-ai/finsight/llm"
	"github.com/finsight-ai/finsight/market"
	"github.com/finsight-ai/finsight/metrics"
	"github.com/finsight-ai/finsight/portfolio"
)

const defaultQueryLimit = 5

// Server routes HTTP requests to the assistant, portfolio, and market
// services.
type Server struct {
	logger     *log.Logger
	assistant  *bot.Assistant
	portfolios *portfolio.Manager
	quotes     market.DataSource
	metrics    *metrics.Metrics
	handler    http.Handler
}

type messageResponse struct {
	Message string `json:"message"`
}

type errorResponse struct {
	Error string `json:"error"`
}

type queryRequest struct {
	Query       string `json:"query"`
	UserID      string `json:"user_id"`
	Enrich      bool   `json:"enrich_with_market_data"`
	Personalize bool   `json:"personalize"`
	Limit       int    `json:"limit"`
}

type queryResponse struct {
	Query        string        `json:"query"`
	Content      string        `json:"content"`
	Sources      []chatSource  `json:"sources"`
	Enriched     bool          `json:"enriched"`
	Personalized bool          `json:"personalized"`
	Cached       bool          `json:"cached"`
}

type chatSource struct {
	DocumentID string  `json:"documentId"`
	Title      string  `json:"title"`
	Path       string  `json:"path"`
	Snippet    string  `json:"snippet"`
	Score      float64 `json:"score"`
}

func New(
	assistant *bot.Assistant,
	portfolios *portfolio.Manager,
	quotes market.DataSource,
	m *metrics.Metrics,
	logger *log.Logger,
) *Server {
	if logger == nil {
		logger = log.Default()
	}

	s := &Server{
		logger:     logger,
		assistant:  assistant,
		portfolios: portfolios,
		quotes:     quotes,
		metrics:    m,
	}
	s.handler = s.routes()
	return s
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.handler.ServeHTTP(w, r)
}

func (s *Server) Handler() http.Handler {
	return s.handler
}

func (s *Server) routes() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/", s.handleRoot)
	mux.Handle("/static/", http.StripPrefix("/static/", s.staticHandler()))
	mux.HandleFunc("/healthz", s.handleHealth)
	mux.HandleFunc("/api/v1/query", s.handleQuery)
	mux.HandleFunc("/api/v1/chat/ws", s.handleWebSocket)
	mux.HandleFunc("/api/v1/portfolio", s.handlePortfolio)
	mux.HandleFunc("/api/v1/market/quote", s.handleQuote)
	mux.HandleFunc("/api/v1/market/news", s.handleNews)
	if s.metrics != nil {
		mux.Handle("/metrics", s.metrics.Handler())
	}
	return mux
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		s.methodNotAllowed(w, http.MethodGet)
		return
	}

	s.writeJSON(w, http.StatusOK, messageResponse{Message: "ok"})
}

func (s *Server) handleQuery(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		s.methodNotAllowed(w, http.MethodPost)
		return
	}

	var req queryRequest
	if err := decodeJSON(r, &req); err != nil {
		s.writeError(w, http.StatusBadRequest, fmt.Errorf("decode request: %w", err))
		return
	}

	req.Query = strings.TrimSpace(req.Query)
	if req.Query == "" {
		s.writeError(w, http.StatusBadRequest, fmt.Errorf("query is required"))
		return
	}

	limit := req.Limit
	if limit <= 0 {
		limit = defaultQueryLimit
	}

	result, err := s.assistant.ProcessQuery(r.Context(), bot.QueryOptions{
		Query:       req.Query,
		UserID:      req.UserID,
		Enrich:      req.Enrich,
		Personalize: req.Personalize,
		Limit:       limit,
		Surface:     "http",
	})
	if err != nil {
		if errors.Is(err, llm.ErrBackendUnavailable) {
			s.writeError(w, http.StatusBadGateway, err)
			return
		}
		s.writeError(w, http.StatusInternalServerError, fmt.Errorf("query failed: %w", err))
		return
	}

	resp := queryResponse{
		Query:        req.Query,
		Content:      result.Answer,
		Sources:      make([]chatSource, len(result.Sources)),
		Enriched:     result.Enriched,
		Personalized: result.Personalized,
		Cached:       result.Cached,
	}
	for i, src := range result.Sources {
		resp.Sources[i] = chatSource(src)
	}

	s.writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleQuote(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		s.methodNotAllowed(w, http.MethodGet)
		return
	}
	if s.quotes == nil {
		s.writeError(w, http.StatusServiceUnavailable, fmt.Errorf("market data is not configured"))
		return
	}

	symbol := strings.ToUpper(strings.TrimSpace(r.URL.Query().Get("symbol")))
	if symbol == "" {
		s.writeError(w, http.StatusBadRequest, fmt.Errorf("symbol is required"))
		return
	}

	quote, err := s.quotes.StockQuote(r.Context(), symbol)
	if err != nil {
		s.writeError(w, http.StatusBadGateway, fmt.Errorf("fetch quote: %w", err))
		return
	}
	if quote == nil {
		s.writeError(w, http.StatusNotFound, fmt.Errorf("no data for symbol %s", symbol))
		return
	}

	s.writeJSON(w, http.StatusOK, quote)
}

func (s *Server) handleNews(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		s.methodNotAllowed(w, http.MethodGet)
		return
	}
	if s.quotes == nil {
		s.writeError(w, http.StatusServiceUnavailable, fmt.Errorf("market data is not configured"))
		return
	}

	news, err := s.quotes.MarketNews(r.Context(), r.URL.Query().Get("topic"), 3)
	if err != nil {
		s.writeError(w, http.StatusBadGateway, fmt.Errorf("fetch news: %w", err))
		return
	}

	s.writeJSON(w, http.StatusOK, news)
}

func (s *Server) methodNotAllowed(w http.ResponseWriter, allowed string) {
	w.Header().Set("Allow", allowed)
	s.writeError(w, http.StatusMethodNotAllowed, fmt.Errorf("method not allowed, use %s", allowed))
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		s.logger.Printf("encode response: %v", err)
	}
}

func (s *Server) writeError(w http.ResponseWriter, status int, err error) {
	s.logger.Printf("api error (%d): %v", status, err)
	s.writeJSON(w, status, errorResponse{Error: err.Error()})
}

func decodeJSON(r *http.Request, dst any) error {
	if r.Body == nil {
		return nil
	}
	defer r.Body.Close()

	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		if err == io.EOF {
			return nil
		}
		return err
	}

	if dec.More() {
		return fmt.Errorf("request body must contain a single JSON object")
	}

	return nil
}
