// Package bot composes the chat service with market-data enrichment,
// portfolio personalization, caching, and metrics. Both the CLI and the API
// surfaces drive it.
package bot

import (
	"context"
	"fmt"
	"log"
	"strconv"
	"time"

	"github.com/finsight-ai/finsight/cache"
	"github.com/finsight-ai/finsight/chat"
	"github.com/finsight-ai/finsight/llm"
	"github.com/finsight-ai/finsight/market"
	"github.com/finsight-ai/finsight/metrics"
	"github.com/finsight-ai/finsight/portfolio"
)

type Assistant struct {
	chat       *chat.Service
	enricher   *market.Enricher
	portfolios *portfolio.Manager
	cache      *cache.Cache
	metrics    *metrics.Metrics
	logger     *log.Logger
}

func New(
	chatSvc *chat.Service,
	enricher *market.Enricher,
	portfolios *portfolio.Manager,
	responseCache *cache.Cache,
	m *metrics.Metrics,
	logger *log.Logger,
) *Assistant {
	if logger == nil {
		logger = log.Default()
	}
	return &Assistant{
		chat:       chatSvc,
		enricher:   enricher,
		portfolios: portfolios,
		cache:      responseCache,
		metrics:    m,
		logger:     logger,
	}
}

type QueryOptions struct {
	Query       string
	UserID      string
	Enrich      bool
	Personalize bool
	Limit       int
	Surface     string
}

type Result struct {
	Answer       string        `json:"answer"`
	Sources      []chat.Source `json:"sources"`
	Enriched     bool          `json:"enriched"`
	Personalized bool          `json:"personalized"`
	Cached       bool          `json:"cached"`
}

// ProcessQuery runs the full pipeline: cache lookup, retrieve + generate,
// optional market-data enrichment, optional portfolio personalization.
// Personalized answers are never cached; they depend on live portfolio state.
func (a *Assistant) ProcessQuery(ctx context.Context, opts QueryOptions) (Result, error) {
	if a.chat == nil {
		return Result{}, fmt.Errorf("chat service is not configured")
	}

	surface := opts.Surface
	if surface == "" {
		surface = "cli"
	}

	start := time.Now()
	defer func() {
		if a.metrics != nil {
			a.metrics.RequestDuration.WithLabelValues(surface).Observe(time.Since(start).Seconds())
		}
	}()
	if a.metrics != nil {
		a.metrics.QueriesTotal.WithLabelValues(surface).Inc()
	}

	personalize := opts.Personalize && opts.UserID != "" && a.portfolios != nil

	cacheKey := cache.Key("query", opts.Query, strconv.FormatBool(opts.Enrich), strconv.Itoa(opts.Limit))
	if !personalize {
		var cached Result
		if a.cache.Get(ctx, cacheKey, &cached) {
			if a.metrics != nil {
				a.metrics.CacheHitsTotal.Inc()
			}
			cached.Cached = true
			return cached, nil
		}
	}

	resp, err := a.chat.Chat(ctx, opts.Query, chat.Config{SimilarityLimit: opts.Limit})
	if err != nil {
		if a.metrics != nil {
			a.metrics.LLMErrorsTotal.Inc()
		}
		return Result{}, err
	}
	if a.metrics != nil {
		a.metrics.ObserveAnswer(resp.Answer, len(resp.Sources))
	}

	result := Result{Answer: resp.Answer, Sources: resp.Sources}

	if opts.Enrich && a.enricher != nil {
		enriched := a.enricher.Enrich(ctx, opts.Query, result.Answer)
		result.Enriched = enriched != result.Answer
		result.Answer = enriched
	}

	if personalize {
		personalized := a.portfolios.Personalize(ctx, opts.UserID, opts.Query, result.Answer)
		result.Personalized = personalized != result.Answer
		result.Answer = personalized
	}

	if !personalize {
		a.cache.Set(ctx, cacheKey, result)
	}

	return result, nil
}

// StreamQuery streams answer fragments through streamFn, bypassing the cache
// and enrichment layers. Used by the WebSocket surface.
func (a *Assistant) StreamQuery(ctx context.Context, opts QueryOptions, history []llm.Message, streamFn func(string) error) (Result, []llm.Message, error) {
	if a.chat == nil {
		return Result{}, nil, fmt.Errorf("chat service is not configured")
	}

	surface := opts.Surface
	if surface == "" {
		surface = "ws"
	}

	start := time.Now()
	defer func() {
		if a.metrics != nil {
			a.metrics.RequestDuration.WithLabelValues(surface).Observe(time.Since(start).Seconds())
		}
	}()
	if a.metrics != nil {
		a.metrics.QueriesTotal.WithLabelValues(surface).Inc()
	}

	resp, updated, err := a.chat.ChatStream(ctx, opts.Query, chat.Config{SimilarityLimit: opts.Limit}, history, streamFn)
	if err != nil {
		if a.metrics != nil {
			a.metrics.LLMErrorsTotal.Inc()
		}
		return Result{}, nil, err
	}
	if a.metrics != nil {
		a.metrics.ObserveAnswer(resp.Answer, len(resp.Sources))
	}

	return Result{Answer: resp.Answer, Sources: resp.Sources}, updated, nil
}
