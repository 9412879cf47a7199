// Package metrics exposes Prometheus instrumentation for the API surfaces.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type Metrics struct {
	registry *prometheus.Registry

	QueriesTotal    *prometheus.CounterVec
	CacheHitsTotal  prometheus.Counter
	LLMErrorsTotal  prometheus.Counter
	RequestDuration *prometheus.HistogramVec

	AnswersWithSources    prometheus.Counter
	AnswersWithoutSources prometheus.Counter
	AnswerLength          prometheus.Histogram
}

func New() *Metrics {
	registry := prometheus.NewRegistry()

	m := &Metrics{
		registry: registry,
		QueriesTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "finsight_queries_total",
			Help: "Queries served, labeled by surface (http, ws, cli).",
		}, []string{"surface"}),
		CacheHitsTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "finsight_cache_hits_total",
			Help: "Responses served from the Redis cache.",
		}),
		LLMErrorsTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "finsight_llm_errors_total",
			Help: "Failed LLM backend calls.",
		}),
		RequestDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "finsight_request_duration_seconds",
			Help:    "End-to-end query handling duration.",
			Buckets: prometheus.DefBuckets,
		}, []string{"surface"}),
		AnswersWithSources: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "finsight_answers_with_sources_total",
			Help: "Answers that cited at least one knowledge-base chunk.",
		}),
		AnswersWithoutSources: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "finsight_answers_without_sources_total",
			Help: "Answers generated without any knowledge-base support.",
		}),
		AnswerLength: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "finsight_answer_length_chars",
			Help:    "Length of generated answers in characters.",
			Buckets: prometheus.ExponentialBuckets(64, 2, 8),
		}),
	}

	registry.MustRegister(
		m.QueriesTotal,
		m.CacheHitsTotal,
		m.LLMErrorsTotal,
		m.RequestDuration,
		m.AnswersWithSources,
		m.AnswersWithoutSources,
		m.AnswerLength,
	)
	return m
}

// ObserveAnswer records response-quality signals: whether the answer was
// grounded in retrieved sources, and how long it was.
func (m *Metrics) ObserveAnswer(answer string, sourceCount int) {
	if sourceCount > 0 {
		m.AnswersWithSources.Inc()
	} else {
		m.AnswersWithoutSources.Inc()
	}
	m.AnswerLength.Observe(float64(len(answer)))
}

func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
