package metrics

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestObserveAnswerCountsSourcedAnswers(t *testing.T) {
	m := New()

	m.ObserveAnswer("A grounded answer.", 2)
	m.ObserveAnswer("Another grounded answer.", 1)
	m.ObserveAnswer("Model-only answer.", 0)

	if got := testutil.ToFloat64(m.AnswersWithSources); got != 2 {
		t.Fatalf("expected 2 sourced answers, got %v", got)
	}
	if got := testutil.ToFloat64(m.AnswersWithoutSources); got != 1 {
		t.Fatalf("expected 1 unsourced answer, got %v", got)
	}
}

func TestHandlerExposesQualitySeries(t *testing.T) {
	m := New()
	m.ObserveAnswer("answer", 1)

	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	body := rec.Body.String()
	for _, series := range []string{
		"finsight_answers_with_sources_total",
		"finsight_answers_without_sources_total",
		"finsight_answer_length_chars",
	} {
		if !strings.Contains(body, series) {
			t.Fatalf("expected %s in metrics output:\n%s", series, body)
		}
	}
}
