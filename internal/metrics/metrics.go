// Package metrics exposes Prometheus collectors for the ingest service.
package metrics

import (
	"net/http"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Invocation outcome labels.
const (
	OutcomePublished = "published"
	OutcomeBlocked   = "blocked"
	OutcomeFailed    = "failed"
)

var (
	ingestInvocationsTotal *prometheus.CounterVec
	articlesRetrievedTotal prometheus.Counter
	articlesDeliveredTotal prometheus.Counter

	once sync.Once
)

// Init initializes the Prometheus collectors.
// It is safe to call this function multiple times.
func Init() {
	once.Do(func() {
		ingestInvocationsTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "ingest_invocations_total",
				Help: "Total number of pipeline invocations, labeled by outcome.",
			},
			[]string{"outcome"},
		)

		articlesRetrievedTotal = promauto.NewCounter(
			prometheus.CounterOpts{
				Name: "ingest_articles_retrieved_total",
				Help: "Total number of articles retrieved from the content API.",
			},
		)

		articlesDeliveredTotal = promauto.NewCounter(
			prometheus.CounterOpts{
				Name: "ingest_articles_delivered_total",
				Help: "Total number of articles the broker accepted.",
			},
		)
	})
}

// RecordInvocation increments the invocation counter for an outcome.
func RecordInvocation(outcome string) {
	Init()
	ingestInvocationsTotal.WithLabelValues(outcome).Inc()
}

// RecordRetrieved adds to the retrieved-articles counter.
func RecordRetrieved(n int) {
	Init()
	articlesRetrievedTotal.Add(float64(n))
}

// RecordPublished adds to the delivered-articles counter.
func RecordPublished(n int) {
	Init()
	articlesDeliveredTotal.Add(float64(n))
}

// Handler returns the HTTP handler serving the default registry.
func Handler() http.Handler {
	return promhttp.Handler()
}
