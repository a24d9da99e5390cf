// Package metrics exposes Prometheus instruments for the retrieval pipeline.
// A nil *Metrics is valid and records nothing.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "ragkb"

// Outcome label values.
const (
	OK    = "ok"
	Error = "error"
)

type Metrics struct {
	embeddings *prometheus.CounterVec
	chunks     *prometheus.CounterVec
	retrieval  prometheus.Histogram
	storeSize  prometheus.Gauge
}

// New registers the instruments on reg.
func New(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		embeddings: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "embedding_requests_total",
			Help:      "Embedding provider calls by embedder and outcome.",
		}, []string{"embedder", "outcome"}),
		chunks: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "ingested_chunks_total",
			Help:      "Chunks processed during ingestion by outcome.",
		}, []string{"outcome"}),
		retrieval: f.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "retrieval_duration_seconds",
			Help:      "Time to embed a query, read the store and rank.",
			Buckets:   prometheus.DefBuckets,
		}),
		storeSize: f.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "store_records",
			Help:      "Records in the vector store at the last read.",
		}),
	}
}

func (m *Metrics) ObserveEmbedding(embedder string, err error) {
	if m == nil {
		return
	}
	m.embeddings.WithLabelValues(embedder, outcome(err)).Inc()
}

func (m *Metrics) ObserveChunk(err error) {
	if m == nil {
		return
	}
	m.chunks.WithLabelValues(outcome(err)).Inc()
}

func (m *Metrics) ObserveRetrieval(d time.Duration) {
	if m == nil {
		return
	}
	m.retrieval.Observe(d.Seconds())
}

func (m *Metrics) SetStoreSize(n int) {
	if m == nil {
		return
	}
	m.storeSize.Set(float64(n))
}

func outcome(err error) string {
	if err != nil {
		return Error
	}
	return OK
}
