// Package metrics exposes pipeline counters for Prometheus.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "statement_categorizer"

// Record outcomes.
const (
	OutcomeExtracted = "extracted"
	OutcomeExcluded  = "excluded"
	OutcomeRejected  = "rejected"
	OutcomeDuplicate = "duplicate"
	OutcomeAdmitted  = "admitted"
)

// Pipeline holds the collectors for one process. A nil *Pipeline is valid
// and records nothing.
type Pipeline struct {
	documents       *prometheus.CounterVec
	records         *prometheus.CounterVec
	classifications *prometheus.CounterVec
	fallbackLatency prometheus.Histogram
	fallbackErrors  prometheus.Counter
}

// NewPipeline creates the collectors and registers them with reg.
func NewPipeline(reg prometheus.Registerer) *Pipeline {
	p := &Pipeline{
		documents: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "documents_total",
			Help:      "Documents processed, by status.",
		}, []string{"issuer", "status"}),
		records: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "records_total",
			Help:      "Statement records seen, by outcome.",
		}, []string{"issuer", "outcome"}),
		classifications: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "classifications_total",
			Help:      "Classifications, by category and source.",
		}, []string{"category", "source"}),
		fallbackLatency: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "fallback_duration_seconds",
			Help:      "Latency of fallback classification calls.",
			Buckets:   prometheus.ExponentialBuckets(0.05, 2, 10),
		}),
		fallbackErrors: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "fallback_errors_total",
			Help:      "Fallback classification calls that failed.",
		}),
	}
	reg.MustRegister(p.documents, p.records, p.classifications, p.fallbackLatency, p.fallbackErrors)
	return p
}

// Document counts one processed document; status is "ok" or "error".
func (p *Pipeline) Document(issuer, status string) {
	if p == nil {
		return
	}
	p.documents.WithLabelValues(issuer, status).Inc()
}

// Records adds n records with the given outcome.
func (p *Pipeline) Records(issuer, outcome string, n int) {
	if p == nil || n <= 0 {
		return
	}
	p.records.WithLabelValues(issuer, outcome).Add(float64(n))
}

// Classified counts one classification.
func (p *Pipeline) Classified(category, source string) {
	if p == nil {
		return
	}
	p.classifications.WithLabelValues(category, source).Inc()
}

// FallbackCall observes one fallback call.
func (p *Pipeline) FallbackCall(d time.Duration, err error) {
	if p == nil {
		return
	}
	p.fallbackLatency.Observe(d.Seconds())
	if err != nil {
		p.fallbackErrors.Inc()
	}
}
