package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics bundles the Prometheus collectors of the extraction service on a
// dedicated registry so tests can instantiate them without global state.
type Metrics struct {
	Registry           *prometheus.Registry
	ExtractionsTotal   *prometheus.CounterVec
	ExtractionDuration prometheus.Histogram
	OffersTotal        *prometheus.CounterVec
	PagesVisitedTotal  *prometheus.CounterVec
	MarketFailures     *prometheus.CounterVec
	ErrorsTotal        *prometheus.CounterVec
}

// New constructs and registers all collectors.
func New() *Metrics {
	registry := prometheus.NewRegistry()

	extractions := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "offerharvester_extractions_total",
			Help: "Total extraction requests by endpoint version and outcome.",
		},
		[]string{"version", "outcome"},
	)
	duration := prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "offerharvester_extraction_duration_seconds",
			Help:    "End-to-end latency of one extraction request.",
			Buckets: prometheus.DefBuckets,
		},
	)
	offers := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "offerharvester_offers_total",
			Help: "Total offers emitted, labeled by market.",
		},
		[]string{"market"},
	)
	pages := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "offerharvester_pages_visited_total",
			Help: "Total product pages visited, labeled by outcome.",
		},
		[]string{"outcome"},
	)
	marketFailures := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "offerharvester_market_failures_total",
			Help: "Market passes that failed before emitting offers.",
		},
		[]string{"market"},
	)
	errorsTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "offerharvester_errors_total",
			Help: "Total errors by type.",
		},
		[]string{"error_type"},
	)

	registry.MustRegister(extractions, duration, offers, pages, marketFailures, errorsTotal)

	return &Metrics{
		Registry:           registry,
		ExtractionsTotal:   extractions,
		ExtractionDuration: duration,
		OffersTotal:        offers,
		PagesVisitedTotal:  pages,
		MarketFailures:     marketFailures,
		ErrorsTotal:        errorsTotal,
	}
}

// IncExtraction counts one extraction request.
func (m *Metrics) IncExtraction(version, outcome string) {
	if m == nil {
		return
	}
	m.ExtractionsTotal.WithLabelValues(version, outcome).Inc()
}

// ObserveDuration records one extraction's end-to-end latency.
func (m *Metrics) ObserveDuration(d time.Duration) {
	if m == nil {
		return
	}
	m.ExtractionDuration.Observe(d.Seconds())
}

// AddOffers counts offers emitted for a market.
func (m *Metrics) AddOffers(market string, n int) {
	if m == nil || n <= 0 {
		return
	}
	m.OffersTotal.WithLabelValues(market).Add(float64(n))
}

// IncPage counts one page visit by outcome ("ok" or "failed").
func (m *Metrics) IncPage(outcome string) {
	if m == nil {
		return
	}
	m.PagesVisitedTotal.WithLabelValues(outcome).Inc()
}

// IncMarketFailure counts one failed market pass.
func (m *Metrics) IncMarketFailure(market string) {
	if m == nil {
		return
	}
	m.MarketFailures.WithLabelValues(market).Inc()
}

// IncError counts one error by type label.
func (m *Metrics) IncError(errorType string) {
	if m == nil {
		return
	}
	m.ErrorsTotal.WithLabelValues(errorType).Inc()
}
