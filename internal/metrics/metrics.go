// Package metrics exposes search and rebuild telemetry to Prometheus.
package metrics

import (
	"errors"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/bull/bge-search/internal/indexer"
)

// Recorder owns a registry with the service metrics. It implements
// search.Observer and indexer.Observer.
type Recorder struct {
	registry *prometheus.Registry

	searchesTotal     *prometheus.CounterVec
	searchDuration    prometheus.Histogram
	searchResults     prometheus.Histogram
	rebuildsTotal     *prometheus.CounterVec
	rebuildDuration   prometheus.Histogram
	indexDocuments    prometheus.Gauge
	lastRebuild       prometheus.Gauge
	collectorDocs     *prometheus.GaugeVec
	collectorFailures *prometheus.CounterVec
}

// NewRecorder creates a Recorder with Go runtime and process collectors.
func NewRecorder() *Recorder {
	r := &Recorder{
		registry: prometheus.NewRegistry(),
		searchesTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "bge_search_queries_total",
				Help: "Total number of searches by outcome (matched, empty, short)",
			},
			[]string{"outcome"},
		),
		searchDuration: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "bge_search_query_duration_seconds",
				Help:    "Duration of searches in seconds",
				Buckets: prometheus.ExponentialBuckets(0.00005, 2, 14), // 50µs to ~400ms
			},
		),
		searchResults: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "bge_search_query_matches",
				Help:    "Number of documents matched per search before truncation",
				Buckets: []float64{0, 1, 2, 5, 10, 25, 50, 100, 250},
			},
		),
		rebuildsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "bge_search_rebuilds_total",
				Help: "Total number of index rebuilds by outcome (published, superseded, failed)",
			},
			[]string{"outcome"},
		),
		rebuildDuration: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "bge_search_rebuild_duration_seconds",
				Help:    "Duration of published index rebuilds in seconds",
				Buckets: prometheus.ExponentialBuckets(0.01, 2, 12), // 10ms to ~20s
			},
		),
		indexDocuments: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "bge_search_index_documents",
				Help: "Number of documents in the published index",
			},
		),
		lastRebuild: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "bge_search_last_rebuild_timestamp_seconds",
				Help: "Unix time of the last published rebuild",
			},
		),
		collectorDocs: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "bge_search_collector_documents",
				Help: "Documents returned by each collector on its last fetch",
			},
			[]string{"collector"},
		),
		collectorFailures: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "bge_search_collector_failures_total",
				Help: "Total number of failed collector fetches",
			},
			[]string{"collector"},
		),
	}

	r.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		r.searchesTotal, r.searchDuration, r.searchResults,
		r.rebuildsTotal, r.rebuildDuration, r.indexDocuments, r.lastRebuild,
		r.collectorDocs, r.collectorFailures,
	)
	return r
}

// ObserveSearch records one search.
func (r *Recorder) ObserveSearch(matched int, short bool, elapsed time.Duration) {
	switch {
	case short:
		r.searchesTotal.WithLabelValues("short").Inc()
		return
	case matched == 0:
		r.searchesTotal.WithLabelValues("empty").Inc()
	default:
		r.searchesTotal.WithLabelValues("matched").Inc()
	}
	r.searchDuration.Observe(elapsed.Seconds())
	r.searchResults.Observe(float64(matched))
}

// ObserveCollector records one collector fetch.
func (r *Recorder) ObserveCollector(name string, docs int, elapsed time.Duration, err error) {
	if err != nil {
		r.collectorFailures.WithLabelValues(name).Inc()
		r.collectorDocs.WithLabelValues(name).Set(0)
		return
	}
	r.collectorDocs.WithLabelValues(name).Set(float64(docs))
}

// ObserveRebuild records the outcome of one rebuild.
func (r *Recorder) ObserveRebuild(result *indexer.BuildResult, err error) {
	switch {
	case errors.Is(err, indexer.ErrSuperseded):
		r.rebuildsTotal.WithLabelValues("superseded").Inc()
	case err != nil:
		r.rebuildsTotal.WithLabelValues("failed").Inc()
	default:
		r.rebuildsTotal.WithLabelValues("published").Inc()
		r.rebuildDuration.Observe(result.Duration.Seconds())
		r.indexDocuments.Set(float64(result.Documents))
		r.lastRebuild.Set(float64(result.FinishedAt.Unix()))
	}
}

// Handler serves the registry in the Prometheus exposition format.
func (r *Recorder) Handler() http.Handler {
	return promhttp.HandlerFor(r.registry, promhttp.HandlerOpts{Registry: r.registry})
}

// Registry returns the underlying registry.
func (r *Recorder) Registry() *prometheus.Registry {
	return r.registry
}
