// Package metrics provides Prometheus metrics for nlfind.
//
// A Recorder owns its own registry so independent engines (and tests) never
// share counters. All methods are safe on a nil *Recorder.
package metrics

import (
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Recorder collects search pipeline metrics.
type Recorder struct {
	registry *prometheus.Registry

	// Search metrics
	searchesTotal   *prometheus.CounterVec
	searchDuration  prometheus.Histogram
	searchResults   prometheus.Histogram
	searchTruncated prometheus.Counter

	// Walk metrics
	dirsScanned    prometheus.Counter
	entriesSeen    prometheus.Counter
	entriesSkipped *prometheus.CounterVec

	// Classifier metrics
	classifierAttempts  *prometheus.CounterVec
	classifierFallbacks *prometheus.CounterVec
	classifications     *prometheus.CounterVec

	// Dispatch metrics
	plansDispatched *prometheus.CounterVec
}

// New creates a Recorder with a fresh registry.
func New() *Recorder {
	reg := prometheus.NewRegistry()
	factory := promauto.With(reg)

	return &Recorder{
		registry: reg,

		searchesTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "nlfind_searches_total",
				Help: "Total number of searches by outcome",
			},
			[]string{"status"},
		),
		searchDuration: factory.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "nlfind_search_duration_seconds",
				Help:    "End-to-end search duration in seconds",
				Buckets: prometheus.DefBuckets,
			},
		),
		searchResults: factory.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "nlfind_search_results",
				Help:    "Number of entries returned per search",
				Buckets: []float64{0, 1, 5, 10, 50, 100, 250, 500},
			},
		),
		searchTruncated: factory.NewCounter(
			prometheus.CounterOpts{
				Name: "nlfind_search_truncated_total",
				Help: "Searches that stopped at the result cap",
			},
		),

		dirsScanned: factory.NewCounter(
			prometheus.CounterOpts{
				Name: "nlfind_walk_dirs_scanned_total",
				Help: "Directories read during walks",
			},
		),
		entriesSeen: factory.NewCounter(
			prometheus.CounterOpts{
				Name: "nlfind_walk_entries_seen_total",
				Help: "Directory entries examined during walks",
			},
		),
		entriesSkipped: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "nlfind_walk_entries_skipped_total",
				Help: "Entries or directories skipped because they could not be read",
			},
			[]string{"reason"},
		),

		classifierAttempts: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "nlfind_classifier_attempts_total",
				Help: "External classifier attempts by result",
			},
			[]string{"result"},
		),
		classifierFallbacks: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "nlfind_classifier_fallbacks_total",
				Help: "Falls back to local rules after the external classifier was unavailable",
			},
			[]string{"reason"},
		),
		classifications: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "nlfind_classifications_total",
				Help: "Classifications by source and action",
			},
			[]string{"source", "action"},
		),

		plansDispatched: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "nlfind_plans_dispatched_total",
				Help: "Action plans handed to the dispatcher",
			},
			[]string{"action"},
		),
	}
}

// Registry exposes the underlying registry (for tests and exporters).
func (r *Recorder) Registry() *prometheus.Registry {
	if r == nil {
		return nil
	}
	return r.registry
}

// RecordSearch records one finished search.
func (r *Recorder) RecordSearch(status string, d time.Duration, results int, truncated bool) {
	if r == nil {
		return
	}
	r.searchesTotal.WithLabelValues(status).Inc()
	r.searchDuration.Observe(d.Seconds())
	r.searchResults.Observe(float64(results))
	if truncated {
		r.searchTruncated.Inc()
	}
}

// RecordDirScanned counts one directory read and the entries it held.
func (r *Recorder) RecordDirScanned(entries int) {
	if r == nil {
		return
	}
	r.dirsScanned.Inc()
	r.entriesSeen.Add(float64(entries))
}

// RecordSkipped counts an entry or directory that could not be read.
func (r *Recorder) RecordSkipped(reason string) {
	if r == nil {
		return
	}
	r.entriesSkipped.WithLabelValues(reason).Inc()
}

// RecordClassifierAttempt counts one external classifier call.
func (r *Recorder) RecordClassifierAttempt(result string) {
	if r == nil {
		return
	}
	r.classifierAttempts.WithLabelValues(result).Inc()
}

// RecordClassifierFallback counts a fall back to the local rules.
func (r *Recorder) RecordClassifierFallback(reason string) {
	if r == nil {
		return
	}
	r.classifierFallbacks.WithLabelValues(reason).Inc()
}

// RecordClassification counts the final verdict for a request.
func (r *Recorder) RecordClassification(source, action string) {
	if r == nil {
		return
	}
	r.classifications.WithLabelValues(source, action).Inc()
}

// RecordPlan counts a plan handed to the dispatcher.
func (r *Recorder) RecordPlan(action string) {
	if r == nil {
		return
	}
	r.plansDispatched.WithLabelValues(action).Inc()
}

// WriteTextfile writes every metric in Prometheus text format to path,
// atomically (node_exporter textfile collector layout).
func (r *Recorder) WriteTextfile(path string) error {
	if r == nil {
		return nil
	}
	if err := prometheus.WriteToTextfile(path, r.registry); err != nil {
		return fmt.Errorf("failed to write metrics to %s: %w", path, err)
	}
	return nil
}
