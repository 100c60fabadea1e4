// Package metrics defines the Prometheus metric collectors used across the
// hunter and archiver and exposes an HTTP handler for scraping.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds all Prometheus collectors for the platform.
type Metrics struct {
	NumbersTestedTotal   *prometheus.CounterVec
	InfeasibleTotal      *prometheus.CounterVec
	SolutionsFoundTotal  prometheus.Counter
	NearMissesTotal      prometheus.Counter
	EngineStepsTotal     prometheus.Counter
	BacktracksTotal      prometheus.Counter
	CheckpointSavesTotal *prometheus.CounterVec
	SearchDuration       *prometheus.HistogramVec
	ValueTableSize       prometheus.Histogram
	WalkPosition         *prometheus.GaugeVec
	SolutionsArchived    *prometheus.CounterVec
}

// New creates and registers all Prometheus metrics.
func New() *Metrics {
	m := &Metrics{
		NumbersTestedTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "numbers_tested_total",
				Help: "Total magic-number candidates processed by outcome (found, not_found, infeasible).",
			},
			[]string{"outcome"},
		),
		InfeasibleTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "infeasible_total",
				Help: "Candidates rejected by a pre-filter, by rejection reason.",
			},
			[]string{"reason"},
		),
		SolutionsFoundTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "solutions_found_total",
				Help: "Total verified magic squares emitted.",
			},
		),
		NearMissesTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "near_misses_total",
				Help: "Grids that filled 8+ slots but failed the final line-sum check.",
			},
		),
		EngineStepsTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "engine_steps_total",
				Help: "Total search-engine loop iterations.",
			},
		),
		BacktracksTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "engine_backtracks_total",
				Help: "Total backtracking transitions in the search engine.",
			},
		),
		CheckpointSavesTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "checkpoint_saves_total",
				Help: "Checkpoint flushes by level (engine, range).",
			},
			[]string{"level"},
		),
		SearchDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "search_duration_seconds",
				Help:    "Wall-clock duration of one magic-number search.",
				Buckets: []float64{0.001, 0.01, 0.1, 1, 10, 60, 600, 3600, 21600},
			},
			[]string{"mode"},
		),
		ValueTableSize: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "value_table_entries",
				Help:    "Number of entries in constructed value tables.",
				Buckets: prometheus.ExponentialBuckets(8, 4, 12),
			},
		),
		WalkPosition: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "range_walk_position",
				Help: "Current candidate magic number per range partition.",
			},
			[]string{"range_id"},
		),
		SolutionsArchived: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "solutions_archived_total",
				Help: "Solutions persisted by the archiver, by status.",
			},
			[]string{"status"},
		),
	}

	prometheus.MustRegister(
		m.NumbersTestedTotal,
		m.InfeasibleTotal,
		m.SolutionsFoundTotal,
		m.NearMissesTotal,
		m.EngineStepsTotal,
		m.BacktracksTotal,
		m.CheckpointSavesTotal,
		m.SearchDuration,
		m.ValueTableSize,
		m.WalkPosition,
		m.SolutionsArchived,
	)

	return m
}

// Handler returns the Prometheus scrape HTTP handler.
func Handler() http.Handler {
	return promhttp.Handler()
}
