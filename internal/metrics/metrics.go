// Package metrics exposes Prometheus collectors for solver runs.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	solvesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "cbs_solves_total",
		Help: "Total solver runs by variant and final status",
	}, []string{"variant", "status"})

	highLevelExpanded = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "cbs_high_level_expanded_total",
		Help: "Constraint tree nodes expanded",
	}, []string{"variant"})

	lowLevelCalls = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "cbs_low_level_calls_total",
		Help: "Single-agent searches run",
	}, []string{"variant"})

	lowLevelExpanded = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "cbs_low_level_expanded_total",
		Help: "States expanded by single-agent searches",
	}, []string{"variant"})

	solveDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "cbs_solve_duration_seconds",
		Help:    "Wall time of solver runs",
		Buckets: prometheus.ExponentialBuckets(0.001, 4, 10),
	}, []string{"variant"})
)

// Solve is the per-run summary recorded by ObserveSolve.
type Solve struct {
	Variant           string
	Status            string
	HighLevelExpanded int
	LowLevelCalls     int
	LowLevelExpanded  int
	Duration          time.Duration
}

// ObserveSolve records one finished solver run.
func ObserveSolve(s Solve) {
	solvesTotal.WithLabelValues(s.Variant, s.Status).Inc()
	highLevelExpanded.WithLabelValues(s.Variant).Add(float64(s.HighLevelExpanded))
	lowLevelCalls.WithLabelValues(s.Variant).Add(float64(s.LowLevelCalls))
	lowLevelExpanded.WithLabelValues(s.Variant).Add(float64(s.LowLevelExpanded))
	solveDuration.WithLabelValues(s.Variant).Observe(s.Duration.Seconds())
}

// WriteTextfile dumps the default registry in the node_exporter textfile format.
func WriteTextfile(path string) error {
	return prometheus.WriteToTextfile(path, prometheus.DefaultGatherer)
}
