package server

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds the prometheus collectors of the optimization service.
type Metrics struct {
	JobsStarted        *prometheus.CounterVec
	JobsFinished       *prometheus.CounterVec
	ActiveJobs         prometheus.Gauge
	Generations        prometheus.Counter
	AnnealingIters     prometheus.Counter
	Improvements       *prometheus.CounterVec
	EvaluationDuration prometheus.Histogram
}

// NewMetrics registers the service collectors with reg.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		JobsStarted: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: "layoutevo",
			Name:      "jobs_started_total",
			Help:      "Optimization jobs started, by algorithm.",
		}, []string{"algorithm"}),
		JobsFinished: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: "layoutevo",
			Name:      "jobs_finished_total",
			Help:      "Optimization jobs finished, by algorithm and final status.",
		}, []string{"algorithm", "status"}),
		ActiveJobs: f.NewGauge(prometheus.GaugeOpts{
			Namespace: "layoutevo",
			Name:      "jobs_active",
			Help:      "Optimization jobs currently running.",
		}),
		Generations: f.NewCounter(prometheus.CounterOpts{
			Namespace: "layoutevo",
			Name:      "genetic_generations_total",
			Help:      "Genetic generations stepped across all jobs.",
		}),
		AnnealingIters: f.NewCounter(prometheus.CounterOpts{
			Namespace: "layoutevo",
			Name:      "annealing_iterations_total",
			Help:      "Annealing iterations reported by progress notifications.",
		}),
		Improvements: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: "layoutevo",
			Name:      "best_improvements_total",
			Help:      "All-time best improvements, by algorithm.",
		}, []string{"algorithm"}),
		EvaluationDuration: f.NewHistogram(prometheus.HistogramOpts{
			Namespace: "layoutevo",
			Name:      "evaluation_duration_seconds",
			Help:      "Latency of single layout evaluations served over the API.",
			Buckets:   prometheus.ExponentialBuckets(0.0001, 4, 8),
		}),
	}
}
