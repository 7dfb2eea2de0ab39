package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Исходы анализа для метки outcome.
const (
	OutcomeSuccess           = "success"
	OutcomeMissingCredential = "missing_credential"
	OutcomeMissingInput      = "missing_input"
	OutcomeRemoteFailure     = "remote_failure"
)

var (
	AnalysesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "safety_analyses_total",
			Help: "Total number of image analyses by mode and outcome",
		},
		[]string{"mode", "outcome"},
	)

	AnalysisDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "safety_analysis_duration_seconds",
			Help:    "Duration of the remote inference call in seconds",
			Buckets: []float64{0.5, 1, 2, 5, 10, 20, 30, 60, 120},
		},
		[]string{"mode"},
	)

	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "path", "status"},
	)
)
