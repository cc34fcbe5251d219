package services

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	ingestOutcomesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "etf_ingest_outcomes_total",
		Help: "ETF ingestion attempts by outcome",
	}, []string{"outcome"})

	holdingsSavedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "etf_ingest_holdings_saved_total",
		Help: "Holding records written by ingestion runs",
	})

	ingestRunDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "etf_ingest_run_duration_seconds",
		Help:    "Wall time of one ingestion run",
		Buckets: prometheus.ExponentialBuckets(0.5, 2, 10),
	})
)

const (
	OutcomeSucceeded = "succeeded"
	OutcomeSkipped   = "skipped"
	OutcomeFailed    = "failed"
)

// IngestOutcomes exposes the outcome counter of one label for inspection.
func IngestOutcomes(outcome string) prometheus.Counter {
	return ingestOutcomesTotal.WithLabelValues(outcome)
}

// HoldingsSaved exposes the saved holdings counter for inspection.
func HoldingsSaved() prometheus.Counter {
	return holdingsSavedTotal
}
