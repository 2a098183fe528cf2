package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// Store Metrics
	StoreOperationsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "poker_store_operations_total",
		Help: "The total number of calls made to the remote store",
	}, []string{"operation"})
	StoreErrorsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "poker_store_errors_total",
		Help: "The total number of failed calls to the remote store",
	}, []string{"operation"})
	StoreLatency = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "poker_store_latency_seconds",
		Help:    "Latency of remote store calls",
		Buckets: prometheus.DefBuckets,
	}, []string{"operation"})

	// Import Metrics
	ImportStepsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "poker_import_steps_total",
		Help: "Historical import steps by entity and outcome",
	}, []string{"entity", "outcome"})

	// Event Metrics
	EventsPublishedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "poker_events_published_total",
		Help: "The total number of change events published",
	}, []string{"kind"})
	EventPublishErrorsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "poker_event_publish_errors_total",
		Help: "The total number of change events that failed to publish",
	})
	EventsConsumedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "poker_events_consumed_total",
		Help: "The total number of change events consumed by the auditor",
	})

	// Ledger Metrics
	LedgerDiscrepancy = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "poker_ledger_discrepancy",
		Help: "Sum of cash out minus buy in over all results",
	})
	LedgerVolume = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "poker_ledger_volume",
		Help: "Sum of buy ins over all results",
	})
	LedgerUnbalanced = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "poker_ledger_unbalanced",
		Help: "1 when the discrepancy is above tolerance",
	})
)
