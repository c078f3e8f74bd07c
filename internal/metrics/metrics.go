package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	FetchAttempts = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "quakemap_fetch_attempts_total",
		Help: "Total feed fetch attempts, labelled by source.",
	}, []string{"source"})

	FetchFailures = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "quakemap_fetch_failures_total",
		Help: "Total failed feed fetches, labelled by source and failure kind.",
	}, []string{"source", "kind"})

	EventsAccepted = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "quakemap_events_accepted_total",
		Help: "Total events accepted into the ledger, labelled by source.",
	}, []string{"source"})

	EventsRejected = promauto.NewCounter(prometheus.CounterOpts{
		Name: "quakemap_events_rejected_total",
		Help: "Total events rejected for invalid magnitude.",
	})

	EventsDuplicate = promauto.NewCounter(prometheus.CounterOpts{
		Name: "quakemap_events_duplicate_total",
		Help: "Total events dropped as duplicates of the newest ledger entry.",
	})

	SnapshotSaves = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "quakemap_snapshot_saves_total",
		Help: "Total day-snapshot save attempts, labelled by status.",
	}, []string{"status"})

	Rollovers = promauto.NewCounter(prometheus.CounterOpts{
		Name: "quakemap_rollovers_total",
		Help: "Total day-boundary rollovers performed.",
	})

	VolcanoAlerts = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "quakemap_volcano_alerts",
		Help: "Volcanic alerts currently in the watch window.",
	})

	LedgerSize = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "quakemap_ledger_events",
		Help: "Events in the current day's ledger.",
	})
)
