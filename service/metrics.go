package service

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	actionsDispatched = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "cockpit",
		Name:      "actions_dispatched_total",
		Help:      "State transitions committed, by action.",
	}, []string{"action"})

	extractionOutcomes = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "cockpit",
		Name:      "extractions_total",
		Help:      "Resolved document imports, by result.",
	}, []string{"result"})

	persistenceFailures = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "cockpit",
		Name:      "persistence_failures_total",
		Help:      "Failed snapshot operations, by operation.",
	}, []string{"operation"})

	staleExtractions = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "cockpit",
		Name:      "stale_extractions_total",
		Help:      "Extraction results discarded because a newer import superseded them.",
	})
)
