// Package metrics exposes Prometheus counters for the intake dialogue.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// turnsTotal counts processed turns by the stage reached after the turn.
	turnsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "intake",
		Name:      "turns_total",
		Help:      "Conversation turns processed, by resulting stage",
	}, []string{"stage"})

	// classificationsTotal counts classifications by deciding rule and category.
	classificationsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "intake",
		Name:      "classifications_total",
		Help:      "Query classifications by source and category",
	}, []string{"source", "category"})

	// collaboratorFailuresTotal counts recovered failures of external collaborators.
	collaboratorFailuresTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "intake",
		Name:      "collaborator_failures_total",
		Help:      "Failed collaborator calls that were recovered with a fallback",
	}, []string{"collaborator"})
)

func ObserveTurn(stage string) {
	turnsTotal.WithLabelValues(stage).Inc()
}

func ObserveClassification(source, category string) {
	classificationsTotal.WithLabelValues(source, category).Inc()
}

func ObserveCollaboratorFailure(collaborator string) {
	collaboratorFailuresTotal.WithLabelValues(collaborator).Inc()
}
