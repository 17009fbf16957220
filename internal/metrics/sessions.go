// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	SessionsLive = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "chatgate_sessions_live",
		Help: "Number of sessions currently registered in the live map",
	})

	SessionStartsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "chatgate_session_starts_total",
		Help: "Session start attempts by outcome",
	}, []string{"outcome"}) // outcome=started|conflict|failed|error

	SessionRestoresTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "chatgate_session_restores_total",
		Help: "Sessions started by the startup recovery protocol by outcome",
	}, []string{"source", "outcome"}) // source=persisted|predefined

	SessionStatusTransitions = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "chatgate_session_status_transitions_total",
		Help: "Session status transitions by target status",
	}, []string{"status"})
)

// SetSessionsLive records the size of the live session map.
func SetSessionsLive(n int) { SessionsLive.Set(float64(n)) }

// IncSessionStart records a start attempt outcome.
func IncSessionStart(outcome string) { SessionStartsTotal.WithLabelValues(outcome).Inc() }

// IncSessionRestore records a recovery start outcome.
func IncSessionRestore(source, outcome string) {
	SessionRestoresTotal.WithLabelValues(source, outcome).Inc()
}

// IncStatusTransition records a session entering status.
func IncStatusTransition(status string) {
	if status == "" {
		status = "unknown"
	}
	SessionStatusTransitions.WithLabelValues(status).Inc()
}
