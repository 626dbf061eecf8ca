// Package metrics exposes Prometheus counters for learner activity.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// ProgressUpdates counts progress upserts per curriculum.
	ProgressUpdates = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "academy_progress_updates_total",
			Help: "Total number of module progress updates",
		},
		[]string{"curriculum", "completed"},
	)

	// QuizAttempts counts saved quiz attempts by outcome.
	QuizAttempts = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "academy_quiz_attempts_total",
			Help: "Total number of quiz attempts",
		},
		[]string{"result"}, // pass/fail
	)

	// CertificatesIssued counts minted certificates per level.
	CertificatesIssued = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "academy_certificates_issued_total",
			Help: "Total number of certificates issued",
		},
		[]string{"curriculum", "level"},
	)

	// SignIns counts sign-in attempts per provider and outcome.
	SignIns = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "academy_sign_in_attempts_total",
			Help: "Total number of sign-in attempts",
		},
		[]string{"status", "provider"},
	)

	// StoreFallbacks counts startups that fell back to local storage.
	StoreFallbacks = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "academy_store_fallback_total",
			Help: "Number of times the record store fell back to local storage",
		},
	)

	// ActiveSessions tracks learner sessions held by the server.
	ActiveSessions = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "academy_active_sessions_current",
			Help: "Current number of learner sessions",
		},
	)
)

// Handler serves the default registry.
func Handler() http.Handler {
	return promhttp.Handler()
}

// PassLabel maps a quiz outcome to its label value.
func PassLabel(passed bool) string {
	if passed {
		return "pass"
	}
	return "fail"
}
