// Package telemetry provides Prometheus metrics for the chat orchestration
// path.
package telemetry

import (
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	once sync.Once

	// Counters
	DegradedFallbacks prometheus.Counter
	TurnsHandled      prometheus.Counter
	TurnsFailed       prometheus.Counter

	// Per-provider counters, labeled by provider name and outcome
	// (success, quota, error, skipped).
	ProviderAttempts *prometheus.CounterVec
	Failovers        prometheus.Counter

	// Histograms (seconds)
	TurnDuration     prometheus.Observer
	ProviderDuration prometheus.Observer
)

// Init registers metrics (idempotent).
func Init() {
	once.Do(func() {
		DegradedFallbacks = promauto.NewCounter(prometheus.CounterOpts{
			Name: "chat_degraded_fallbacks_total",
			Help: "Number of persistence operations served by the in-memory degraded store",
		})
		TurnsHandled = promauto.NewCounter(prometheus.CounterOpts{
			Name: "chat_turns_handled_total",
			Help: "Number of chat turns handled (including provider-failure turns)",
		})
		TurnsFailed = promauto.NewCounter(prometheus.CounterOpts{
			Name: "chat_turns_failed_total",
			Help: "Number of chat turns aborted with a hard error",
		})
		ProviderAttempts = promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "chat_provider_attempts_total",
			Help: "Number of provider completion attempts by provider and outcome",
		}, []string{"provider", "outcome"})
		Failovers = promauto.NewCounter(prometheus.CounterOpts{
			Name: "chat_failovers_total",
			Help: "Number of quota-triggered failover chains entered",
		})
		TurnDuration = promauto.NewHistogram(prometheus.HistogramOpts{
			Name:    "chat_turn_duration_seconds",
			Help:    "End to end chat turn duration in seconds",
			Buckets: prometheus.DefBuckets,
		})
		ProviderDuration = promauto.NewHistogram(prometheus.HistogramOpts{
			Name:    "chat_provider_duration_seconds",
			Help:    "Single provider completion attempt duration in seconds",
			Buckets: prometheus.DefBuckets,
		})
	})
}

// CountDegradedFallback increments the degradation counter if metrics are
// initialized. Safe to call from packages that may run without Init (tests).
func CountDegradedFallback() {
	if DegradedFallbacks != nil {
		DegradedFallbacks.Inc()
	}
}

// CountProviderAttempt records one provider attempt with its outcome.
func CountProviderAttempt(provider, outcome string) {
	if ProviderAttempts != nil {
		ProviderAttempts.WithLabelValues(provider, outcome).Inc()
	}
}

// CountTurnHandled increments the handled-turns counter.
func CountTurnHandled() {
	if TurnsHandled != nil {
		TurnsHandled.Inc()
	}
}

// CountTurnFailed increments the aborted-turns counter.
func CountTurnFailed() {
	if TurnsFailed != nil {
		TurnsFailed.Inc()
	}
}

// CountFailover increments the failover chain counter.
func CountFailover() {
	if Failovers != nil {
		Failovers.Inc()
	}
}

// ObserveDuration records d in obs if metrics are initialized.
func ObserveDuration(obs prometheus.Observer, d time.Duration) {
	if obs != nil {
		obs.Observe(d.Seconds())
	}
}
