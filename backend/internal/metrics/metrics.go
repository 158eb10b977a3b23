// Package metrics exposes the Prometheus collectors for the
// authorization service.
package metrics

import (
	"log"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// hodei_authz_requests_total (counter): total authorize calls received.
	RequestsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "hodei_authz_requests_total",
		Help: "Total number of authorize requests received",
	})

	// hodei_authz_decision_count{decision=ALLOW|DENY}
	DecisionCount = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "hodei_authz_decision_count",
		Help: "Number of authorization decisions made, by decision",
	}, []string{"decision"})

	// hodei_authz_latency_seconds (histogram): request duration.
	LatencyHistogram = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "hodei_authz_latency_seconds",
		Help:    "Authorize request processing latency in seconds",
		Buckets: prometheus.DefBuckets,
	})

	// hodei_authz_policy_mutations_total{op=create|update|delete}
	PolicyMutations = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "hodei_authz_policy_mutations_total",
		Help: "Number of policy store mutations, by operation",
	}, []string{"op"})

	// hodei_authz_policy_reload_total{outcome=success|failure}
	PolicyReloads = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "hodei_authz_policy_reload_total",
		Help: "Number of policy cell reloads from the store, by outcome",
	}, []string{"outcome"})

	// hodei_authz_invalidations_received_total
	InvalidationsReceived = promauto.NewCounter(prometheus.CounterOpts{
		Name: "hodei_authz_invalidations_received_total",
		Help: "Number of invalidation bus notifications received",
	})
)

// RecordDecision increments the decision counter.
func RecordDecision(decision string) {
	DecisionCount.WithLabelValues(decision).Inc()
}

// RecordPolicyMutation increments the policy-mutation counter.
func RecordPolicyMutation(op string) {
	PolicyMutations.WithLabelValues(op).Inc()
}

// RecordReload increments the reload counter with an outcome label.
func RecordReload(success bool) {
	outcome := "success"
	if !success {
		outcome = "failure"
	}
	PolicyReloads.WithLabelValues(outcome).Inc()
}

// Init logs that the collectors are registered; promauto handles
// registration itself, this just confirms it at startup.
func Init() {
	log.Println("[metrics] prometheus collectors initialized")
}
