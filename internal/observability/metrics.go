// Package observability provides metrics and tracing.
package observability

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// RedisErrorRate counts Redis errors by operation type.
	RedisErrorRate = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "agora_redis_error_rate_total",
		Help: "Total number of Redis errors by operation type",
	}, []string{"operation"})

	// DatabaseQueryLatency records database query latency by store and operation.
	DatabaseQueryLatency = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "agora_database_query_latency_seconds",
		Help:    "Database query latency in seconds",
		Buckets: prometheus.DefBuckets,
	}, []string{"store", "operation"})

	// ToggleTotal counts like/follow toggles by edge kind and resulting state.
	ToggleTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "agora_toggle_total",
		Help: "Total number of edge toggles by kind and resulting state",
	}, []string{"kind", "state"})

	// ToggleConvergedTotal counts inserts that lost a race and converged on the existing edge.
	ToggleConvergedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "agora_toggle_converged_total",
		Help: "Total number of toggle inserts resolved by an existing edge",
	}, []string{"kind"})

	// RegistrationTotal counts registration attempts by outcome.
	RegistrationTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "agora_registration_total",
		Help: "Total number of registration attempts by outcome",
	}, []string{"outcome"})

	// LoginTotal counts login attempts by outcome.
	LoginTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "agora_login_total",
		Help: "Total number of login attempts by outcome",
	}, []string{"outcome"})

	// CompensationTotal counts compensating deletes run after a failed credential write.
	CompensationTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "agora_registration_compensation_total",
		Help: "Total number of registration compensations by outcome",
	}, []string{"outcome"})

	// AuthorizationDenials counts ownership and privilege checks that refused the actor.
	AuthorizationDenials = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "agora_authorization_denials_total",
		Help: "Total number of denied mutations by action",
	}, []string{"action"})

	// AdminToggleTotal counts admin privilege changes by outcome.
	AdminToggleTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "agora_admin_toggle_total",
		Help: "Total number of admin privilege toggles by outcome",
	}, []string{"outcome"})

	// AuditFailures counts audit records that could not be written.
	AuditFailures = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "agora_audit_failures_total",
		Help: "Total number of audit records that failed to persist",
	}, []string{"sink"})

	// OrphanedIdentities counts users left without a credential, by how they were handled.
	OrphanedIdentities = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "agora_orphaned_identities_total",
		Help: "Total number of users found without a credential",
	}, []string{"action"})

	// RateLimitRejections counts requests refused by a named rate limit.
	RateLimitRejections = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "agora_rate_limit_rejections_total",
		Help: "Total number of requests rejected by rate limiting",
	}, []string{"limit"})
)

// Registration and login outcomes.
const (
	OutcomeSuccess  = "success"
	OutcomeRejected = "rejected"
	OutcomeFailed   = "failed"
)

// ToggleState is the label value for a toggle's resulting state.
func ToggleState(active bool) string {
	if active {
		return "active"
	}
	return "inactive"
}
