// Package observability provides Prometheus collectors for the application.
package observability

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// AuthAttempts counts authentication attempts by outcome
	// (success, invalid_credentials, timeout, error).
	AuthAttempts = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "supplydesk_auth_attempts_total",
		Help: "Total number of authentication attempts by outcome",
	}, []string{"outcome"})

	// ApplicationsCreated counts created supply requests by priority.
	ApplicationsCreated = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "supplydesk_applications_created_total",
		Help: "Total number of supply requests created by priority",
	}, []string{"priority"})

	// StatusTransitions counts status updates by new status and actor role.
	StatusTransitions = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "supplydesk_status_transitions_total",
		Help: "Total number of request status transitions by target status and role",
	}, []string{"status", "role"})

	// ReportDuration records report generation latency by report kind.
	ReportDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "supplydesk_report_duration_seconds",
		Help:    "Report generation latency in seconds",
		Buckets: prometheus.DefBuckets,
	}, []string{"report"})

	// RedisErrors counts Redis command failures by operation.
	RedisErrors = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "supplydesk_redis_errors_total",
		Help: "Total number of Redis errors by operation type",
	}, []string{"operation"})
)
