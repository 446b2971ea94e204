// Package metrics exposes Prometheus metrics for the Skillgate server.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// LicensesIssued counts issued licenses by tier.
	LicensesIssued = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "skillgate_licenses_issued_total",
		Help: "Licenses issued, by tier.",
	}, []string{"tier"})

	// Validations counts validation outcomes. The reason label is "ok"
	// for valid credentials.
	Validations = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "skillgate_license_validations_total",
		Help: "License validation results, by reason.",
	}, []string{"reason"})

	// RateLimitDecisions counts limiter outcomes per endpoint class.
	RateLimitDecisions = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "skillgate_ratelimit_decisions_total",
		Help: "Rate limit decisions, by class and outcome.",
	}, []string{"class", "outcome"})

	// RateLimitDegraded counts requests allowed only because the counter
	// store was unreachable.
	RateLimitDegraded = promauto.NewCounter(prometheus.CounterOpts{
		Name: "skillgate_ratelimit_degraded_total",
		Help: "Requests served in degraded (fail-open) mode.",
	})
)
