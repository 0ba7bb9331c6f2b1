// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package auth

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Outcome labels for OperationsTotal.
const (
	OutcomeSuccess = "success"
	OutcomeError   = "error"
)

// Operation labels.
const (
	OperationRegister    = "register"
	OperationLogin       = "login"
	OperationCurrentUser = "current_user"
	OperationHash        = "hash"
	OperationVerify      = "verify"
)

// OperationsTotal counts auth service calls by operation and outcome.
// Domain failures use the ErrorKind name as the outcome.
// Use RegisterMetrics to register this with a Prometheus registry.
var OperationsTotal = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Name: "holoauth_auth_operations_total",
		Help: "Total number of auth operations by outcome",
	},
	[]string{"operation", "outcome"},
)

// HashDuration observes time spent in argon2id.
// Use RegisterMetrics to register this with a Prometheus registry.
var HashDuration = prometheus.NewHistogramVec(
	prometheus.HistogramOpts{
		Name:    "holoauth_password_hash_duration_seconds",
		Help:    "Password hash and verify duration in seconds",
		Buckets: []float64{.005, .01, .025, .05, .1, .25, .5, 1, 2.5},
	},
	[]string{"operation"},
)

// RegisterMetrics registers auth package metrics with the given Prometheus registry.
// Panics if registration fails (following prometheus convention).
func RegisterMetrics(reg prometheus.Registerer) {
	reg.MustRegister(OperationsTotal)
	reg.MustRegister(HashDuration)
}

func recordOutcome(operation string, result Result, err error) {
	switch {
	case err != nil:
		OperationsTotal.WithLabelValues(operation, OutcomeError).Inc()
	case result.OK():
		OperationsTotal.WithLabelValues(operation, OutcomeSuccess).Inc()
	default:
		OperationsTotal.WithLabelValues(operation, result.Kind().String()).Inc()
	}
}
