// Package metrics holds the Prometheus collectors exported on /metrics.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Finalize outcomes.
const (
	OutcomeUsed         = "used"
	OutcomeExpired      = "expired"
	OutcomeAlreadyFinal = "already_finalized"
	OutcomeShopMismatch = "shop_mismatch"
	OutcomeNotFound     = "not_found"
	OutcomeError        = "error"
)

// RedemptionsReserved counts successful coupon activations.
var RedemptionsReserved = promauto.NewCounter(prometheus.CounterOpts{
	Namespace: "loyalty",
	Subsystem: "redemptions",
	Name:      "reserved_total",
	Help:      "Total redemptions reserved (points debited, hold created).",
})

// RedemptionsFinalized counts POS finalize attempts by outcome.
var RedemptionsFinalized = promauto.NewCounterVec(prometheus.CounterOpts{
	Namespace: "loyalty",
	Subsystem: "redemptions",
	Name:      "finalized_total",
	Help:      "Total POS finalize attempts by outcome.",
}, []string{"outcome"})

// RedemptionsExpired counts rows moved to expired by the sweep.
var RedemptionsExpired = promauto.NewCounter(prometheus.CounterOpts{
	Namespace: "loyalty",
	Subsystem: "redemptions",
	Name:      "expired_total",
	Help:      "Total active redemptions expired by the periodic sweep.",
})

// CodeExhausted must alert: the code generator failed ten times in a row.
var CodeExhausted = promauto.NewCounter(prometheus.CounterOpts{
	Namespace: "loyalty",
	Subsystem: "redemption_code",
	Name:      "exhausted_total",
	Help:      "Reservations that failed because no unique redemption code could be drawn.",
})

// CompensationFailures must alert: points were debited without a redemption.
var CompensationFailures = promauto.NewCounter(prometheus.CounterOpts{
	Namespace: "loyalty",
	Subsystem: "ledger",
	Name:      "compensation_failures_total",
	Help:      "Debits that could not be rolled back after a failed reservation.",
})

// HTTPRequestDuration tracks request latency per route.
var HTTPRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
	Namespace: "loyalty",
	Subsystem: "http",
	Name:      "request_duration_seconds",
	Help:      "HTTP request latency by method, route and status.",
	Buckets:   prometheus.DefBuckets,
}, []string{"method", "route", "status"})
