package main

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const metricsNamespace = "qserver"

var (
	// Session metrics
	sessionsActive = promauto.NewGauge(
		prometheus.GaugeOpts{
			Namespace: metricsNamespace,
			Subsystem: "session",
			Name:      "active",
			Help:      "Number of sessions currently connected",
		},
	)

	sessionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Subsystem: "session",
			Name:      "total",
			Help:      "Total number of sessions by how they ended",
		},
		// end: "quit", "disconnect" or "error"
		[]string{"end"},
	)

	connectionsRejected = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Subsystem: "session",
			Name:      "rejected_total",
			Help:      "Connections turned away because the session limit was reached",
		},
	)

	// Command metrics
	commandsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Subsystem: "interpreter",
			Name:      "commands_total",
			Help:      "Total number of commands processed",
		},
		// outcome: "ok", "parse_error", "usage_error" or "internal_error"
		[]string{"op", "outcome"},
	)

	// Flush metrics
	flushDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: metricsNamespace,
			Subsystem: "compiler",
			Name:      "flush_duration_seconds",
			Help:      "Time taken to compile and execute one batch",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"backend", "status"},
	)

	flushQubits = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: metricsNamespace,
			Subsystem: "compiler",
			Name:      "circuit_qubits",
			Help:      "Number of qubits declared by each executed circuit",
			Buckets:   []float64{0, 1, 2, 4, 8, 12, 16, 20, 24, 28},
		},
	)

	flushStatements = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: metricsNamespace,
			Subsystem: "compiler",
			Name:      "circuit_statements",
			Help:      "Number of statements in each executed circuit",
			Buckets:   prometheus.ExponentialBuckets(1, 2, 12),
		},
	)
)
