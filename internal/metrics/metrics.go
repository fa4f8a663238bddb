// Copyright © 2026 ソニーレベル <C7kali3@gmail.com>
// Prometheus instrumentation for imports and container commands

package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics receives engine and transport observations
type Metrics interface {
	ObserveExec(program string, exitCode int, timedOut bool, duration time.Duration)
	ObserveOperation(op, outcome string, duration time.Duration)
	IncCleanupFailure(op string)
	ObserveRequest(method, route, status string, duration time.Duration)
}

// Noop implements Metrics without emitting anything.
type Noop struct{}

func (Noop) ObserveExec(string, int, bool, time.Duration)         {}
func (Noop) ObserveOperation(string, string, time.Duration)       {}
func (Noop) IncCleanupFailure(string)                             {}
func (Noop) ObserveRequest(string, string, string, time.Duration) {}

// Prom implements Metrics on a private registry
type Prom struct {
	registry *prometheus.Registry

	execCalls       *prometheus.CounterVec
	execDuration    *prometheus.HistogramVec
	operations      *prometheus.CounterVec
	opDuration      *prometheus.HistogramVec
	cleanupFailures *prometheus.CounterVec
	requests        *prometheus.CounterVec
	requestLatency  *prometheus.HistogramVec
}

// NewProm registers every collector under namespace
func NewProm(namespace string) *Prom {
	p := &Prom{
		registry: prometheus.NewRegistry(),
		execCalls: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "exec_calls_total",
			Help:      "Container commands by program and result",
		}, []string{"program", "result"}),
		execDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "exec_duration_seconds",
			Help:      "Container command latency by program",
			Buckets:   []float64{0.05, 0.1, 0.5, 1, 5, 10, 30, 60, 300, 600},
		}, []string{"program"}),
		operations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "operations_total",
			Help:      "Import operations by name and outcome",
		}, []string{"op", "outcome"}),
		opDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "operation_duration_seconds",
			Help:      "Import operation latency",
			Buckets:   prometheus.DefBuckets,
		}, []string{"op"}),
		cleanupFailures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "cleanup_failures_total",
			Help:      "Best-effort cleanup steps that failed",
		}, []string{"op"}),
		requests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "HTTP requests by method/route/status",
		}, []string{"method", "route", "status"}),
		requestLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request latency",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method", "route"}),
	}
	p.registry.MustRegister(
		p.execCalls, p.execDuration,
		p.operations, p.opDuration,
		p.cleanupFailures,
		p.requests, p.requestLatency,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return p
}

func execResult(exitCode int, timedOut bool) string {
	switch {
	case timedOut:
		return "timeout"
	case exitCode == 0:
		return "ok"
	case exitCode < 0:
		return "error"
	default:
		return "exit_" + strconv.Itoa(exitCode)
	}
}

func (p *Prom) ObserveExec(program string, exitCode int, timedOut bool, duration time.Duration) {
	p.execCalls.WithLabelValues(program, execResult(exitCode, timedOut)).Inc()
	p.execDuration.WithLabelValues(program).Observe(duration.Seconds())
}

func (p *Prom) ObserveOperation(op, outcome string, duration time.Duration) {
	p.operations.WithLabelValues(op, outcome).Inc()
	p.opDuration.WithLabelValues(op).Observe(duration.Seconds())
}

func (p *Prom) IncCleanupFailure(op string) {
	p.cleanupFailures.WithLabelValues(op).Inc()
}

func (p *Prom) ObserveRequest(method, route, status string, duration time.Duration) {
	p.requests.WithLabelValues(method, route, status).Inc()
	p.requestLatency.WithLabelValues(method, route).Observe(duration.Seconds())
}

// Handler returns an HTTP handler for /metrics.
func (p *Prom) Handler() http.Handler {
	return promhttp.HandlerFor(p.registry, promhttp.HandlerOpts{Registry: p.registry})
}
