// Package metrics collects node, transaction and cache metrics in a
// dedicated Prometheus registry. All methods are safe on a nil *Metrics.
package metrics

import (
	"net/http"
	"sync/atomic"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "etenda"

// Metrics holds the collectors and a few running totals for quick summaries.
type Metrics struct {
	registry *prometheus.Registry

	rpcCalls     *prometheus.CounterVec
	rpcErrors    *prometheus.CounterVec
	rpcDuration  *prometheus.HistogramVec
	transactions *prometheus.CounterVec
	txDuration   *prometheus.HistogramVec
	cacheHits    *prometheus.CounterVec
	cacheMisses  *prometheus.CounterVec
	ledgerEvents *prometheus.CounterVec

	rpcCallsTotal   atomic.Int64
	rpcErrorsTotal  atomic.Int64
	rpcLatencyNanos atomic.Int64
	hits            atomic.Int64
	misses          atomic.Int64
}

// New creates Metrics registered in a fresh registry.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	m := &Metrics{
		registry: reg,
		rpcCalls: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "rpc_calls_total",
			Help:      "Total number of JSON-RPC calls to the node",
		}, []string{"method"}),
		rpcErrors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "rpc_errors_total",
			Help:      "Total number of failed JSON-RPC calls",
		}, []string{"method"}),
		rpcDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "rpc_duration_seconds",
			Help:      "JSON-RPC call latencies in seconds",
			Buckets:   []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5},
		}, []string{"method"}),
		transactions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "transactions_total",
			Help:      "Ledger writes by operation and terminal state",
		}, []string{"operation", "state"}),
		txDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "transaction_duration_seconds",
			Help:      "Time from prepared to terminal state",
			Buckets:   []float64{1, 2, 5, 10, 30, 60, 120, 300},
		}, []string{"operation"}),
		cacheHits: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "cache_hits_total",
			Help:      "View reads served from cache",
		}, []string{"view"}),
		cacheMisses: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "cache_misses_total",
			Help:      "View reads that refreshed from the ledger",
		}, []string{"view"}),
		ledgerEvents: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "ledger_events_total",
			Help:      "Ledger events seen by the watcher",
		}, []string{"event"}),
	}
	reg.MustRegister(
		m.rpcCalls, m.rpcErrors, m.rpcDuration,
		m.transactions, m.txDuration,
		m.cacheHits, m.cacheMisses, m.ledgerEvents,
		collectors.NewGoCollector(),
	)
	return m
}

// Registry returns the registry the collectors live in.
func (m *Metrics) Registry() *prometheus.Registry {
	if m == nil {
		return nil
	}
	return m.registry
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

// RecordRPCCall records a node call with its duration and outcome.
func (m *Metrics) RecordRPCCall(method string, d time.Duration, err error) {
	if m == nil {
		return
	}
	m.rpcCalls.WithLabelValues(method).Inc()
	m.rpcDuration.WithLabelValues(method).Observe(d.Seconds())
	m.rpcCallsTotal.Add(1)
	m.rpcLatencyNanos.Add(d.Nanoseconds())
	if err != nil {
		m.rpcErrors.WithLabelValues(method).Inc()
		m.rpcErrorsTotal.Add(1)
	}
}

// RecordTransaction records a finished ledger write.
func (m *Metrics) RecordTransaction(op, state string, d time.Duration) {
	if m == nil {
		return
	}
	m.transactions.WithLabelValues(op, state).Inc()
	m.txDuration.WithLabelValues(op).Observe(d.Seconds())
}

// RecordCacheHit records a view served from cache.
func (m *Metrics) RecordCacheHit(view string) {
	if m == nil {
		return
	}
	m.cacheHits.WithLabelValues(view).Inc()
	m.hits.Add(1)
}

// RecordCacheMiss records a view that had to be refreshed.
func (m *Metrics) RecordCacheMiss(view string) {
	if m == nil {
		return
	}
	m.cacheMisses.WithLabelValues(view).Inc()
	m.misses.Add(1)
}

// RecordLedgerEvent records an event seen by the watcher.
func (m *Metrics) RecordLedgerEvent(kind string) {
	if m == nil {
		return
	}
	m.ledgerEvents.WithLabelValues(kind).Inc()
}

// Snapshot is a point-in-time copy of the running totals.
type Snapshot struct {
	RPCCallsTotal   int64   `json:"rpc_calls_total"`
	RPCErrorsTotal  int64   `json:"rpc_errors_total"`
	RPCLatencyAvgMs float64 `json:"rpc_latency_avg_ms"`
	CacheHits       int64   `json:"cache_hits"`
	CacheMisses     int64   `json:"cache_misses"`
	CacheHitRate    float64 `json:"cache_hit_rate"`
}

// Snapshot returns the running totals.
func (m *Metrics) Snapshot() Snapshot {
	if m == nil {
		return Snapshot{}
	}
	s := Snapshot{
		RPCCallsTotal:  m.rpcCallsTotal.Load(),
		RPCErrorsTotal: m.rpcErrorsTotal.Load(),
		CacheHits:      m.hits.Load(),
		CacheMisses:    m.misses.Load(),
	}
	if s.RPCCallsTotal > 0 {
		s.RPCLatencyAvgMs = float64(m.rpcLatencyNanos.Load()) / float64(s.RPCCallsTotal) / 1e6
	}
	if total := s.CacheHits + s.CacheMisses; total > 0 {
		s.CacheHitRate = float64(s.CacheHits) / float64(total) * 100
	}
	return s
}
