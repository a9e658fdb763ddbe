// Package metrics provides Prometheus metrics for the metadata proxy
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds the collectors for graph store and cache activity. A nil
// *Metrics is valid and records nothing.
type Metrics struct {
	StoreQueriesTotal    *prometheus.CounterVec
	StoreQueryDuration   *prometheus.HistogramVec
	TransactionsTotal    *prometheus.CounterVec
	PopularityCacheTotal *prometheus.CounterVec
}

// NewMetrics creates the collectors and registers them with reg
func NewMetrics(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)

	return &Metrics{
		StoreQueriesTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "metadata_proxy_store_queries_total",
				Help: "Total number of statements sent to the graph store",
			},
			[]string{"statement", "status"},
		),
		StoreQueryDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "metadata_proxy_store_query_duration_seconds",
				Help:    "Duration of graph store statements in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"statement"},
		),
		TransactionsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "metadata_proxy_transactions_total",
				Help: "Total number of write transactions by outcome",
			},
			[]string{"outcome"},
		),
		PopularityCacheTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "metadata_proxy_popularity_cache_total",
				Help: "Popular table lookups by cache result",
			},
			[]string{"result"},
		),
	}
}

// ObserveQuery records one statement execution
func (m *Metrics) ObserveQuery(statement string, started time.Time, err error) {
	if m == nil {
		return
	}
	status := "success"
	if err != nil {
		status = "error"
	}
	m.StoreQueriesTotal.WithLabelValues(statement, status).Inc()
	m.StoreQueryDuration.WithLabelValues(statement).Observe(time.Since(started).Seconds())
}

// ObserveTransaction records whether a write transaction committed
func (m *Metrics) ObserveTransaction(err error) {
	if m == nil {
		return
	}
	outcome := "committed"
	if err != nil {
		outcome = "rolled_back"
	}
	m.TransactionsTotal.WithLabelValues(outcome).Inc()
}

// ObserveCache records a popularity cache hit or miss
func (m *Metrics) ObserveCache(hit bool) {
	if m == nil {
		return
	}
	result := "miss"
	if hit {
		result = "hit"
	}
	m.PopularityCacheTotal.WithLabelValues(result).Inc()
}
