package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const (
	ResultSuccess = "success"
	ResultAlready = "already"
	ResultReplay  = "replay"
	ResultError   = "error"
)

var (
	workflowTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "shop_workflow_total",
			Help: "Workflow invocations by operation and result",
		},
		[]string{"operation", "result"},
	)

	balanceCredited = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "shop_balance_credited_ks_total",
			Help: "Currency units credited by approved charge requests",
		},
	)

	balanceDebited = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "shop_balance_debited_ks_total",
			Help: "Currency units debited by purchases",
		},
	)

	httpRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "shop_http_requests_total",
			Help: "HTTP requests by method, route and status",
		},
		[]string{"method", "route", "status"},
	)

	httpDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "shop_http_request_duration_seconds",
			Help:    "HTTP request latency",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "route"},
	)
)

func RecordWorkflow(operation, result string) {
	workflowTotal.WithLabelValues(operation, result).Inc()
}

func AddCredited(amount int64) {
	balanceCredited.Add(float64(amount))
}

func AddDebited(amount int64) {
	balanceDebited.Add(float64(amount))
}

func ObserveHTTP(method, route, status string, seconds float64) {
	httpRequests.WithLabelValues(method, route, status).Inc()
	httpDuration.WithLabelValues(method, route).Observe(seconds)
}

// PoolStats is a point-in-time view of the database connection pool
type PoolStats struct {
	Total    int32
	Idle     int32
	Acquired int32
}

// RegisterDBPool exposes connection pool gauges; stats is called on every scrape
func RegisterDBPool(reg prometheus.Registerer, stats func() PoolStats) {
	factory := promauto.With(reg)

	factory.NewGaugeFunc(prometheus.GaugeOpts{
		Name: "shop_db_pool_total_connections",
		Help: "Open connections in the database pool",
	}, func() float64 { return float64(stats().Total) })

	factory.NewGaugeFunc(prometheus.GaugeOpts{
		Name: "shop_db_pool_idle_connections",
		Help: "Idle connections in the database pool",
	}, func() float64 { return float64(stats().Idle) })

	factory.NewGaugeFunc(prometheus.GaugeOpts{
		Name: "shop_db_pool_acquired_connections",
		Help: "Connections currently checked out of the database pool",
	}, func() float64 { return float64(stats().Acquired) })
}
