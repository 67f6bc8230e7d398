// Package metrics exposes Prometheus instrumentation for the gateway.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// RequestsTotal counts HTTP requests by route pattern and status code.
	RequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "graphgate_http_requests_total",
		Help: "HTTP requests served, by route and status code.",
	}, []string{"route", "status"})

	// DatabaseHealthy reflects the latest advisory pool probe (1 healthy, 0 not).
	DatabaseHealthy = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "graphgate_database_healthy",
		Help: "Result of the most recent periodic database probe.",
	})

	// PoolAcquiredConns is the number of connections currently checked out.
	PoolAcquiredConns = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "graphgate_pool_acquired_connections",
		Help: "Connections currently checked out of the pool.",
	})

	// PoolIdleConns is the number of idle connections in the pool.
	PoolIdleConns = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "graphgate_pool_idle_connections",
		Help: "Idle connections held by the pool.",
	})

	// PoolTotalConns is the total number of live connections in the pool.
	PoolTotalConns = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "graphgate_pool_total_connections",
		Help: "Total live connections owned by the pool.",
	})
)

// Handler serves the Prometheus scrape endpoint.
func Handler() http.Handler {
	return promhttp.Handler()
}
