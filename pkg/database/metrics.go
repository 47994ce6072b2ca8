package database

import (
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// RegisterPoolMetrics exposes pgxpool statistics as Prometheus gauges labeled
// with the owning service name. Call once per pool at startup.
func RegisterPoolMetrics(pool *pgxpool.Pool, service string) {
	labels := prometheus.Labels{"service": service}

	promauto.NewGaugeFunc(prometheus.GaugeOpts{
		Name:        "db_pool_total_conns",
		Help:        "Total number of connections in the pool",
		ConstLabels: labels,
	}, func() float64 {
		return float64(pool.Stat().TotalConns())
	})

	promauto.NewGaugeFunc(prometheus.GaugeOpts{
		Name:        "db_pool_idle_conns",
		Help:        "Number of idle connections in the pool",
		ConstLabels: labels,
	}, func() float64 {
		return float64(pool.Stat().IdleConns())
	})

	promauto.NewGaugeFunc(prometheus.GaugeOpts{
		Name:        "db_pool_acquired_conns",
		Help:        "Number of connections currently acquired from the pool",
		ConstLabels: labels,
	}, func() float64 {
		return float64(pool.Stat().AcquiredConns())
	})

	promauto.NewGaugeFunc(prometheus.GaugeOpts{
		Name:        "db_pool_max_conns",
		Help:        "Maximum size of the pool",
		ConstLabels: labels,
	}, func() float64 {
		return float64(pool.Stat().MaxConns())
	})
}
