package service

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	ordersCompleted = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "checkout_orders_total",
		Help: "Checkout completions by mode (api or fallback)",
	}, []string{"mode"})

	inventoryAdjustments = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "checkout_inventory_adjustments_total",
		Help: "Per-variant inventory adjustments by result",
	}, []string{"result"})

	notifications = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "checkout_notifications_total",
		Help: "Order confirmation emails by result",
	}, []string{"result"})

	checkoutDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "checkout_duration_seconds",
		Help:    "End-to-end checkout pipeline duration",
		Buckets: prometheus.DefBuckets,
	})
)
