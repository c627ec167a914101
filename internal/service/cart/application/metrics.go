// internal/service/cart/application/metrics.go
package application

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	cartSyncSweeps = promauto.NewCounter(prometheus.CounterOpts{
		Name: "cart_sync_sweeps_total",
		Help: "Number of reconciliation sweeps executed by the cart sync job.",
	})
	cartSyncFailures = promauto.NewCounter(prometheus.CounterOpts{
		Name: "cart_sync_failures_total",
		Help: "Number of per-cart failures recorded during reconciliation sweeps.",
	})
	cartsSynced = promauto.NewCounter(prometheus.CounterOpts{
		Name: "cart_sync_carts_synced_total",
		Help: "Number of carts written to durable storage by the sync job.",
	})
	checkoutFailures = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "cart_checkout_failures_total",
		Help: "Number of failed checkouts by stage.",
	}, []string{"stage"})
)
