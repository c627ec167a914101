// internal/service/inventory/application/metrics.go
package application

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	reservationClamps = promauto.NewCounter(prometheus.CounterOpts{
		Name: "inventory_reservation_clamps_total",
		Help: "Times an AdjustStock lowered on-hand below reserved and the reservation was clamped.",
	})

	casConflicts = promauto.NewCounter(prometheus.CounterOpts{
		Name: "inventory_cas_conflicts_total",
		Help: "Optimistic version conflicts observed while applying stock mutations.",
	})

	lowStockEvents = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "inventory_low_stock_events_total",
		Help: "Mutations that left a product below its low stock threshold.",
	}, []string{"product_id"})
)
