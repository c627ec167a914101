// internal/rpc/metrics.go
package rpc

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	callTimeouts = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "rpc_call_timeouts_total",
		Help: "Number of RPC calls that timed out waiting for a reply.",
	}, []string{"route"})

	staleReplies = promauto.NewCounter(prometheus.CounterOpts{
		Name: "rpc_stale_replies_total",
		Help: "Replies that arrived after their call had already completed or timed out.",
	})

	handlerFailures = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "rpc_handler_failures_total",
		Help: "Handler invocations that returned an error or panicked.",
	}, []string{"route"})

	deadLettered = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "rpc_dead_lettered_total",
		Help: "Messages moved to the dead letter topic after exhausting redeliveries.",
	}, []string{"route"})

	inflightHandlers = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "rpc_inflight_handlers",
		Help: "Handler executions currently in flight.",
	})
)
