package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

var (
	RLRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "rate_limiter_requests_total",
			Help: "Total requests seen by the rate limiter",
		},
		[]string{"endpoint"},
	)
	RLBlocked = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "rate_limiter_blocked_total",
			Help: "Total requests blocked by the rate limiter",
		},
		[]string{"endpoint"},
	)

	Commands = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "economy_commands_total",
			Help: "Player economy commands by operation and outcome",
		},
		[]string{"operation", "outcome"},
	)
	TurboReverts = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "turbo_boost_reverts_total",
			Help: "Turbo boost windows closed, by trigger (timer, sweep, lazy)",
		},
		[]string{"trigger"},
	)
	TurboRevertFailures = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "turbo_boost_revert_failures_total",
			Help: "Scheduled turbo reverts that failed and were left to the sweeper",
		},
	)
	SocketConnections = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "sync_socket_connections",
			Help: "Open real-time sync connections",
		},
	)
)

func init() {
	prometheus.MustRegister(RLRequests)
	prometheus.MustRegister(RLBlocked)
	prometheus.MustRegister(Commands)
	prometheus.MustRegister(TurboReverts)
	prometheus.MustRegister(TurboRevertFailures)
	prometheus.MustRegister(SocketConnections)
}
