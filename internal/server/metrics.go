package server

import "github.com/prometheus/client_golang/prometheus"

var (
	activeConnections = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "chat_relay_connections",
			Help: "Current number of connected clients across all transports.",
		},
	)
	acceptedConnections = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "chat_relay_connections_accepted_total",
			Help: "Total accepted client connections.",
		},
		[]string{"transport"},
	)
)

func init() {
	prometheus.MustRegister(activeConnections, acceptedConnections)
}

func incConnections(transport string) {
	activeConnections.Inc()
	acceptedConnections.WithLabelValues(transport).Inc()
}

func decConnections() {
	activeConnections.Dec()
}
