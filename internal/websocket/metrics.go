package websocket

import "github.com/prometheus/client_golang/prometheus"

var (
	wsConnections = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "relay_ws_connections",
			Help: "Current number of active websocket connections.",
		},
	)
	wsRooms = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "relay_ws_rooms",
			Help: "Current number of websocket rooms.",
		},
	)
	wsMessagesDelivered = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "relay_ws_messages_delivered_total",
			Help: "Total websocket frames queued to clients.",
		},
	)
	wsClientsDropped = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "relay_ws_clients_dropped_total",
			Help: "Clients disconnected because their send buffer was full.",
		},
	)
	bridgeReceived = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "relay_ws_bridge_received_total",
			Help: "Deliveries replayed from other instances.",
		},
	)
)

func init() {
	prometheus.MustRegister(wsConnections, wsRooms, wsMessagesDelivered, wsClientsDropped, bridgeReceived)
}

func incConnections() {
	wsConnections.Inc()
}

func decConnections() {
	wsConnections.Dec()
}

func setRooms(count int) {
	wsRooms.Set(float64(count))
}

func addDelivered(count int) {
	wsMessagesDelivered.Add(float64(count))
}

func incDropped() {
	wsClientsDropped.Inc()
}
