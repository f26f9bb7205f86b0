package rooms

import "github.com/prometheus/client_golang/prometheus"

var (
	openRooms = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "chat_relay_open_rooms",
			Help: "Current number of live rooms.",
		},
	)
	roomMembers = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "chat_relay_room_members",
			Help: "Current number of room memberships across all rooms.",
		},
	)
	messagesBroadcast = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "chat_relay_messages_broadcast_total",
			Help: "Total chat messages accepted for broadcast.",
		},
	)
	eventsDelivered = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "chat_relay_events_delivered_total",
			Help: "Total envelopes enqueued to member outbound queues.",
		},
	)
	membersEvicted = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "chat_relay_members_evicted_total",
			Help: "Total members evicted because their outbound queue was full.",
		},
	)
)

func init() {
	prometheus.MustRegister(openRooms, roomMembers, messagesBroadcast, eventsDelivered, membersEvicted)
}

func setOpenRooms(count int) {
	openRooms.Set(float64(count))
}

func incMembers() {
	roomMembers.Inc()
}

func decMembers() {
	roomMembers.Dec()
}

func incBroadcast() {
	messagesBroadcast.Inc()
}

func incDelivered() {
	eventsDelivered.Inc()
}

func incEvicted() {
	membersEvicted.Inc()
}
