package relay

import "github.com/prometheus/client_golang/prometheus"

var knownEvents = map[string]struct{}{
	EventJoinChat:          {},
	EventJoinChatRoom:      {},
	EventJoinRoom:          {},
	EventSendMessage:       {},
	EventSendChatMessage:   {},
	EventSendTicketMessage: {},
	EventAssignChat:        {},
	EventAgentMessage:      {},
	EventJoinTicketRoom:    {},
	EventLeaveTicketRoom:   {},
}

var (
	connectionsAdmitted = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "relay_connections_admitted_total",
			Help: "Sockets admitted by role and authentication outcome",
		},
		[]string{"role", "auth"},
	)

	eventsHandled = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "relay_events_total",
			Help: "Inbound socket events by name",
		},
		[]string{"event"},
	)

	eventErrors = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "relay_event_errors_total",
			Help: "Events answered with an error, by error code",
		},
		[]string{"code"},
	)

	messagesPersisted = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "relay_messages_persisted_total",
			Help: "Messages written, by flow and sender type",
		},
		[]string{"flow", "sender_type"},
	)

	attachmentFailures = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "relay_attachment_failures_total",
			Help: "Ticket attachments skipped after a storage or persistence failure",
		},
	)
)

func init() {
	prometheus.MustRegister(connectionsAdmitted, eventsHandled, eventErrors, messagesPersisted, attachmentFailures)
}

func metricEventLabel(event string) string {
	if _, ok := knownEvents[event]; ok {
		return event
	}
	return "unknown"
}
