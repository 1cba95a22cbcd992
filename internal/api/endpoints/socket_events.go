package endpoints

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"helpdesk-relay/internal/queue"
	"helpdesk-relay/internal/relay"
	"helpdesk-relay/internal/websocket"
)

const (
	defaultEventTimeout = 30 * time.Second
	enqueueWait         = 5 * time.Second
)

// EventRelay is the part of the relay the socket transport drives.
type EventRelay interface {
	Connect(s relay.Socket, token string) relay.Identity
	HandleEvent(ctx context.Context, s relay.Socket, event string, raw json.RawMessage, ack relay.AckFunc)
	Disconnect(s relay.Socket)
}

// SocketEvents feeds websocket events into the relay through the shared
// request queue. Events of one socket may run concurrently.
type SocketEvents struct {
	relay   EventRelay
	queue   *queue.RequestQueueManager
	timeout time.Duration
	log     *slog.Logger
}

func NewSocketEvents(r EventRelay, q *queue.RequestQueueManager, log *slog.Logger) *SocketEvents {
	if log == nil {
		log = slog.Default()
	}
	return &SocketEvents{
		relay:   r,
		queue:   q,
		timeout: defaultEventTimeout,
		log:     log,
	}
}

func (e *SocketEvents) Connect(cl *websocket.WSClient, token string) {
	e.relay.Connect(cl, token)
}

func (e *SocketEvents) HandleEvent(cl *websocket.WSClient, event string, data json.RawMessage, ack func(any)) {
	var ackFn relay.AckFunc
	if ack != nil {
		ackFn = relay.AckFunc(ack)
	}

	job := queue.Job{
		Fn: func() error {
			ctx, cancel := context.WithTimeout(context.Background(), e.timeout)
			defer cancel()
			e.relay.HandleEvent(ctx, cl, event, data, ackFn)
			return nil
		},
	}

	ctx, cancel := context.WithTimeout(context.Background(), enqueueWait)
	defer cancel()
	if err := e.queue.EnqueueJob(ctx, job); err != nil {
		e.log.Warn("socket event not queued", "socket_id", cl.ID(), "event", event, "error", err)
		cl.Emit(relay.EventError, relay.ErrorPayload{
			Message: "Server is busy, try again later.",
			Code:    relay.ErrorCodeInternal,
			Event:   event,
		})
	}
}

func (e *SocketEvents) Disconnect(cl *websocket.WSClient) {
	e.relay.Disconnect(cl)
}
