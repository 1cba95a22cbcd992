package websocket

import (
	"encoding/json"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

const (
	sendBufferSize = 64
	pingInterval   = 30 * time.Second
	pongWait       = 2 * pingInterval
	writeWait      = 10 * time.Second
)

// EventHandler receives the lifecycle and inbound events of every client.
// Connect runs before the read loop starts.
type EventHandler interface {
	Connect(cl *WSClient, token string)
	HandleEvent(cl *WSClient, event string, data json.RawMessage, ack func(any))
	Disconnect(cl *WSClient)
}

type WSClient struct {
	Conn *websocket.Conn

	id    string
	hub   *Hub
	send  chan []byte
	rooms map[string]struct{} // owned by the hub goroutine
	done  chan struct{}
	log   *slog.Logger

	mu       sync.Mutex // guards Conn writes
	isClosed bool

	dataMu sync.RWMutex
	data   any
}

func newClient(conn *websocket.Conn, hub *Hub, id string, log *slog.Logger) *WSClient {
	return &WSClient{
		Conn:  conn,
		id:    id,
		hub:   hub,
		send:  make(chan []byte, sendBufferSize),
		rooms: make(map[string]struct{}),
		done:  make(chan struct{}),
		log:   log.With("socket_id", id),
	}
}

func (cl *WSClient) ID() string {
	return cl.id
}

func (cl *WSClient) Join(room string) {
	cl.hub.Join(cl, room)
}

func (cl *WSClient) Leave(room string) {
	cl.hub.Leave(cl, room)
}

func (cl *WSClient) Emit(event string, payload any) {
	frame, err := EncodeFrame(event, payload, nil)
	if err != nil {
		cl.log.Error("failed to encode frame", "event", event, "error", err)
		return
	}
	cl.hub.Send(&Delivery{SocketID: cl.id, Payload: frame})
}

func (cl *WSClient) SetData(v any) {
	cl.dataMu.Lock()
	defer cl.dataMu.Unlock()
	cl.data = v
}

func (cl *WSClient) Data() any {
	cl.dataMu.RLock()
	defer cl.dataMu.RUnlock()
	return cl.data
}

func (cl *WSClient) ack(id int64) func(any) {
	return func(payload any) {
		frame, err := EncodeFrame(EventAck, payload, &id)
		if err != nil {
			cl.log.Error("failed to encode ack", "ack_id", id, "error", err)
			return
		}
		cl.hub.Send(&Delivery{SocketID: cl.id, Payload: frame})
	}
}

func (cl *WSClient) keepAlive() {
	ticker := time.NewTicker(pingInterval)
	defer ticker.Stop()

	for {
		select {
		case <-cl.done:
			return
		case <-ticker.C:
			cl.mu.Lock()
			if cl.isClosed {
				cl.mu.Unlock()
				return
			}
			err := cl.Conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(writeWait))
			cl.mu.Unlock()

			if err != nil {
				cl.log.Debug("ping failed", "error", err)
				return
			}
		}
	}
}

func (cl *WSClient) writeMessage() {
	defer func() {
		cl.mu.Lock()
		cl.isClosed = true
		cl.Conn.Close()
		cl.mu.Unlock()
	}()

	for {
		select {
		case <-cl.done:
			return
		case msg, ok := <-cl.send:
			cl.mu.Lock()
			if cl.isClosed {
				cl.mu.Unlock()
				return
			}
			_ = cl.Conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				// The hub dropped this client.
				_ = cl.Conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseTryAgainLater, "too slow"))
				cl.mu.Unlock()
				return
			}
			err := cl.Conn.WriteMessage(websocket.TextMessage, msg)
			cl.mu.Unlock()

			if err != nil {
				cl.log.Debug("write failed", "error", err)
				return
			}
		}
	}
}

func (cl *WSClient) readMessage(events EventHandler, maxMessageBytes int64) {
	defer func() {
		if r := recover(); r != nil {
			cl.log.Error("recovered from panic in read loop", "panic", r)
		}

		close(cl.done)
		cl.hub.Unregister(cl)
		events.Disconnect(cl)
	}()

	cl.Conn.SetReadLimit(maxMessageBytes)
	_ = cl.Conn.SetReadDeadline(time.Now().Add(pongWait))
	cl.Conn.SetPongHandler(func(string) error {
		return cl.Conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		_, message, err := cl.Conn.ReadMessage()
		if err != nil {
			var closeErr *websocket.CloseError
			if errors.As(err, &closeErr) &&
				(closeErr.Code == websocket.CloseNormalClosure ||
					closeErr.Code == websocket.CloseGoingAway ||
					closeErr.Code == websocket.CloseNoStatusReceived) {
				break
			}
			cl.log.Debug("read failed", "error", err)
			break
		}

		var frame Frame
		if err := json.Unmarshal(message, &frame); err != nil || frame.Event == "" {
			cl.log.Debug("ignoring malformed frame", "error", err)
			continue
		}

		var ack func(any)
		if frame.AckID != nil {
			ack = cl.ack(*frame.AckID)
		}
		events.HandleEvent(cl, frame.Event, frame.Data, ack)
	}
}
