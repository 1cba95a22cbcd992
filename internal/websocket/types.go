package websocket

import (
	"encoding/json"
	"fmt"
)

// Frame is the wire envelope in both directions. Clients set AckID when they
// expect an "ack" frame carrying the same id.
type Frame struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data,omitempty"`
	AckID *int64          `json:"ackId,omitempty"`
}

const EventAck = "ack"

// Delivery addresses one encoded frame. SocketID targets a single client;
// otherwise Room selects its members, or every client when Room is empty.
// Except skips one socket.
type Delivery struct {
	Room     string
	Except   string
	SocketID string
	Payload  []byte
}

type RoomRes struct {
	ID      string `json:"id"`
	Clients int    `json:"clients"`
}

type Snapshot struct {
	Connections int       `json:"connections"`
	Rooms       []RoomRes `json:"rooms"`
}

func EncodeFrame(event string, data any, ackID *int64) ([]byte, error) {
	raw, err := json.Marshal(data)
	if err != nil {
		return nil, fmt.Errorf("encode %s payload: %w", event, err)
	}
	return json.Marshal(Frame{Event: event, Data: raw, AckID: ackID})
}
