package websocket

import (
	"context"
	"errors"
	"log/slog"
	"sort"
)

var ErrHubStopped = errors.New("websocket: hub stopped")

// Publisher forwards room and global deliveries to other relay instances.
type Publisher interface {
	Publish(ctx context.Context, d Delivery) error
}

type membership struct {
	client *WSClient
	room   string
}

// Hub owns every client and room. All state is touched only by Run; other
// goroutines talk to it through channels.
type Hub struct {
	clients    map[string]*WSClient
	rooms      map[string]map[string]*WSClient
	register   chan *WSClient
	unregister chan *WSClient
	join       chan membership
	leave      chan membership
	broadcast  chan *Delivery
	snapshot   chan chan Snapshot
	done       chan struct{}
	publisher  Publisher
	log        *slog.Logger
}

func NewHub(log *slog.Logger) *Hub {
	if log == nil {
		log = slog.Default()
	}
	return &Hub{
		clients:    make(map[string]*WSClient),
		rooms:      make(map[string]map[string]*WSClient),
		register:   make(chan *WSClient),
		unregister: make(chan *WSClient),
		join:       make(chan membership),
		leave:      make(chan membership),
		broadcast:  make(chan *Delivery, 256),
		snapshot:   make(chan chan Snapshot),
		done:       make(chan struct{}),
		log:        log,
	}
}

// SetPublisher must be called before Run.
func (h *Hub) SetPublisher(p Publisher) {
	h.publisher = p
}

func (h *Hub) Run(ctx context.Context) {
	defer func() {
		for _, client := range h.clients {
			h.remove(client)
		}
		close(h.done)
	}()

	for {
		select {
		case <-ctx.Done():
			return

		case client := <-h.register:
			if client.rooms == nil {
				client.rooms = make(map[string]struct{})
			}
			h.clients[client.ID()] = client
			incConnections()

		case client := <-h.unregister:
			h.remove(client)

		case m := <-h.join:
			if _, ok := h.clients[m.client.ID()]; !ok {
				continue
			}
			room, ok := h.rooms[m.room]
			if !ok {
				room = make(map[string]*WSClient)
				h.rooms[m.room] = room
				setRooms(len(h.rooms))
			}
			room[m.client.ID()] = m.client
			m.client.rooms[m.room] = struct{}{}

		case m := <-h.leave:
			h.leaveRoom(m.client, m.room)

		case d := <-h.broadcast:
			h.deliver(d)

		case reply := <-h.snapshot:
			reply <- h.buildSnapshot()
		}
	}
}

func (h *Hub) deliver(d *Delivery) {
	if d.SocketID != "" {
		if client, ok := h.clients[d.SocketID]; ok {
			if h.sendTo(client, d.Payload) {
				addDelivered(1)
			}
		}
		return
	}

	targets := h.clients
	if d.Room != "" {
		targets = h.rooms[d.Room]
	}
	delivered := 0
	for id, client := range targets {
		if id == d.Except {
			continue
		}
		if h.sendTo(client, d.Payload) {
			delivered++
		}
	}
	if delivered > 0 {
		addDelivered(delivered)
	}
}

// sendTo drops a client whose buffer is full; its write loop then closes the connection.
func (h *Hub) sendTo(client *WSClient, payload []byte) bool {
	select {
	case client.send <- payload:
		return true
	default:
		h.log.Warn("dropping slow websocket client", "socket_id", client.ID())
		incDropped()
		h.remove(client)
		return false
	}
}

func (h *Hub) leaveRoom(client *WSClient, name string) {
	room, ok := h.rooms[name]
	if !ok {
		return
	}
	delete(room, client.ID())
	delete(client.rooms, name)
	if len(room) == 0 {
		delete(h.rooms, name)
		setRooms(len(h.rooms))
	}
}

// remove takes client out of every room it joined and closes its send buffer.
func (h *Hub) remove(client *WSClient) {
	if _, ok := h.clients[client.ID()]; !ok {
		return
	}
	for name := range client.rooms {
		h.leaveRoom(client, name)
	}
	delete(h.clients, client.ID())
	close(client.send)
	decConnections()
}

func (h *Hub) buildSnapshot() Snapshot {
	rooms := make([]RoomRes, 0, len(h.rooms))
	for id, members := range h.rooms {
		rooms = append(rooms, RoomRes{ID: id, Clients: len(members)})
	}
	sort.Slice(rooms, func(i, j int) bool { return rooms[i].ID < rooms[j].ID })
	return Snapshot{Connections: len(h.clients), Rooms: rooms}
}

func (h *Hub) Register(client *WSClient) {
	select {
	case h.register <- client:
	case <-h.done:
	}
}

func (h *Hub) Unregister(client *WSClient) {
	select {
	case h.unregister <- client:
	case <-h.done:
	}
}

func (h *Hub) Join(client *WSClient, room string) {
	select {
	case h.join <- membership{client: client, room: room}:
	case <-h.done:
	}
}

func (h *Hub) Leave(client *WSClient, room string) {
	select {
	case h.leave <- membership{client: client, room: room}:
	case <-h.done:
	}
}

// Send delivers to clients of this instance only.
func (h *Hub) Send(d *Delivery) {
	select {
	case h.broadcast <- d:
	case <-h.done:
	}
}

func (h *Hub) Snapshot(ctx context.Context) (Snapshot, error) {
	reply := make(chan Snapshot, 1)
	select {
	case h.snapshot <- reply:
	case <-h.done:
		return Snapshot{}, ErrHubStopped
	case <-ctx.Done():
		return Snapshot{}, ctx.Err()
	}
	select {
	case s := <-reply:
		return s, nil
	case <-ctx.Done():
		return Snapshot{}, ctx.Err()
	}
}

func (h *Hub) ToRoom(room, event string, payload any) {
	h.emit(&Delivery{Room: room}, event, payload)
}

func (h *Hub) ToRoomExcept(room, exceptSocketID, event string, payload any) {
	h.emit(&Delivery{Room: room, Except: exceptSocketID}, event, payload)
}

func (h *Hub) ToAll(event string, payload any) {
	h.emit(&Delivery{}, event, payload)
}

func (h *Hub) emit(d *Delivery, event string, payload any) {
	frame, err := EncodeFrame(event, payload, nil)
	if err != nil {
		h.log.Error("failed to encode frame", "event", event, "error", err)
		return
	}
	d.Payload = frame
	h.Send(d)

	if h.publisher != nil {
		if err := h.publisher.Publish(context.Background(), *d); err != nil {
			h.log.Warn("failed to publish to other instances", "event", event, "room", d.Room, "error", err)
		}
	}
}
