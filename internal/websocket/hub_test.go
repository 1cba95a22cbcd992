package websocket

import (
	"context"
	"encoding/json"
	"sync"
	"testing"
	"time"

	"helpdesk-relay/internal/logger"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func startHub(t *testing.T) *Hub {
	t.Helper()
	h := NewHub(logger.Discard())
	ctx, cancel := context.WithCancel(context.Background())
	go h.Run(ctx)
	t.Cleanup(cancel)
	return h
}

func addClient(h *Hub, id string, rooms ...string) *WSClient {
	cl := newClient(nil, h, id, logger.Discard())
	h.Register(cl)
	for _, room := range rooms {
		cl.Join(room)
	}
	return cl
}

func recvFrame(t *testing.T, cl *WSClient) Frame {
	t.Helper()
	select {
	case raw, ok := <-cl.send:
		require.True(t, ok, "send channel closed")
		var f Frame
		require.NoError(t, json.Unmarshal(raw, &f))
		return f
	case <-time.After(time.Second):
		t.Fatalf("no frame for %s", cl.ID())
		return Frame{}
	}
}

func assertNoFrame(t *testing.T, cl *WSClient) {
	t.Helper()
	select {
	case raw := <-cl.send:
		t.Fatalf("unexpected frame for %s: %s", cl.ID(), raw)
	case <-time.After(50 * time.Millisecond):
	}
}

func TestHubRoomDeliveryExcludesSender(t *testing.T) {
	h := startHub(t)
	a := addClient(h, "a", "ticket_1")
	b := addClient(h, "b", "ticket_1")
	c := addClient(h, "c", "ticket_2")

	h.ToRoomExcept("ticket_1", "a", "receive_message", map[string]string{"content": "hi"})

	f := recvFrame(t, b)
	assert.Equal(t, "receive_message", f.Event)
	assert.JSONEq(t, `{"content":"hi"}`, string(f.Data))
	assertNoFrame(t, a)
	assertNoFrame(t, c)
}

func TestHubToAllAndEmit(t *testing.T) {
	h := startHub(t)
	a := addClient(h, "a")
	b := addClient(h, "b", "chat_1")

	h.ToAll("new_chat", map[string]string{"chatId": "1"})
	assert.Equal(t, "new_chat", recvFrame(t, a).Event)
	assert.Equal(t, "new_chat", recvFrame(t, b).Event)

	a.Emit("connected", map[string]string{"socketId": "a"})
	assert.Equal(t, "connected", recvFrame(t, a).Event)
	assertNoFrame(t, b)
}

func TestHubLeaveAndUnregister(t *testing.T) {
	h := startHub(t)
	a := addClient(h, "a", "chat_1", "agent_7")
	b := addClient(h, "b", "chat_1")

	a.Leave("chat_1")
	h.ToRoom("chat_1", "new_message", nil)
	assertNoFrame(t, a)
	recvFrame(t, b)

	h.Unregister(a)
	_, ok := <-a.send
	assert.False(t, ok)

	snap, err := h.Snapshot(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, snap.Connections)
	assert.Equal(t, []RoomRes{{ID: "chat_1", Clients: 1}}, snap.Rooms)
}

func TestHubDropsSlowClient(t *testing.T) {
	h := startHub(t)
	slow := &WSClient{id: "slow", hub: h, send: make(chan []byte, 1), log: logger.Discard()}
	h.Register(slow)

	h.ToAll("one", nil)
	h.ToAll("two", nil)

	assert.Eventually(t, func() bool {
		snap, err := h.Snapshot(context.Background())
		return err == nil && snap.Connections == 0
	}, time.Second, 10*time.Millisecond)

	assert.Equal(t, "one", recvFrame(t, slow).Event)
	_, ok := <-slow.send
	assert.False(t, ok)
}

func TestHubIgnoresJoinForUnknownClient(t *testing.T) {
	h := startHub(t)
	ghost := newClient(nil, h, "ghost", logger.Discard())
	ghost.Join("chat_1")

	snap, err := h.Snapshot(context.Background())
	require.NoError(t, err)
	assert.Empty(t, snap.Rooms)
}

type recordingPublisher struct {
	mu   sync.Mutex
	sent []Delivery
}

func (p *recordingPublisher) Publish(ctx context.Context, d Delivery) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.sent = append(p.sent, d)
	return nil
}

func TestHubPublishesRoomDeliveries(t *testing.T) {
	h := NewHub(logger.Discard())
	pub := &recordingPublisher{}
	h.SetPublisher(pub)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go h.Run(ctx)

	a := addClient(h, "a")
	h.ToRoomExcept("ticket_1", "a", "receive_message", nil)
	a.Emit("message_sent", nil)
	recvFrame(t, a)

	pub.mu.Lock()
	defer pub.mu.Unlock()
	require.Len(t, pub.sent, 1)
	assert.Equal(t, "ticket_1", pub.sent[0].Room)
	assert.Equal(t, "a", pub.sent[0].Except)
}

func TestHubCallsReturnAfterStop(t *testing.T) {
	h := NewHub(logger.Discard())
	ctx, cancel := context.WithCancel(context.Background())
	stopped := make(chan struct{})
	go func() {
		h.Run(ctx)
		close(stopped)
	}()
	a := addClient(h, "a")
	cancel()
	<-stopped

	h.ToAll("late", nil)
	a.Join("chat_1")
	_, err := h.Snapshot(context.Background())
	assert.ErrorIs(t, err, ErrHubStopped)
}
