package relay

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"helpdesk-relay/internal/logger"
	"helpdesk-relay/internal/model"
)

type memoryRepository struct {
	mu               sync.Mutex
	chats            map[string]model.LiveChatItem
	chatMessages     []model.LiveChatMessageItem
	conversations    map[string]model.ConversationItem
	messages         map[string]model.MessageItem
	messageOrder     []string
	attachments      []model.AttachmentItem
	customers        map[string]model.CustomerItem
	agents           map[string]model.AgentItem
	admins           map[string]model.AdminItem
	failAttachmentAt int
}

func newMemoryRepository() *memoryRepository {
	return &memoryRepository{
		chats:         make(map[string]model.LiveChatItem),
		conversations: make(map[string]model.ConversationItem),
		messages:      make(map[string]model.MessageItem),
		customers:     make(map[string]model.CustomerItem),
		agents:        make(map[string]model.AgentItem),
		admins:        make(map[string]model.AdminItem),
	}
}

func (m *memoryRepository) FindOpenLiveChatByEmail(ctx context.Context, email string) (model.LiveChatItem, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var found *model.LiveChatItem
	for _, chat := range m.chats {
		if chat.CustomerEmail != email || !chat.Status.Open() {
			continue
		}
		c := chat
		if found == nil || c.StartedAt > found.StartedAt {
			found = &c
		}
	}
	if found == nil {
		return model.LiveChatItem{}, ErrNotFound
	}
	return *found, nil
}

func (m *memoryRepository) CreateLiveChat(ctx context.Context, chat model.LiveChatItem) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.chats[chat.ChatID] = chat
	return nil
}

func (m *memoryRepository) GetLiveChat(ctx context.Context, chatID string) (model.LiveChatItem, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	chat, ok := m.chats[chatID]
	if !ok {
		return model.LiveChatItem{}, ErrNotFound
	}
	return chat, nil
}

func (m *memoryRepository) AssignLiveChat(ctx context.Context, chatID, agentID, agentName, updatedAt string) (model.LiveChatItem, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	chat, ok := m.chats[chatID]
	if !ok {
		return model.LiveChatItem{}, ErrNotFound
	}
	chat.AssignedAgentID = agentID
	chat.AssignedAgentName = agentName
	chat.Status = model.LiveChatStatusActive
	chat.LastMessageAt = updatedAt
	m.chats[chatID] = chat
	return chat, nil
}

func (m *memoryRepository) TouchLiveChat(ctx context.Context, chatID, lastMessageAt string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	chat, ok := m.chats[chatID]
	if !ok {
		return ErrNotFound
	}
	chat.LastMessageAt = lastMessageAt
	m.chats[chatID] = chat
	return nil
}

func (m *memoryRepository) CreateLiveChatMessage(ctx context.Context, message model.LiveChatMessageItem) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.chatMessages = append(m.chatMessages, message)
	return nil
}

func (m *memoryRepository) GetConversation(ctx context.Context, ticketNumber string) (model.ConversationItem, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	conv, ok := m.conversations[ticketNumber]
	if !ok {
		return model.ConversationItem{}, ErrNotFound
	}
	return conv, nil
}

func (m *memoryRepository) TouchConversation(ctx context.Context, ticketNumber, lastMessageAt string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	conv, ok := m.conversations[ticketNumber]
	if !ok {
		return ErrNotFound
	}
	conv.LastMessageAt = lastMessageAt
	m.conversations[ticketNumber] = conv
	return nil
}

func (m *memoryRepository) CreateMessage(ctx context.Context, message model.MessageItem) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.messages[message.MessageID] = message
	m.messageOrder = append(m.messageOrder, message.MessageID)
	return nil
}

func (m *memoryRepository) GetMessage(ctx context.Context, messageID string) (model.MessageItem, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	msg, ok := m.messages[messageID]
	if !ok {
		return model.MessageItem{}, ErrNotFound
	}
	return msg, nil
}

func (m *memoryRepository) CreateAttachment(ctx context.Context, attachment model.AttachmentItem) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failAttachmentAt > 0 && len(m.attachments)+1 == m.failAttachmentAt {
		m.failAttachmentAt = 0
		return fmt.Errorf("attachments table unavailable")
	}
	m.attachments = append(m.attachments, attachment)
	return nil
}

func (m *memoryRepository) GetCustomer(ctx context.Context, customerID string) (model.CustomerItem, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	customer, ok := m.customers[customerID]
	if !ok {
		return model.CustomerItem{}, ErrNotFound
	}
	return customer, nil
}

func (m *memoryRepository) FindCustomerByEmail(ctx context.Context, email string) (model.CustomerItem, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, customer := range m.customers {
		if customer.Email == email {
			return customer, nil
		}
	}
	return model.CustomerItem{}, ErrNotFound
}

func (m *memoryRepository) GetAgent(ctx context.Context, agentID string) (model.AgentItem, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	agent, ok := m.agents[agentID]
	if !ok {
		return model.AgentItem{}, ErrNotFound
	}
	return agent, nil
}

func (m *memoryRepository) GetAdmin(ctx context.Context, adminID string) (model.AdminItem, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	admin, ok := m.admins[adminID]
	if !ok {
		return model.AdminItem{}, ErrNotFound
	}
	return admin, nil
}

func (m *memoryRepository) ticketMessages() []model.MessageItem {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]model.MessageItem, 0, len(m.messageOrder))
	for _, id := range m.messageOrder {
		out = append(out, m.messages[id])
	}
	return out
}

type emission struct {
	Event   string
	Payload any
}

type fakeSocket struct {
	id      string
	mu      sync.Mutex
	rooms   map[string]bool
	emitted []emission
	data    any
}

func newFakeSocket(id string) *fakeSocket {
	return &fakeSocket{id: id, rooms: make(map[string]bool)}
}

func (s *fakeSocket) ID() string { return s.id }

func (s *fakeSocket) Join(room string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.rooms[room] = true
}

func (s *fakeSocket) Leave(room string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.rooms, room)
}

func (s *fakeSocket) Emit(event string, payload any) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.emitted = append(s.emitted, emission{Event: event, Payload: payload})
}

func (s *fakeSocket) SetData(v any) { s.data = v }
func (s *fakeSocket) Data() any     { return s.data }

func (s *fakeSocket) inRoom(room string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.rooms[room]
}

func (s *fakeSocket) events(name string) []any {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []any
	for _, e := range s.emitted {
		if e.Event == name {
			out = append(out, e.Payload)
		}
	}
	return out
}

type broadcast struct {
	Room    string
	Except  string
	All     bool
	Event   string
	Payload any
}

type recordingBroadcaster struct {
	mu   sync.Mutex
	sent []broadcast
}

func (b *recordingBroadcaster) ToRoom(room, event string, payload any) {
	b.record(broadcast{Room: room, Event: event, Payload: payload})
}

func (b *recordingBroadcaster) ToRoomExcept(room, except, event string, payload any) {
	b.record(broadcast{Room: room, Except: except, Event: event, Payload: payload})
}

func (b *recordingBroadcaster) ToAll(event string, payload any) {
	b.record(broadcast{All: true, Event: event, Payload: payload})
}

func (b *recordingBroadcaster) record(msg broadcast) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.sent = append(b.sent, msg)
}

func (b *recordingBroadcaster) find(event string) []broadcast {
	b.mu.Lock()
	defer b.mu.Unlock()
	var out []broadcast
	for _, msg := range b.sent {
		if msg.Event == event {
			out = append(out, msg)
		}
	}
	return out
}

type memoryFileStore struct {
	mu    sync.Mutex
	files map[string][]byte
}

func (f *memoryFileStore) Save(ctx context.Context, dir, filename string, data []byte) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.files == nil {
		f.files = make(map[string][]byte)
	}
	key := dir + "/" + filename
	f.files[key] = data
	return "/uploads/" + key, nil
}

var fixedNow = time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

const testSecret = "relay-test-secret"

type testEnv struct {
	relay *Relay
	repo  *memoryRepository
	bus   *recordingBroadcaster
	files *memoryFileStore
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	repo := newMemoryRepository()
	bus := &recordingBroadcaster{}
	files := &memoryFileStore{}
	r := New(Options{
		Repository:  repo,
		Broadcaster: bus,
		Files:       files,
		JWTSecret:   testSecret,
		Logger:      logger.Discard(),
		Now:         func() time.Time { return fixedNow },
	})
	return &testEnv{relay: r, repo: repo, bus: bus, files: files}
}
