package relay

import (
	"context"
	"encoding/base64"
	"testing"

	"helpdesk-relay/internal/model"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func seedTicket(env *testEnv, conv model.ConversationItem) {
	env.repo.conversations[conv.TicketNumber] = conv
}

func TestSendTicketMessageBroadcastsToRoomExceptSender(t *testing.T) {
	env := newTestEnv(t)
	seedTicket(env, model.ConversationItem{TicketNumber: "T-1", Status: model.ConversationStatusOpen, CustomerID: "cust-1"})
	env.repo.customers["cust-1"] = model.CustomerItem{CustomerID: "cust-1", Name: "Ann", Email: "ann@x.com"}
	s := newFakeSocket("sock-a")

	err := env.relay.SendTicketMessage(context.Background(), s, TicketMessageRequest{
		ConversationID: "T-1",
		SenderType:     "customer",
		Content:        "my printer is on fire",
		TempID:         "tmp-1",
	})
	require.NoError(t, err)

	msgs := env.repo.ticketMessages()
	require.Len(t, msgs, 1)
	assert.Equal(t, "cust-1", msgs[0].SenderID)
	assert.Equal(t, defaultMessageType, msgs[0].Type)

	received := env.bus.find(EventReceiveMessage)
	require.Len(t, received, 1)
	assert.Equal(t, TicketRoom("T-1"), received[0].Room)
	assert.Equal(t, "sock-a", received[0].Except)
	payload := received[0].Payload.(TicketMessagePayload)
	assert.Equal(t, "Ann", payload.SenderName)
	assert.Equal(t, "tmp-1", payload.TempID)

	sent := s.events(EventMessageSent)
	require.Len(t, sent, 1)
	assert.Equal(t, MessageSentPayload{ID: msgs[0].MessageID, ConversationID: "T-1", Success: true, TempID: "tmp-1"}, sent[0])

	assert.Equal(t, fixedNow.Format(model.TimeLayout), env.repo.conversations["T-1"].LastMessageAt)
}

func TestSendTicketMessageUsesPayloadSocketID(t *testing.T) {
	env := newTestEnv(t)
	seedTicket(env, model.ConversationItem{TicketNumber: "T-1", Status: model.ConversationStatusOpen})

	err := env.relay.SendTicketMessage(context.Background(), newFakeSocket("server-side"), TicketMessageRequest{
		ConversationID: "T-1",
		SenderType:     "admin",
		Content:        "hello",
		SocketID:       "browser-tab",
	})
	require.NoError(t, err)

	received := env.bus.find(EventReceiveMessage)
	require.Len(t, received, 1)
	assert.Equal(t, "browser-tab", received[0].Except)
	assert.Equal(t, fallbackAdminName, received[0].Payload.(TicketMessagePayload).SenderName)
}

func TestSendTicketMessageRejectsTerminalTickets(t *testing.T) {
	for _, status := range []model.ConversationStatus{model.ConversationStatusClosed, model.ConversationStatusResolved} {
		t.Run(string(status), func(t *testing.T) {
			env := newTestEnv(t)
			seedTicket(env, model.ConversationItem{TicketNumber: "T-9", Status: status})

			err := env.relay.SendTicketMessage(context.Background(), newFakeSocket("s"), TicketMessageRequest{
				ConversationID: "T-9",
				SenderType:     "customer",
				Content:        "hello?",
			})
			require.Error(t, err)
			assert.Equal(t, ErrorCodeTicketClosed, asError(err).Code)
			assert.Empty(t, env.repo.ticketMessages())
			assert.Empty(t, env.bus.find(EventReceiveMessage))
		})
	}
}

func TestSendTicketMessageAgentReadOnlyLock(t *testing.T) {
	env := newTestEnv(t)
	seedTicket(env, model.ConversationItem{TicketNumber: "T-2", Status: model.ConversationStatusInProgress, AssigneeID: "agent-1"})

	err := env.relay.SendTicketMessage(context.Background(), newFakeSocket("s"), TicketMessageRequest{
		ConversationID: "T-2",
		SenderType:     "agent",
		SenderID:       "agent-2",
		Content:        "let me take this",
	})
	require.Error(t, err)
	relayErr := asError(err)
	assert.Equal(t, ErrorCodeForbidden, relayErr.Code)
	assert.Contains(t, relayErr.Message, "read-only")
	assert.Empty(t, env.repo.ticketMessages())

	err = env.relay.SendTicketMessage(context.Background(), newFakeSocket("s"), TicketMessageRequest{
		ConversationID: "T-2",
		SenderType:     "agent",
		SenderID:       "agent-1",
		Content:        "on it",
	})
	require.NoError(t, err)
	assert.Len(t, env.repo.ticketMessages(), 1)
}

func TestSendTicketMessageAgentIDFromToken(t *testing.T) {
	env := newTestEnv(t)
	seedTicket(env, model.ConversationItem{TicketNumber: "T-2", Status: model.ConversationStatusOpen, AssigneeID: "agent-1"})
	env.repo.agents["agent-1"] = model.AgentItem{AgentID: "agent-1", Name: "Bob"}
	s := newFakeSocket("s")
	s.SetData(Identity{Role: RoleAgent, UserID: "agent-1", Authenticated: true})

	err := env.relay.SendTicketMessage(context.Background(), s, TicketMessageRequest{
		ConversationID: "T-2",
		SenderType:     "agent",
		Content:        "on it",
	})
	require.NoError(t, err)
	received := env.bus.find(EventReceiveMessage)
	require.Len(t, received, 1)
	assert.Equal(t, "Bob", received[0].Payload.(TicketMessagePayload).SenderName)
}

func TestSendTicketMessageResolvesCustomerEmail(t *testing.T) {
	env := newTestEnv(t)
	seedTicket(env, model.ConversationItem{TicketNumber: "T-3", Status: model.ConversationStatusOpen})
	env.repo.customers["c-42"] = model.CustomerItem{CustomerID: "c-42", Name: "Ann", Email: "ann@x.com"}

	err := env.relay.SendTicketMessage(context.Background(), newFakeSocket("s"), TicketMessageRequest{
		ConversationID: "T-3",
		SenderType:     "customer",
		SenderID:       "ann@x.com",
		Content:        "hi",
	})
	require.NoError(t, err)

	msgs := env.repo.ticketMessages()
	require.Len(t, msgs, 1)
	assert.Equal(t, "c-42", msgs[0].SenderID)
}

func TestSendTicketMessageResolvesMixedCaseEmail(t *testing.T) {
	env := newTestEnv(t)
	seedTicket(env, model.ConversationItem{TicketNumber: "T-3", Status: model.ConversationStatusOpen})
	env.repo.customers["c-7"] = model.CustomerItem{CustomerID: "c-7", Name: "Ann", Email: "Ann@X.com"}

	err := env.relay.SendTicketMessage(context.Background(), newFakeSocket("s"), TicketMessageRequest{
		ConversationID: "T-3",
		SenderType:     "customer",
		SenderID:       "Ann@X.com",
		Content:        "hi",
	})
	require.NoError(t, err)

	msgs := env.repo.ticketMessages()
	require.Len(t, msgs, 1)
	assert.Equal(t, "c-7", msgs[0].SenderID)
}

func TestSendTicketMessageKeepsUUIDSender(t *testing.T) {
	env := newTestEnv(t)
	seedTicket(env, model.ConversationItem{TicketNumber: "T-3", Status: model.ConversationStatusOpen})
	id := "6f1c2a7e-8d4b-4c1e-9a3f-2b5d7e9f0a1c"

	err := env.relay.SendTicketMessage(context.Background(), newFakeSocket("s"), TicketMessageRequest{
		ConversationID: "T-3",
		SenderType:     "customer",
		SenderID:       ID(id),
		Content:        "hi",
	})
	require.NoError(t, err)
	assert.Equal(t, id, env.repo.ticketMessages()[0].SenderID)
}

func TestSendTicketMessageNotifiesAssignee(t *testing.T) {
	env := newTestEnv(t)
	seedTicket(env, model.ConversationItem{
		TicketNumber: "T-4",
		Status:       model.ConversationStatusOpen,
		AssigneeID:   "agent-7",
		CustomerID:   "c-1",
		Subject:      "Broken login",
	})
	env.repo.customers["c-1"] = model.CustomerItem{CustomerID: "c-1", Name: "Ann"}

	err := env.relay.SendTicketMessage(context.Background(), newFakeSocket("s"), TicketMessageRequest{
		ConversationID: "T-4",
		SenderType:     "customer",
		Content:        "any news?",
	})
	require.NoError(t, err)

	notes := env.bus.find(EventAgentNotification)
	require.Len(t, notes, 1)
	assert.Equal(t, PersonalRoom(RoleAgent, "agent-7"), notes[0].Room)
	note := notes[0].Payload.(AgentNotificationPayload)
	assert.Equal(t, "new_message", note.Type)
	assert.Equal(t, "T-4", note.TicketID)
	assert.Equal(t, "Broken login", note.Subject)
	assert.Equal(t, "Ann", note.CustomerName)
	assert.Equal(t, "any news?", note.Content)
}

func TestSendTicketMessageAgentDoesNotNotify(t *testing.T) {
	env := newTestEnv(t)
	seedTicket(env, model.ConversationItem{TicketNumber: "T-4", Status: model.ConversationStatusOpen, AssigneeID: "agent-7"})

	err := env.relay.SendTicketMessage(context.Background(), newFakeSocket("s"), TicketMessageRequest{
		ConversationID: "T-4",
		SenderType:     "agent",
		SenderID:       "agent-7",
		Content:        "working on it",
	})
	require.NoError(t, err)
	assert.Empty(t, env.bus.find(EventAgentNotification))
}

func TestSendTicketMessageValidation(t *testing.T) {
	tests := []struct {
		name string
		req  TicketMessageRequest
	}{
		{"missing conversation", TicketMessageRequest{SenderType: "customer", Content: "x"}},
		{"bad sender type", TicketMessageRequest{ConversationID: "T-1", SenderType: "robot", Content: "x"}},
		{"empty content", TicketMessageRequest{ConversationID: "T-1", SenderType: "customer"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env := newTestEnv(t)
			seedTicket(env, model.ConversationItem{TicketNumber: "T-1", Status: model.ConversationStatusOpen})

			err := env.relay.SendTicketMessage(context.Background(), newFakeSocket("s"), tt.req)
			require.Error(t, err)
			assert.Equal(t, ErrorCodeValidation, asError(err).Code)
		})
	}
}

func TestSendTicketMessageMetadataOnly(t *testing.T) {
	env := newTestEnv(t)
	seedTicket(env, model.ConversationItem{TicketNumber: "T-1", Status: model.ConversationStatusOpen})

	err := env.relay.SendTicketMessage(context.Background(), newFakeSocket("s"), TicketMessageRequest{
		ConversationID: "T-1",
		SenderType:     "agent",
		Type:           "system",
		Metadata:       map[string]interface{}{"event": "status_changed"},
	})
	require.NoError(t, err)
	msgs := env.repo.ticketMessages()
	require.Len(t, msgs, 1)
	assert.Equal(t, "system", msgs[0].Type)
	assert.Equal(t, "status_changed", msgs[0].Metadata["event"])
}

func TestSendTicketMessageEmptyMetadata(t *testing.T) {
	env := newTestEnv(t)
	seedTicket(env, model.ConversationItem{TicketNumber: "T-1", Status: model.ConversationStatusOpen})

	err := env.relay.SendTicketMessage(context.Background(), newFakeSocket("s"), TicketMessageRequest{
		ConversationID: "T-1",
		SenderType:     "agent",
		Metadata:       map[string]interface{}{},
	})
	require.NoError(t, err)
	assert.Len(t, env.repo.ticketMessages(), 1)
}

func TestSendTicketMessageUnknownTicket(t *testing.T) {
	env := newTestEnv(t)

	err := env.relay.SendTicketMessage(context.Background(), newFakeSocket("s"), TicketMessageRequest{
		ConversationID: "T-404",
		SenderType:     "customer",
		Content:        "hi",
	})
	require.Error(t, err)
	assert.Equal(t, ErrorCodeNotFound, asError(err).Code)
}

func TestSendTicketMessageResolvesReply(t *testing.T) {
	env := newTestEnv(t)
	seedTicket(env, model.ConversationItem{TicketNumber: "T-5", Status: model.ConversationStatusOpen, CustomerID: "c-1"})
	env.repo.agents["agent-1"] = model.AgentItem{AgentID: "agent-1", Name: "Bob"}
	env.repo.messages["m-1"] = model.MessageItem{
		MessageID:      "m-1",
		ConversationID: "T-5",
		SenderID:       "agent-1",
		SenderType:     model.SenderAgent,
		Content:        "Have you tried restarting?",
	}

	err := env.relay.SendTicketMessage(context.Background(), newFakeSocket("s"), TicketMessageRequest{
		ConversationID: "T-5",
		SenderType:     "customer",
		Content:        "yes",
		ReplyToID:      "m-1",
	})
	require.NoError(t, err)

	msgs := env.repo.ticketMessages()
	require.Len(t, msgs, 1)
	assert.Equal(t, "m-1", msgs[0].Metadata["replyTo"])

	received := env.bus.find(EventReceiveMessage)
	require.Len(t, received, 1)
	reply := received[0].Payload.(TicketMessagePayload).ReplyTo
	require.NotNil(t, reply)
	assert.Equal(t, "m-1", reply.ID)
	assert.Equal(t, "Have you tried restarting?", reply.Content)
	assert.Equal(t, "Bob", reply.SenderName)
}

func TestSendTicketMessagePrefersClientReplyPreview(t *testing.T) {
	env := newTestEnv(t)
	seedTicket(env, model.ConversationItem{TicketNumber: "T-5", Status: model.ConversationStatusOpen})
	preview := &ReplyPreview{ID: "m-9", Content: "quoted", SenderName: "Someone"}

	err := env.relay.SendTicketMessage(context.Background(), newFakeSocket("s"), TicketMessageRequest{
		ConversationID: "T-5",
		SenderType:     "customer",
		Content:        "yes",
		ReplyTo:        preview,
	})
	require.NoError(t, err)

	assert.Equal(t, "m-9", env.repo.ticketMessages()[0].Metadata["replyTo"])
	assert.Equal(t, preview, env.bus.find(EventReceiveMessage)[0].Payload.(TicketMessagePayload).ReplyTo)
}

func TestSendTicketMessageStoresAttachments(t *testing.T) {
	env := newTestEnv(t)
	seedTicket(env, model.ConversationItem{TicketNumber: "T-6", Status: model.ConversationStatusOpen})
	png := []byte("\x89PNG\r\n\x1a\n0000000000000000")

	req := TicketMessageRequest{
		ConversationID: "T-6",
		SenderType:     "customer",
		Content:        "screenshot attached",
		Attachments: []AttachmentInput{
			{Filename: "../../etc/screen shot.png", Data: base64.StdEncoding.EncodeToString(png)},
			{Name: "log.txt", URL: "https://files.example.com/log.txt", Type: "text/plain", Size: 12},
		},
	}
	require.NoError(t, env.relay.SendTicketMessage(context.Background(), newFakeSocket("s"), req))

	require.Len(t, env.repo.attachments, 2)
	stored := env.repo.attachments[0]
	assert.Equal(t, "image/png", stored.MimeType)
	assert.Equal(t, int64(len(png)), stored.Size)
	assert.Contains(t, stored.URL, "/uploads/tickets/T-6/")
	assert.NotContains(t, stored.URL, "..")
	assert.Equal(t, "https://files.example.com/log.txt", env.repo.attachments[1].URL)
	assert.Equal(t, "text/plain", env.repo.attachments[1].MimeType)

	views := env.bus.find(EventReceiveMessage)[0].Payload.(TicketMessagePayload).Attachments
	assert.Len(t, views, 2)

	// Resending the same payload creates new rows; there is no idempotency key.
	require.NoError(t, env.relay.SendTicketMessage(context.Background(), newFakeSocket("s"), req))
	assert.Len(t, env.repo.ticketMessages(), 2)
	assert.Len(t, env.repo.attachments, 4)
}

func TestSendTicketMessageSkipsFailedAttachment(t *testing.T) {
	env := newTestEnv(t)
	seedTicket(env, model.ConversationItem{TicketNumber: "T-7", Status: model.ConversationStatusOpen})
	env.repo.failAttachmentAt = 1

	err := env.relay.SendTicketMessage(context.Background(), newFakeSocket("s"), TicketMessageRequest{
		ConversationID: "T-7",
		SenderType:     "customer",
		Content:        "files",
		Attachments: []AttachmentInput{
			{Name: "a.txt", URL: "https://files.example.com/a.txt"},
			{Name: "b.txt", Data: "not base64 !!"},
			{Name: "c.txt", URL: "https://files.example.com/c.txt"},
		},
	})
	require.NoError(t, err)

	require.Len(t, env.repo.attachments, 1)
	assert.Equal(t, "c.txt", env.repo.attachments[0].Filename)
	assert.Len(t, env.repo.ticketMessages(), 1)
}
