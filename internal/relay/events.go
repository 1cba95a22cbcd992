package relay

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
)

// Inbound events.
const (
	EventJoinChat          = "join_chat"
	EventJoinChatRoom      = "join_chat_room"
	EventJoinRoom          = "join_room"
	EventSendMessage       = "send_message"
	EventSendChatMessage   = "send_chat_message"
	EventSendTicketMessage = "send_ticket_message"
	EventAssignChat        = "assign_chat"
	EventAgentMessage      = "agent_message"
	EventJoinTicketRoom    = "join_ticket_room"
	EventLeaveTicketRoom   = "leave_ticket_room"
)

// Outbound events.
const (
	EventConnected               = "connected"
	EventError                   = "error"
	EventChatJoined              = "chat_joined"
	EventNewChat                 = "new_chat"
	EventNewMessage              = "new_message"
	EventChatMessageNotification = "chat_message_notification"
	EventAgentJoined             = "agent_joined"
	EventChatAssigned            = "chat_assigned"
	EventReceiveMessage          = "receive_message"
	EventMessageSent             = "message_sent"
	EventAgentNotification       = "agent:notification"
	EventTicketAssigned          = "ticket:assigned"
)

// ID accepts both string and numeric identifiers from clients.
type ID string

func (id *ID) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		*id = ""
		return nil
	}
	if data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*id = ID(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return fmt.Errorf("id must be a string or number: %w", err)
	}
	if _, err := strconv.ParseFloat(n.String(), 64); err != nil {
		return fmt.Errorf("id must be a string or number: %w", err)
	}
	*id = ID(n.String())
	return nil
}

func (id ID) String() string {
	return string(id)
}

type JoinChatRequest struct {
	Name       string                 `json:"name"`
	Email      string                 `json:"email" validate:"required,email"`
	Department string                 `json:"department"`
	Message    string                 `json:"message,omitempty"`
	Metadata   map[string]interface{} `json:"metadata,omitempty"`
}

type ChatMessageRequest struct {
	ChatID      ID                       `json:"chatId" validate:"required"`
	Message     string                   `json:"message"`
	SenderID    ID                       `json:"senderId,omitempty"`
	SenderName  string                   `json:"senderName,omitempty"`
	Attachments []map[string]interface{} `json:"attachments,omitempty"`
}

type AssignChatRequest struct {
	ChatID    ID     `json:"chatId" validate:"required"`
	AgentID   ID     `json:"agentId" validate:"required"`
	AgentName string `json:"agentName"`
}

type AgentMessageRequest struct {
	ChatID      ID                       `json:"chatId" validate:"required"`
	AgentID     ID                       `json:"agentId" validate:"required"`
	AgentName   string                   `json:"agentName"`
	Message     string                   `json:"message"`
	Attachments []map[string]interface{} `json:"attachments,omitempty"`
}

// TicketMessageRequest is one message on a ticket. SocketID is the socket to
// skip when broadcasting; it defaults to the sending socket.
type TicketMessageRequest struct {
	ConversationID ID                     `json:"conversationId" validate:"required"`
	SenderID       ID                     `json:"senderId,omitempty"`
	SenderType     string                 `json:"senderType" validate:"required,oneof=customer agent admin"`
	SenderName     string                 `json:"senderName,omitempty"`
	Content        string                 `json:"content"`
	Type           string                 `json:"type,omitempty"`
	Metadata       map[string]interface{} `json:"metadata,omitempty"`
	ReplyToID      ID                     `json:"replyToId,omitempty"`
	ReplyTo        *ReplyPreview          `json:"replyTo,omitempty"`
	Attachments    []AttachmentInput      `json:"attachments,omitempty" validate:"omitempty,dive"`
	SocketID       string                 `json:"socketId,omitempty"`
	TempID         string                 `json:"tempId,omitempty"`
}

// AttachmentInput carries either inline base64 data (optionally a data URL) or
// the URL of an already uploaded file.
type AttachmentInput struct {
	Filename string `json:"filename,omitempty"`
	Name     string `json:"name,omitempty"`
	MimeType string `json:"mimeType,omitempty"`
	Type     string `json:"type,omitempty"`
	Size     int64  `json:"size,omitempty" validate:"gte=0"`
	Data     string `json:"data,omitempty"`
	URL      string `json:"url,omitempty" validate:"omitempty,uri"`
}

type RoomRequest struct {
	ChatID         ID `json:"chatId,omitempty"`
	ConversationID ID `json:"conversationId,omitempty"`
	TicketID       ID `json:"ticketId,omitempty"`
}

type ReplyPreview struct {
	ID         string `json:"id"`
	Content    string `json:"content"`
	SenderID   string `json:"senderId,omitempty"`
	SenderType string `json:"senderType,omitempty"`
	SenderName string `json:"senderName,omitempty"`
}

type ConnectedPayload struct {
	SocketID string `json:"socketId"`
	Role     Role   `json:"role"`
	UserID   string `json:"userId,omitempty"`
}

type ErrorPayload struct {
	Message string    `json:"message"`
	Code    ErrorCode `json:"code"`
	Event   string    `json:"event,omitempty"`
}

type ChatJoinedPayload struct {
	ChatID  string `json:"chatId"`
	Status  string `json:"status"`
	Message string `json:"message"`
}

type NewChatPayload struct {
	ChatID        string                 `json:"chatId"`
	CustomerName  string                 `json:"customerName"`
	CustomerEmail string                 `json:"customerEmail"`
	Department    string                 `json:"department"`
	Status        string                 `json:"status"`
	Message       string                 `json:"message,omitempty"`
	Metadata      map[string]interface{} `json:"metadata,omitempty"`
	StartedAt     string                 `json:"startedAt"`
}

type ChatMessagePayload struct {
	ID          string                   `json:"id"`
	ChatID      string                   `json:"chatId"`
	SenderID    string                   `json:"senderId,omitempty"`
	SenderType  string                   `json:"senderType"`
	SenderName  string                   `json:"senderName,omitempty"`
	Content     string                   `json:"content"`
	Timestamp   string                   `json:"timestamp"`
	Attachments []map[string]interface{} `json:"attachments,omitempty"`
}

type AgentJoinedPayload struct {
	ChatID    string `json:"chatId"`
	AgentID   string `json:"agentId"`
	AgentName string `json:"agentName"`
	Message   string `json:"message"`
}

type ChatAssignedPayload struct {
	ChatID    string `json:"chatId"`
	AgentID   string `json:"agentId"`
	AgentName string `json:"agentName"`
	Status    string `json:"status"`
}

type ChatMessageNotificationPayload struct {
	ChatID       string `json:"chatId"`
	AgentID      string `json:"agentId"`
	CustomerName string `json:"customerName"`
	MessageID    string `json:"messageId"`
	Content      string `json:"content"`
	Timestamp    string `json:"timestamp"`
}

type AssignChatAck struct {
	Success bool   `json:"success"`
	ChatID  string `json:"chatId,omitempty"`
	Error   string `json:"error,omitempty"`
}

type AttachmentView struct {
	ID       string `json:"id"`
	URL      string `json:"url"`
	Filename string `json:"filename"`
	MimeType string `json:"mimeType,omitempty"`
	Size     int64  `json:"size"`
}

type TicketMessagePayload struct {
	ID             string                 `json:"id"`
	ConversationID string                 `json:"conversationId"`
	SenderID       string                 `json:"senderId,omitempty"`
	SenderType     string                 `json:"senderType"`
	SenderName     string                 `json:"senderName"`
	Content        string                 `json:"content"`
	Type           string                 `json:"type"`
	Metadata       map[string]interface{} `json:"metadata,omitempty"`
	Attachments    []AttachmentView       `json:"attachments"`
	ReplyTo        *ReplyPreview          `json:"replyTo,omitempty"`
	CreatedAt      string                 `json:"createdAt"`
	TempID         string                 `json:"tempId,omitempty"`
}

type MessageSentPayload struct {
	ID             string `json:"id"`
	ConversationID string `json:"conversationId"`
	Success        bool   `json:"success"`
	TempID         string `json:"tempId,omitempty"`
}

type AgentNotificationPayload struct {
	Type         string `json:"type"`
	TicketID     string `json:"ticketId"`
	Subject      string `json:"subject,omitempty"`
	CustomerID   string `json:"customerId,omitempty"`
	CustomerName string `json:"customerName"`
	MessageID    string `json:"messageId"`
	Content      string `json:"content"`
	Timestamp    string `json:"timestamp"`
}

type TicketAssignedPayload struct {
	TicketID     string      `json:"ticketId"`
	AssigneeID   string      `json:"assigneeId"`
	AssigneeName string      `json:"assigneeName,omitempty"`
	AssignedBy   string      `json:"assignedBy,omitempty"`
	Ticket       interface{} `json:"ticket,omitempty"`
	Timestamp    string      `json:"timestamp"`
}
