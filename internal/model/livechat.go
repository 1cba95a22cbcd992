package model

type LiveChatStatus string

const (
	LiveChatStatusWaiting LiveChatStatus = "waiting"
	LiveChatStatusActive  LiveChatStatus = "active"
	LiveChatStatusClosed  LiveChatStatus = "closed"
)

// Open reports whether the chat still accepts a returning customer.
func (s LiveChatStatus) Open() bool {
	return s == LiveChatStatusWaiting || s == LiveChatStatusActive
}

type LiveChatItem struct {
	ChatID            string                 `dynamodbav:"chatId"`
	CustomerName      string                 `dynamodbav:"customerName"`
	CustomerEmail     string                 `dynamodbav:"customerEmail"`
	Department        string                 `dynamodbav:"department,omitempty"`
	Status            LiveChatStatus         `dynamodbav:"status"`
	AssignedAgentID   string                 `dynamodbav:"assignedAgentId,omitempty"`
	AssignedAgentName string                 `dynamodbav:"assignedAgentName,omitempty"`
	Metadata          map[string]interface{} `dynamodbav:"metadata,omitempty"`
	StartedAt         string                 `dynamodbav:"startedAt"`
	LastMessageAt     string                 `dynamodbav:"lastMessageAt"`
}

type LiveChatSenderType string

const (
	LiveChatSenderCustomer LiveChatSenderType = "customer"
	LiveChatSenderAgent    LiveChatSenderType = "agent"
)

type LiveChatMessageItem struct {
	MessageID   string                   `dynamodbav:"messageId"`
	ChatID      string                   `dynamodbav:"chatId"`
	SenderID    string                   `dynamodbav:"senderId,omitempty"`
	SenderType  LiveChatSenderType       `dynamodbav:"senderType"`
	SenderName  string                   `dynamodbav:"senderName,omitempty"`
	Content     string                   `dynamodbav:"content"`
	Timestamp   string                   `dynamodbav:"timestamp"`
	Read        bool                     `dynamodbav:"read"`
	Attachments []map[string]interface{} `dynamodbav:"attachments,omitempty"`
}
