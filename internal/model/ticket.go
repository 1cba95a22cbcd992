package model

type ConversationStatus string

const (
	ConversationStatusOpen       ConversationStatus = "open"
	ConversationStatusPending    ConversationStatus = "pending"
	ConversationStatusInProgress ConversationStatus = "in_progress"
	ConversationStatusWaiting    ConversationStatus = "waiting"
	ConversationStatusOnHold     ConversationStatus = "on_hold"
	ConversationStatusResolved   ConversationStatus = "resolved"
	ConversationStatusClosed     ConversationStatus = "closed"
)

// Terminal statuses reject new messages.
func (s ConversationStatus) Terminal() bool {
	return s == ConversationStatusClosed || s == ConversationStatusResolved
}

// ConversationItem is a ticket. TicketNumber is the key and the id used in
// ticket room names.
type ConversationItem struct {
	TicketNumber  string             `dynamodbav:"ticketNumber"`
	Status        ConversationStatus `dynamodbav:"status"`
	AssigneeID    string             `dynamodbav:"assigneeId,omitempty"`
	CustomerID    string             `dynamodbav:"customerId,omitempty"`
	Subject       string             `dynamodbav:"subject,omitempty"`
	LastMessageAt string             `dynamodbav:"lastMessageAt,omitempty"`
}

type SenderType string

const (
	SenderCustomer SenderType = "customer"
	SenderAgent    SenderType = "agent"
	SenderAdmin    SenderType = "admin"
)

type MessageItem struct {
	MessageID      string                 `dynamodbav:"messageId"`
	ConversationID string                 `dynamodbav:"conversationId"`
	SenderID       string                 `dynamodbav:"senderId,omitempty"`
	SenderType     SenderType             `dynamodbav:"senderType"`
	Content        string                 `dynamodbav:"content"`
	Type           string                 `dynamodbav:"type"`
	Metadata       map[string]interface{} `dynamodbav:"metadata,omitempty"`
	CreatedAt      string                 `dynamodbav:"createdAt"`
}

type AttachmentItem struct {
	AttachmentID string `dynamodbav:"attachmentId"`
	MessageID    string `dynamodbav:"messageId"`
	URL          string `dynamodbav:"url"`
	Filename     string `dynamodbav:"filename"`
	MimeType     string `dynamodbav:"mimeType,omitempty"`
	Size         int64  `dynamodbav:"size"`
	CreatedAt    string `dynamodbav:"createdAt"`
}
