package model

import "time"

const (
	LiveChatsTable        = "LiveChats"
	LiveChatMessagesTable = "LiveChatMessages"
	ConversationsTable    = "Conversations"
	MessagesTable         = "Messages"
	AttachmentsTable      = "Attachments"
	CustomersTable        = "Customers"
	AgentsTable           = "Agents"
	AdminsTable           = "Admins"
)

// Secondary indexes queried by the relay.
const (
	LiveChatsByEmailIndex = "byCustomerEmail"
	CustomersByEmailIndex = "byEmail"
)

// TimeLayout is used for every timestamp attribute. Nanosecond precision keeps
// lexical order equal to creation order for messages written in the same second.
const TimeLayout = time.RFC3339Nano

func FormatTime(t time.Time) string {
	return t.UTC().Format(TimeLayout)
}

func ParseTime(ts string) time.Time {
	if ts == "" {
		return time.Time{}
	}
	t, err := time.Parse(TimeLayout, ts)
	if err != nil {
		return time.Time{}
	}
	return t
}

type CustomerItem struct {
	CustomerID string `dynamodbav:"customerId"`
	Name       string `dynamodbav:"name"`
	Email      string `dynamodbav:"email"`
}

type AgentItem struct {
	AgentID      string `dynamodbav:"agentId"`
	Name         string `dynamodbav:"name"`
	Email        string `dynamodbav:"email"`
	DepartmentID string `dynamodbav:"departmentId,omitempty"`
}

type AdminItem struct {
	AdminID string `dynamodbav:"adminId"`
	Name    string `dynamodbav:"name"`
	Email   string `dynamodbav:"email"`
}
