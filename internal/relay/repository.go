package relay

import (
	"context"
	"errors"

	"helpdesk-relay/internal/model"
)

var ErrNotFound = errors.New("relay repository: not found")

// Repository is the persistence collaborator. Every lookup returns ErrNotFound
// when the record does not exist.
type Repository interface {
	// FindOpenLiveChatByEmail returns the waiting or active chat for email.
	FindOpenLiveChatByEmail(ctx context.Context, email string) (model.LiveChatItem, error)
	CreateLiveChat(ctx context.Context, chat model.LiveChatItem) error
	GetLiveChat(ctx context.Context, chatID string) (model.LiveChatItem, error)
	// AssignLiveChat sets the agent, marks the chat active and returns the updated row.
	AssignLiveChat(ctx context.Context, chatID, agentID, agentName, updatedAt string) (model.LiveChatItem, error)
	TouchLiveChat(ctx context.Context, chatID, lastMessageAt string) error
	CreateLiveChatMessage(ctx context.Context, message model.LiveChatMessageItem) error

	GetConversation(ctx context.Context, ticketNumber string) (model.ConversationItem, error)
	TouchConversation(ctx context.Context, ticketNumber, lastMessageAt string) error
	CreateMessage(ctx context.Context, message model.MessageItem) error
	GetMessage(ctx context.Context, messageID string) (model.MessageItem, error)
	CreateAttachment(ctx context.Context, attachment model.AttachmentItem) error

	GetCustomer(ctx context.Context, customerID string) (model.CustomerItem, error)
	FindCustomerByEmail(ctx context.Context, email string) (model.CustomerItem, error)
	GetAgent(ctx context.Context, agentID string) (model.AgentItem, error)
	GetAdmin(ctx context.Context, adminID string) (model.AdminItem, error)
}
