package relay

import (
	"context"
	"errors"
	"sort"

	"helpdesk-relay/internal/database"
	"helpdesk-relay/internal/model"

	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
)

type DynamoRepository struct {
	db *database.Database
}

func NewDynamoRepository(db *database.Database) Repository {
	return &DynamoRepository{db: db}
}

// FindOpenLiveChatByEmail returns the newest waiting or active chat of email.
func (r *DynamoRepository) FindOpenLiveChatByEmail(ctx context.Context, email string) (model.LiveChatItem, error) {
	items, err := r.db.Client.QueryOrScan(ctx, model.LiveChatsTable, database.Expr{
		Index:        model.LiveChatsByEmailIndex,
		KeyCondition: "#customerEmail = :email",
		Filter:       "#status IN (:waiting, :active)",
		Values: map[string]types.AttributeValue{
			":email":   database.AttrString(email),
			":waiting": database.AttrString(string(model.LiveChatStatusWaiting)),
			":active":  database.AttrString(string(model.LiveChatStatusActive)),
		},
		Names: map[string]string{
			"#customerEmail": "customerEmail",
			"#status":        "status",
		},
	})
	if err != nil {
		return model.LiveChatItem{}, err
	}

	var chats []model.LiveChatItem
	if err := attributevalue.UnmarshalListOfMaps(items, &chats); err != nil {
		return model.LiveChatItem{}, err
	}
	if len(chats) == 0 {
		return model.LiveChatItem{}, ErrNotFound
	}

	sort.Slice(chats, func(i, j int) bool {
		return model.ParseTime(chats[i].StartedAt).After(model.ParseTime(chats[j].StartedAt))
	})
	return chats[0], nil
}

func (r *DynamoRepository) CreateLiveChat(ctx context.Context, chat model.LiveChatItem) error {
	return r.db.Client.Put(ctx, model.LiveChatsTable, chat)
}

func (r *DynamoRepository) GetLiveChat(ctx context.Context, chatID string) (model.LiveChatItem, error) {
	var chat model.LiveChatItem
	if err := r.db.Client.Get(ctx, model.LiveChatsTable, database.Key("chatId", chatID), &chat); err != nil {
		return model.LiveChatItem{}, notFoundOr(err)
	}
	return chat, nil
}

// AssignLiveChat is a single conditional update, so concurrent assigners
// resolve to whichever write lands last.
func (r *DynamoRepository) AssignLiveChat(ctx context.Context, chatID, agentID, agentName, updatedAt string) (model.LiveChatItem, error) {
	var chat model.LiveChatItem
	err := r.db.Client.Update(ctx, model.LiveChatsTable, database.Key("chatId", chatID), database.Update{
		Set: map[string]types.AttributeValue{
			"assignedAgentId":   database.AttrString(agentID),
			"assignedAgentName": database.AttrString(agentName),
			"status":            database.AttrString(string(model.LiveChatStatusActive)),
			"lastMessageAt":     database.AttrString(updatedAt),
		},
		MustExist: true,
	}, &chat)
	if err != nil {
		return model.LiveChatItem{}, notFoundOr(err)
	}
	return chat, nil
}

func (r *DynamoRepository) TouchLiveChat(ctx context.Context, chatID, lastMessageAt string) error {
	return r.touch(ctx, model.LiveChatsTable, database.Key("chatId", chatID), lastMessageAt)
}

func (r *DynamoRepository) CreateLiveChatMessage(ctx context.Context, message model.LiveChatMessageItem) error {
	return r.db.Client.Put(ctx, model.LiveChatMessagesTable, message)
}

func (r *DynamoRepository) GetConversation(ctx context.Context, ticketNumber string) (model.ConversationItem, error) {
	var conversation model.ConversationItem
	if err := r.db.Client.Get(ctx, model.ConversationsTable, database.Key("ticketNumber", ticketNumber), &conversation); err != nil {
		return model.ConversationItem{}, notFoundOr(err)
	}
	return conversation, nil
}

func (r *DynamoRepository) TouchConversation(ctx context.Context, ticketNumber, lastMessageAt string) error {
	return r.touch(ctx, model.ConversationsTable, database.Key("ticketNumber", ticketNumber), lastMessageAt)
}

func (r *DynamoRepository) CreateMessage(ctx context.Context, message model.MessageItem) error {
	return r.db.Client.Put(ctx, model.MessagesTable, message)
}

func (r *DynamoRepository) GetMessage(ctx context.Context, messageID string) (model.MessageItem, error) {
	var message model.MessageItem
	if err := r.db.Client.Get(ctx, model.MessagesTable, database.Key("messageId", messageID), &message); err != nil {
		return model.MessageItem{}, notFoundOr(err)
	}
	return message, nil
}

func (r *DynamoRepository) CreateAttachment(ctx context.Context, attachment model.AttachmentItem) error {
	return r.db.Client.Put(ctx, model.AttachmentsTable, attachment)
}

func (r *DynamoRepository) GetCustomer(ctx context.Context, customerID string) (model.CustomerItem, error) {
	var customer model.CustomerItem
	if err := r.db.Client.Get(ctx, model.CustomersTable, database.Key("customerId", customerID), &customer); err != nil {
		return model.CustomerItem{}, notFoundOr(err)
	}
	return customer, nil
}

func (r *DynamoRepository) FindCustomerByEmail(ctx context.Context, email string) (model.CustomerItem, error) {
	items, err := r.db.Client.QueryOrScan(ctx, model.CustomersTable, database.Expr{
		Index:        model.CustomersByEmailIndex,
		KeyCondition: "#email = :email",
		Values:       map[string]types.AttributeValue{":email": database.AttrString(email)},
		Names:        map[string]string{"#email": "email"},
	})
	if err != nil {
		return model.CustomerItem{}, err
	}
	if len(items) == 0 {
		return model.CustomerItem{}, ErrNotFound
	}

	var customer model.CustomerItem
	if err := attributevalue.UnmarshalMap(items[0], &customer); err != nil {
		return model.CustomerItem{}, err
	}
	return customer, nil
}

func (r *DynamoRepository) GetAgent(ctx context.Context, agentID string) (model.AgentItem, error) {
	var agent model.AgentItem
	if err := r.db.Client.Get(ctx, model.AgentsTable, database.Key("agentId", agentID), &agent); err != nil {
		return model.AgentItem{}, notFoundOr(err)
	}
	return agent, nil
}

func (r *DynamoRepository) GetAdmin(ctx context.Context, adminID string) (model.AdminItem, error) {
	var admin model.AdminItem
	if err := r.db.Client.Get(ctx, model.AdminsTable, database.Key("adminId", adminID), &admin); err != nil {
		return model.AdminItem{}, notFoundOr(err)
	}
	return admin, nil
}

func (r *DynamoRepository) touch(ctx context.Context, table string, key map[string]types.AttributeValue, lastMessageAt string) error {
	err := r.db.Client.Update(ctx, table, key, database.Update{
		Set:       map[string]types.AttributeValue{"lastMessageAt": database.AttrString(lastMessageAt)},
		MustExist: true,
	}, nil)
	return notFoundOr(err)
}

func notFoundOr(err error) error {
	if errors.Is(err, database.ErrItemNotFound) {
		return ErrNotFound
	}
	return err
}
