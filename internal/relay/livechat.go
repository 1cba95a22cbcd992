package relay

import (
	"context"
	"errors"
	"html"
	"strings"

	"helpdesk-relay/internal/model"

	"github.com/google/uuid"
)

const (
	defaultDepartment = "general"

	chatWaitingMessage     = "Connected. An agent will be with you shortly."
	chatReconnectedMessage = "Reconnected to your existing chat."
)

// JoinChat resumes the customer's open chat, or opens a new waiting one.
// At most one waiting or active chat exists per email.
func (r *Relay) JoinChat(ctx context.Context, s Socket, req JoinChatRequest) error {
	req.Email = strings.ToLower(strings.TrimSpace(req.Email))
	req.Name = strings.TrimSpace(req.Name)
	if err := r.check(req); err != nil {
		return err
	}
	if req.Name == "" {
		req.Name = strings.SplitN(req.Email, "@", 2)[0]
	}
	department := strings.TrimSpace(req.Department)
	if department == "" {
		department = defaultDepartment
	}
	content := r.sanitize(req.Message)
	log := r.log.With("socket_id", s.ID(), "customer_email", req.Email)

	chat, err := r.repo.FindOpenLiveChatByEmail(ctx, req.Email)
	switch {
	case err == nil:
		if content != "" {
			msg, err := r.appendChatMessage(ctx, chat.ChatID, model.LiveChatSenderCustomer, "", chat.CustomerName, content, nil)
			if err != nil {
				return err
			}
			payload := chatMessagePayload(msg)
			r.toRoom(ChatRoom(chat.ChatID), EventNewMessage, payload)
			r.toAll(EventNewMessage, payload)
		}

		s.Join(ChatRoom(chat.ChatID))
		s.Emit(EventChatJoined, ChatJoinedPayload{
			ChatID:  chat.ChatID,
			Status:  string(chat.Status),
			Message: chatReconnectedMessage,
		})
		log.Info("customer resumed chat", "chat_id", chat.ChatID, "status", chat.Status)
		return nil

	case errors.Is(err, ErrNotFound):
	default:
		return newError(ErrorCodeInternal, "Failed to join chat", err)
	}

	now := model.FormatTime(r.now())
	chat = model.LiveChatItem{
		ChatID:        uuid.NewString(),
		CustomerName:  req.Name,
		CustomerEmail: req.Email,
		Department:    department,
		Status:        model.LiveChatStatusWaiting,
		Metadata:      req.Metadata,
		StartedAt:     now,
		LastMessageAt: now,
	}
	if err := r.repo.CreateLiveChat(ctx, chat); err != nil {
		return newError(ErrorCodeInternal, "Failed to start chat", err)
	}
	if content != "" {
		if _, err := r.appendChatMessage(ctx, chat.ChatID, model.LiveChatSenderCustomer, "", chat.CustomerName, content, nil); err != nil {
			return err
		}
	}

	s.Join(ChatRoom(chat.ChatID))
	s.Emit(EventChatJoined, ChatJoinedPayload{
		ChatID:  chat.ChatID,
		Status:  string(chat.Status),
		Message: chatWaitingMessage,
	})
	r.toAll(EventNewChat, NewChatPayload{
		ChatID:        chat.ChatID,
		CustomerName:  chat.CustomerName,
		CustomerEmail: chat.CustomerEmail,
		Department:    chat.Department,
		Status:        string(chat.Status),
		Message:       content,
		Metadata:      chat.Metadata,
		StartedAt:     chat.StartedAt,
	})
	log.Info("customer started chat", "chat_id", chat.ChatID, "department", department)
	return nil
}

func (r *Relay) SendChatMessage(ctx context.Context, s Socket, req ChatMessageRequest) error {
	if err := r.check(req); err != nil {
		return err
	}
	content := r.sanitize(req.Message)
	if content == "" && len(req.Attachments) == 0 {
		return newError(ErrorCodeValidation, "message is required", nil)
	}

	chat, err := r.getLiveChat(ctx, req.ChatID.String())
	if err != nil {
		return err
	}

	senderID := req.SenderID.String()
	if senderID == "" {
		senderID = identityOf(s).UserID
	}
	senderName := strings.TrimSpace(req.SenderName)
	if senderName == "" {
		senderName = chat.CustomerName
	}

	msg, err := r.appendChatMessage(ctx, chat.ChatID, model.LiveChatSenderCustomer, senderID, senderName, content, req.Attachments)
	if err != nil {
		return err
	}

	// The room holds the customer and the assigned agent; dashboards listen globally.
	payload := chatMessagePayload(msg)
	r.toRoom(ChatRoom(chat.ChatID), EventNewMessage, payload)
	r.toAll(EventNewMessage, payload)

	if chat.AssignedAgentID != "" {
		r.toAll(EventChatMessageNotification, ChatMessageNotificationPayload{
			ChatID:       chat.ChatID,
			AgentID:      chat.AssignedAgentID,
			CustomerName: chat.CustomerName,
			MessageID:    msg.MessageID,
			Content:      msg.Content,
			Timestamp:    msg.Timestamp,
		})
	}
	return nil
}

// AssignChat hands a chat to an agent and marks it active. The agent's socket
// joins the chat room.
func (r *Relay) AssignChat(ctx context.Context, s Socket, req AssignChatRequest) (AssignChatAck, error) {
	if err := r.check(req); err != nil {
		return AssignChatAck{Success: false, Error: err.Error()}, err
	}

	chatID := req.ChatID.String()
	agentName := strings.TrimSpace(req.AgentName)
	if agentName == "" {
		agentName = r.agentName(ctx, req.AgentID.String())
	}

	chat, err := r.repo.AssignLiveChat(ctx, chatID, req.AgentID.String(), agentName, model.FormatTime(r.now()))
	if err != nil {
		var relayErr *Error
		if errors.Is(err, ErrNotFound) {
			relayErr = newError(ErrorCodeNotFound, "Chat not found", err)
		} else {
			relayErr = newError(ErrorCodeInternal, "Failed to assign chat", err)
		}
		return AssignChatAck{Success: false, Error: relayErr.Message}, relayErr
	}

	s.Join(ChatRoom(chatID))
	r.toRoom(ChatRoom(chatID), EventAgentJoined, AgentJoinedPayload{
		ChatID:    chatID,
		AgentID:   req.AgentID.String(),
		AgentName: agentName,
		Message:   agentName + " has joined the chat",
	})
	r.toAll(EventChatAssigned, ChatAssignedPayload{
		ChatID:    chatID,
		AgentID:   req.AgentID.String(),
		AgentName: agentName,
		Status:    string(chat.Status),
	})

	r.log.Info("chat assigned", "chat_id", chatID, "agent_id", req.AgentID)
	return AssignChatAck{Success: true, ChatID: chatID}, nil
}

func (r *Relay) AgentMessage(ctx context.Context, s Socket, req AgentMessageRequest) error {
	if err := r.check(req); err != nil {
		return err
	}
	content := r.sanitize(req.Message)
	if content == "" && len(req.Attachments) == 0 {
		return newError(ErrorCodeValidation, "message is required", nil)
	}

	chat, err := r.getLiveChat(ctx, req.ChatID.String())
	if err != nil {
		return err
	}

	agentName := strings.TrimSpace(req.AgentName)
	if agentName == "" {
		agentName = chat.AssignedAgentName
	}
	if agentName == "" {
		agentName = r.agentName(ctx, req.AgentID.String())
	}

	msg, err := r.appendChatMessage(ctx, chat.ChatID, model.LiveChatSenderAgent, req.AgentID.String(), agentName, content, req.Attachments)
	if err != nil {
		return err
	}

	payload := chatMessagePayload(msg)
	r.toRoom(ChatRoom(chat.ChatID), EventNewMessage, payload)
	r.toAll(EventNewMessage, payload)
	return nil
}

func (r *Relay) getLiveChat(ctx context.Context, chatID string) (model.LiveChatItem, error) {
	chat, err := r.repo.GetLiveChat(ctx, chatID)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return model.LiveChatItem{}, newError(ErrorCodeNotFound, "Chat not found", err)
		}
		return model.LiveChatItem{}, newError(ErrorCodeInternal, "Failed to load chat", err)
	}
	return chat, nil
}

func (r *Relay) appendChatMessage(
	ctx context.Context,
	chatID string,
	senderType model.LiveChatSenderType,
	senderID, senderName, content string,
	attachments []map[string]interface{},
) (model.LiveChatMessageItem, error) {
	msg := model.LiveChatMessageItem{
		MessageID:   uuid.NewString(),
		ChatID:      chatID,
		SenderID:    senderID,
		SenderType:  senderType,
		SenderName:  senderName,
		Content:     content,
		Timestamp:   model.FormatTime(r.now()),
		Attachments: attachments,
	}
	if err := r.repo.CreateLiveChatMessage(ctx, msg); err != nil {
		return model.LiveChatMessageItem{}, newError(ErrorCodeInternal, "Failed to save message", err)
	}
	messagesPersisted.WithLabelValues("livechat", string(senderType)).Inc()

	if err := r.repo.TouchLiveChat(ctx, chatID, msg.Timestamp); err != nil {
		r.log.Warn("failed to update chat activity", "chat_id", chatID, "error", err)
	}
	return msg, nil
}

func chatMessagePayload(msg model.LiveChatMessageItem) ChatMessagePayload {
	return ChatMessagePayload{
		ID:          msg.MessageID,
		ChatID:      msg.ChatID,
		SenderID:    msg.SenderID,
		SenderType:  string(msg.SenderType),
		SenderName:  msg.SenderName,
		Content:     msg.Content,
		Timestamp:   msg.Timestamp,
		Attachments: msg.Attachments,
	}
}

// sanitize drops markup and keeps the remaining text as typed. The policy
// output is entity-escaped, so it is unescaped before storage.
func (r *Relay) sanitize(content string) string {
	return strings.TrimSpace(html.UnescapeString(r.sanitizer.Sanitize(strings.TrimSpace(content))))
}
