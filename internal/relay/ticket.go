package relay

import (
	"context"
	"errors"
	"strings"

	"helpdesk-relay/internal/model"

	"github.com/google/uuid"
)

const defaultMessageType = "text"

// SendTicketMessage persists a ticket message with its attachments and fans
// it out to the ticket room. Closed or resolved tickets reject new messages,
// and once a ticket is assigned other agents may only read it.
func (r *Relay) SendTicketMessage(ctx context.Context, s Socket, req TicketMessageRequest) error {
	if err := r.check(req); err != nil {
		return err
	}
	content := r.sanitize(req.Content)
	if content == "" && req.Metadata == nil && len(req.Attachments) == 0 {
		return newError(ErrorCodeValidation, "content is required", nil)
	}

	conversationID := req.ConversationID.String()
	conv, err := r.repo.GetConversation(ctx, conversationID)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return newError(ErrorCodeNotFound, "Ticket not found", err)
		}
		return newError(ErrorCodeInternal, "Failed to load ticket", err)
	}
	if conv.Status.Terminal() {
		return newError(ErrorCodeTicketClosed, "This ticket is "+string(conv.Status)+" and no longer accepts messages", nil)
	}

	senderType := model.SenderType(req.SenderType)
	senderID := strings.TrimSpace(req.SenderID.String())
	identity := identityOf(s)
	if senderID == "" && identity.Authenticated && string(identity.Role) == req.SenderType {
		senderID = identity.UserID
	}

	if senderType == model.SenderAgent && conv.AssigneeID != "" && senderID != conv.AssigneeID {
		return newError(ErrorCodeForbidden, "This ticket is assigned to another agent. You have read-only access.", nil)
	}

	if senderType == model.SenderCustomer {
		if senderID == "" {
			senderID = conv.CustomerID
		} else {
			senderID = r.resolveCustomerID(ctx, senderID)
		}
	}

	senderName := strings.TrimSpace(req.SenderName)
	if senderName == "" {
		senderName = r.displayName(ctx, senderType, senderID, conv)
	}

	metadata := make(map[string]interface{}, len(req.Metadata)+1)
	for k, v := range req.Metadata {
		metadata[k] = v
	}
	replyToID := req.ReplyToID.String()
	if replyToID == "" && req.ReplyTo != nil {
		replyToID = req.ReplyTo.ID
	}
	if replyToID != "" {
		metadata["replyTo"] = replyToID
	}
	if len(metadata) == 0 {
		metadata = nil
	}

	msg := model.MessageItem{
		MessageID:      uuid.NewString(),
		ConversationID: conversationID,
		SenderID:       senderID,
		SenderType:     senderType,
		Content:        content,
		Type:           nonEmpty(req.Type, defaultMessageType),
		Metadata:       metadata,
		CreatedAt:      model.FormatTime(r.now()),
	}
	if err := r.repo.CreateMessage(ctx, msg); err != nil {
		return newError(ErrorCodeInternal, "Failed to save message", err)
	}
	messagesPersisted.WithLabelValues("ticket", string(senderType)).Inc()

	attachments := r.storeAttachments(ctx, conversationID, msg.MessageID, req.Attachments)
	replyTo := r.resolveReply(ctx, req, replyToID, conv)

	if err := r.repo.TouchConversation(ctx, conversationID, msg.CreatedAt); err != nil {
		r.log.Warn("failed to update ticket activity", "conversation_id", conversationID, "error", err)
	}

	except := req.SocketID
	if except == "" {
		except = s.ID()
	}
	r.toRoomExcept(TicketRoom(conversationID), except, EventReceiveMessage, TicketMessagePayload{
		ID:             msg.MessageID,
		ConversationID: conversationID,
		SenderID:       senderID,
		SenderType:     string(senderType),
		SenderName:     senderName,
		Content:        msg.Content,
		Type:           msg.Type,
		Metadata:       msg.Metadata,
		Attachments:    attachments,
		ReplyTo:        replyTo,
		CreatedAt:      msg.CreatedAt,
		TempID:         req.TempID,
	})
	s.Emit(EventMessageSent, MessageSentPayload{
		ID:             msg.MessageID,
		ConversationID: conversationID,
		Success:        true,
		TempID:         req.TempID,
	})

	if senderType == model.SenderCustomer && conv.AssigneeID != "" {
		r.toRoom(PersonalRoom(RoleAgent, conv.AssigneeID), EventAgentNotification, AgentNotificationPayload{
			Type:         "new_message",
			TicketID:     conversationID,
			Subject:      conv.Subject,
			CustomerID:   senderID,
			CustomerName: senderName,
			MessageID:    msg.MessageID,
			Content:      msg.Content,
			Timestamp:    msg.CreatedAt,
		})
	}

	r.log.Info("ticket message sent",
		"conversation_id", conversationID,
		"message_id", msg.MessageID,
		"sender_type", senderType,
		"attachments", len(attachments),
	)
	return nil
}

// resolveReply prefers the preview the client sent and otherwise loads the
// referenced message.
func (r *Relay) resolveReply(ctx context.Context, req TicketMessageRequest, replyToID string, conv model.ConversationItem) *ReplyPreview {
	if req.ReplyTo != nil && req.ReplyTo.ID != "" {
		return req.ReplyTo
	}
	if replyToID == "" {
		return nil
	}

	ref, err := r.repo.GetMessage(ctx, replyToID)
	if err != nil {
		r.logLookupFailure("reply message", replyToID, err)
		return nil
	}
	return &ReplyPreview{
		ID:         ref.MessageID,
		Content:    ref.Content,
		SenderID:   ref.SenderID,
		SenderType: string(ref.SenderType),
		SenderName: r.displayName(ctx, ref.SenderType, ref.SenderID, conv),
	}
}
