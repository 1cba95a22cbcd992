package relay

import (
	"bytes"
	"encoding/json"
)

func ChatRoom(chatID string) string {
	return "chat_" + chatID
}

func TicketRoom(ticketID string) string {
	return "ticket_" + ticketID
}

func PersonalRoom(role Role, userID string) string {
	return string(role) + "_" + userID
}

// JoinChatRoom lets an agent watch a chat without being assigned to it.
func (r *Relay) JoinChatRoom(s Socket, chatID string) error {
	if chatID == "" {
		return newError(ErrorCodeValidation, "chatId is required", nil)
	}
	s.Join(ChatRoom(chatID))
	r.log.Debug("joined chat room", "socket_id", s.ID(), "chat_id", chatID)
	return nil
}

func (r *Relay) JoinTicketRoom(s Socket, ticketID string) error {
	if ticketID == "" {
		return newError(ErrorCodeValidation, "ticketId is required", nil)
	}
	s.Join(TicketRoom(ticketID))
	r.log.Debug("joined ticket room", "socket_id", s.ID(), "ticket_id", ticketID)
	return nil
}

func (r *Relay) LeaveTicketRoom(s Socket, ticketID string) error {
	if ticketID == "" {
		return newError(ErrorCodeValidation, "ticketId is required", nil)
	}
	s.Leave(TicketRoom(ticketID))
	r.log.Debug("left ticket room", "socket_id", s.ID(), "ticket_id", ticketID)
	return nil
}

// ticketIDFromPayload accepts a bare id ("T-1" or 42) or an object naming
// ticketId or conversationId.
func ticketIDFromPayload(raw json.RawMessage) (string, error) {
	if len(bytes.TrimSpace(raw)) == 0 {
		return "", nil
	}
	var id ID
	if err := json.Unmarshal(raw, &id); err == nil {
		return id.String(), nil
	}

	var req RoomRequest
	if err := json.Unmarshal(raw, &req); err != nil {
		return "", newError(ErrorCodeValidation, "Invalid payload", err)
	}
	if req.TicketID != "" {
		return req.TicketID.String(), nil
	}
	return req.ConversationID.String(), nil
}

func chatIDFromPayload(raw json.RawMessage) (string, error) {
	if len(bytes.TrimSpace(raw)) == 0 {
		return "", nil
	}
	var id ID
	if err := json.Unmarshal(raw, &id); err == nil {
		return id.String(), nil
	}

	var req RoomRequest
	if err := json.Unmarshal(raw, &req); err != nil {
		return "", newError(ErrorCodeValidation, "Invalid payload", err)
	}
	return req.ChatID.String(), nil
}
