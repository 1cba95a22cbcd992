package relay

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"runtime/debug"
)

type SendKind int

const (
	SendLiveChat SendKind = iota + 1
	SendTicket
)

// SendMessageRequest is a message for either flow. Exactly one of Chat or
// Ticket is set, matching Kind.
type SendMessageRequest struct {
	Kind   SendKind
	Chat   *ChatMessageRequest
	Ticket *TicketMessageRequest
}

// DecodeLegacySendMessage adapts the shared send_message event. A payload
// naming a conversationId is a ticket message; anything else is live chat.
// Ticket payloads from older clients put the text in message.
func DecodeLegacySendMessage(raw json.RawMessage) (SendMessageRequest, error) {
	var probe struct {
		ConversationID ID `json:"conversationId"`
	}
	if err := decode(raw, &probe); err != nil {
		return SendMessageRequest{}, err
	}

	if probe.ConversationID == "" {
		var req ChatMessageRequest
		if err := decode(raw, &req); err != nil {
			return SendMessageRequest{}, err
		}
		return SendMessageRequest{Kind: SendLiveChat, Chat: &req}, nil
	}

	var wire struct {
		TicketMessageRequest
		Message string `json:"message"`
	}
	if err := decode(raw, &wire); err != nil {
		return SendMessageRequest{}, err
	}
	req := wire.TicketMessageRequest
	if req.Content == "" {
		req.Content = wire.Message
	}
	return SendMessageRequest{Kind: SendTicket, Ticket: &req}, nil
}

func (r *Relay) SendMessage(ctx context.Context, s Socket, req SendMessageRequest) error {
	switch {
	case req.Kind == SendLiveChat && req.Chat != nil:
		return r.SendChatMessage(ctx, s, *req.Chat)
	case req.Kind == SendTicket && req.Ticket != nil:
		return r.SendTicketMessage(ctx, s, *req.Ticket)
	default:
		return newError(ErrorCodeValidation, "Unknown message kind", nil)
	}
}

// HandleEvent runs one inbound event for s. Failures are reported back to the
// socket as an error event; assign_chat answers through ack when one is given.
func (r *Relay) HandleEvent(ctx context.Context, s Socket, event string, raw json.RawMessage, ack AckFunc) {
	defer func() {
		if rec := recover(); rec != nil {
			r.log.Error("event handler panicked",
				"event", event,
				"socket_id", s.ID(),
				"panic", fmt.Sprint(rec),
				"stack", string(debug.Stack()),
			)
			r.fail(s, event, newError(ErrorCodeInternal, "Internal server error", nil))
		}
	}()

	eventsHandled.WithLabelValues(metricEventLabel(event)).Inc()

	var err error
	switch event {
	case EventJoinChat:
		var req JoinChatRequest
		if err = decode(raw, &req); err == nil {
			err = r.JoinChat(ctx, s, req)
		}
	case EventJoinChatRoom:
		var chatID string
		if chatID, err = chatIDFromPayload(raw); err == nil {
			err = r.JoinChatRoom(s, chatID)
		}
	case EventSendMessage:
		var req SendMessageRequest
		if req, err = DecodeLegacySendMessage(raw); err == nil {
			err = r.SendMessage(ctx, s, req)
		}
	case EventSendChatMessage:
		var req ChatMessageRequest
		if err = decode(raw, &req); err == nil {
			err = r.SendMessage(ctx, s, SendMessageRequest{Kind: SendLiveChat, Chat: &req})
		}
	case EventSendTicketMessage:
		var req TicketMessageRequest
		if err = decode(raw, &req); err == nil {
			err = r.SendMessage(ctx, s, SendMessageRequest{Kind: SendTicket, Ticket: &req})
		}
	case EventAssignChat:
		var req AssignChatRequest
		if err = decode(raw, &req); err != nil {
			if ack != nil {
				ack(AssignChatAck{Success: false, Error: asError(err).Message})
				return
			}
			break
		}
		var result AssignChatAck
		result, err = r.AssignChat(ctx, s, req)
		if ack != nil {
			ack(result)
			return
		}
	case EventAgentMessage:
		var req AgentMessageRequest
		if err = decode(raw, &req); err == nil {
			err = r.AgentMessage(ctx, s, req)
		}
	case EventJoinRoom, EventJoinTicketRoom:
		var ticketID string
		if ticketID, err = ticketIDFromPayload(raw); err == nil {
			err = r.JoinTicketRoom(s, ticketID)
		}
	case EventLeaveTicketRoom:
		var ticketID string
		if ticketID, err = ticketIDFromPayload(raw); err == nil {
			err = r.LeaveTicketRoom(s, ticketID)
		}
	default:
		r.log.Debug("ignoring unknown event", "event", event, "socket_id", s.ID())
		return
	}

	if err != nil {
		r.fail(s, event, err)
		return
	}
	if ack != nil {
		ack(map[string]bool{"success": true})
	}
}

func (r *Relay) fail(s Socket, event string, err error) {
	relayErr := asError(err)
	eventErrors.WithLabelValues(string(relayErr.Code)).Inc()

	log := r.log.With("event", event, "socket_id", s.ID(), "code", relayErr.Code)
	if relayErr.Code == ErrorCodeInternal {
		log.Error("event failed", "error", err)
	} else {
		log.Info("event rejected", "reason", relayErr.Message)
	}

	s.Emit(EventError, ErrorPayload{
		Message: relayErr.Message,
		Code:    relayErr.Code,
		Event:   event,
	})
}

func decode(raw json.RawMessage, v any) error {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		raw = []byte("{}")
	}
	if err := json.Unmarshal(raw, v); err != nil {
		return newError(ErrorCodeValidation, "Invalid payload", err)
	}
	return nil
}
