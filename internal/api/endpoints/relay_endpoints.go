package endpoints

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"helpdesk-relay/internal/dto"
	"helpdesk-relay/internal/relay"
	"helpdesk-relay/internal/websocket"
)

type AssignmentNotifier interface {
	EmitTicketAssignment(a relay.TicketAssignment) (bool, error)
}

type RoomSnapshotter interface {
	Snapshot(ctx context.Context) (websocket.Snapshot, error)
}

type RelayEndpoints interface {
	TicketAssignments(http.ResponseWriter, *http.Request) error
	Rooms(http.ResponseWriter, *http.Request) error
}

type relayEndpoints struct {
	notifier AssignmentNotifier
	rooms    RoomSnapshotter
}

func NewRelayEndpoints(notifier AssignmentNotifier, rooms RoomSnapshotter) RelayEndpoints {
	return &relayEndpoints{
		notifier: notifier,
		rooms:    rooms,
	}
}

func (h *relayEndpoints) TicketAssignments(w http.ResponseWriter, r *http.Request) error {
	return MethodHandler(w, r, map[string]func(http.ResponseWriter, *http.Request) error{
		http.MethodPost: h.handleTicketAssignment,
	})
}

func (h *relayEndpoints) Rooms(w http.ResponseWriter, r *http.Request) error {
	return MethodHandler(w, r, map[string]func(http.ResponseWriter, *http.Request) error{
		http.MethodGet: h.handleRooms,
	})
}

func (h *relayEndpoints) handleTicketAssignment(w http.ResponseWriter, r *http.Request) error {
	var req dto.TicketAssignmentRequest
	if err := decodeJSON(w, r, &req); err != nil {
		return err
	}

	assignment := relay.TicketAssignment{
		TicketID:     req.TicketID,
		AssigneeID:   req.AssigneeID,
		AssigneeName: req.AssigneeName,
		AssignedBy:   req.AssignedBy,
	}
	if len(req.Ticket) > 0 {
		assignment.Ticket = req.Ticket
	}

	delivered, err := h.notifier.EmitTicketAssignment(assignment)
	if err != nil {
		return relayError(err)
	}

	return WriteJSON(w, http.StatusAccepted, dto.TicketAssignmentResponse{Delivered: delivered})
}

func (h *relayEndpoints) handleRooms(w http.ResponseWriter, r *http.Request) error {
	if h.rooms == nil {
		return &HTTPError{
			StatusCode: http.StatusServiceUnavailable,
			Message:    "Transport not available.",
			ErrorLog:   fmt.Errorf("rooms requested without a hub"),
		}
	}

	snap, err := h.rooms.Snapshot(r.Context())
	if err != nil {
		return &HTTPError{
			StatusCode: http.StatusServiceUnavailable,
			Message:    "Transport not available.",
			ErrorLog:   fmt.Errorf("hub snapshot: %w", err),
		}
	}

	resp := dto.RoomsResponse{
		Connections: snap.Connections,
		Rooms:       make([]dto.RoomResponse, 0, len(snap.Rooms)),
	}
	for _, room := range snap.Rooms {
		resp.Rooms = append(resp.Rooms, dto.RoomResponse{ID: room.ID, Clients: room.Clients})
	}
	return WriteJSON(w, http.StatusOK, resp)
}

func relayError(err error) error {
	var relayErr *relay.Error
	if errors.As(err, &relayErr) && relayErr.Code == relay.ErrorCodeValidation {
		return &HTTPError{
			StatusCode: http.StatusBadRequest,
			Message:    relayErr.Message,
			ErrorLog:   err,
		}
	}
	return &HTTPError{
		StatusCode: http.StatusInternalServerError,
		Message:    "Internal server error",
		ErrorLog:   err,
	}
}
