package dto

import "encoding/json"

// TicketAssignmentRequest is posted by the ticketing backend after it
// reassigns a ticket.
type TicketAssignmentRequest struct {
	TicketID     string          `json:"ticketId"`
	AssigneeID   string          `json:"assigneeId"`
	AssigneeName string          `json:"assigneeName,omitempty"`
	AssignedBy   string          `json:"assignedBy,omitempty"`
	Ticket       json.RawMessage `json:"ticket,omitempty"`
}

type TicketAssignmentResponse struct {
	Delivered bool `json:"delivered"`
}

type RoomResponse struct {
	ID      string `json:"id"`
	Clients int    `json:"clients"`
}

type RoomsResponse struct {
	Connections int            `json:"connections"`
	Rooms       []RoomResponse `json:"rooms"`
}

type HealthResponse struct {
	Status string `json:"status"`
}
