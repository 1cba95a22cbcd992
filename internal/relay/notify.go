package relay

import (
	"strings"

	"helpdesk-relay/internal/model"
)

// TicketAssignment is pushed by the ticketing backend when a ticket changes hands.
type TicketAssignment struct {
	TicketID     string      `json:"ticketId" validate:"required"`
	AssigneeID   string      `json:"assigneeId" validate:"required"`
	AssigneeName string      `json:"assigneeName,omitempty"`
	AssignedBy   string      `json:"assignedBy,omitempty"`
	Ticket       interface{} `json:"ticket,omitempty"`
}

// EmitTicketAssignment notifies every socket of the assignee. It reports
// whether the notification was handed to a transport.
func (r *Relay) EmitTicketAssignment(a TicketAssignment) (bool, error) {
	a.TicketID = strings.TrimSpace(a.TicketID)
	a.AssigneeID = strings.TrimSpace(a.AssigneeID)
	if err := r.check(a); err != nil {
		return false, err
	}
	if r.broadcaster == nil {
		r.log.Warn("no transport attached, ticket assignment dropped", "ticket_id", a.TicketID, "assignee_id", a.AssigneeID)
		return false, nil
	}

	r.broadcaster.ToRoom(PersonalRoom(RoleAgent, a.AssigneeID), EventTicketAssigned, TicketAssignedPayload{
		TicketID:     a.TicketID,
		AssigneeID:   a.AssigneeID,
		AssigneeName: a.AssigneeName,
		AssignedBy:   a.AssignedBy,
		Ticket:       a.Ticket,
		Timestamp:    model.FormatTime(r.now()),
	})
	r.log.Info("ticket assignment sent", "ticket_id", a.TicketID, "assignee_id", a.AssigneeID)
	return true, nil
}
