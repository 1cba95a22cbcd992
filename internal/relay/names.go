package relay

import (
	"context"
	"errors"
	"strings"

	"helpdesk-relay/internal/model"

	"github.com/google/uuid"
)

const (
	fallbackCustomerName = "Customer"
	fallbackAgentName    = "Agent"
	fallbackAdminName    = "Admin"
)

// displayName resolves the name shown next to a ticket message. Customers are
// looked up through the conversation's customer when it is known.
func (r *Relay) displayName(ctx context.Context, senderType model.SenderType, senderID string, conv model.ConversationItem) string {
	switch senderType {
	case model.SenderAgent:
		return r.agentName(ctx, senderID)
	case model.SenderAdmin:
		if senderID == "" {
			return fallbackAdminName
		}
		admin, err := r.repo.GetAdmin(ctx, senderID)
		if err != nil {
			r.logLookupFailure("admin", senderID, err)
			return fallbackAdminName
		}
		return nonEmpty(admin.Name, fallbackAdminName)
	default:
		customerID := conv.CustomerID
		if customerID == "" {
			customerID = senderID
		}
		if customerID == "" {
			return fallbackCustomerName
		}
		customer, err := r.repo.GetCustomer(ctx, customerID)
		if err != nil {
			r.logLookupFailure("customer", customerID, err)
			return fallbackCustomerName
		}
		return nonEmpty(customer.Name, fallbackCustomerName)
	}
}

func (r *Relay) agentName(ctx context.Context, agentID string) string {
	if agentID == "" {
		return fallbackAgentName
	}
	agent, err := r.repo.GetAgent(ctx, agentID)
	if err != nil {
		r.logLookupFailure("agent", agentID, err)
		return fallbackAgentName
	}
	return nonEmpty(agent.Name, fallbackAgentName)
}

// resolveCustomerID maps an email-shaped sender id to the internal customer id.
// Ids that parse as UUIDs are never treated as emails.
func (r *Relay) resolveCustomerID(ctx context.Context, senderID string) string {
	if !looksLikeEmail(senderID) {
		return senderID
	}
	customer, err := r.repo.FindCustomerByEmail(ctx, senderID)
	if err != nil {
		r.logLookupFailure("customer email", senderID, err)
		return senderID
	}
	return customer.CustomerID
}

func looksLikeEmail(id string) bool {
	if _, err := uuid.Parse(id); err == nil {
		return false
	}
	return strings.Contains(id, "@")
}

func (r *Relay) logLookupFailure(kind, id string, err error) {
	if errors.Is(err, ErrNotFound) {
		r.log.Debug("lookup found nothing", "kind", kind, "id", id)
		return
	}
	r.log.Warn("lookup failed", "kind", kind, "id", id, "error", err)
}

func nonEmpty(values ...string) string {
	for _, v := range values {
		if v = strings.TrimSpace(v); v != "" {
			return v
		}
	}
	return ""
}
