package mcpserver

import (
	"context"
	"fmt"
	"math/rand/v2"
	"time"
)

// SupportTicketInput describes a support request raised on behalf of a user.
type SupportTicketInput struct {
	UserID  string `json:"user_id" jsonschema:"Identifier of the user the ticket is for" validate:"required"`
	Subject string `json:"subject" jsonschema:"Short summary of the issue" validate:"required"`
	Body    string `json:"body" jsonschema:"Full description of the issue" validate:"required"`
}

// CreateSupportTicket records a support request and returns its reference.
// Tickets are acknowledged locally; there is no external ticketing backend.
func (h *Handlers) CreateSupportTicket(_ context.Context, in SupportTicketInput) (map[string]any, error) {
	if err := validateInput(in); err != nil {
		return nil, err
	}

	ticketID := fmt.Sprintf("TICKET-%d", 10000+rand.IntN(90000))
	return map[string]any{
		"ticket_id":  ticketID,
		"status":     "open",
		"user_id":    in.UserID,
		"subject":    in.Subject,
		"created_at": time.Now().UTC().Format(time.RFC3339),
		"message":    fmt.Sprintf("support ticket %s created for %s", ticketID, in.UserID),
		"request_info": map[string]any{
			"tool": "create_support_ticket",
		},
	}, nil
}
