package tenant

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

var (
	ErrNotFound       = errors.New("tenant: not found")
	ErrMissingName    = errors.New("tenant: display name is required")
	ErrMissingOwner   = errors.New("tenant: owner outward id is required")
	ErrInvalidBotMode = errors.New("tenant: invalid bot mode")
)

// BotMode selects which conversational sub-flow a tenant's sessions run.
// Only ModeEcommerce wires up the purchase state machine.
type BotMode string

const (
	ModeConversational BotMode = "conversational"
	ModeEcommerce      BotMode = "ecommerce"
	ModeAppointment    BotMode = "appointment"
	ModeDelivery       BotMode = "delivery"
)

// ParseBotMode validates a mode string coming from config or the API.
func ParseBotMode(s string) (BotMode, error) {
	switch BotMode(strings.ToLower(strings.TrimSpace(s))) {
	case ModeConversational:
		return ModeConversational, nil
	case ModeEcommerce:
		return ModeEcommerce, nil
	case ModeAppointment:
		return ModeAppointment, nil
	case ModeDelivery:
		return ModeDelivery, nil
	case "":
		return ModeConversational, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrInvalidBotMode, s)
	}
}

// Tenant is a business account configuring one or more chat sessions.
type Tenant struct {
	ID           string    `json:"id"`
	Name         string    `json:"name"`
	ContactEmail string    `json:"contact_email"`
	OwnerJID     string    `json:"owner_outward_id"` // where order handoffs are sent
	BankRef      string    `json:"bank_ref,omitempty"`
	Mode         BotMode   `json:"bot_mode"`
	BusinessData string    `json:"business_data"` // free text injected into the completion prompt
	Active       bool      `json:"active"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// CreateRequest is the payload for registering a tenant.
type CreateRequest struct {
	Name         string `json:"name"`
	ContactEmail string `json:"contact_email"`
	OwnerJID     string `json:"owner_outward_id"`
	BankRef      string `json:"bank_ref"`
	BotMode      string `json:"bot_mode"`
	BusinessData string `json:"business_data"`
}

// Validate checks the request before it hits storage.
func (r *CreateRequest) Validate() error {
	if strings.TrimSpace(r.Name) == "" {
		return ErrMissingName
	}
	if strings.TrimSpace(r.OwnerJID) == "" {
		return ErrMissingOwner
	}
	if _, err := ParseBotMode(r.BotMode); err != nil {
		return err
	}
	return nil
}

// UpdateRequest carries owner-editable configuration. Nil fields are left
// unchanged.
type UpdateRequest struct {
	Name         *string `json:"name,omitempty"`
	ContactEmail *string `json:"contact_email,omitempty"`
	OwnerJID     *string `json:"owner_outward_id,omitempty"`
	BankRef      *string `json:"bank_ref,omitempty"`
	BotMode      *string `json:"bot_mode,omitempty"`
	BusinessData *string `json:"business_data,omitempty"`
	Active       *bool   `json:"active,omitempty"`
}
