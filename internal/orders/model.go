package orders

import (
	"errors"
	"time"
)

// State tracks where a customer order stands in the purchase flow.
type State string

const (
	StateNone                 State = "none"
	StateAwaitingConfirmation State = "awaiting_confirmation"
	StateAwaitingPayment      State = "awaiting_payment"
	StateAwaitingInfo         State = "awaiting_info"
	StateCompleted            State = "completed"
)

// ConfirmToken is the literal reply required to confirm an order.
const ConfirmToken = "CONFIRMER"

var (
	ErrNotFound      = errors.New("orders: not found")
	ErrAlreadyActive = errors.New("orders: customer already has an order in flight")
)

// Order is one purchase in flight for a (tenant, customer) pair. The flow
// is the only writer until the order reaches a terminal state.
type Order struct {
	ID              string     `json:"id"`
	TenantID        string     `json:"tenantId"`
	CustomerID      string     `json:"customerId"`
	Summary         string     `json:"summary"`
	CustomerName    string     `json:"customerName,omitempty"`
	CustomerAddress string     `json:"customerAddress,omitempty"`
	CustomerEmail   string     `json:"customerEmail,omitempty"`
	ProofRef        string     `json:"proofRef,omitempty"`
	ProofSummary    string     `json:"proofSummary,omitempty"`
	PaymentMethod   string     `json:"paymentMethod,omitempty"`
	State           State      `json:"state"`
	CreatedAt       time.Time  `json:"createdAt"`
	CompletedAt     *time.Time `json:"completedAt,omitempty"`
}
