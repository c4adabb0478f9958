package events

import "time"

// Type identifies the kind of session event pushed to dashboard subscribers.
type Type string

const (
	TypeQR              Type = "qr"
	TypeReady           Type = "ready"
	TypeDisconnected    Type = "disconnected"
	TypeMessageReceived Type = "messageReceived"
	TypeMessageSent     Type = "messageSent"
	TypeSessionStopped  Type = "sessionStopped"
	TypeInitFailed      Type = "initFailed"
	TypeError           Type = "error"
)

// SessionEvent is the envelope fanned out to push-channel subscribers.
// Exactly one of the payload pointers is set, matching Type.
type SessionEvent struct {
	EventID   string    `json:"event_id"`
	SessionID string    `json:"session_id"`
	TenantID  string    `json:"tenant_id"`
	Type      Type      `json:"type"`
	At        time.Time `json:"at"`

	QR           *QRPayload           `json:"qr,omitempty"`
	Disconnected *DisconnectedPayload `json:"disconnected,omitempty"`
	Message      *MessagePayload      `json:"message,omitempty"`
	Failure      *FailurePayload      `json:"failure,omitempty"`
}

// QRPayload carries the raw link code; the dashboard renders the QR image
// client-side from this string.
type QRPayload struct {
	Code    string `json:"code"`
	DataURL string `json:"data_url,omitempty"`
}

type DisconnectedPayload struct {
	Reason string `json:"reason"`
}

// MessagePayload describes an inbound or outbound chat message.
type MessagePayload struct {
	From     string    `json:"from,omitempty"`
	To       string    `json:"to,omitempty"`
	Text     string    `json:"text"`
	HasMedia bool      `json:"has_media"`
	At       time.Time `json:"ts"`
}

// FailurePayload describes a session-level failure (init exhaustion,
// teardown error, handler error surfaced to the dashboard).
type FailurePayload struct {
	Stage   string `json:"stage"`
	Message string `json:"message"`
	Reason  string `json:"reason,omitempty"`
}
