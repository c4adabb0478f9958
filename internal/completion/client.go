// Package completion wraps the generative-text backend: it maintains bounded
// per-conversation history, assembles tenant-specific system instructions and
// surfaces a small failure taxonomy so callers never show a raw backend error
// to a customer.
package completion

import (
	"context"
	"errors"
)

const (
	ChatRoleSystem    = "system"
	ChatRoleUser      = "user"
	ChatRoleAssistant = "assistant"
)

// Failure taxonomy. Anything not matching these two sentinels is treated as
// a transient backend failure.
var (
	ErrQuota = errors.New("completion: quota exceeded")
	ErrAuth  = errors.New("completion: authentication or configuration error")
)

// ChatMessage is an internal message representation that can include system prompts.
type ChatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// ImagePayload carries inline image bytes for vision requests.
type ImagePayload struct {
	MimeType string
	Data     []byte
}

type LLMRequest struct {
	Model       string
	System      []string
	Messages    []ChatMessage
	Image       *ImagePayload // attached to the last user message when set
	MaxTokens   int32
	Temperature float32
}

type LLMResponse struct {
	Text       string
	StopReason string
}

// LLMClient is a single text/vision completion backend.
type LLMClient interface {
	Complete(ctx context.Context, req LLMRequest) (LLMResponse, error)
}

// ApologyFor maps a backend failure to the user-facing reply for that
// failure kind. The customer always gets one of these, never a raw error.
func ApologyFor(err error) string {
	switch {
	case errors.Is(err, ErrQuota):
		return "Je suis un peu débordé en ce moment, merci de réessayer dans quelques minutes. 🙏"
	case errors.Is(err, ErrAuth):
		return "Le service de réponse automatique est momentanément indisponible. Un conseiller vous répondra dès que possible."
	default:
		return "Désolé, je n'ai pas pu traiter votre message. Pouvez-vous réessayer ?"
	}
}
