package completion

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/zentexa/wabot-platform/internal/history"
	"github.com/zentexa/wabot-platform/internal/tenant"
	"github.com/zentexa/wabot-platform/pkg/logging"
)

// GenerateRequest is one customer turn handed to the backend.
type GenerateRequest struct {
	ConversationID string
	SenderName     string
	Message        string
	Image          *ImagePayload // optional inbound image
	FileNote       string        // optional descriptor of an attached file
}

// Gateway is the per-session completion front: it owns the tenant's system
// instruction, keeps the bounded conversation history and performs exactly
// one backend call per customer turn.
type Gateway struct {
	client  LLMClient
	history *history.Store
	tenant  *tenant.Tenant
	logger  *logging.Logger
	timeout time.Duration
}

// NewGateway builds a gateway for one session. Business data and credentials
// may be tenant-specific, so each session carries its own instance.
func NewGateway(client LLMClient, hist *history.Store, t *tenant.Tenant, timeout time.Duration, logger *logging.Logger) *Gateway {
	if client == nil {
		panic("completion: llm client required")
	}
	if hist == nil {
		hist = history.NewStore(0)
	}
	if logger == nil {
		logger = logging.Default()
	}
	if timeout <= 0 {
		timeout = 45 * time.Second
	}
	return &Gateway{
		client:  client,
		history: hist,
		tenant:  t,
		logger:  logger,
		timeout: timeout,
	}
}

// Generate produces the assistant reply for one customer message. History is
// only updated on success, so a failed call leaves the conversation intact.
func (g *Gateway) Generate(ctx context.Context, req GenerateRequest) (string, error) {
	userContent := strings.TrimSpace(req.Message)
	if req.FileNote != "" {
		userContent = strings.TrimSpace(userContent + "\n[pièce jointe : " + req.FileNote + "]")
	}
	if userContent == "" && req.Image == nil {
		return "", fmt.Errorf("completion: empty message")
	}

	msgs := append(g.history.Snapshot(req.ConversationID), history.Message{
		Role:    history.RoleUser,
		Content: userContent,
	})

	ctx, cancel := context.WithTimeout(ctx, g.timeout)
	defer cancel()

	resp, err := g.client.Complete(ctx, LLMRequest{
		System:   SystemPrompt(g.tenant, req.SenderName),
		Messages: toChatMessages(msgs),
		Image:    req.Image,
	})
	if err != nil {
		return "", err
	}
	if resp.Text == "" {
		return "", fmt.Errorf("completion: backend returned empty reply")
	}

	g.history.Append(req.ConversationID, history.Message{Role: history.RoleUser, Content: userContent})
	g.history.Append(req.ConversationID, history.Message{Role: history.RoleAssistant, Content: resp.Text})
	return resp.Text, nil
}

// DescribeImage runs a one-shot vision call outside any conversation; it is
// used to extract amount/date from payment-proof images.
func (g *Gateway) DescribeImage(ctx context.Context, img *ImagePayload) (string, error) {
	if img == nil || len(img.Data) == 0 {
		return "", fmt.Errorf("completion: image payload required")
	}

	ctx, cancel := context.WithTimeout(ctx, g.timeout)
	defer cancel()

	resp, err := g.client.Complete(ctx, LLMRequest{
		System:   []string{visionPrompt},
		Messages: []ChatMessage{{Role: ChatRoleUser, Content: "Voici la preuve de paiement."}},
		Image:    img,
	})
	if err != nil {
		return "", err
	}
	return resp.Text, nil
}

// DropConversation forgets one conversation's history.
func (g *Gateway) DropConversation(conversationID string) {
	g.history.Drop(conversationID)
}

func toChatMessages(msgs []history.Message) []ChatMessage {
	out := make([]ChatMessage, 0, len(msgs))
	for _, m := range msgs {
		out = append(out, ChatMessage{Role: m.Role, Content: m.Content})
	}
	return out
}
