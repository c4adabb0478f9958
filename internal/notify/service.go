package notify

import (
	"context"
	"fmt"
	"strings"

	"github.com/zentexa/wabot-platform/internal/orders"
	"github.com/zentexa/wabot-platform/internal/tenant"
	"github.com/zentexa/wabot-platform/pkg/logging"
)

// Service emails the tenant when an order completes. A nil email sender
// disables delivery without disabling the rest of the pipeline.
type Service struct {
	email  EmailSender
	logger *logging.Logger
}

func NewService(email EmailSender, logger *logging.Logger) *Service {
	if logger == nil {
		logger = logging.Default()
	}
	return &Service{email: email, logger: logger}
}

// NotifyOrderCompleted sends the completed-order summary to the tenant's
// contact address.
func (s *Service) NotifyOrderCompleted(ctx context.Context, t *tenant.Tenant, o *orders.Order) error {
	if s.email == nil {
		s.logger.Debug("notify: email sender not configured, skipping")
		return nil
	}
	if t == nil || o == nil {
		return fmt.Errorf("notify: tenant and order required")
	}
	if t.ContactEmail == "" {
		s.logger.Debug("notify: tenant has no contact email", "tenant_id", t.ID)
		return nil
	}

	subject := fmt.Sprintf("Nouvelle commande confirmée : %s", t.Name)
	body := orderEmailBody(o)

	if err := s.email.Send(ctx, EmailMessage{
		To:      t.ContactEmail,
		ToName:  t.Name,
		Subject: subject,
		Body:    body,
	}); err != nil {
		return fmt.Errorf("notify: order completion email: %w", err)
	}

	s.logger.Info("order completion email sent",
		"tenant_id", t.ID, "order_id", o.ID, "to", t.ContactEmail)
	return nil
}

func orderEmailBody(o *orders.Order) string {
	var b strings.Builder
	b.WriteString("Une commande vient d'être confirmée sur WhatsApp.\n\n")
	fmt.Fprintf(&b, "Client : %s (%s)\n", o.CustomerName, o.CustomerID)
	if o.CustomerEmail != "" {
		fmt.Fprintf(&b, "E-mail : %s\n", o.CustomerEmail)
	}
	fmt.Fprintf(&b, "Coordonnées : %s\n", o.CustomerAddress)
	if o.Summary != "" {
		fmt.Fprintf(&b, "Demande initiale : %s\n", o.Summary)
	}
	if o.ProofSummary != "" {
		fmt.Fprintf(&b, "Preuve de paiement : %s\n", o.ProofSummary)
	}
	fmt.Fprintf(&b, "\nRéférence commande : %s\n", o.ID)
	if o.CompletedAt != nil {
		fmt.Fprintf(&b, "Confirmée le : %s\n", o.CompletedAt.Format("02/01/2006 à 15:04"))
	}
	return b.String()
}
