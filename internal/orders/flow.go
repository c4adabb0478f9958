package orders

import (
	"context"
	"fmt"
	"regexp"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/zentexa/wabot-platform/internal/completion"
	"github.com/zentexa/wabot-platform/internal/tenant"
	"github.com/zentexa/wabot-platform/pkg/logging"
)

// Describer extracts a textual description from a payment-proof image.
// The completion gateway satisfies it.
type Describer interface {
	DescribeImage(ctx context.Context, img *completion.ImagePayload) (string, error)
}

// Inbound is one customer message as seen by the purchase flow.
type Inbound struct {
	CustomerID   string
	CustomerName string
	Text         string
	Image        *completion.ImagePayload
	ProofRef     string
}

// Result tells the caller what to do with the message. When Handled is
// false the message belongs to the normal conversation pipeline. OwnerTo
// and OwnerMessage carry the handoff to the tenant owner; Completed is set
// when the order just reached its terminal state.
type Result struct {
	Handled      bool
	Reply        string
	OwnerTo      string
	OwnerMessage string
	Completed    *Order
}

const minInfoChars = 10

var emailPattern = regexp.MustCompile(`[a-zA-Z0-9._%+\-]+@[a-zA-Z0-9.\-]+\.[a-zA-Z]{2,}`)

// Flow drives the purchase state machine for one tenant. One instance per
// session; callers serialize messages per customer.
type Flow struct {
	tenant   *tenant.Tenant
	repo     Repository
	detector IntentDetector
	vision   Describer
	logger   *logging.Logger

	mu     sync.Mutex
	active map[string]*Order
}

func NewFlow(t *tenant.Tenant, repo Repository, detector IntentDetector, vision Describer, logger *logging.Logger) *Flow {
	if t == nil {
		panic("orders: tenant required")
	}
	if repo == nil {
		repo = NewInMemoryRepository()
	}
	if detector == nil {
		detector = KeywordDetector{}
	}
	if logger == nil {
		logger = logging.Default()
	}
	return &Flow{
		tenant:   t,
		repo:     repo,
		detector: detector,
		vision:   vision,
		logger:   logger,
		active:   make(map[string]*Order),
	}
}

// Handle runs one customer message through the state machine. Any internal
// failure drops the customer's state entry and tells them to contact
// support, so a wedged order never blocks future messages.
func (f *Flow) Handle(ctx context.Context, in Inbound) Result {
	if f.tenant.Mode != tenant.ModeEcommerce {
		return Result{}
	}

	f.mu.Lock()
	o := f.active[in.CustomerID]
	f.mu.Unlock()

	if o == nil {
		if !f.detector.PurchaseIntent(in.Text, "") {
			return Result{}
		}
		res, err := f.start(ctx, in)
		if err != nil {
			return f.failsafe(ctx, in.CustomerID, err)
		}
		return res
	}

	res, err := f.advance(ctx, o, in)
	if err != nil {
		return f.failsafe(ctx, in.CustomerID, err)
	}
	return res
}

// State reports the customer's current position for tests and diagnostics.
func (f *Flow) State(customerID string) State {
	f.mu.Lock()
	defer f.mu.Unlock()
	if o := f.active[customerID]; o != nil {
		return o.State
	}
	return StateNone
}

func (f *Flow) start(ctx context.Context, in Inbound) (Result, error) {
	o := &Order{
		ID:           uuid.NewString(),
		TenantID:     f.tenant.ID,
		CustomerID:   in.CustomerID,
		CustomerName: in.CustomerName,
		Summary:      strings.TrimSpace(in.Text),
		State:        StateAwaitingConfirmation,
		CreatedAt:    time.Now().UTC(),
	}
	if err := f.repo.Create(ctx, o); err != nil {
		return Result{}, fmt.Errorf("orders: open order for %s: %w", in.CustomerID, err)
	}
	f.mu.Lock()
	f.active[in.CustomerID] = o
	f.mu.Unlock()

	f.logger.Info("order opened",
		"tenant_id", f.tenant.ID, "customer_id", in.CustomerID, "order_id", o.ID)
	return Result{Handled: true, Reply: f.confirmPrompt()}, nil
}

func (f *Flow) advance(ctx context.Context, o *Order, in Inbound) (Result, error) {
	switch o.State {
	case StateAwaitingConfirmation:
		if strings.EqualFold(strings.TrimSpace(in.Text), ConfirmToken) {
			o.State = StateAwaitingPayment
			if err := f.repo.Update(ctx, o); err != nil {
				return Result{}, err
			}
			return Result{Handled: true, Reply: f.paymentPrompt()}, nil
		}
		return Result{Handled: true, Reply: f.confirmPrompt()}, nil

	case StateAwaitingPayment:
		if in.Image != nil {
			desc, err := f.vision.DescribeImage(ctx, in.Image)
			if err != nil {
				return Result{}, fmt.Errorf("orders: proof extraction: %w", err)
			}
			o.ProofSummary = desc
			o.ProofRef = in.ProofRef
			o.State = StateAwaitingInfo
			if err := f.repo.Update(ctx, o); err != nil {
				return Result{}, err
			}
			return Result{Handled: true, Reply: replyAskInfo}, nil
		}
		if f.detector.PaymentClaim(in.Text) {
			return Result{Handled: true, Reply: replyAskProof}, nil
		}
		// Regular chat while payment is pending stays with the assistant.
		return Result{}, nil

	case StateAwaitingInfo:
		text := strings.TrimSpace(in.Text)
		if len([]rune(text)) < minInfoChars {
			return Result{Handled: true, Reply: replyAskInfo}, nil
		}
		return f.complete(ctx, o, text)
	}

	return Result{}, fmt.Errorf("orders: unexpected state %q for %s", o.State, in.CustomerID)
}

func (f *Flow) complete(ctx context.Context, o *Order, info string) (Result, error) {
	o.CustomerEmail = emailPattern.FindString(info)
	o.CustomerName = parseName(info, o.CustomerEmail)
	o.CustomerAddress = info
	o.State = StateCompleted
	now := time.Now().UTC()
	o.CompletedAt = &now

	if err := f.repo.Update(ctx, o); err != nil {
		return Result{}, err
	}

	f.mu.Lock()
	delete(f.active, o.CustomerID)
	f.mu.Unlock()

	f.logger.Info("order completed",
		"tenant_id", f.tenant.ID, "customer_id", o.CustomerID, "order_id", o.ID)

	cp := *o
	return Result{
		Handled:      true,
		Reply:        replyCompleted,
		OwnerTo:      f.tenant.OwnerJID,
		OwnerMessage: handoffMessage(&cp),
		Completed:    &cp,
	}, nil
}

func (f *Flow) failsafe(ctx context.Context, customerID string, err error) Result {
	f.logger.Error("order flow error, resetting customer state",
		"tenant_id", f.tenant.ID, "customer_id", customerID, "error", err)

	f.mu.Lock()
	o := f.active[customerID]
	delete(f.active, customerID)
	f.mu.Unlock()

	if o != nil {
		o.State = StateNone
		if updErr := f.repo.Update(ctx, o); updErr != nil {
			f.logger.Error("order reset not persisted", "order_id", o.ID, "error", updErr)
		}
	}
	return Result{Handled: true, Reply: replySupport}
}

func (f *Flow) confirmPrompt() string {
	return fmt.Sprintf("Pour confirmer votre commande, répondez simplement : %s", ConfirmToken)
}

func (f *Flow) paymentPrompt() string {
	msg := "Commande confirmée ! Veuillez effectuer le paiement puis envoyer une photo de la preuve de paiement."
	if f.tenant.BankRef != "" {
		msg += " Coordonnées de paiement : " + f.tenant.BankRef
	}
	return msg
}

const (
	replyAskProof  = "Merci ! Pour valider le paiement, envoyez une photo de la preuve de paiement."
	replyAskInfo   = "Paiement bien reçu. Envoyez maintenant vos coordonnées : nom, adresse et e-mail."
	replyCompleted = "Merci, votre commande est enregistrée ! Le vendeur vous contactera pour la livraison."
	replySupport   = "Une erreur est survenue lors du traitement de votre commande. Veuillez contacter le support."
)

func handoffMessage(o *Order) string {
	var b strings.Builder
	b.WriteString("Nouvelle commande confirmée\n")
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
	fmt.Fprintf(&b, "Référence : %s", o.ID)
	return b.String()
}

// parseName extracts a best-effort customer name: first line of the info
// message, cut at the first comma, capped at three words. The email address
// is stripped out first.
func parseName(info, email string) string {
	if email != "" {
		info = strings.ReplaceAll(info, email, "")
	}
	line := info
	if i := strings.IndexByte(info, '\n'); i >= 0 {
		line = info[:i]
	}
	if i := strings.IndexByte(line, ','); i >= 0 {
		line = line[:i]
	}
	line = strings.Trim(line, " \t,;:-")
	words := strings.Fields(line)
	if len(words) > 3 {
		words = words[:3]
	}
	return strings.Join(words, " ")
}
