package orders

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/zentexa/wabot-platform/internal/completion"
	"github.com/zentexa/wabot-platform/internal/tenant"
)

type fakeVision struct {
	desc string
	err  error
}

func (v *fakeVision) DescribeImage(ctx context.Context, img *completion.ImagePayload) (string, error) {
	return v.desc, v.err
}

func ecommerceTenant() *tenant.Tenant {
	return &tenant.Tenant{
		ID:       "t1",
		Name:     "Boutique Alma",
		Mode:     tenant.ModeEcommerce,
		OwnerJID: "owner@s.whatsapp.net",
		BankRef:  "IBAN FR76 0000",
	}
}

func TestFlowFullPurchaseScenario(t *testing.T) {
	repo := NewInMemoryRepository()
	f := NewFlow(ecommerceTenant(), repo, nil, &fakeVision{desc: "Virement de 120 EUR le 12/03"}, nil)
	ctx := context.Background()

	res := f.Handle(ctx, Inbound{CustomerID: "c1", CustomerName: "Jean", Text: "je veux acheter le sac en cuir"})
	if !res.Handled || !strings.Contains(res.Reply, ConfirmToken) {
		t.Fatalf("expected confirmation prompt with token, got %+v", res)
	}
	if got := f.State("c1"); got != StateAwaitingConfirmation {
		t.Fatalf("state = %q", got)
	}

	// Anything but the token re-prompts without advancing.
	res = f.Handle(ctx, Inbound{CustomerID: "c1", Text: "oui d'accord"})
	if !res.Handled || !strings.Contains(res.Reply, ConfirmToken) {
		t.Fatalf("expected re-prompt, got %+v", res)
	}
	if got := f.State("c1"); got != StateAwaitingConfirmation {
		t.Fatalf("state advanced on non-token input: %q", got)
	}

	res = f.Handle(ctx, Inbound{CustomerID: "c1", Text: "confirmer"})
	if !res.Handled || !strings.Contains(res.Reply, "IBAN FR76 0000") {
		t.Fatalf("expected payment prompt with bank ref, got %+v", res)
	}
	if got := f.State("c1"); got != StateAwaitingPayment {
		t.Fatalf("state = %q", got)
	}

	// Textual payment claim without proof asks for proof, no advance.
	res = f.Handle(ctx, Inbound{CustomerID: "c1", Text: "j'ai payé"})
	if !res.Handled || !strings.Contains(res.Reply, "preuve") {
		t.Fatalf("expected proof request, got %+v", res)
	}
	if got := f.State("c1"); got != StateAwaitingPayment {
		t.Fatalf("state = %q", got)
	}

	res = f.Handle(ctx, Inbound{
		CustomerID: "c1",
		Image:      &completion.ImagePayload{MimeType: "image/jpeg", Data: []byte{0xff}},
		ProofRef:   "proof-1.jpg",
	})
	if !res.Handled {
		t.Fatalf("image should advance to info collection, got %+v", res)
	}
	if got := f.State("c1"); got != StateAwaitingInfo {
		t.Fatalf("state = %q", got)
	}

	res = f.Handle(ctx, Inbound{CustomerID: "c1", Text: "Jean Dupont, 12 rue du Port, jean@exemple.fr"})
	if !res.Handled || res.Completed == nil {
		t.Fatalf("expected completion, got %+v", res)
	}
	if res.OwnerTo != "owner@s.whatsapp.net" {
		t.Fatalf("handoff target = %q", res.OwnerTo)
	}
	for _, want := range []string{"Jean Dupont", "jean@exemple.fr", "Virement de 120 EUR"} {
		if !strings.Contains(res.OwnerMessage, want) {
			t.Fatalf("handoff message missing %q:\n%s", want, res.OwnerMessage)
		}
	}
	if res.Completed.State != StateCompleted || res.Completed.CompletedAt == nil {
		t.Fatalf("order not terminal: %+v", res.Completed)
	}
	if got := f.State("c1"); got != StateNone {
		t.Fatalf("state entry should be removed after completion, got %q", got)
	}

	// Durable record reflects the terminal state.
	if _, err := repo.GetActive(ctx, "t1", "c1"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("no active order expected, got %v", err)
	}
}

func TestFlowIgnoresNonEcommerceTenants(t *testing.T) {
	tn := ecommerceTenant()
	tn.Mode = tenant.ModeConversational
	f := NewFlow(tn, nil, nil, &fakeVision{}, nil)

	res := f.Handle(context.Background(), Inbound{CustomerID: "c1", Text: "je veux acheter"})
	if res.Handled {
		t.Fatal("conversational tenant must never enter the purchase flow")
	}
}

func TestFlowChatDuringAwaitingPaymentPassesThrough(t *testing.T) {
	f := NewFlow(ecommerceTenant(), nil, nil, &fakeVision{}, nil)
	ctx := context.Background()

	f.Handle(ctx, Inbound{CustomerID: "c1", Text: "je commande la lampe"})
	f.Handle(ctx, Inbound{CustomerID: "c1", Text: "CONFIRMER"})

	res := f.Handle(ctx, Inbound{CustomerID: "c1", Text: "quels sont vos horaires ?"})
	if res.Handled {
		t.Fatal("regular chat while awaiting payment should reach the assistant")
	}
	if got := f.State("c1"); got != StateAwaitingPayment {
		t.Fatalf("state = %q", got)
	}
}

func TestFlowVisionFailureResetsState(t *testing.T) {
	f := NewFlow(ecommerceTenant(), nil, nil, &fakeVision{err: errors.New("backend down")}, nil)
	ctx := context.Background()

	f.Handle(ctx, Inbound{CustomerID: "c1", Text: "je veux acheter"})
	f.Handle(ctx, Inbound{CustomerID: "c1", Text: "CONFIRMER"})

	res := f.Handle(ctx, Inbound{
		CustomerID: "c1",
		Image:      &completion.ImagePayload{MimeType: "image/jpeg", Data: []byte{0xff}},
	})
	if !res.Handled || !strings.Contains(res.Reply, "support") {
		t.Fatalf("expected support reply, got %+v", res)
	}
	if got := f.State("c1"); got != StateNone {
		t.Fatalf("state should be dropped after failure, got %q", got)
	}

	// The customer is not wedged: a new purchase can start immediately.
	res = f.Handle(ctx, Inbound{CustomerID: "c1", Text: "je veux acheter encore"})
	if !res.Handled || !strings.Contains(res.Reply, ConfirmToken) {
		t.Fatalf("expected fresh confirmation prompt, got %+v", res)
	}
}

func TestFlowShortInfoMessageReprompts(t *testing.T) {
	f := NewFlow(ecommerceTenant(), nil, nil, &fakeVision{desc: "ok"}, nil)
	ctx := context.Background()

	f.Handle(ctx, Inbound{CustomerID: "c1", Text: "je veux acheter"})
	f.Handle(ctx, Inbound{CustomerID: "c1", Text: "CONFIRMER"})
	f.Handle(ctx, Inbound{CustomerID: "c1", Image: &completion.ImagePayload{MimeType: "image/png", Data: []byte{1}}})

	res := f.Handle(ctx, Inbound{CustomerID: "c1", Text: "Jean"})
	if !res.Handled || res.Completed != nil {
		t.Fatalf("short info must not complete, got %+v", res)
	}
	if got := f.State("c1"); got != StateAwaitingInfo {
		t.Fatalf("state = %q", got)
	}
}

func TestParseName(t *testing.T) {
	tests := []struct {
		info  string
		email string
		want  string
	}{
		{"Jean Dupont, 12 rue du Port, jean@exemple.fr", "jean@exemple.fr", "Jean Dupont"},
		{"Marie Curie\n5 avenue des Sciences", "", "Marie Curie"},
		{"paul durand martin petit", "", "paul durand martin"},
	}
	for _, tt := range tests {
		if got := parseName(tt.info, tt.email); got != tt.want {
			t.Errorf("parseName(%q) = %q, want %q", tt.info, got, tt.want)
		}
	}
}
