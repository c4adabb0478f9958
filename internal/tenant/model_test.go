package tenant

import (
	"context"
	"errors"
	"testing"
)

func TestParseBotMode(t *testing.T) {
	tests := []struct {
		in      string
		want    BotMode
		wantErr bool
	}{
		{"ecommerce", ModeEcommerce, false},
		{" Conversational ", ModeConversational, false},
		{"APPOINTMENT", ModeAppointment, false},
		{"delivery", ModeDelivery, false},
		{"", ModeConversational, false},
		{"shopping", "", true},
	}
	for _, tt := range tests {
		got, err := ParseBotMode(tt.in)
		if tt.wantErr {
			if !errors.Is(err, ErrInvalidBotMode) {
				t.Fatalf("ParseBotMode(%q) expected ErrInvalidBotMode, got %v", tt.in, err)
			}
			continue
		}
		if err != nil || got != tt.want {
			t.Fatalf("ParseBotMode(%q) = %v, %v; want %v", tt.in, got, err, tt.want)
		}
	}
}

func TestCreateRequestValidate(t *testing.T) {
	req := &CreateRequest{Name: "Boutique Alma", OwnerJID: "33612345678@s.whatsapp.net", BotMode: "ecommerce"}
	if err := req.Validate(); err != nil {
		t.Fatalf("valid request rejected: %v", err)
	}
	if err := (&CreateRequest{OwnerJID: "x"}).Validate(); !errors.Is(err, ErrMissingName) {
		t.Fatalf("expected ErrMissingName, got %v", err)
	}
	if err := (&CreateRequest{Name: "x"}).Validate(); !errors.Is(err, ErrMissingOwner) {
		t.Fatalf("expected ErrMissingOwner, got %v", err)
	}
}

func TestInMemoryRepositoryLifecycle(t *testing.T) {
	repo := NewInMemoryRepository()
	ctx := context.Background()

	created, err := repo.Create(ctx, &CreateRequest{
		Name:     "Boutique Alma",
		OwnerJID: "33612345678@s.whatsapp.net",
		BotMode:  "ecommerce",
	})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if !created.Active || created.Mode != ModeEcommerce {
		t.Fatalf("unexpected created tenant: %+v", created)
	}

	mode := "appointment"
	updated, err := repo.Update(ctx, created.ID, &UpdateRequest{BotMode: &mode})
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	if updated.Mode != ModeAppointment {
		t.Fatalf("expected appointment mode, got %s", updated.Mode)
	}

	if _, err := repo.GetByID(ctx, "missing"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}
