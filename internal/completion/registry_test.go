package completion

import (
	"context"
	"testing"
)

func TestRegistryLookup(t *testing.T) {
	r := NewRegistry()
	r.Register("OpenAI", func(ctx context.Context) (LLMClient, error) {
		return &fakeLLM{}, nil
	})

	if _, err := r.Get(context.Background(), "openai"); err != nil {
		t.Fatalf("case-insensitive lookup failed: %v", err)
	}
	if _, err := r.Get(context.Background(), "mistral"); err == nil {
		t.Fatal("expected error for unknown provider")
	}
}
