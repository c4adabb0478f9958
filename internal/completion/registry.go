package completion

import (
	"context"
	"fmt"
	"strings"
	"sync"
)

// ProviderFactory builds an LLMClient for one backend name.
type ProviderFactory func(ctx context.Context) (LLMClient, error)

// Registry maps provider names ("openai", "gemini", "bedrock") to factories.
type Registry struct {
	mu        sync.RWMutex
	factories map[string]ProviderFactory
}

func NewRegistry() *Registry {
	return &Registry{factories: make(map[string]ProviderFactory)}
}

func (r *Registry) Register(name string, f ProviderFactory) {
	name = strings.ToLower(strings.TrimSpace(name))
	r.mu.Lock()
	defer r.mu.Unlock()
	r.factories[name] = f
}

func (r *Registry) Get(ctx context.Context, name string) (LLMClient, error) {
	name = strings.ToLower(strings.TrimSpace(name))
	r.mu.RLock()
	f, ok := r.factories[name]
	r.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("completion: unknown provider: %s", name)
	}
	return f(ctx)
}
