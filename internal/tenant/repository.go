package tenant

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Repository defines the interface for tenant storage
type Repository interface {
	Create(ctx context.Context, req *CreateRequest) (*Tenant, error)
	GetByID(ctx context.Context, id string) (*Tenant, error)
	Update(ctx context.Context, id string, req *UpdateRequest) (*Tenant, error)
	List(ctx context.Context) ([]*Tenant, error)
}

// InMemoryRepository keeps tenants in a map; used in tests and local dev.
type InMemoryRepository struct {
	mu      sync.RWMutex
	tenants map[string]*Tenant
}

// NewInMemoryRepository creates a new in-memory repository
func NewInMemoryRepository() *InMemoryRepository {
	return &InMemoryRepository{
		tenants: make(map[string]*Tenant),
	}
}

// Create registers a new tenant in memory
func (r *InMemoryRepository) Create(ctx context.Context, req *CreateRequest) (*Tenant, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}
	mode, _ := ParseBotMode(req.BotMode)

	now := time.Now().UTC()
	t := &Tenant{
		ID:           uuid.New().String(),
		Name:         req.Name,
		ContactEmail: req.ContactEmail,
		OwnerJID:     req.OwnerJID,
		BankRef:      req.BankRef,
		Mode:         mode,
		BusinessData: req.BusinessData,
		Active:       true,
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	r.mu.Lock()
	r.tenants[t.ID] = t
	r.mu.Unlock()

	return t, nil
}

// GetByID retrieves a tenant by ID
func (r *InMemoryRepository) GetByID(ctx context.Context, id string) (*Tenant, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	t, ok := r.tenants[id]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *t
	return &cp, nil
}

// Update applies the non-nil fields of req.
func (r *InMemoryRepository) Update(ctx context.Context, id string, req *UpdateRequest) (*Tenant, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	t, ok := r.tenants[id]
	if !ok {
		return nil, ErrNotFound
	}
	if req.Name != nil {
		t.Name = *req.Name
	}
	if req.ContactEmail != nil {
		t.ContactEmail = *req.ContactEmail
	}
	if req.OwnerJID != nil {
		t.OwnerJID = *req.OwnerJID
	}
	if req.BankRef != nil {
		t.BankRef = *req.BankRef
	}
	if req.BotMode != nil {
		mode, err := ParseBotMode(*req.BotMode)
		if err != nil {
			return nil, err
		}
		t.Mode = mode
	}
	if req.BusinessData != nil {
		t.BusinessData = *req.BusinessData
	}
	if req.Active != nil {
		t.Active = *req.Active
	}
	t.UpdatedAt = time.Now().UTC()
	cp := *t
	return &cp, nil
}

// List returns all tenants.
func (r *InMemoryRepository) List(ctx context.Context) ([]*Tenant, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]*Tenant, 0, len(r.tenants))
	for _, t := range r.tenants {
		cp := *t
		out = append(out, &cp)
	}
	return out, nil
}
