package orders

import (
	"context"
	"sync"
	"time"
)

// Repository persists orders. The flow keeps its own in-memory state map;
// the repository is the durable record.
type Repository interface {
	Create(ctx context.Context, o *Order) error
	Update(ctx context.Context, o *Order) error
	GetActive(ctx context.Context, tenantID, customerID string) (*Order, error)
}

// InMemoryRepository backs tests and single-node deployments without a DB.
type InMemoryRepository struct {
	mu     sync.Mutex
	orders map[string]*Order
}

func NewInMemoryRepository() *InMemoryRepository {
	return &InMemoryRepository{orders: make(map[string]*Order)}
}

func (r *InMemoryRepository) Create(ctx context.Context, o *Order) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, existing := range r.orders {
		if existing.TenantID == o.TenantID && existing.CustomerID == o.CustomerID && active(existing.State) {
			return ErrAlreadyActive
		}
	}
	if o.CreatedAt.IsZero() {
		o.CreatedAt = time.Now().UTC()
	}
	cp := *o
	r.orders[o.ID] = &cp
	return nil
}

func (r *InMemoryRepository) Update(ctx context.Context, o *Order) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.orders[o.ID]; !ok {
		return ErrNotFound
	}
	cp := *o
	r.orders[o.ID] = &cp
	return nil
}

func (r *InMemoryRepository) GetActive(ctx context.Context, tenantID, customerID string) (*Order, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, o := range r.orders {
		if o.TenantID == tenantID && o.CustomerID == customerID && active(o.State) {
			cp := *o
			return &cp, nil
		}
	}
	return nil, ErrNotFound
}

func active(s State) bool {
	switch s {
	case StateAwaitingConfirmation, StateAwaitingPayment, StateAwaitingInfo:
		return true
	}
	return false
}
