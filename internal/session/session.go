package session

import (
	"context"
	"sync"
	"time"

	"github.com/zentexa/wabot-platform/internal/completion"
	"github.com/zentexa/wabot-platform/internal/orders"
	"github.com/zentexa/wabot-platform/internal/tenant"
	"github.com/zentexa/wabot-platform/internal/transport"
)

// State is the lifecycle position of one session.
type State string

const (
	StateInitializing State = "initializing"
	StateAwaitingLink State = "awaiting_link"
	StateReady        State = "ready"
	StateDisconnected State = "disconnected"
	StateStopped      State = "stopped"
	StateReclaimed    State = "reclaimed"
)

// Session is one tenant's live link to the messaging network. All mutable
// fields sit behind the session mutex; the registry lock is never held
// while touching them.
type Session struct {
	ID     string
	Tenant *tenant.Tenant

	gateway *completion.Gateway
	flow    *orders.Flow
	cancel  context.CancelFunc

	mu           sync.Mutex
	state        State
	qrCode       string
	client       transport.Client
	createdAt    time.Time
	lastActivity time.Time
}

// Status is the read-only snapshot served over HTTP.
type Status struct {
	ID           string    `json:"sessionId"`
	TenantID     string    `json:"tenantId"`
	State        State     `json:"state"`
	Exists       bool      `json:"exists"`
	IsReady      bool      `json:"isReady"`
	HasQR        bool      `json:"hasQR"`
	CreatedAt    time.Time `json:"createdAt"`
	LastActivity time.Time `json:"lastActivity"`
}

func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

func (s *Session) setState(st State) {
	s.mu.Lock()
	s.state = st
	if st == StateReady {
		s.qrCode = ""
	}
	s.mu.Unlock()
}

func (s *Session) setQR(code string) {
	s.mu.Lock()
	s.qrCode = code
	s.mu.Unlock()
}

// QR returns the pending pairing code, empty once linked.
func (s *Session) QR() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.qrCode
}

func (s *Session) setClient(c transport.Client) {
	s.mu.Lock()
	s.client = c
	s.mu.Unlock()
}

func (s *Session) getClient() transport.Client {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.client
}

func (s *Session) touch(now time.Time) {
	s.mu.Lock()
	s.lastActivity = now
	s.mu.Unlock()
}

func (s *Session) Snapshot() Status {
	s.mu.Lock()
	defer s.mu.Unlock()
	return Status{
		ID:           s.ID,
		TenantID:     s.Tenant.ID,
		State:        s.state,
		Exists:       true,
		IsReady:      s.state == StateReady,
		HasQR:        s.qrCode != "",
		CreatedAt:    s.createdAt,
		LastActivity: s.lastActivity,
	}
}
