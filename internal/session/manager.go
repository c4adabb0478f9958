package session

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/zentexa/wabot-platform/internal/completion"
	"github.com/zentexa/wabot-platform/internal/events"
	"github.com/zentexa/wabot-platform/internal/history"
	"github.com/zentexa/wabot-platform/internal/media"
	"github.com/zentexa/wabot-platform/internal/notify"
	"github.com/zentexa/wabot-platform/internal/observability/metrics"
	"github.com/zentexa/wabot-platform/internal/orders"
	"github.com/zentexa/wabot-platform/internal/ratelimit"
	"github.com/zentexa/wabot-platform/internal/tenant"
	"github.com/zentexa/wabot-platform/internal/transport"
	"github.com/zentexa/wabot-platform/pkg/logging"
)

var (
	ErrAlreadyExists  = errors.New("session: already exists")
	ErrNotFound       = errors.New("session: not found")
	ErrTenantInactive = errors.New("session: tenant is inactive")
)

// Deps are the manager's collaborators. Factory, Tenants and LLM are
// required; the rest degrade to no-ops when nil.
type Deps struct {
	Factory     transport.Factory
	Tenants     tenant.Repository
	LLM         completion.LLMClient
	Hub         *notify.Hub
	Limiter     *ratelimit.Limiter
	Relay       *media.Relay
	Library     *media.Library
	Orders      orders.Repository
	Detector    orders.IntentDetector
	Transcripts *history.TranscriptStore
	Notifier    *notify.Service
	Metrics     *metrics.Metrics
	Logger      *logging.Logger
}

// Options tune session lifecycle timing; zero values fall back to defaults.
type Options struct {
	InitRetries       int
	InitBackoffBase   time.Duration
	InitGrace         time.Duration
	InactivityTimeout time.Duration
	MaxAge            time.Duration
	SweepInterval     time.Duration
	StopGrace         time.Duration
	HistoryCap        int
	CompletionTimeout time.Duration
}

func (o *Options) applyDefaults() {
	if o.InitRetries <= 0 {
		o.InitRetries = 3
	}
	if o.InitBackoffBase <= 0 {
		o.InitBackoffBase = 5 * time.Second
	}
	if o.InitGrace <= 0 {
		o.InitGrace = 5 * time.Minute
	}
	if o.InactivityTimeout <= 0 {
		o.InactivityTimeout = 12 * time.Hour
	}
	if o.MaxAge <= 0 {
		o.MaxAge = 72 * time.Hour
	}
	if o.SweepInterval <= 0 {
		o.SweepInterval = 10 * time.Minute
	}
	if o.StopGrace <= 0 {
		o.StopGrace = 2 * time.Second
	}
}

// Manager owns the session registry. One live session per tenant id.
type Manager struct {
	deps Deps
	opts Options

	mu       sync.Mutex
	sessions map[string]*Session

	keys   *keyedMutex
	now    func() time.Time
	done   chan struct{}
	closed sync.Once
	logger *logging.Logger
}

func NewManager(deps Deps, opts Options) *Manager {
	if deps.Factory == nil || deps.Tenants == nil || deps.LLM == nil {
		panic("session: factory, tenant repository and llm client are required")
	}
	if deps.Logger == nil {
		deps.Logger = logging.Default()
	}
	if deps.Orders == nil {
		deps.Orders = orders.NewInMemoryRepository()
	}
	if deps.Detector == nil {
		deps.Detector = orders.KeywordDetector{}
	}
	opts.applyDefaults()

	m := &Manager{
		deps:     deps,
		opts:     opts,
		sessions: make(map[string]*Session),
		keys:     newKeyedMutex(),
		now:      time.Now,
		done:     make(chan struct{}),
		logger:   deps.Logger,
	}
	go m.sweepLoop()
	return m
}

// Close stops the idle sweep. Running sessions are left to the caller.
func (m *Manager) Close() {
	m.closed.Do(func() { close(m.done) })
}

// Create registers a session for the tenant and starts connecting in the
// background. It returns before the transport handshake finishes.
func (m *Manager) Create(ctx context.Context, tenantID string) (*Session, error) {
	t, err := m.deps.Tenants.GetByID(ctx, tenantID)
	if err != nil {
		return nil, fmt.Errorf("session: load tenant %s: %w", tenantID, err)
	}
	if !t.Active {
		return nil, ErrTenantInactive
	}

	now := m.now()
	hist := history.NewStore(m.opts.HistoryCap)
	gw := completion.NewGateway(m.deps.LLM, hist, t, m.opts.CompletionTimeout,
		m.logger.With("tenant_id", t.ID))
	s := &Session{
		ID:           t.ID,
		Tenant:       t,
		gateway:      gw,
		flow:         orders.NewFlow(t, m.deps.Orders, m.deps.Detector, gw, m.logger.With("tenant_id", t.ID)),
		state:        StateInitializing,
		createdAt:    now,
		lastActivity: now,
	}
	initCtx, cancel := context.WithCancel(context.Background())
	s.cancel = cancel

	m.mu.Lock()
	if _, exists := m.sessions[s.ID]; exists {
		m.mu.Unlock()
		cancel()
		return nil, ErrAlreadyExists
	}
	m.sessions[s.ID] = s
	count := len(m.sessions)
	m.mu.Unlock()
	m.deps.Metrics.SetSessionsActive(count)

	m.logger.Info("session created", "session_id", s.ID, "tenant_id", t.ID)
	go m.initialize(initCtx, s)
	return s, nil
}

// initialize dials the transport with capped exponential backoff. Stop and
// Clear cancel ctx, which aborts the retry loop silently.
func (m *Manager) initialize(ctx context.Context, s *Session) {
	var lastErr error
	for attempt := 1; attempt <= m.opts.InitRetries; attempt++ {
		client, err := m.deps.Factory.NewClient(ctx, s.ID)
		if err == nil {
			client.SetHandler(&transportHandler{m: m, sessionID: s.ID})
			if err = client.Connect(ctx); err == nil {
				if !m.adopt(s, client) {
					// Stop, Clear or the sweep won the race while the
					// handshake was in flight; drop the connection.
					client.Disconnect()
					m.logger.Info("session removed during connect, dropping transport",
						"session_id", s.ID)
					return
				}
				m.logger.Info("session transport connected, awaiting link",
					"session_id", s.ID, "attempt", attempt)
				return
			}
		}
		lastErr = err
		m.logger.Warn("session init attempt failed",
			"session_id", s.ID, "attempt", attempt, "error", err)
		if attempt == m.opts.InitRetries {
			break
		}

		select {
		case <-ctx.Done():
			return
		case <-time.After(m.opts.InitBackoffBase * time.Duration(attempt)):
		}
	}

	if m.remove(s.ID) == nil {
		// Already stopped or cleared; nothing left to report.
		return
	}
	s.cancel()
	s.setState(StateStopped)
	m.deps.Metrics.ObserveInitFailure()
	m.logger.Error("session init exhausted retries", "session_id", s.ID, "error", lastErr)
	m.publish(s, events.TypeInitFailed, func(evt *events.SessionEvent) {
		evt.Failure = &events.FailurePayload{
			Stage:   "init",
			Message: "transport initialization failed",
			Reason:  fmt.Sprint(lastErr),
		}
	})
}

// adopt attaches a freshly connected client while the session is still
// registered. Holding the registry lock closes the gap with Stop/Clear:
// either the client is attached before remove (teardown disconnects it),
// or the session is already gone and the caller disconnects it.
func (m *Manager) adopt(s *Session, client transport.Client) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, live := m.sessions[s.ID]; !live {
		return false
	}
	s.setClient(client)
	s.setState(StateAwaitingLink)
	return true
}

// Get returns a live session.
func (m *Manager) Get(id string) (*Session, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.sessions[id]
	return s, ok
}

// List snapshots every registered session.
func (m *Manager) List() []Status {
	m.mu.Lock()
	snapshot := make([]*Session, 0, len(m.sessions))
	for _, s := range m.sessions {
		snapshot = append(snapshot, s)
	}
	m.mu.Unlock()

	out := make([]Status, 0, len(snapshot))
	for _, s := range snapshot {
		out = append(out, s.Snapshot())
	}
	return out
}

// Stop tears the session down and removes it from the registry.
func (m *Manager) Stop(id string) error {
	s := m.remove(id)
	if s == nil {
		return ErrNotFound
	}
	m.teardown(s, StateStopped)
	m.publish(s, events.TypeSessionStopped, nil)
	m.logger.Info("session stopped", "session_id", id)
	return nil
}

// Clear stops the session and deletes its stored link credentials so the
// tenant can pair a different phone.
func (m *Manager) Clear(ctx context.Context, id string) error {
	s := m.remove(id)
	if s == nil {
		return ErrNotFound
	}
	s.cancel()
	s.setState(StateStopped)
	if client := s.getClient(); client != nil {
		if err := client.Logout(ctx); err != nil {
			m.logger.Error("session logout failed", "session_id", id, "error", err)
		}
		client.Disconnect()
	}
	m.publish(s, events.TypeSessionStopped, nil)
	m.logger.Info("session cleared", "session_id", id)
	return nil
}

// remove unregisters the session; nil when the id is unknown.
func (m *Manager) remove(id string) *Session {
	m.mu.Lock()
	s, ok := m.sessions[id]
	if ok {
		delete(m.sessions, id)
	}
	count := len(m.sessions)
	m.mu.Unlock()
	if !ok {
		return nil
	}
	m.deps.Metrics.SetSessionsActive(count)
	return s
}

// teardown cancels in-flight work and disconnects after a short grace so
// pending sends can flush. Teardown errors are logged, never raised.
func (m *Manager) teardown(s *Session, final State) {
	s.cancel()
	s.setState(final)
	client := s.getClient()
	if client == nil {
		return
	}
	grace := m.opts.StopGrace
	go func() {
		time.Sleep(grace)
		client.Disconnect()
	}()
}

func (m *Manager) sweepLoop() {
	ticker := time.NewTicker(m.opts.SweepInterval)
	defer ticker.Stop()
	for {
		select {
		case <-m.done:
			return
		case <-ticker.C:
			m.sweep()
		}
	}
}

// sweep reclaims sessions that went idle, aged out, or never linked.
func (m *Manager) sweep() {
	now := m.now()

	m.mu.Lock()
	candidates := make([]*Session, 0, len(m.sessions))
	for _, s := range m.sessions {
		candidates = append(candidates, s)
	}
	m.mu.Unlock()

	for _, s := range candidates {
		snap := s.Snapshot()
		var reason string
		switch {
		case now.Sub(snap.LastActivity) > m.opts.InactivityTimeout:
			reason = "inactivity"
		case now.Sub(snap.CreatedAt) > m.opts.MaxAge:
			reason = "max_age"
		case !snap.IsReady && now.Sub(snap.CreatedAt) > m.opts.InitGrace:
			reason = "never_ready"
		default:
			continue
		}
		if m.remove(s.ID) == nil {
			continue
		}
		m.teardown(s, StateReclaimed)
		m.deps.Metrics.ObserveReclaim(reason)
		m.logger.Info("session reclaimed", "session_id", s.ID, "reason", reason)
		m.publish(s, events.TypeSessionStopped, func(evt *events.SessionEvent) {
			evt.Failure = &events.FailurePayload{Stage: "sweep", Message: "session reclaimed", Reason: reason}
		})
	}
}

// publish fans an event out through the hub; customize fills the payload.
func (m *Manager) publish(s *Session, typ events.Type, customize func(*events.SessionEvent)) {
	if m.deps.Hub == nil {
		return
	}
	evt := events.SessionEvent{
		EventID:   uuid.NewString(),
		SessionID: s.ID,
		TenantID:  s.Tenant.ID,
		Type:      typ,
		At:        m.now().UTC(),
	}
	if customize != nil {
		customize(&evt)
	}
	m.deps.Hub.Publish(evt)
}
