package router

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/zentexa/wabot-platform/internal/completion"
	"github.com/zentexa/wabot-platform/internal/http/handlers"
	"github.com/zentexa/wabot-platform/internal/notify"
	"github.com/zentexa/wabot-platform/internal/session"
	"github.com/zentexa/wabot-platform/internal/tenant"
	"github.com/zentexa/wabot-platform/internal/transport"
	"github.com/zentexa/wabot-platform/pkg/logging"
)

type stubClient struct{ handler transport.Handler }

func (c *stubClient) SetHandler(h transport.Handler)                       { c.handler = h }
func (c *stubClient) Connect(ctx context.Context) error                    { return nil }
func (c *stubClient) SendText(ctx context.Context, to, text string) error  { return nil }
func (c *stubClient) SendFile(context.Context, string, transport.FileRef) error { return nil }
func (c *stubClient) Disconnect()                                          {}
func (c *stubClient) Logout(ctx context.Context) error                     { return nil }

type stubFactory struct{}

func (stubFactory) NewClient(ctx context.Context, sessionID string) (transport.Client, error) {
	return &stubClient{}, nil
}

type stubLLM struct{}

func (stubLLM) Complete(ctx context.Context, req completion.LLMRequest) (completion.LLMResponse, error) {
	return completion.LLMResponse{Text: "ok"}, nil
}

const testSecret = "test-admin-secret"

func newTestRouter(t *testing.T) (http.Handler, *tenant.Tenant) {
	t.Helper()

	logger := logging.Default()
	repo := tenant.NewInMemoryRepository()
	tn, err := repo.Create(context.Background(), &tenant.CreateRequest{
		Name:     "Boutique Alma",
		OwnerJID: "owner@s.whatsapp.net",
	})
	if err != nil {
		t.Fatalf("create tenant: %v", err)
	}

	hub := notify.NewHub()
	manager := session.NewManager(session.Deps{
		Factory: stubFactory{},
		Tenants: repo,
		LLM:     stubLLM{},
		Hub:     hub,
	}, session.Options{SweepInterval: time.Hour, InitBackoffBase: time.Millisecond})
	t.Cleanup(manager.Close)

	cfg := &Config{
		Logger:          logger,
		Sessions:        handlers.NewSessionsHandler(manager, logger),
		Tenants:         handlers.NewTenantsHandler(repo, logger),
		WS:              handlers.NewWSHandler(manager, hub, logger),
		AdminAuthSecret: testSecret,
	}
	return New(cfg), tn
}

func adminToken(t *testing.T) string {
	t.Helper()
	claims := jwt.RegisteredClaims{
		Subject:   "admin",
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(testSecret))
	if err != nil {
		t.Fatalf("sign token: %v", err)
	}
	return token
}

func TestHealthEndpoint(t *testing.T) {
	router, _ := newTestRouter(t)

	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/health", nil))

	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rr.Code)
	}
	var resp map[string]string
	if err := json.NewDecoder(rr.Body).Decode(&resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp["status"] != "ok" {
		t.Errorf("status = %q", resp["status"])
	}
}

func TestCreateSessionAcceptedThenConflict(t *testing.T) {
	router, tn := newTestRouter(t)

	body, _ := json.Marshal(map[string]string{"tenantId": tn.ID})
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, httptest.NewRequest(http.MethodPost, "/sessions", bytes.NewReader(body)))
	if rr.Code != http.StatusAccepted {
		t.Fatalf("expected 202, got %d: %s", rr.Code, rr.Body.String())
	}
	var resp map[string]string
	if err := json.NewDecoder(rr.Body).Decode(&resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp["sessionId"] != tn.ID {
		t.Fatalf("sessionId = %q", resp["sessionId"])
	}

	rr = httptest.NewRecorder()
	router.ServeHTTP(rr, httptest.NewRequest(http.MethodPost, "/sessions", bytes.NewReader(body)))
	if rr.Code != http.StatusConflict {
		t.Fatalf("expected 409 on duplicate, got %d", rr.Code)
	}
}

func TestGetUnknownSessionReportsNotExists(t *testing.T) {
	router, _ := newTestRouter(t)

	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/sessions/nope", nil))
	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rr.Code)
	}
	var status session.Status
	if err := json.NewDecoder(rr.Body).Decode(&status); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if status.Exists || status.IsReady {
		t.Fatalf("unknown session should report exists=false: %+v", status)
	}
}

func TestStopAndClearUnknownSessionReturn404(t *testing.T) {
	router, _ := newTestRouter(t)

	for _, path := range []string{"/sessions/nope/stop", "/sessions/nope/clear"} {
		rr := httptest.NewRecorder()
		router.ServeHTTP(rr, httptest.NewRequest(http.MethodPost, path, nil))
		if rr.Code != http.StatusNotFound {
			t.Fatalf("%s: expected 404, got %d", path, rr.Code)
		}
	}
}

func TestAdminRoutesRequireJWT(t *testing.T) {
	router, tn := newTestRouter(t)

	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/admin/tenants/"+tn.ID, nil))
	if rr.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 without token, got %d", rr.Code)
	}

	req := httptest.NewRequest(http.MethodGet, "/admin/tenants/"+tn.ID, nil)
	req.Header.Set("Authorization", "Bearer "+adminToken(t))
	rr = httptest.NewRecorder()
	router.ServeHTTP(rr, req)
	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200 with token, got %d: %s", rr.Code, rr.Body.String())
	}

	var got tenant.Tenant
	if err := json.NewDecoder(rr.Body).Decode(&got); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if got.Name != "Boutique Alma" {
		t.Fatalf("name = %q", got.Name)
	}
}

func TestAdminTenantUpdateBotMode(t *testing.T) {
	router, tn := newTestRouter(t)

	body := []byte(`{"bot_mode":"ecommerce"}`)
	req := httptest.NewRequest(http.MethodPatch, "/admin/tenants/"+tn.ID, bytes.NewReader(body))
	req.Header.Set("Authorization", "Bearer "+adminToken(t))
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)
	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rr.Code, rr.Body.String())
	}

	var got tenant.Tenant
	if err := json.NewDecoder(rr.Body).Decode(&got); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if got.Mode != tenant.ModeEcommerce {
		t.Fatalf("mode = %q", got.Mode)
	}
}
