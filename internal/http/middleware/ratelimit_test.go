package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func TestRateLimitExhaustsBurstPerCaller(t *testing.T) {
	handler := RateLimit(1, 2)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	}))

	do := func(ip string) *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodGet, "/sessions", nil)
		req.Header.Set("X-Real-Ip", ip)
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)
		return rec
	}

	for i := 0; i < 2; i++ {
		if rec := do("10.0.0.1"); rec.Code != http.StatusNoContent {
			t.Fatalf("request %d: expected 204, got %d", i, rec.Code)
		}
	}
	rec := do("10.0.0.1")
	if rec.Code != http.StatusTooManyRequests {
		t.Fatalf("expected 429 after burst, got %d", rec.Code)
	}
	if rec.Header().Get("Retry-After") == "" {
		t.Fatal("expected Retry-After header on 429")
	}
	if ct := rec.Header().Get("Content-Type"); ct != "application/json" {
		t.Fatalf("expected JSON 429 body, got content type %q", ct)
	}

	// A different caller has its own window.
	if rec := do("10.0.0.2"); rec.Code != http.StatusNoContent {
		t.Fatalf("second caller should be admitted, got %d", rec.Code)
	}
}

func TestSurfaceLimiterWindowRollsOver(t *testing.T) {
	sl := &surfaceLimiter{
		callers: make(map[string]*callerWindow),
		limit:   1,
		window:  20 * time.Millisecond,
	}

	if ok, _ := sl.allow("caller"); !ok {
		t.Fatal("first request should pass")
	}
	ok, retryAfter := sl.allow("caller")
	if ok {
		t.Fatal("second request inside window should be denied")
	}
	if retryAfter <= 0 || retryAfter > sl.window {
		t.Fatalf("retry-after out of range: %v", retryAfter)
	}

	time.Sleep(sl.window + 5*time.Millisecond)
	if ok, _ := sl.allow("caller"); !ok {
		t.Fatal("request after window rollover should pass")
	}
}
