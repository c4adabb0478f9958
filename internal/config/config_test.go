package config

import (
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("PORT", "")
	t.Setenv("ENV", "")
	t.Setenv("LOG_LEVEL", "")
	t.Setenv("COMPLETION_PROVIDER", "")
	cfg := Load()
	if cfg.Port != "8080" {
		t.Fatalf("expected default port, got %s", cfg.Port)
	}
	if cfg.Env != "development" {
		t.Fatalf("expected default env, got %s", cfg.Env)
	}
	if cfg.CompletionProvider != "openai" {
		t.Fatalf("expected default completion provider, got %s", cfg.CompletionProvider)
	}
	if cfg.SessionInitRetries != 3 {
		t.Fatalf("expected default init retries, got %d", cfg.SessionInitRetries)
	}
	if cfg.SessionSweepInterval != 10*time.Minute {
		t.Fatalf("expected default sweep interval, got %s", cfg.SessionSweepInterval)
	}
	if cfg.HistoryCap != 20 {
		t.Fatalf("expected default history cap, got %d", cfg.HistoryCap)
	}
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("PORT", "9090")
	t.Setenv("ENV", "production")
	t.Setenv("LOG_LEVEL", "debug")
	t.Setenv("DATABASE_URL", "postgres://user@host/db")
	t.Setenv("COMPLETION_PROVIDER", "Gemini")
	t.Setenv("COMPLETION_FALLBACK", "openai")
	t.Setenv("SESSION_INACTIVITY_TIMEOUT", "30m")
	t.Setenv("RATE_LIMIT_PER_SENDER", "5")
	t.Setenv("RATE_LIMIT_WINDOW", "10s")
	t.Setenv("CORS_ALLOWED_ORIGINS", "https://a.example, https://b.example")
	cfg := Load()
	if cfg.Port != "9090" {
		t.Fatalf("expected override port, got %s", cfg.Port)
	}
	if cfg.Env != "production" {
		t.Fatalf("expected env override, got %s", cfg.Env)
	}
	if cfg.DatabaseURL != "postgres://user@host/db" {
		t.Fatalf("expected db override, got %s", cfg.DatabaseURL)
	}
	if cfg.CompletionProvider != "gemini" {
		t.Fatalf("expected lowercased provider, got %s", cfg.CompletionProvider)
	}
	if cfg.CompletionFallback != "openai" {
		t.Fatalf("expected fallback override, got %s", cfg.CompletionFallback)
	}
	if cfg.SessionInactivityTTL != 30*time.Minute {
		t.Fatalf("expected inactivity override, got %s", cfg.SessionInactivityTTL)
	}
	if cfg.RateLimitPerSender != 5 {
		t.Fatalf("expected per-sender override, got %d", cfg.RateLimitPerSender)
	}
	if cfg.RateLimitWindow != 10*time.Second {
		t.Fatalf("expected window override, got %s", cfg.RateLimitWindow)
	}
	if len(cfg.CORSAllowedOrigins) != 2 || cfg.CORSAllowedOrigins[1] != "https://b.example" {
		t.Fatalf("expected trimmed CORS origins, got %v", cfg.CORSAllowedOrigins)
	}
}
