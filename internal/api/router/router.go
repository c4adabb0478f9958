package router

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/zentexa/wabot-platform/internal/http/handlers"
	httpmiddleware "github.com/zentexa/wabot-platform/internal/http/middleware"
	"github.com/zentexa/wabot-platform/pkg/logging"
)

// Config holds router configuration.
type Config struct {
	Logger   *logging.Logger
	Sessions *handlers.SessionsHandler
	Tenants  *handlers.TenantsHandler
	Catalog  *handlers.CatalogHandler
	WS       *handlers.WSHandler

	MetricsHandler     http.Handler
	AdminAuthSecret    string
	CORSAllowedOrigins []string

	// HTTP-level admission control, distinct from the per-sender
	// message limiter inside the pipeline.
	RateLimitPerSecond float64
	RateLimitBurst     int
}

// New creates the chi router with all routes configured.
func New(cfg *Config) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Compress(5))
	if len(cfg.CORSAllowedOrigins) > 0 {
		r.Use(httpmiddleware.CORS(cfg.CORSAllowedOrigins))
	}
	if cfg.Logger != nil {
		r.Use(httpmiddleware.RequestLogger(cfg.Logger))
	}
	if cfg.RateLimitPerSecond > 0 {
		r.Use(httpmiddleware.RateLimit(cfg.RateLimitPerSecond, cfg.RateLimitBurst))
	}

	r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]string{"status": "ok"})
	})
	if cfg.MetricsHandler != nil {
		r.Handle("/metrics", cfg.MetricsHandler)
	}

	if cfg.Sessions != nil {
		r.Route("/sessions", func(s chi.Router) {
			s.Post("/", cfg.Sessions.Create)
			s.Get("/", cfg.Sessions.List)
			s.Route("/{id}", func(one chi.Router) {
				one.Get("/", cfg.Sessions.Get)
				one.Get("/qr", cfg.Sessions.QR)
				one.Post("/stop", cfg.Sessions.Stop)
				one.Post("/clear", cfg.Sessions.Clear)
			})
		})
	}
	if cfg.WS != nil {
		r.Get("/ws/sessions/{id}", cfg.WS.Serve)
	}

	// Admin surface: tenant management and the catalog file library.
	if cfg.AdminAuthSecret != "" && cfg.Tenants != nil {
		r.Route("/admin", func(admin chi.Router) {
			admin.Use(httpmiddleware.AdminJWT(cfg.AdminAuthSecret))
			admin.Route("/tenants", func(t chi.Router) {
				t.Post("/", cfg.Tenants.Create)
				t.Get("/", cfg.Tenants.List)
				t.Route("/{id}", func(one chi.Router) {
					one.Get("/", cfg.Tenants.Get)
					one.Patch("/", cfg.Tenants.Update)
					if cfg.Catalog != nil {
						one.Post("/files", cfg.Catalog.Upload)
						one.Get("/files", cfg.Catalog.List)
						one.Delete("/files/{fileID}", cfg.Catalog.Delete)
					}
				})
			})
		})
	}

	return r
}
