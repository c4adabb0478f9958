package main

import (
	"context"
	"crypto/tls"
	"database/sql"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/aws/aws-sdk-go-v2/service/bedrockruntime"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/sesv2"
	"github.com/jackc/pgx/v5/pgxpool"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"

	"github.com/zentexa/wabot-platform/cmd/mainconfig"
	"github.com/zentexa/wabot-platform/internal/api/router"
	"github.com/zentexa/wabot-platform/internal/completion"
	appconfig "github.com/zentexa/wabot-platform/internal/config"
	"github.com/zentexa/wabot-platform/internal/history"
	"github.com/zentexa/wabot-platform/internal/http/handlers"
	"github.com/zentexa/wabot-platform/internal/media"
	"github.com/zentexa/wabot-platform/internal/notify"
	"github.com/zentexa/wabot-platform/internal/observability/metrics"
	"github.com/zentexa/wabot-platform/internal/orders"
	"github.com/zentexa/wabot-platform/internal/ratelimit"
	"github.com/zentexa/wabot-platform/internal/session"
	"github.com/zentexa/wabot-platform/internal/tenant"
	"github.com/zentexa/wabot-platform/internal/transport"
	"github.com/zentexa/wabot-platform/pkg/logging"
)

func main() {
	_ = godotenv.Load()
	cfg := appconfig.Load()

	logger := logging.New(cfg.LogLevel)
	logger.Info("starting wabot-platform API server",
		"env", cfg.Env,
		"port", cfg.Port,
	)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Postgres: pgx pool for the domain repositories, database/sql for the
	// link-session store and the catalog library.
	pool, err := pgxpool.New(ctx, cfg.DatabaseURL)
	if err != nil {
		logger.Error("failed to create pgx pool", "error", err)
		os.Exit(1)
	}
	defer pool.Close()

	db, err := sql.Open("pgx", cfg.DatabaseURL)
	if err != nil {
		logger.Error("failed to open database", "error", err)
		os.Exit(1)
	}
	defer func() { _ = db.Close() }()

	tenantRepo := tenant.NewPostgresRepository(pool)
	orderRepo := orders.NewPostgresRepository(pool)

	// Redis-backed conversation transcripts.
	redisOpts := &redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
	}
	if cfg.RedisTLS {
		redisOpts.TLSConfig = &tls.Config{MinVersion: tls.VersionTLS12}
	}
	redisClient := redis.NewClient(redisOpts)
	defer func() { _ = redisClient.Close() }()
	transcripts := history.NewTranscriptStore(redisClient)

	awsCfg, err := mainconfig.LoadAWSConfig(ctx, cfg)
	if err != nil {
		logger.Error("failed to load AWS config", "error", err)
		os.Exit(1)
	}

	// Completion backends are registered up front and resolved by name so
	// the active provider is a config decision, not a build decision.
	registry := completion.NewRegistry()
	registry.Register("openai", func(context.Context) (completion.LLMClient, error) {
		return completion.NewOpenAIClient(cfg.OpenAIAPIKey, cfg.OpenAIModel)
	})
	registry.Register("gemini", func(ctx context.Context) (completion.LLMClient, error) {
		return completion.NewGeminiClient(ctx, cfg.GeminiAPIKey, cfg.GeminiModel)
	})
	registry.Register("bedrock", func(context.Context) (completion.LLMClient, error) {
		return completion.NewBedrockClient(bedrockruntime.NewFromConfig(awsCfg), cfg.BedrockModelID), nil
	})

	llm, err := registry.Get(ctx, cfg.CompletionProvider)
	if err != nil {
		logger.Error("failed to initialize completion provider", "error", err)
		os.Exit(1)
	}
	if cfg.CompletionFallback != "" {
		fallback, err := registry.Get(ctx, cfg.CompletionFallback)
		if err != nil {
			logger.Error("failed to initialize fallback provider", "error", err)
			os.Exit(1)
		}
		llm = completion.NewFallbackClient(llm, fallback, logger)
	}

	limiter := ratelimit.New(ratelimit.Options{
		PerSender:     cfg.RateLimitPerSender,
		Window:        cfg.RateLimitWindow,
		Block:         cfg.RateLimitBlock,
		Global:        cfg.RateLimitGlobal,
		SweepInterval: cfg.RateLimitSweep,
	})
	defer limiter.Close()

	var backend media.Backend
	if cfg.MediaS3Bucket != "" {
		backend, err = media.NewS3Backend(s3.NewFromConfig(awsCfg), cfg.MediaS3Bucket)
	} else {
		backend, err = media.NewLocalBackend(cfg.MediaDir)
	}
	if err != nil {
		logger.Error("failed to initialize media backend", "error", err)
		os.Exit(1)
	}
	relay := media.NewRelay(backend, cfg.MaxInboundFileSize, logger)
	go relay.SweepLoop(ctx, cfg.FileRetentionAge, cfg.FileSweepInterval)
	library := media.NewLibrary(db)

	var emailSender notify.EmailSender
	switch cfg.EmailProvider {
	case "sendgrid":
		emailSender = notify.NewSendGridSender(notify.SendGridConfig{
			APIKey:    cfg.SendGridAPIKey,
			FromEmail: cfg.SendGridFromEmail,
			FromName:  cfg.SendGridFromName,
		}, logger)
	case "ses":
		emailSender = notify.NewSESSender(sesv2.NewFromConfig(awsCfg), notify.SESConfig{
			FromEmail: cfg.SESFromEmail,
		}, logger)
	}
	notifier := notify.NewService(emailSender, logger)
	hub := notify.NewHub()

	promRegistry := prometheus.NewRegistry()
	appMetrics := metrics.New(promRegistry)

	factory, err := transport.NewWhatsmeowFactory(ctx, db, "postgres", logger)
	if err != nil {
		logger.Error("failed to initialize whatsapp transport", "error", err)
		os.Exit(1)
	}

	manager := session.NewManager(session.Deps{
		Factory:     factory,
		Tenants:     tenantRepo,
		LLM:         llm,
		Hub:         hub,
		Limiter:     limiter,
		Relay:       relay,
		Library:     library,
		Orders:      orderRepo,
		Detector:    orders.KeywordDetector{},
		Transcripts: transcripts,
		Notifier:    notifier,
		Metrics:     appMetrics,
		Logger:      logger,
	}, session.Options{
		InitRetries:       cfg.SessionInitRetries,
		InitBackoffBase:   cfg.SessionInitBackoffBase,
		InitGrace:         cfg.SessionInitGrace,
		InactivityTimeout: cfg.SessionInactivityTTL,
		MaxAge:            cfg.SessionMaxAge,
		SweepInterval:     cfg.SessionSweepInterval,
		StopGrace:         cfg.SessionStopGrace,
		HistoryCap:        cfg.HistoryCap,
		CompletionTimeout: cfg.CompletionTimeout,
	})
	defer manager.Close()

	routerCfg := &router.Config{
		Logger:             logger,
		Sessions:           handlers.NewSessionsHandler(manager, logger),
		Tenants:            handlers.NewTenantsHandler(tenantRepo, logger),
		Catalog:            handlers.NewCatalogHandler(relay, library, logger),
		WS:                 handlers.NewWSHandler(manager, hub, logger),
		MetricsHandler:     promhttp.HandlerFor(promRegistry, promhttp.HandlerOpts{}),
		AdminAuthSecret:    cfg.AdminJWTSecret,
		CORSAllowedOrigins: cfg.CORSAllowedOrigins,
		RateLimitPerSecond: cfg.HTTPRateLimit,
		RateLimitBurst:     cfg.HTTPRateBurst,
	}
	r := router.New(routerCfg)

	srv := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      r,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		logger.Info("server listening", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("shutting down server...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("server forced to shutdown", "error", err)
		os.Exit(1)
	}

	logger.Info("server stopped")
}
