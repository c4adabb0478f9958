package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds application configuration
type Config struct {
	Port          string
	Env           string
	LogLevel      string
	PublicBaseURL string

	DatabaseURL   string
	RedisAddr     string
	RedisPassword string
	RedisTLS      bool

	// Completion backend
	CompletionProvider string // "openai", "gemini", "bedrock"
	CompletionFallback string // optional second provider tried when the first fails
	OpenAIAPIKey       string
	OpenAIModel        string
	OpenAIVisionModel  string
	GeminiAPIKey       string
	GeminiModel        string
	BedrockModelID     string
	CompletionTimeout  time.Duration
	HistoryCap         int

	// Session lifecycle
	SessionInitRetries     int
	SessionInitBackoffBase time.Duration
	SessionInitGrace       time.Duration
	SessionInactivityTTL   time.Duration
	SessionMaxAge          time.Duration
	SessionSweepInterval   time.Duration
	SessionStopGrace       time.Duration

	// Rate limiting (pipeline admission, per WhatsApp sender)
	RateLimitPerSender int
	RateLimitWindow    time.Duration
	RateLimitBlock     time.Duration
	RateLimitGlobal    int
	RateLimitSweep     time.Duration

	// HTTP-level rate limiting
	HTTPRateLimit float64
	HTTPRateBurst int

	// Media relay
	MediaDir           string
	MediaS3Bucket      string
	FileRetentionAge   time.Duration
	FileSweepInterval  time.Duration
	MaxInboundFileSize int64

	// Email notifications on completed orders
	EmailProvider     string // "sendgrid", "ses" or empty to disable
	SendGridAPIKey    string
	SendGridFromEmail string
	SendGridFromName  string
	SESFromEmail      string

	AWSRegion          string
	AWSAccessKeyID     string
	AWSSecretAccessKey string

	AdminJWTSecret     string
	CORSAllowedOrigins []string
}

// Load reads configuration from environment variables
func Load() *Config {
	return &Config{
		Port:          getEnv("PORT", "8080"),
		Env:           getEnv("ENV", "development"),
		LogLevel:      getEnv("LOG_LEVEL", "info"),
		PublicBaseURL: getEnv("PUBLIC_BASE_URL", ""),

		DatabaseURL:   getEnv("DATABASE_URL", ""),
		RedisAddr:     getEnv("REDIS_ADDR", ""),
		RedisPassword: getEnv("REDIS_PASSWORD", ""),
		RedisTLS:      getEnvAsBool("REDIS_TLS", false),

		CompletionProvider: strings.ToLower(strings.TrimSpace(getEnv("COMPLETION_PROVIDER", "openai"))),
		CompletionFallback: strings.ToLower(strings.TrimSpace(getEnv("COMPLETION_FALLBACK", ""))),
		OpenAIAPIKey:       getEnv("OPENAI_API_KEY", ""),
		OpenAIModel:        getEnv("OPENAI_MODEL", "gpt-4o-mini"),
		OpenAIVisionModel:  getEnv("OPENAI_VISION_MODEL", "gpt-4o"),
		GeminiAPIKey:       getEnv("GEMINI_API_KEY", ""),
		GeminiModel:        getEnv("GEMINI_MODEL", "gemini-1.5-flash"),
		BedrockModelID:     getEnv("BEDROCK_MODEL_ID", ""),
		CompletionTimeout:  getEnvAsDuration("COMPLETION_TIMEOUT", 45*time.Second),
		HistoryCap:         getEnvAsInt("HISTORY_CAP", 20),

		SessionInitRetries:     getEnvAsInt("SESSION_INIT_RETRIES", 3),
		SessionInitBackoffBase: getEnvAsDuration("SESSION_INIT_BACKOFF_BASE", 5*time.Second),
		SessionInitGrace:       getEnvAsDuration("SESSION_INIT_GRACE", 5*time.Minute),
		SessionInactivityTTL:   getEnvAsDuration("SESSION_INACTIVITY_TIMEOUT", 12*time.Hour),
		SessionMaxAge:          getEnvAsDuration("SESSION_MAX_AGE", 72*time.Hour),
		SessionSweepInterval:   getEnvAsDuration("SESSION_SWEEP_INTERVAL", 10*time.Minute),
		SessionStopGrace:       getEnvAsDuration("SESSION_STOP_GRACE", 2*time.Second),

		RateLimitPerSender: getEnvAsInt("RATE_LIMIT_PER_SENDER", 15),
		RateLimitWindow:    getEnvAsDuration("RATE_LIMIT_WINDOW", time.Minute),
		RateLimitBlock:     getEnvAsDuration("RATE_LIMIT_BLOCK", 5*time.Minute),
		RateLimitGlobal:    getEnvAsInt("RATE_LIMIT_GLOBAL", 300),
		RateLimitSweep:     getEnvAsDuration("RATE_LIMIT_SWEEP", 5*time.Minute),

		HTTPRateLimit: getEnvAsFloat("HTTP_RATE_LIMIT", 10),
		HTTPRateBurst: getEnvAsInt("HTTP_RATE_BURST", 30),

		MediaDir:           getEnv("MEDIA_DIR", "./data/media"),
		MediaS3Bucket:      getEnv("MEDIA_S3_BUCKET", ""),
		FileRetentionAge:   getEnvAsDuration("FILE_RETENTION_AGE", 30*24*time.Hour),
		FileSweepInterval:  getEnvAsDuration("FILE_SWEEP_INTERVAL", 6*time.Hour),
		MaxInboundFileSize: int64(getEnvAsInt("MAX_INBOUND_FILE_SIZE", 16<<20)),

		EmailProvider:     strings.ToLower(strings.TrimSpace(getEnv("EMAIL_PROVIDER", ""))),
		SendGridAPIKey:    getEnv("SENDGRID_API_KEY", ""),
		SendGridFromEmail: getEnv("SENDGRID_FROM_EMAIL", ""),
		SendGridFromName:  getEnv("SENDGRID_FROM_NAME", "WaBot"),
		SESFromEmail:      getEnv("SES_FROM_EMAIL", ""),

		AWSRegion:          getEnv("AWS_REGION", "us-east-1"),
		AWSAccessKeyID:     getEnv("AWS_ACCESS_KEY_ID", ""),
		AWSSecretAccessKey: getEnv("AWS_SECRET_ACCESS_KEY", ""),

		AdminJWTSecret:     getEnv("ADMIN_JWT_SECRET", ""),
		CORSAllowedOrigins: getEnvAsSlice("CORS_ALLOWED_ORIGINS", nil),
	}
}

// getEnv retrieves an environment variable or returns a default value
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvAsInt retrieves an environment variable as an integer or returns a default value
func getEnvAsInt(key string, defaultValue int) int {
	valueStr := getEnv(key, "")
	if value, err := strconv.Atoi(valueStr); err == nil {
		return value
	}
	return defaultValue
}

func getEnvAsFloat(key string, defaultValue float64) float64 {
	valueStr := getEnv(key, "")
	if value, err := strconv.ParseFloat(valueStr, 64); err == nil {
		return value
	}
	return defaultValue
}

// getEnvAsBool retrieves an environment variable as a boolean or returns a default value
func getEnvAsBool(key string, defaultValue bool) bool {
	valueStr := getEnv(key, "")
	if value, err := strconv.ParseBool(valueStr); err == nil {
		return value
	}
	return defaultValue
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	valueStr := getEnv(key, "")
	if valueStr == "" {
		return defaultValue
	}
	if value, err := time.ParseDuration(valueStr); err == nil {
		return value
	}
	return defaultValue
}

func getEnvAsSlice(key string, defaultValue []string) []string {
	valueStr := getEnv(key, "")
	if valueStr == "" {
		return defaultValue
	}
	parts := strings.Split(valueStr, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
