// Package config provides application configuration loaded from environment
// variables with defaults and validation. It centralizes server timeouts,
// logging, storage, login sessions, the language-model provider, and
// observability settings.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Model providers understood by the llm factory.
const (
	ProviderGoogle = "google"
	ProviderOpenAI = "openai"
	ProviderFake   = "fake"
)

// MinSecretLen is the minimum SESSION_SECRET length in bytes (HS256 key).
const MinSecretLen = 32

// CORSConfig defines Cross-Origin Resource Sharing settings.
type CORSConfig struct {
	AllowedOrigins []string
}

// SecurityConfig defines security-related settings such as HSTS.
type SecurityConfig struct {
	EnableHSTS bool
	HSTSMaxAge time.Duration
}

// SessionConfig defines the signed login cookie.
type SessionConfig struct {
	Secret       string        // SESSION_SECRET (required, >= 32 bytes)
	TTL          time.Duration // SESSION_TTL
	CookieName   string        // SESSION_COOKIE_NAME
	CookieSecure bool          // SESSION_COOKIE_SECURE
	BcryptCost   int           // BCRYPT_COST
}

// ModelConfig selects and configures the upstream language model.
type ModelConfig struct {
	Provider       string        // MODEL_PROVIDER: google|openai|fake
	DefaultModel   string        // DEFAULT_MODEL
	GoogleAPIKey   string        // GOOGLE_API_KEY
	OpenAIAPIKey   string        // OPENAI_API_KEY
	OpenAIBaseURL  string        // OPENAI_BASE_URL (optional, OpenAI-compatible gateways)
	Timeout        time.Duration // MODEL_TIMEOUT, bounds one streamed reply
	MaxPromptRunes int           // MAX_PROMPT_RUNES
}

// OTELConfig defines OpenTelemetry observability settings.
type OTELConfig struct {
	Enabled     bool    // OTEL_ENABLED
	Endpoint    string  // OTEL_EXPORTER_OTLP_ENDPOINT (e.g. "otel:4317")
	Insecure    bool    // OTEL_EXPORTER_OTLP_INSECURE (true if no TLS)
	ServiceName string  // OTEL_SERVICE_NAME (e.g. "chatproxy")
	SampleRatio float64 // OTEL_TRACES_SAMPLER_ARG in [0..1]
}

// Config holds all configuration values for the application.
type Config struct {
	// Server
	Port              string        // just the number
	ReadTimeout       time.Duration // e.g. 15s
	ReadHeaderTimeout time.Duration // e.g. 10s
	WriteTimeout      time.Duration // long enough for a streamed reply
	IdleTimeout       time.Duration // e.g. 60s
	MaxHeaderBytes    int           // bytes
	GinMode           string        // debug|release|test

	// Logging / Docs
	LogLevel       string // debug|info|warn|error|fatal|panic
	LogPretty      bool   // pretty console logs in dev
	SwaggerEnabled bool   // enable Swagger UI route
	APIBasePath    string // base path for API routes

	// App
	DBPath string // SQLite path
	WebDir string // static front-end root

	Session SessionConfig
	Model   ModelConfig

	// Web protection
	CORS     CORSConfig
	Security SecurityConfig

	// Observability
	OTEL OTELConfig
}

// MustLoad loads the configuration and panics if validation fails.
func MustLoad() Config {
	cfg, err := Load()
	if err != nil {
		panic(err)
	}
	return cfg
}

// Load reads configuration from environment variables,
// applies defaults, normalizes values, and validates the result.
func Load() (Config, error) {
	cfg := Config{
		// Server
		Port:              getenv("PORT", "80"),
		ReadTimeout:       getdur("READ_TIMEOUT", 15*time.Second),
		ReadHeaderTimeout: getdur("READ_HEADER_TIMEOUT", 10*time.Second),
		WriteTimeout:      getdur("WRITE_TIMEOUT", 120*time.Second),
		IdleTimeout:       getdur("IDLE_TIMEOUT", 60*time.Second),
		MaxHeaderBytes:    getint("MAX_HEADER_BYTES", 1<<20),
		GinMode:           strings.ToLower(getenv("GIN_MODE", "release")),

		// Logging / Docs
		LogLevel:       strings.ToLower(getenv("LOG_LEVEL", "info")),
		LogPretty:      getbool("LOG_PRETTY", false),
		SwaggerEnabled: getbool("SWAGGER_ENABLED", false),
		APIBasePath:    normalizeBasePath(getenv("API_BASE_PATH", "/api")),

		// App
		DBPath: getenv("DB_PATH", "chat.db"),
		WebDir: getenv("WEB_DIR", "web"),

		Session: SessionConfig{
			Secret:       os.Getenv("SESSION_SECRET"),
			TTL:          getdur("SESSION_TTL", 7*24*time.Hour),
			CookieName:   getenv("SESSION_COOKIE_NAME", "chat_session"),
			CookieSecure: getbool("SESSION_COOKIE_SECURE", false),
			BcryptCost:   getint("BCRYPT_COST", 10),
		},
		Model: ModelConfig{
			Provider:       strings.ToLower(strings.TrimSpace(getenv("MODEL_PROVIDER", ProviderGoogle))),
			DefaultModel:   getenv("DEFAULT_MODEL", "gemini-1.5-flash"),
			GoogleAPIKey:   os.Getenv("GOOGLE_API_KEY"),
			OpenAIAPIKey:   os.Getenv("OPENAI_API_KEY"),
			OpenAIBaseURL:  os.Getenv("OPENAI_BASE_URL"),
			Timeout:        getdur("MODEL_TIMEOUT", 90*time.Second),
			MaxPromptRunes: getint("MAX_PROMPT_RUNES", 8000),
		},

		// Web protection
		CORS: CORSConfig{
			AllowedOrigins: splitCSV(getenv("CORS_ALLOWED_ORIGINS", "")),
		},
		Security: SecurityConfig{
			EnableHSTS: getbool("ENABLE_HSTS", false),
			HSTSMaxAge: getdur("HSTS_MAX_AGE", 180*24*time.Hour),
		},

		// Observability (OpenTelemetry)
		OTEL: OTELConfig{
			Enabled:     getbool("OTEL_ENABLED", false),
			Endpoint:    getenv("OTEL_EXPORTER_OTLP_ENDPOINT", "localhost:4317"),
			Insecure:    getbool("OTEL_EXPORTER_OTLP_INSECURE", true),
			ServiceName: getenv("OTEL_SERVICE_NAME", "chatproxy"),
			SampleRatio: getfloat("OTEL_TRACES_SAMPLER_ARG", 1.0),
		},
	}

	// --- normalization ---
	if cfg.LogLevel == "warning" {
		cfg.LogLevel = "warn"
	}
	switch cfg.GinMode {
	case "debug", "release", "test":
	default:
		cfg.GinMode = "release"
	}
	if cfg.Model.Provider == "gemini" {
		cfg.Model.Provider = ProviderGoogle
	}

	// --- validation ---
	switch cfg.LogLevel {
	case "debug", "info", "warn", "error", "fatal", "panic":
	default:
		return cfg, errors.New("LOG_LEVEL must be one of: debug, info, warn, error, fatal, panic")
	}
	if strings.TrimSpace(cfg.Port) == "" {
		return cfg, errors.New("PORT must not be empty")
	}
	if cfg.ReadTimeout <= 0 || cfg.ReadHeaderTimeout <= 0 || cfg.WriteTimeout <= 0 || cfg.IdleTimeout <= 0 {
		return cfg, errors.New("timeouts must be positive durations")
	}
	if cfg.MaxHeaderBytes <= 0 {
		return cfg, errors.New("MAX_HEADER_BYTES must be > 0")
	}
	if strings.TrimSpace(cfg.DBPath) == "" {
		return cfg, errors.New("DB_PATH must not be empty")
	}
	if strings.TrimSpace(cfg.WebDir) == "" {
		return cfg, errors.New("WEB_DIR must not be empty")
	}
	if len(cfg.Session.Secret) < MinSecretLen {
		return cfg, fmt.Errorf("SESSION_SECRET must be at least %d bytes", MinSecretLen)
	}
	if cfg.Session.TTL <= 0 {
		return cfg, errors.New("SESSION_TTL must be > 0")
	}
	if strings.TrimSpace(cfg.Session.CookieName) == "" {
		return cfg, errors.New("SESSION_COOKIE_NAME must not be empty")
	}
	// bcrypt.MinCost..bcrypt.MaxCost
	if cfg.Session.BcryptCost < 4 || cfg.Session.BcryptCost > 31 {
		return cfg, errors.New("BCRYPT_COST must be between 4 and 31")
	}
	switch cfg.Model.Provider {
	case ProviderGoogle:
		if cfg.Model.GoogleAPIKey == "" {
			return cfg, errors.New("GOOGLE_API_KEY is required when MODEL_PROVIDER=google")
		}
	case ProviderOpenAI:
		if cfg.Model.OpenAIAPIKey == "" {
			return cfg, errors.New("OPENAI_API_KEY is required when MODEL_PROVIDER=openai")
		}
	case ProviderFake:
	default:
		return cfg, errors.New("MODEL_PROVIDER must be one of: google, openai, fake")
	}
	if strings.TrimSpace(cfg.Model.DefaultModel) == "" {
		return cfg, errors.New("DEFAULT_MODEL must not be empty")
	}
	if cfg.Model.Timeout <= 0 {
		return cfg, errors.New("MODEL_TIMEOUT must be > 0")
	}
	if cfg.Model.MaxPromptRunes < 1 {
		return cfg, errors.New("MAX_PROMPT_RUNES must be >= 1")
	}
	if cfg.Security.HSTSMaxAge < 0 {
		return cfg, errors.New("HSTS_MAX_AGE must be >= 0")
	}
	if cfg.OTEL.SampleRatio < 0 || cfg.OTEL.SampleRatio > 1 {
		return cfg, errors.New("OTEL_TRACES_SAMPLER_ARG must be in [0,1]")
	}

	return cfg, nil
}

// ---- helpers (no external deps) ----

func getenv(k, def string) string {
	if v, ok := os.LookupEnv(k); ok && v != "" {
		return v
	}
	return def
}

func getfloat(k string, def float64) float64 {
	if v, ok := os.LookupEnv(k); ok && v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return def
}

func getint(k string, def int) int {
	if v, ok := os.LookupEnv(k); ok && v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return def
}

func getbool(k string, def bool) bool {
	if v, ok := os.LookupEnv(k); ok && v != "" {
		switch strings.ToLower(strings.TrimSpace(v)) {
		case "1", "true", "yes", "y", "on":
			return true
		case "0", "false", "no", "n", "off":
			return false
		}
	}
	return def
}

func getdur(k string, def time.Duration) time.Duration {
	if v, ok := os.LookupEnv(k); ok && v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return def
}

func splitCSV(s string) []string {
	if s == "" {
		return nil
	}
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		t := strings.TrimSpace(p)
		if t != "" {
			out = append(out, t)
		}
	}
	return out
}

// normalizeBasePath ensures leading '/' and strips trailing '/' (except root).
func normalizeBasePath(p string) string {
	p = strings.TrimSpace(p)
	if p == "" {
		return "/"
	}
	if !strings.HasPrefix(p, "/") {
		p = "/" + p
	}
	if len(p) > 1 && strings.HasSuffix(p, "/") {
		p = strings.TrimRight(p, "/")
	}
	return p
}
