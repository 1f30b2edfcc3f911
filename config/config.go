package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds all application configuration.
type Config struct {
	Server    ServerConfig
	Browser   BrowserConfig
	Fetcher   FetcherConfig
	Detector  DetectorConfig
	Auth      AuthConfig
	RateLimit RateLimitConfig
	LLM       LLMConfig
	Webhook   WebhookConfig
	Log       LogConfig
}

// ServerConfig controls the HTTP server.
type ServerConfig struct {
	Host string // default: "0.0.0.0"
	Port int    // default: 8080
	Mode string // "debug", "release", "test"; default: "release"
}

// BrowserConfig controls the headless Chrome instance used by the
// dynamic retrieval path.
type BrowserConfig struct {
	// Headless controls whether the browser runs headless.
	Headless bool // default: true

	// MaxContexts bounds the number of concurrent incognito contexts.
	MaxContexts int // default: 10

	// NoSandbox disables Chrome's sandbox (needed in Docker).
	NoSandbox bool // default: false

	// BrowserBin overrides the Chromium binary path.
	BrowserBin string

	// Stealth enables anti-bot-detection evasions before navigation.
	Stealth bool // default: true

	// NavigationTimeout is the hard deadline for page.Navigate alone.
	NavigationTimeout time.Duration // default: 15s

	// SettleBudget is the maximum time to wait for the DOM to go stable
	// after navigation. Overrunning it yields a partial render, not an error.
	SettleBudget time.Duration // default: 3s

	// BlockedResourceTypes lists resource types the browser never loads.
	// default: ["Image", "Stylesheet", "Font", "Media"]
	BlockedResourceTypes []string
}

// FetcherConfig controls the retrieval orchestration.
type FetcherConfig struct {
	// StaticTimeout is the deadline for the single static GET.
	StaticTimeout time.Duration // default: 10s

	// DynamicTimeout is the budget for the dynamic path, independent of
	// time already spent on the static path.
	DynamicTimeout time.Duration // default: 30s

	// OuterDeadline dominates both paths for one request.
	OuterDeadline time.Duration // default: 45s

	// MaxRedirects bounds the redirect chain followed by the static path.
	MaxRedirects int // default: 10

	// MinTextLength is the minimum visible body text, in bytes, below
	// which static markup is judged a JS shell needing a browser render.
	MinTextLength int // default: 200
}

// DetectorConfig controls evidence extraction.
type DetectorConfig struct {
	// MaxFormSnippets caps the traditional-form snippets per page.
	MaxFormSnippets int // default: 3

	// MaxOAuthSnippets caps the OAuth snippets per page.
	MaxOAuthSnippets int // default: 5

	// FormSnippetMaxLen truncates each traditional-form snippet.
	FormSnippetMaxLen int // default: 500

	// OAuthSnippetMaxLen truncates each OAuth snippet.
	OAuthSnippetMaxLen int // default: 300
}

// AuthConfig controls API key authentication.
type AuthConfig struct {
	// Enabled toggles API key authentication.
	Enabled bool // default: false

	// APIKeys is the list of valid API keys.
	APIKeys []string
}

// RateLimitConfig controls per-key rate limiting.
type RateLimitConfig struct {
	// RequestsPerSecond is the sustained rate per API key.
	RequestsPerSecond float64 // default: 5

	// Burst is the maximum burst size per API key.
	Burst int // default: 10
}

// LLMConfig controls the optional LLM fallback classifier.
// The classifier is disabled when APIKey is empty.
type LLMConfig struct {
	APIKey  string
	Model   string        // default: "gpt-4o-mini"
	BaseURL string        // default: "https://api.openai.com/v1"
	Timeout time.Duration // default: 20s
}

// WebhookConfig controls detection event delivery.
// Delivery is disabled when URL is empty.
type WebhookConfig struct {
	// URL is the endpoint every detection event is posted to.
	URL string

	// Secret, when set, signs each delivery with HMAC-SHA256.
	Secret string
}

// LogConfig controls structured logging.
type LogConfig struct {
	Level  string // default: "info"
	Format string // "json" or "text"; default: "json"
}

// Load reads configuration from environment variables with sane defaults.
func Load() *Config {
	return &Config{
		Server: ServerConfig{
			Host: envOr("AUTHSCAN_HOST", "0.0.0.0"),
			Port: envIntOr("AUTHSCAN_PORT", 8080),
			Mode: envOr("AUTHSCAN_MODE", "release"),
		},
		Browser: BrowserConfig{
			Headless:          envBoolOr("AUTHSCAN_HEADLESS", true),
			MaxContexts:       envIntOr("AUTHSCAN_MAX_CONTEXTS", 10),
			NoSandbox:         envBoolOr("AUTHSCAN_NO_SANDBOX", false),
			BrowserBin:        os.Getenv("AUTHSCAN_BROWSER_BIN"),
			Stealth:           envBoolOr("AUTHSCAN_STEALTH", true),
			NavigationTimeout: envDurationOr("AUTHSCAN_NAV_TIMEOUT", 15*time.Second),
			SettleBudget:      envDurationOr("AUTHSCAN_SETTLE_BUDGET", 3*time.Second),
			BlockedResourceTypes: envSliceOr("AUTHSCAN_BLOCKED_RESOURCES", []string{
				"Image", "Stylesheet", "Font", "Media",
			}),
		},
		Fetcher: FetcherConfig{
			StaticTimeout:  envDurationOr("AUTHSCAN_STATIC_TIMEOUT", 10*time.Second),
			DynamicTimeout: envDurationOr("AUTHSCAN_DYNAMIC_TIMEOUT", 30*time.Second),
			OuterDeadline:  envDurationOr("AUTHSCAN_OUTER_DEADLINE", 45*time.Second),
			MaxRedirects:   envIntOr("AUTHSCAN_MAX_REDIRECTS", 10),
			MinTextLength:  envIntOr("AUTHSCAN_MIN_TEXT_LENGTH", 200),
		},
		Detector: DetectorConfig{
			MaxFormSnippets:    envIntOr("AUTHSCAN_MAX_FORM_SNIPPETS", 3),
			MaxOAuthSnippets:   envIntOr("AUTHSCAN_MAX_OAUTH_SNIPPETS", 5),
			FormSnippetMaxLen:  envIntOr("AUTHSCAN_FORM_SNIPPET_MAXLEN", 500),
			OAuthSnippetMaxLen: envIntOr("AUTHSCAN_OAUTH_SNIPPET_MAXLEN", 300),
		},
		Auth: AuthConfig{
			Enabled: envBoolOr("AUTHSCAN_AUTH_ENABLED", false),
			APIKeys: envSliceOr("AUTHSCAN_API_KEYS", nil),
		},
		RateLimit: RateLimitConfig{
			RequestsPerSecond: envFloatOr("AUTHSCAN_RATE_RPS", 5.0),
			Burst:             envIntOr("AUTHSCAN_RATE_BURST", 10),
		},
		LLM: LLMConfig{
			APIKey:  os.Getenv("AUTHSCAN_LLM_API_KEY"),
			Model:   envOr("AUTHSCAN_LLM_MODEL", "gpt-4o-mini"),
			BaseURL: envOr("AUTHSCAN_LLM_BASE_URL", "https://api.openai.com/v1"),
			Timeout: envDurationOr("AUTHSCAN_LLM_TIMEOUT", 20*time.Second),
		},
		Webhook: WebhookConfig{
			URL:    os.Getenv("AUTHSCAN_WEBHOOK_URL"),
			Secret: os.Getenv("AUTHSCAN_WEBHOOK_SECRET"),
		},
		Log: LogConfig{
			Level:  envOr("AUTHSCAN_LOG_LEVEL", "info"),
			Format: envOr("AUTHSCAN_LOG_FORMAT", "json"),
		},
	}
}

// --- helper functions ---

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envIntOr(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return fallback
}

func envBoolOr(key string, fallback bool) bool {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			return b
		}
	}
	return fallback
}

func envFloatOr(key string, fallback float64) float64 {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return fallback
}

func envDurationOr(key string, fallback time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return fallback
}

func envSliceOr(key string, fallback []string) []string {
	if v := os.Getenv(key); v != "" {
		parts := strings.Split(v, ",")
		result := make([]string, 0, len(parts))
		for _, p := range parts {
			if trimmed := strings.TrimSpace(p); trimmed != "" {
				result = append(result, trimmed)
			}
		}
		return result
	}
	return fallback
}
