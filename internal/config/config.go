// Package config loads application configuration from an optional TOML file
// and environment variables. Environment variables win.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
)

// Config holds all configuration for the application.
type Config struct {
	// Server settings
	ServerPort         string        `toml:"port"`
	ServerReadTimeout  time.Duration `toml:"server_read_timeout"`
	ServerWriteTimeout time.Duration `toml:"server_write_timeout"`

	// Model settings
	LLMProvider       string        `toml:"llm_provider"`
	GeminiAPIKey      string        `toml:"gemini_api_key"`
	GeminiBaseURL     string        `toml:"gemini_base_url"`
	GeminiProModel    string        `toml:"gemini_pro_model"`
	GeminiFlashModel  string        `toml:"gemini_flash_model"`
	AnthropicAPIKey   string        `toml:"anthropic_api_key"`
	AnthropicModel    string        `toml:"anthropic_model"`
	LLMRateLimit      float64       `toml:"llm_rate_limit"`
	LLMRateBurst      int           `toml:"llm_rate_burst"`
	GenerationTimeout time.Duration `toml:"generation_timeout"`

	// Sessions
	SessionIdleTimeout time.Duration `toml:"session_idle_timeout"`

	// Auth
	AuthEnabled bool   `toml:"auth_enabled"`
	JWTSecret   string `toml:"jwt_secret"`

	// Rate limiting
	RateLimitRequests int           `toml:"rate_limit_requests"`
	RateLimitWindow   time.Duration `toml:"rate_limit_window"`

	// CORS. No origins allows any origin without credentials.
	CORSAllowedOrigins []string `toml:"cors_allowed_origins"`

	// NATS settings. An empty URL disables event publishing.
	NATSURL      string `toml:"nats_url"`
	NATSCAFile   string `toml:"nats_ca_file"`
	NATSCertFile string `toml:"nats_cert_file"`
	NATSKeyFile  string `toml:"nats_key_file"`
	NATSToken    string `toml:"nats_token"`

	// Logging
	LogLevel string `toml:"log_level"`

	// Tracing
	TracingEnabled  bool   `toml:"tracing_enabled"`
	TracingEndpoint string `toml:"tracing_endpoint"`

	// Site metadata for the structured data endpoint
	AppName string `toml:"app_name"`
	AppURL  string `toml:"app_url"`
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		ServerPort:         "8080",
		ServerReadTimeout:  30 * time.Second,
		ServerWriteTimeout: 120 * time.Second,

		LLMProvider:       "gemini",
		GeminiBaseURL:     "https://generativelanguage.googleapis.com/v1beta/openai",
		GeminiProModel:    "gemini-1.5-pro",
		GeminiFlashModel:  "gemini-1.5-flash",
		AnthropicModel:    "claude-3-5-sonnet-20241022",
		LLMRateLimit:      2,
		LLMRateBurst:      4,
		GenerationTimeout: 90 * time.Second,

		SessionIdleTimeout: 2 * time.Hour,

		JWTSecret: "development-secret-change-in-production",

		RateLimitRequests: 60,
		RateLimitWindow:   time.Minute,

		LogLevel: "info",

		TracingEndpoint: "localhost:4318",

		AppName: "JW GPT",
		AppURL:  "https://jwgpt.app",
	}
}

// Load builds the configuration from defaults, the TOML file named by
// CONFIG_FILE (if any), and environment variables, in that order.
func Load() (*Config, error) {
	cfg := Default()

	if path := os.Getenv("CONFIG_FILE"); path != "" {
		if err := cfg.LoadFile(path); err != nil {
			return nil, err
		}
	}

	cfg.applyEnv()
	return cfg, nil
}

// LoadFile overlays the values present in a TOML file.
func (c *Config) LoadFile(path string) error {
	if _, err := toml.DecodeFile(path, c); err != nil {
		return fmt.Errorf("failed to load config file %s: %w", path, err)
	}
	return nil
}

// Validate checks that the selected provider can be reached.
func (c *Config) Validate() error {
	switch c.LLMProvider {
	case "", "gemini":
		if c.GeminiAPIKey == "" {
			return errors.New("GEMINI_API_KEY is required")
		}
	case "anthropic":
		if c.AnthropicAPIKey == "" {
			return errors.New("ANTHROPIC_API_KEY is required")
		}
	default:
		return fmt.Errorf("unknown LLM_PROVIDER %q", c.LLMProvider)
	}

	if c.AuthEnabled && c.JWTSecret == "" {
		return errors.New("JWT_SECRET is required when AUTH_ENABLED is set")
	}
	return nil
}

func (c *Config) applyEnv() {
	// Server
	c.ServerPort = getEnv("PORT", c.ServerPort)
	c.ServerReadTimeout = getDurationEnv("SERVER_READ_TIMEOUT", c.ServerReadTimeout)
	c.ServerWriteTimeout = getDurationEnv("SERVER_WRITE_TIMEOUT", c.ServerWriteTimeout)

	// Models
	c.LLMProvider = getEnv("LLM_PROVIDER", c.LLMProvider)
	c.GeminiAPIKey = getEnv("GEMINI_API_KEY", c.GeminiAPIKey)
	c.GeminiBaseURL = getEnv("GEMINI_BASE_URL", c.GeminiBaseURL)
	c.GeminiProModel = getEnv("GEMINI_PRO_MODEL", c.GeminiProModel)
	c.GeminiFlashModel = getEnv("GEMINI_FLASH_MODEL", c.GeminiFlashModel)
	c.AnthropicAPIKey = getEnv("ANTHROPIC_API_KEY", c.AnthropicAPIKey)
	c.AnthropicModel = getEnv("ANTHROPIC_MODEL", c.AnthropicModel)
	c.LLMRateLimit = getFloatEnv("LLM_RATE_LIMIT", c.LLMRateLimit)
	c.LLMRateBurst = getIntEnv("LLM_RATE_BURST", c.LLMRateBurst)
	c.GenerationTimeout = getDurationEnv("GENERATION_TIMEOUT", c.GenerationTimeout)

	// Sessions
	c.SessionIdleTimeout = getDurationEnv("SESSION_IDLE_TIMEOUT", c.SessionIdleTimeout)

	// Auth
	c.AuthEnabled = getBoolEnv("AUTH_ENABLED", c.AuthEnabled)
	c.JWTSecret = getEnv("JWT_SECRET", c.JWTSecret)

	// Rate limiting
	c.RateLimitRequests = getIntEnv("RATE_LIMIT_REQUESTS", c.RateLimitRequests)
	c.RateLimitWindow = getDurationEnv("RATE_LIMIT_WINDOW", c.RateLimitWindow)

	// CORS
	c.CORSAllowedOrigins = getListEnv("CORS_ALLOWED_ORIGINS", c.CORSAllowedOrigins)

	// NATS
	c.NATSURL = getEnv("NATS_URL", c.NATSURL)
	c.NATSCAFile = getEnv("NATS_CA_FILE", c.NATSCAFile)
	c.NATSCertFile = getEnv("NATS_CERT_FILE", c.NATSCertFile)
	c.NATSKeyFile = getEnv("NATS_KEY_FILE", c.NATSKeyFile)
	c.NATSToken = getEnv("NATS_TOKEN", c.NATSToken)

	// Logging
	c.LogLevel = getEnv("LOG_LEVEL", c.LogLevel)

	// Tracing
	c.TracingEnabled = getBoolEnv("TRACING_ENABLED", c.TracingEnabled)
	c.TracingEndpoint = getEnv("TRACING_ENDPOINT", c.TracingEndpoint)

	// Site
	c.AppName = getEnv("APP_NAME", c.AppName)
	c.AppURL = getEnv("APP_URL", c.AppURL)
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getListEnv splits a comma separated value, dropping blank items.
func getListEnv(key string, defaultValue []string) []string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	var items []string
	for _, item := range strings.Split(value, ",") {
		if item = strings.TrimSpace(item); item != "" {
			items = append(items, item)
		}
	}
	return items
}

func getIntEnv(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if i, err := strconv.Atoi(value); err == nil {
			return i
		}
	}
	return defaultValue
}

func getFloatEnv(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if f, err := strconv.ParseFloat(value, 64); err == nil {
			return f
		}
	}
	return defaultValue
}

func getBoolEnv(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if b, err := strconv.ParseBool(value); err == nil {
			return b
		}
	}
	return defaultValue
}

func getDurationEnv(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}
