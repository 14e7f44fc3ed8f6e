// Package config loads runtime settings from the environment and bundled
// YAML files. All settings are read once per run.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

type Config struct {
	// Gemini settings
	GeminiAPIKey     string
	GeminiModel      string
	GeminiMaxRetries int
	GeminiRetryDelay time.Duration

	// Feed settings
	SourcesConfigPath  string
	KeywordsConfigPath string // empty means built-in taxonomy
	NewsLookback       time.Duration
	FetchConcurrency   int

	// Digest settings
	MaxNewsDaily int // K, the digest size

	// Mail settings
	SMTPHost   string
	SMTPPort   int
	SMTPUser   string
	SMTPPass   string
	Recipients []string

	// App settings
	Debug          bool
	RequestTimeout time.Duration
}

func Load() (*Config, error) {
	cfg := &Config{
		// Default values
		GeminiModel:       "gemini-2.0-flash",
		GeminiMaxRetries:  2,
		GeminiRetryDelay:  5 * time.Second,
		SourcesConfigPath: "configs/sources.yaml",
		NewsLookback:      24 * time.Hour,
		FetchConcurrency:  4,
		MaxNewsDaily:      20,
		SMTPHost:          "smtp.gmail.com",
		SMTPPort:          587,
		RequestTimeout:    30 * time.Second,
	}

	// Load from environment
	cfg.GeminiAPIKey = os.Getenv("GEMINI_API_KEY")
	cfg.SMTPUser = os.Getenv("SMTP_USER")
	cfg.SMTPPass = os.Getenv("SMTP_PASSWORD")

	if v := os.Getenv("DIGEST_RECIPIENTS"); v != "" {
		for _, r := range strings.Split(v, ",") {
			if r = strings.TrimSpace(r); r != "" {
				cfg.Recipients = append(cfg.Recipients, r)
			}
		}
	}

	cfg.SourcesConfigPath = getEnvOrDefault("SOURCES_CONFIG_PATH", cfg.SourcesConfigPath)
	cfg.KeywordsConfigPath = os.Getenv("KEYWORDS_CONFIG_PATH")
	cfg.SMTPHost = getEnvOrDefault("SMTP_HOST", cfg.SMTPHost)
	cfg.SMTPPort = getEnvIntOrDefault("SMTP_PORT", cfg.SMTPPort)

	if v := os.Getenv("GEMINI_MODEL"); v != "" {
		cfg.GeminiModel = v
	}
	if v := getEnvIntOrDefault("GEMINI_MAX_RETRIES", 0); v > 0 {
		cfg.GeminiMaxRetries = v
	}
	if v := getEnvIntOrDefault("GEMINI_RETRY_DELAY_SECONDS", 0); v > 0 {
		cfg.GeminiRetryDelay = time.Duration(v) * time.Second
	}
	if v := getEnvIntOrDefault("MAX_NEWS_DAILY", 0); v > 0 {
		cfg.MaxNewsDaily = v
	}
	if v := getEnvIntOrDefault("NEWS_LOOKBACK_HOURS", 0); v > 0 {
		cfg.NewsLookback = time.Duration(v) * time.Hour
	}
	if v := getEnvIntOrDefault("FETCH_CONCURRENCY", 0); v > 0 {
		cfg.FetchConcurrency = v
	}
	if v := getEnvIntOrDefault("REQUEST_TIMEOUT_SECONDS", 0); v > 0 {
		cfg.RequestTimeout = time.Duration(v) * time.Second
	}

	if os.Getenv("DEBUG") == "true" {
		cfg.Debug = true
	}

	return cfg, nil
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvIntOrDefault(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

// ValidateDelivery checks the settings needed to actually send mail. Test
// modes that only render HTML skip this.
func (c *Config) ValidateDelivery() error {
	if c.SMTPUser == "" {
		return fmt.Errorf("SMTP_USER is required")
	}
	if c.SMTPPass == "" {
		return fmt.Errorf("SMTP_PASSWORD is required")
	}
	if len(c.Recipients) == 0 {
		return fmt.Errorf("DIGEST_RECIPIENTS is required")
	}
	return nil
}
