package config

import (
	"encoding/hex"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"
)

// Validate checks Config for production-critical problems.
// It collects all errors into a single joined error.
func (c *Config) Validate() error {
	var errs []string

	// Encryption key: must be exactly 64 hex chars (32 bytes)
	if c.Encryption.Key == "" {
		errs = append(errs, "ENCRYPTION_KEY is required")
	} else if len(c.Encryption.Key) != 64 {
		errs = append(errs, "ENCRYPTION_KEY must be exactly 64 hex characters (32 bytes)")
	} else if _, err := hex.DecodeString(c.Encryption.Key); err != nil {
		errs = append(errs, "ENCRYPTION_KEY must be valid hex")
	}

	// DB password
	if c.DB.Password == "" {
		errs = append(errs, "DB_PASSWORD is required")
	}

	// Collaborator API keys
	if c.Deepgram.APIKey == "" {
		errs = append(errs, "DEEPGRAM_API_KEY is required")
	}
	if c.Gemini.APIKey == "" {
		errs = append(errs, "GEMINI_API_KEY is required")
	}

	// News enrichment: warn only, the pipeline works without it
	if c.News.APIKey == "" {
		slog.Warn("NEWS_API_KEY is empty, live headline enrichment disabled")
	}

	// Port ranges
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		errs = append(errs, fmt.Sprintf("SERVER_PORT must be 1–65535, got %d", c.Server.Port))
	}
	if c.DB.Port < 1 || c.DB.Port > 65535 {
		errs = append(errs, fmt.Sprintf("DB_PORT must be 1–65535, got %d", c.DB.Port))
	}
	if c.Redis.Port < 1 || c.Redis.Port > 65535 {
		errs = append(errs, fmt.Sprintf("REDIS_PORT must be 1–65535, got %d", c.Redis.Port))
	}

	// Pipeline knobs
	if c.Pipeline.TopK < 1 {
		errs = append(errs, fmt.Sprintf("PIPELINE_TOP_K must be at least 1, got %d", c.Pipeline.TopK))
	}
	if _, err := time.LoadLocation(c.Pipeline.DefaultTimezone); err != nil {
		errs = append(errs, fmt.Sprintf("PIPELINE_DEFAULT_TIMEZONE %q is not a valid IANA zone", c.Pipeline.DefaultTimezone))
	}

	if len(errs) > 0 {
		return errors.New("config validation failed:\n  " + strings.Join(errs, "\n  "))
	}
	return nil
}
