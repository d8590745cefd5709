package config

import (
	"errors"
	"fmt"
	"log/slog"
	"strings"
)

// Validate checks Config for production-critical problems.
// It collects all errors into a single joined error.
func (c *Config) Validate() error {
	var errs []string

	// JWT secrets
	if len(c.JWT.AccessSecret) < 32 {
		errs = append(errs, "JWT_ACCESS_SECRET must be at least 32 characters")
	}
	if len(c.JWT.RefreshSecret) < 32 {
		errs = append(errs, "JWT_REFRESH_SECRET must be at least 32 characters")
	}
	if c.JWT.AccessSecret != "" && c.JWT.RefreshSecret != "" && c.JWT.AccessSecret == c.JWT.RefreshSecret {
		errs = append(errs, "JWT_ACCESS_SECRET and JWT_REFRESH_SECRET must differ")
	}

	// DB password
	if c.DB.Password == "" {
		errs = append(errs, "DB_PASSWORD is required")
	}

	// Port ranges
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		errs = append(errs, fmt.Sprintf("SERVER_PORT must be 1-65535, got %d", c.Server.Port))
	}
	if c.DB.Port < 1 || c.DB.Port > 65535 {
		errs = append(errs, fmt.Sprintf("DB_PORT must be 1-65535, got %d", c.DB.Port))
	}
	if c.Redis.Port < 1 || c.Redis.Port > 65535 {
		errs = append(errs, fmt.Sprintf("REDIS_PORT must be 1-65535, got %d", c.Redis.Port))
	}

	// Token budgets must fit the provider's limits
	for name, v := range map[string]int{
		"ANTHROPIC_MAX_TOKENS_INSIGHTS":   c.Anthropic.MaxTokensInsights,
		"ANTHROPIC_MAX_TOKENS_DEFINITION": c.Anthropic.MaxTokensDefinition,
		"ANTHROPIC_MAX_TOKENS_CHAT":       c.Anthropic.MaxTokensChat,
	} {
		if v < 500 || v > 16000 {
			errs = append(errs, fmt.Sprintf("%s must be 500-16000, got %d", name, v))
		}
	}

	if c.Usage.DailyLimit < 1 {
		errs = append(errs, fmt.Sprintf("USAGE_DAILY_LIMIT must be positive, got %d", c.Usage.DailyLimit))
	}
	if c.Usage.RetentionDays < 1 {
		errs = append(errs, fmt.Sprintf("USAGE_RETENTION_DAYS must be positive, got %d", c.Usage.RetentionDays))
	}

	// Anthropic API key: warn only, so dev setups can boot without one
	if c.Anthropic.APIKey == "" {
		slog.Warn("ANTHROPIC_API_KEY is empty, insight, definition and chat endpoints will fail")
	}
	if c.OpenAI.APIKey == "" {
		slog.Info("OPENAI_API_KEY is empty, conversation search is disabled")
	}

	if len(errs) > 0 {
		return errors.New("config validation failed:\n  " + strings.Join(errs, "\n  "))
	}
	return nil
}
