package config

import (
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/robfig/cron/v3"
)

var episodeBackends = map[string]bool{"redis": true, "postgres": true, "duckdb": true}

// Validate checks Config for production-critical problems.
// It collects all errors into a single joined error.
func (c *Config) Validate() error {
	var errs []string

	if c.JWT.Enabled && len(c.JWT.Secret) < 32 {
		errs = append(errs, "JWT_SECRET must be at least 32 characters when JWT_ENABLED is set")
	}

	if c.LLM.APIKey == "" {
		errs = append(errs, "LLM_API_KEY is required")
	}
	if c.LLM.Temperature < 0 || c.LLM.Temperature > 2 {
		errs = append(errs, fmt.Sprintf("LLM_TEMPERATURE must be 0–2, got %v", c.LLM.Temperature))
	}

	if !episodeBackends[c.Episode.Backend] {
		errs = append(errs, fmt.Sprintf("EPISODE_BACKEND must be redis, postgres or duckdb, got %q", c.Episode.Backend))
	}
	if (c.Episode.Backend == "postgres" || c.Cache.Enabled) && c.DB.Password == "" {
		errs = append(errs, "DB_PASSWORD is required for the postgres episode backend or semantic cache")
	}

	if c.Cache.Threshold <= 0 || c.Cache.Threshold > 1 {
		errs = append(errs, fmt.Sprintf("CACHE_THRESHOLD must be in (0, 1], got %v", c.Cache.Threshold))
	}
	if c.Cache.Enabled {
		parser := cron.NewParser(cron.SecondOptional | cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow | cron.Descriptor)
		if _, err := parser.Parse(c.Cache.Sweep); err != nil {
			errs = append(errs, fmt.Sprintf("CACHE_SWEEP is not a valid cron spec: %v", err))
		}
	}

	if c.XMPP.Enabled {
		if c.XMPP.ComponentSecret == "" {
			errs = append(errs, "XMPP_COMPONENT_SECRET is required when XMPP_ENABLED is set")
		}
		if !c.NATS.Enabled {
			errs = append(errs, "XMPP_ENABLED requires NATS_ENABLED")
		}
	}

	// Port ranges
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		errs = append(errs, fmt.Sprintf("SERVER_PORT must be 1–65535, got %d", c.Server.Port))
	}
	if c.GRPC.Port < 1 || c.GRPC.Port > 65535 {
		errs = append(errs, fmt.Sprintf("GRPC_PORT must be 1–65535, got %d", c.GRPC.Port))
	}
	if c.DB.Port < 1 || c.DB.Port > 65535 {
		errs = append(errs, fmt.Sprintf("DB_PORT must be 1–65535, got %d", c.DB.Port))
	}
	if c.Redis.Port < 1 || c.Redis.Port > 65535 {
		errs = append(errs, fmt.Sprintf("REDIS_PORT must be 1–65535, got %d", c.Redis.Port))
	}

	if c.Providers.FoodURL == "" {
		slog.Warn("PROVIDERS_FOOD_URL is empty, food ordering turns will fail")
	}

	if len(errs) > 0 {
		return errors.New("config validation failed:\n  " + strings.Join(errs, "\n  "))
	}
	return nil
}
