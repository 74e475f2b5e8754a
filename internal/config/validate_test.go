package config

import (
	"strings"
	"testing"
	"time"
)

func validConfig() *Config {
	return &Config{
		Server: ServerConfig{Host: "0.0.0.0", Port: 8080},
		GRPC:   GRPCConfig{Port: 9090},
		DB: DBConfig{
			Host: "localhost", Port: 5432, User: "concierge",
			Password: "secret", Name: "concierge", SSLMode: "disable", MaxConns: 25,
		},
		Redis:     RedisConfig{Host: "localhost", Port: 6379},
		JWT:       JWTConfig{Enabled: true, Secret: "jwt-secret-that-is-at-least-32-chars!", Expiry: time.Hour},
		LLM:       LLMConfig{APIKey: "key", Model: "gemini-2.5-flash", Temperature: 0.7, MaxTokens: 4096},
		Providers: ProvidersConfig{Timeout: 10 * time.Second, FoodURL: "http://localhost:9000/mcp"},
		Cache:     CacheConfig{Enabled: true, Threshold: 0.7, TTL: time.Hour, Sweep: "0 0 * * * *"},
		Episode:   EpisodeConfig{Backend: "redis"},
	}
}

func TestValidate_ValidConfig(t *testing.T) {
	cfg := validConfig()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("expected no error, got: %v", err)
	}
}

func TestValidate_JWTSecretTooShort(t *testing.T) {
	cfg := validConfig()
	cfg.JWT.Secret = "short"
	err := cfg.Validate()
	if err == nil || !strings.Contains(err.Error(), "JWT_SECRET") {
		t.Fatalf("expected JWT_SECRET error, got: %v", err)
	}
}

func TestValidate_JWTDisabledSkipsSecret(t *testing.T) {
	cfg := validConfig()
	cfg.JWT.Enabled = false
	cfg.JWT.Secret = ""
	if err := cfg.Validate(); err != nil {
		t.Fatalf("expected no error, got: %v", err)
	}
}

func TestValidate_LLMKeyRequired(t *testing.T) {
	cfg := validConfig()
	cfg.LLM.APIKey = ""
	err := cfg.Validate()
	if err == nil || !strings.Contains(err.Error(), "LLM_API_KEY") {
		t.Fatalf("expected LLM_API_KEY error, got: %v", err)
	}
}

func TestValidate_UnknownEpisodeBackend(t *testing.T) {
	cfg := validConfig()
	cfg.Episode.Backend = "dynamodb"
	err := cfg.Validate()
	if err == nil || !strings.Contains(err.Error(), "EPISODE_BACKEND") {
		t.Fatalf("expected EPISODE_BACKEND error, got: %v", err)
	}
}

func TestValidate_CacheNeedsDBPassword(t *testing.T) {
	cfg := validConfig()
	cfg.DB.Password = ""
	err := cfg.Validate()
	if err == nil || !strings.Contains(err.Error(), "DB_PASSWORD") {
		t.Fatalf("expected DB_PASSWORD error, got: %v", err)
	}
}

func TestValidate_CacheThresholdRange(t *testing.T) {
	cfg := validConfig()
	cfg.Cache.Threshold = 1.5
	err := cfg.Validate()
	if err == nil || !strings.Contains(err.Error(), "CACHE_THRESHOLD") {
		t.Fatalf("expected CACHE_THRESHOLD error, got: %v", err)
	}
}

func TestValidate_InvalidSweepSpec(t *testing.T) {
	cfg := validConfig()
	cfg.Cache.Sweep = "every now and then"
	err := cfg.Validate()
	if err == nil || !strings.Contains(err.Error(), "CACHE_SWEEP") {
		t.Fatalf("expected CACHE_SWEEP error, got: %v", err)
	}
}

func TestValidate_XMPPRequiresNATS(t *testing.T) {
	cfg := validConfig()
	cfg.XMPP.Enabled = true
	cfg.XMPP.ComponentSecret = "secret"
	err := cfg.Validate()
	if err == nil || !strings.Contains(err.Error(), "NATS_ENABLED") {
		t.Fatalf("expected NATS_ENABLED error, got: %v", err)
	}
}

func TestValidate_InvalidPorts(t *testing.T) {
	tests := []struct {
		name   string
		modify func(*Config)
		want   string
	}{
		{"server port 0", func(c *Config) { c.Server.Port = 0 }, "SERVER_PORT"},
		{"server port too high", func(c *Config) { c.Server.Port = 70000 }, "SERVER_PORT"},
		{"grpc port 0", func(c *Config) { c.GRPC.Port = 0 }, "GRPC_PORT"},
		{"db port negative", func(c *Config) { c.DB.Port = -1 }, "DB_PORT"},
		{"redis port too high", func(c *Config) { c.Redis.Port = 99999 }, "REDIS_PORT"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig()
			tt.modify(cfg)
			err := cfg.Validate()
			if err == nil || !strings.Contains(err.Error(), tt.want) {
				t.Fatalf("expected %s error, got: %v", tt.want, err)
			}
		})
	}
}

func TestValidate_MultipleErrors(t *testing.T) {
	cfg := validConfig()
	cfg.LLM.APIKey = ""
	cfg.Server.Port = 0
	err := cfg.Validate()
	if err == nil {
		t.Fatal("expected errors")
	}
	if !strings.Contains(err.Error(), "LLM_API_KEY") || !strings.Contains(err.Error(), "SERVER_PORT") {
		t.Fatalf("expected both errors collected, got: %v", err)
	}
}
