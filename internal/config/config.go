package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/knadh/koanf/parsers/dotenv"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

type Config struct {
	Server    ServerConfig
	GRPC      GRPCConfig
	DB        DBConfig
	Redis     RedisConfig
	NATS      NATSConfig
	JWT       JWTConfig
	XMPP      XMPPConfig
	LLM       LLMConfig
	Providers ProvidersConfig
	Cache     CacheConfig
	Episode   EpisodeConfig
	Turn      TurnConfig
	RateLimit RateLimitConfig
	CORS      CORSConfig
	Log       LogConfig
}

type ServerConfig struct {
	Host string
	Port int
}

type GRPCConfig struct {
	Port int
}

type DBConfig struct {
	Host           string
	Port           int
	User           string
	Password       string
	Name           string
	SSLMode        string
	MaxConns       int32
	MigrationsPath string
}

func (c DBConfig) DSN() string {
	return fmt.Sprintf("postgres://%s:%s@%s:%d/%s?sslmode=%s",
		c.User, c.Password, c.Host, c.Port, c.Name, c.SSLMode)
}

type RedisConfig struct {
	Host     string
	Port     int
	Password string
	DB       int
}

func (c RedisConfig) Addr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

type NATSConfig struct {
	Enabled bool
	URL     string
}

type JWTConfig struct {
	Enabled bool
	Secret  string
	Expiry  time.Duration
}

type XMPPConfig struct {
	Enabled         bool
	ComponentHost   string
	ComponentPort   int
	ComponentName   string
	ComponentSecret string
}

func (c XMPPConfig) ComponentAddr() string {
	return fmt.Sprintf("%s:%d", c.ComponentHost, c.ComponentPort)
}

type LLMConfig struct {
	APIKey         string
	Model          string
	EmbeddingModel string
	Temperature    float64
	MaxTokens      int
}

type ProvidersConfig struct {
	Timeout       time.Duration
	UserAgent     string
	FoodURL       string
	FoodTarget    string
	FootballScope string
}

type CacheConfig struct {
	Enabled   bool
	Threshold float64
	TTL       time.Duration
	Sweep     string
}

type EpisodeConfig struct {
	Backend    string
	TTL        time.Duration
	DuckDBPath string
}

type TurnConfig struct {
	Timeout time.Duration
}

type RateLimitConfig struct {
	MaxRequests int
	WindowSec   int
}

type CORSConfig struct {
	AllowedOrigins   []string
	AllowCredentials bool
}

type LogConfig struct {
	Level  string
	Format string
}

func Load() (*Config, error) {
	k := koanf.New(".")

	// Load .env file if it exists (ignore error if missing)
	_ = k.Load(file.Provider(".env"), dotenv.Parser())

	// Load environment variables (override .env)
	err := k.Load(env.Provider("", ".", func(s string) string {
		return strings.ToLower(strings.ReplaceAll(s, "_", "."))
	}), nil)
	if err != nil {
		return nil, fmt.Errorf("loading env vars: %w", err)
	}

	return fromKoanf(k)
}

func fromKoanf(k *koanf.Koanf) (*Config, error) {
	cfg := &Config{
		Server: ServerConfig{
			Host: k.String("server.host"),
			Port: k.Int("server.port"),
		},
		GRPC: GRPCConfig{
			Port: k.Int("grpc.port"),
		},
		DB: DBConfig{
			Host:           k.String("db.host"),
			Port:           k.Int("db.port"),
			User:           k.String("db.user"),
			Password:       k.String("db.password"),
			Name:           k.String("db.name"),
			SSLMode:        k.String("db.sslmode"),
			MaxConns:       int32(k.Int("db.max.conns")),
			MigrationsPath: k.String("db.migrations.path"),
		},
		Redis: RedisConfig{
			Host:     k.String("redis.host"),
			Port:     k.Int("redis.port"),
			Password: k.String("redis.password"),
			DB:       k.Int("redis.db"),
		},
		NATS: NATSConfig{
			Enabled: k.Bool("nats.enabled"),
			URL:     k.String("nats.url"),
		},
		JWT: JWTConfig{
			Enabled: k.Bool("jwt.enabled"),
			Secret:  k.String("jwt.secret"),
		},
		XMPP: XMPPConfig{
			Enabled:         k.Bool("xmpp.enabled"),
			ComponentHost:   k.String("xmpp.component.host"),
			ComponentPort:   k.Int("xmpp.component.port"),
			ComponentName:   k.String("xmpp.component.name"),
			ComponentSecret: k.String("xmpp.component.secret"),
		},
		LLM: LLMConfig{
			APIKey:         k.String("llm.api.key"),
			Model:          k.String("llm.model"),
			EmbeddingModel: k.String("llm.embedding.model"),
			Temperature:    k.Float64("llm.temperature"),
			MaxTokens:      k.Int("llm.max.tokens"),
		},
		Providers: ProvidersConfig{
			UserAgent:     k.String("providers.user.agent"),
			FoodURL:       k.String("providers.food.url"),
			FoodTarget:    k.String("providers.food.target"),
			FootballScope: k.String("providers.football.scope"),
		},
		Cache: CacheConfig{
			Enabled:   k.Bool("cache.enabled"),
			Threshold: k.Float64("cache.threshold"),
			Sweep:     k.String("cache.sweep"),
		},
		Episode: EpisodeConfig{
			Backend:    k.String("episode.backend"),
			DuckDBPath: k.String("episode.duckdb.path"),
		},
		RateLimit: RateLimitConfig{
			MaxRequests: k.Int("ratelimit.max.requests"),
			WindowSec:   k.Int("ratelimit.window.sec"),
		},
		Log: LogConfig{
			Level:  k.String("log.level"),
			Format: k.String("log.format"),
		},
	}

	cfg.CORS.AllowCredentials = k.Bool("cors.allow.credentials")
	if origins := k.String("cors.allowed.origins"); origins != "" {
		for _, o := range strings.Split(origins, ",") {
			if o = strings.TrimSpace(o); o != "" {
				cfg.CORS.AllowedOrigins = append(cfg.CORS.AllowedOrigins, o)
			}
		}
	}

	applyDefaults(cfg)

	// Parse durations
	var err error
	durations := []struct {
		key  string
		def  string
		dest *time.Duration
	}{
		{"jwt.expiry", "24h", &cfg.JWT.Expiry},
		{"providers.timeout", "10s", &cfg.Providers.Timeout},
		{"cache.ttl", "24h", &cfg.Cache.TTL},
		{"episode.ttl", "720h", &cfg.Episode.TTL},
		{"turn.timeout", "60s", &cfg.Turn.Timeout},
	}
	for _, d := range durations {
		raw := k.String(d.key)
		if raw == "" {
			raw = d.def
		}
		*d.dest, err = time.ParseDuration(raw)
		if err != nil {
			return nil, fmt.Errorf("parsing %s: %w", d.key, err)
		}
	}

	return cfg, nil
}

func applyDefaults(cfg *Config) {
	if cfg.Server.Host == "" {
		cfg.Server.Host = "0.0.0.0"
	}
	if cfg.Server.Port == 0 {
		cfg.Server.Port = 8080
	}
	if cfg.GRPC.Port == 0 {
		cfg.GRPC.Port = 9090
	}
	if cfg.DB.Host == "" {
		cfg.DB.Host = "localhost"
	}
	if cfg.DB.Port == 0 {
		cfg.DB.Port = 5432
	}
	if cfg.DB.User == "" {
		cfg.DB.User = "concierge"
	}
	if cfg.DB.Name == "" {
		cfg.DB.Name = "concierge"
	}
	if cfg.DB.SSLMode == "" {
		cfg.DB.SSLMode = "disable"
	}
	if cfg.DB.MaxConns == 0 {
		cfg.DB.MaxConns = 25
	}
	if cfg.Redis.Host == "" {
		cfg.Redis.Host = "localhost"
	}
	if cfg.Redis.Port == 0 {
		cfg.Redis.Port = 6379
	}
	if cfg.NATS.URL == "" {
		cfg.NATS.URL = "nats://localhost:4222"
	}
	if cfg.XMPP.ComponentHost == "" {
		cfg.XMPP.ComponentHost = "localhost"
	}
	if cfg.XMPP.ComponentPort == 0 {
		cfg.XMPP.ComponentPort = 5275
	}
	if cfg.XMPP.ComponentName == "" {
		cfg.XMPP.ComponentName = "concierge.localhost"
	}
	if cfg.LLM.Model == "" {
		cfg.LLM.Model = "gemini-2.5-flash"
	}
	if cfg.LLM.EmbeddingModel == "" {
		cfg.LLM.EmbeddingModel = "gemini-embedding-001"
	}
	if cfg.LLM.Temperature == 0 {
		cfg.LLM.Temperature = 0.7
	}
	if cfg.LLM.MaxTokens == 0 {
		cfg.LLM.MaxTokens = 4096
	}
	if cfg.Providers.UserAgent == "" {
		cfg.Providers.UserAgent = "Mozilla/5.0 (compatible; concierge/1.0)"
	}
	if cfg.Providers.FoodTarget == "" {
		cfg.Providers.FoodTarget = "food-api"
	}
	if cfg.Providers.FootballScope == "" {
		cfg.Providers.FootballScope = "br"
	}
	if cfg.Cache.Threshold == 0 {
		cfg.Cache.Threshold = 0.7
	}
	if cfg.Cache.Sweep == "" {
		cfg.Cache.Sweep = "0 0 * * * *"
	}
	if cfg.Episode.Backend == "" {
		cfg.Episode.Backend = "redis"
	}
	if cfg.Episode.DuckDBPath == "" {
		cfg.Episode.DuckDBPath = "concierge.duckdb"
	}
	if cfg.RateLimit.MaxRequests == 0 {
		cfg.RateLimit.MaxRequests = 30
	}
	if cfg.RateLimit.WindowSec == 0 {
		cfg.RateLimit.WindowSec = 60
	}
	if cfg.Log.Level == "" {
		cfg.Log.Level = "debug"
	}
	if cfg.Log.Format == "" {
		cfg.Log.Format = "text"
	}
}
