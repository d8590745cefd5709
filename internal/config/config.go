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
	DB        DBConfig
	Redis     RedisConfig
	NATS      NATSConfig
	JWT       JWTConfig
	Anthropic AnthropicConfig
	OpenAI    OpenAIConfig
	Bible     BibleConfig
	Usage     UsageConfig
	CORS      CORSConfig
	Log       LogConfig
}

type ServerConfig struct {
	Host string
	Port int
}

type DBConfig struct {
	Host     string
	Port     int
	User     string
	Password string
	Name     string
	SSLMode  string
	MaxConns int32
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

// NATSConfig is optional; an empty URL disables event publishing.
type NATSConfig struct {
	URL string
}

type JWTConfig struct {
	AccessSecret  string
	RefreshSecret string
	AccessExpiry  time.Duration
	RefreshExpiry time.Duration
}

type AnthropicConfig struct {
	APIKey              string
	Model               string
	MaxTokensInsights   int
	MaxTokensDefinition int
	MaxTokensChat       int
	RequestTimeout      time.Duration
}

// OpenAIConfig covers the embedding client used for conversation search.
// An empty key disables semantic search.
type OpenAIConfig struct {
	APIKey         string
	EmbeddingModel string
}

type BibleConfig struct {
	BaseURL        string
	RequestTimeout time.Duration
	CacheTTL       time.Duration
}

type UsageConfig struct {
	DailyLimit    int
	RetentionDays int
}

type CORSConfig struct {
	AllowedOrigins []string
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

	cfg := &Config{
		Server: ServerConfig{
			Host: k.String("server.host"),
			Port: k.Int("server.port"),
		},
		DB: DBConfig{
			Host:     k.String("db.host"),
			Port:     k.Int("db.port"),
			User:     k.String("db.user"),
			Password: k.String("db.password"),
			Name:     k.String("db.name"),
			SSLMode:  k.String("db.sslmode"),
			MaxConns: int32(k.Int("db.max.conns")),
		},
		Redis: RedisConfig{
			Host:     k.String("redis.host"),
			Port:     k.Int("redis.port"),
			Password: k.String("redis.password"),
			DB:       k.Int("redis.db"),
		},
		NATS: NATSConfig{
			URL: k.String("nats.url"),
		},
		JWT: JWTConfig{
			AccessSecret:  k.String("jwt.access.secret"),
			RefreshSecret: k.String("jwt.refresh.secret"),
		},
		Anthropic: AnthropicConfig{
			APIKey:              k.String("anthropic.api.key"),
			Model:               k.String("anthropic.model"),
			MaxTokensInsights:   k.Int("anthropic.max.tokens.insights"),
			MaxTokensDefinition: k.Int("anthropic.max.tokens.definition"),
			MaxTokensChat:       k.Int("anthropic.max.tokens.chat"),
		},
		OpenAI: OpenAIConfig{
			APIKey:         k.String("openai.api.key"),
			EmbeddingModel: k.String("openai.embedding.model"),
		},
		Bible: BibleConfig{
			BaseURL: k.String("bible.base.url"),
		},
		Usage: UsageConfig{
			DailyLimit:    k.Int("usage.daily.limit"),
			RetentionDays: k.Int("usage.retention.days"),
		},
		CORS: CORSConfig{
			AllowedOrigins: k.Strings("cors.allowed.origins"),
		},
		Log: LogConfig{
			Level:  k.String("log.level"),
			Format: k.String("log.format"),
		},
	}

	// Apply defaults
	if cfg.Server.Host == "" {
		cfg.Server.Host = "0.0.0.0"
	}
	if cfg.Server.Port == 0 {
		cfg.Server.Port = 8080
	}
	if cfg.DB.Host == "" {
		cfg.DB.Host = "localhost"
	}
	if cfg.DB.Port == 0 {
		cfg.DB.Port = 5432
	}
	if cfg.DB.User == "" {
		cfg.DB.User = "verse"
	}
	if cfg.DB.Name == "" {
		cfg.DB.Name = "verse"
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
	if cfg.Anthropic.Model == "" {
		cfg.Anthropic.Model = "claude-sonnet-4-20250514"
	}
	if cfg.Anthropic.MaxTokensInsights == 0 {
		cfg.Anthropic.MaxTokensInsights = 2000
	}
	if cfg.Anthropic.MaxTokensDefinition == 0 {
		cfg.Anthropic.MaxTokensDefinition = 1000
	}
	if cfg.Anthropic.MaxTokensChat == 0 {
		cfg.Anthropic.MaxTokensChat = 3000
	}
	if cfg.OpenAI.EmbeddingModel == "" {
		cfg.OpenAI.EmbeddingModel = "text-embedding-3-small"
	}
	if cfg.Bible.BaseURL == "" {
		cfg.Bible.BaseURL = "https://bible.helloao.org/api"
	}
	if cfg.Usage.DailyLimit == 0 {
		cfg.Usage.DailyLimit = 10
	}
	if cfg.Usage.RetentionDays == 0 {
		cfg.Usage.RetentionDays = 30
	}
	if len(cfg.CORS.AllowedOrigins) == 0 {
		cfg.CORS.AllowedOrigins = []string{"http://localhost:5173", "http://localhost:3000"}
	}
	if cfg.Log.Level == "" {
		cfg.Log.Level = "debug"
	}
	if cfg.Log.Format == "" {
		cfg.Log.Format = "text"
	}

	// Parse durations
	accessExpStr := k.String("jwt.access.expiry")
	if accessExpStr == "" {
		accessExpStr = "15m"
	}
	cfg.JWT.AccessExpiry, err = time.ParseDuration(accessExpStr)
	if err != nil {
		return nil, fmt.Errorf("parsing jwt access expiry: %w", err)
	}

	refreshExpStr := k.String("jwt.refresh.expiry")
	if refreshExpStr == "" {
		refreshExpStr = "720h"
	}
	cfg.JWT.RefreshExpiry, err = time.ParseDuration(refreshExpStr)
	if err != nil {
		return nil, fmt.Errorf("parsing jwt refresh expiry: %w", err)
	}

	llmTimeoutStr := k.String("anthropic.request.timeout")
	if llmTimeoutStr == "" {
		llmTimeoutStr = "120s"
	}
	cfg.Anthropic.RequestTimeout, err = time.ParseDuration(llmTimeoutStr)
	if err != nil {
		return nil, fmt.Errorf("parsing anthropic request timeout: %w", err)
	}

	bibleTimeoutStr := k.String("bible.request.timeout")
	if bibleTimeoutStr == "" {
		bibleTimeoutStr = "30s"
	}
	cfg.Bible.RequestTimeout, err = time.ParseDuration(bibleTimeoutStr)
	if err != nil {
		return nil, fmt.Errorf("parsing bible request timeout: %w", err)
	}

	cacheTTLStr := k.String("bible.cache.ttl")
	if cacheTTLStr == "" {
		cacheTTLStr = "24h"
	}
	cfg.Bible.CacheTTL, err = time.ParseDuration(cacheTTLStr)
	if err != nil {
		return nil, fmt.Errorf("parsing bible cache ttl: %w", err)
	}

	return cfg, nil
}
