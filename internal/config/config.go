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
	Server     ServerConfig
	DB         DBConfig
	Redis      RedisConfig
	NATS       NATSConfig
	Encryption EncryptionConfig
	Deepgram   DeepgramConfig
	Gemini     GeminiConfig
	News       NewsConfig
	Pipeline   PipelineConfig
	CORS       CORSConfig
	Log        LogConfig
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

type NATSConfig struct {
	URL     string
	Enabled bool
}

type EncryptionConfig struct {
	Key string
}

type DeepgramConfig struct {
	APIKey  string
	Model   string
	Timeout time.Duration
}

type GeminiConfig struct {
	APIKey         string
	Model          string
	EmbeddingModel string
	Timeout        time.Duration
}

// NewsConfig enables live headline enrichment of the generation prompt.
// An empty APIKey disables it.
type NewsConfig struct {
	APIKey string
}

type PipelineConfig struct {
	TopK            int
	DefaultTimezone string
	RateLimitMax    int
	RateLimitWindow int
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
			URL:     k.String("nats.url"),
			Enabled: k.Bool("nats.enabled"),
		},
		Encryption: EncryptionConfig{
			Key: k.String("encryption.key"),
		},
		Deepgram: DeepgramConfig{
			APIKey: k.String("deepgram.api.key"),
			Model:  k.String("deepgram.model"),
		},
		Gemini: GeminiConfig{
			APIKey:         k.String("gemini.api.key"),
			Model:          k.String("gemini.model"),
			EmbeddingModel: k.String("gemini.embedding.model"),
		},
		News: NewsConfig{
			APIKey: k.String("news.api.key"),
		},
		Pipeline: PipelineConfig{
			TopK:            k.Int("pipeline.top.k"),
			DefaultTimezone: k.String("pipeline.default.timezone"),
			RateLimitMax:    k.Int("pipeline.rate.limit.max"),
			RateLimitWindow: k.Int("pipeline.rate.limit.window"),
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
		cfg.DB.User = "voicepost"
	}
	if cfg.DB.Name == "" {
		cfg.DB.Name = "voicepost"
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
	if cfg.Deepgram.Model == "" {
		cfg.Deepgram.Model = "nova-3"
	}
	if cfg.Gemini.Model == "" {
		cfg.Gemini.Model = "gemini-2.5-flash"
	}
	if cfg.Gemini.EmbeddingModel == "" {
		cfg.Gemini.EmbeddingModel = "gemini-embedding-001"
	}
	if cfg.Pipeline.TopK == 0 {
		cfg.Pipeline.TopK = 3
	}
	if cfg.Pipeline.DefaultTimezone == "" {
		cfg.Pipeline.DefaultTimezone = "UTC"
	}
	if cfg.Pipeline.RateLimitMax == 0 {
		cfg.Pipeline.RateLimitMax = 10
	}
	if cfg.Pipeline.RateLimitWindow == 0 {
		cfg.Pipeline.RateLimitWindow = 60
	}
	if cfg.Log.Level == "" {
		cfg.Log.Level = "debug"
	}
	if cfg.Log.Format == "" {
		cfg.Log.Format = "text"
	}

	// Parse timeouts
	deepgramTimeout := k.String("deepgram.timeout")
	if deepgramTimeout == "" {
		deepgramTimeout = "60s"
	}
	cfg.Deepgram.Timeout, err = time.ParseDuration(deepgramTimeout)
	if err != nil {
		return nil, fmt.Errorf("parsing deepgram timeout: %w", err)
	}

	geminiTimeout := k.String("gemini.timeout")
	if geminiTimeout == "" {
		geminiTimeout = "45s"
	}
	cfg.Gemini.Timeout, err = time.ParseDuration(geminiTimeout)
	if err != nil {
		return nil, fmt.Errorf("parsing gemini timeout: %w", err)
	}

	return cfg, nil
}
