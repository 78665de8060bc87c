package config

import (
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
)

const (
	BackendGemini = "gemini"
	BackendHTTP   = "http"

	StoreMemory = "memory"
	StoreNATS   = "nats"
	StoreRedis  = "redis"
)

var (
	ErrUnknownBackend = errors.New("unknown backend")
	ErrMissingAPIKey  = errors.New("missing GOOGLE_GENERATIVE_AI_API_KEY environment variable")
	ErrEndpoint       = errors.New("TTS_HTTP_ENDPOINT must be an absolute http(s) URL")
)

type Config struct {
	HTTP    HTTPConfig
	Log     LogConfig
	TTS     TTSConfig
	Store   StoreConfig
	Content ContentConfig
}

type HTTPConfig struct {
	Port           string        `env:"PORT" envDefault:"8080"`
	PublicBaseURL  string        `env:"PUBLIC_BASE_URL"`
	GinMode        string        `env:"GIN_MODE" envDefault:"release"`
	RequestTimeout time.Duration `env:"REQUEST_TIMEOUT" envDefault:"30s"`
	RateLimitRPS   float64       `env:"RATE_LIMIT_RPS" envDefault:"5"`
	RateLimitBurst int           `env:"RATE_LIMIT_BURST" envDefault:"10"`
}

type LogConfig struct {
	Level      string `env:"LOG_LEVEL" envDefault:"info"`
	Format     string `env:"LOG_FORMAT" envDefault:"text"`
	File       string `env:"LOG_FILE"`
	MaxSizeMB  int    `env:"LOG_MAX_SIZE_MB" envDefault:"50"`
	MaxBackups int    `env:"LOG_MAX_BACKUPS" envDefault:"3"`
	MaxAgeDays int    `env:"LOG_MAX_AGE_DAYS" envDefault:"28"`
}

type TTSConfig struct {
	Backend      string `env:"TTS_BACKEND" envDefault:"gemini"`
	Voice        string `env:"TTS_VOICE_NAME"`
	CacheVersion string `env:"TTS_CACHE_VERSION" envDefault:"v1"`
	MemoEntries  int    `env:"TTS_MEMO_MAX_ENTRIES" envDefault:"400"`

	GeminiAPIKey string `env:"GOOGLE_GENERATIVE_AI_API_KEY"`
	GeminiModel  string `env:"GEMINI_TTS_MODEL" envDefault:"gemini-2.5-flash-preview-tts"`
	GeminiBase   string `env:"GEMINI_BASE_URL"`

	HTTPEndpoint string        `env:"TTS_HTTP_ENDPOINT"`
	HTTPModel    string        `env:"TTS_HTTP_MODEL" envDefault:"tts-1"`
	HTTPVoice    string        `env:"TTS_HTTP_VOICE" envDefault:"alloy"`
	HTTPAPIKey   string        `env:"TTS_HTTP_API_KEY"`
	HTTPTimeout  time.Duration `env:"TTS_HTTP_TIMEOUT" envDefault:"25s"`
}

type StoreConfig struct {
	Backend       string        `env:"STORE_BACKEND" envDefault:"memory"`
	NATSURL       string        `env:"NATS_URL" envDefault:"nats://127.0.0.1:4222"`
	NATSBucket    string        `env:"NATS_OBJECT_BUCKET" envDefault:"WORDCARDS_TTS"`
	NATSClaimTTL  time.Duration `env:"NATS_CLAIM_TTL" envDefault:"5m"`
	RedisAddr     string        `env:"REDIS_ADDR" envDefault:"127.0.0.1:6379"`
	RedisPassword string        `env:"REDIS_PASSWORD"`
	RedisDB       int           `env:"REDIS_DB" envDefault:"0"`
	RedisPrefix   string        `env:"REDIS_PREFIX" envDefault:"wordcards"`
}

type ContentConfig struct {
	Path string `env:"CONTENT_PATH"`
}

func Load() (Config, error) {
	return parse(env.Options{})
}

// LoadFrom parses config from an explicit variable map instead of the process env.
func LoadFrom(vars map[string]string) (Config, error) {
	return parse(env.Options{Environment: vars})
}

func parse(opts env.Options) (Config, error) {
	var cfg Config
	if err := env.ParseWithOptions(&cfg, opts); err != nil {
		return Config{}, fmt.Errorf("parse env: %w", err)
	}
	cfg.TTS.Backend = strings.ToLower(strings.TrimSpace(cfg.TTS.Backend))
	cfg.Store.Backend = strings.ToLower(strings.TrimSpace(cfg.Store.Backend))
	cfg.TTS.GeminiAPIKey = strings.TrimSpace(cfg.TTS.GeminiAPIKey)
	cfg.TTS.HTTPEndpoint = strings.TrimSpace(cfg.TTS.HTTPEndpoint)
	if cfg.HTTP.PublicBaseURL == "" {
		cfg.HTTP.PublicBaseURL = "http://localhost:" + cfg.HTTP.Port
	}
	cfg.HTTP.PublicBaseURL = strings.TrimRight(cfg.HTTP.PublicBaseURL, "/")

	switch cfg.TTS.Backend {
	case BackendGemini, BackendHTTP:
	default:
		return Config{}, fmt.Errorf("%w: TTS_BACKEND=%q", ErrUnknownBackend, cfg.TTS.Backend)
	}
	switch cfg.Store.Backend {
	case StoreMemory, StoreNATS, StoreRedis:
	default:
		return Config{}, fmt.Errorf("%w: STORE_BACKEND=%q", ErrUnknownBackend, cfg.Store.Backend)
	}
	return cfg, nil
}

// ResolvedVoice returns the configured voice or the backend default.
func (t TTSConfig) ResolvedVoice() string {
	if v := strings.TrimSpace(t.Voice); v != "" {
		return v
	}
	if t.Backend == BackendHTTP {
		if v := strings.TrimSpace(t.HTTPVoice); v != "" {
			return v
		}
		return "alloy"
	}
	return "Kore"
}

// Validate reports missing backend credentials. These do not stop the server;
// each synthesis request fails with the same message instead.
func (t TTSConfig) Validate() error {
	switch t.Backend {
	case BackendGemini:
		if t.GeminiAPIKey == "" {
			return ErrMissingAPIKey
		}
	case BackendHTTP:
		return ValidateEndpoint(t.HTTPEndpoint)
	}
	return nil
}

func ValidateEndpoint(raw string) error {
	if raw == "" {
		return fmt.Errorf("%w: not set", ErrEndpoint)
	}
	u, err := url.Parse(raw)
	if err != nil || !u.IsAbs() || u.Host == "" || (u.Scheme != "http" && u.Scheme != "https") {
		return fmt.Errorf("%w: %q", ErrEndpoint, raw)
	}
	return nil
}
