// Package config loads service configuration from an optional YAML file,
// then applies environment overrides so deployments can run file-less.
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

type Config struct {
	HTTP      HTTPConfig      `yaml:"http"`
	Database  DatabaseConfig  `yaml:"database"`
	Redis     RedisConfig     `yaml:"redis"`
	Functions FunctionsConfig `yaml:"functions"`
	Bucket    BucketConfig    `yaml:"bucket"`
	Telegram  TelegramConfig  `yaml:"telegram"`
	Realtime  RealtimeConfig  `yaml:"realtime"`
	Sweeper   SweeperConfig   `yaml:"sweeper"`
	Logging   LoggingConfig   `yaml:"logging"`
}

type HTTPConfig struct {
	Addr string `yaml:"addr"`
}

type DatabaseConfig struct {
	URL string `yaml:"url"`
}

type RedisConfig struct {
	Addr     string `yaml:"addr"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
}

// FunctionsConfig points at the hosted edge-function gateway. Every function
// lives under BaseURL and is authorized with the service key.
type FunctionsConfig struct {
	BaseURL     string `yaml:"base_url"`
	ServiceKey  string `yaml:"service_key"`
	TimeoutSecs int    `yaml:"timeout_secs"`
}

func (f FunctionsConfig) HTTPTimeout() time.Duration {
	return time.Duration(f.TimeoutSecs) * time.Second
}

// BucketConfig describes the carousel image bucket. Signed URLs are minted
// locally with SigningSecret and expire after SignedTTLSecs.
type BucketConfig struct {
	BaseURL       string `yaml:"base_url"`
	CarouselName  string `yaml:"carousel_name"`
	SigningSecret string `yaml:"signing_secret"`
	SignedTTLSecs int    `yaml:"signed_ttl_secs"`
}

func (b BucketConfig) SignedTTL() time.Duration {
	return time.Duration(b.SignedTTLSecs) * time.Second
}

type TelegramConfig struct {
	BotToken string `yaml:"bot_token"`
	ChatID   int64  `yaml:"chat_id"`
}

type RealtimeConfig struct {
	Channel    string `yaml:"channel"`
	DebounceMS int    `yaml:"debounce_ms"`
}

func (r RealtimeConfig) Debounce() time.Duration {
	return time.Duration(r.DebounceMS) * time.Millisecond
}

// SweeperConfig controls the stuck-job sweep: queue items processing for
// longer than StuckAfterMins are failed back for retry.
type SweeperConfig struct {
	IntervalMins   int `yaml:"interval_mins"`
	StuckAfterMins int `yaml:"stuck_after_mins"`
}

func (s SweeperConfig) Interval() time.Duration {
	return time.Duration(s.IntervalMins) * time.Minute
}

func (s SweeperConfig) StuckAfter() time.Duration {
	return time.Duration(s.StuckAfterMins) * time.Minute
}

type LoggingConfig struct {
	Level string `yaml:"level"`
}

// Load reads path (if non-empty), layers environment overrides on top, fills
// defaults and validates. Env always wins over the file.
func Load(path string) (*Config, error) {
	cfg := &Config{}

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read config: %w", err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config: %w", err)
		}
	}

	applyEnvOverrides(cfg)
	applyDefaults(cfg)

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func applyEnvOverrides(cfg *Config) {
	setString(&cfg.HTTP.Addr, "FORGE_HTTP_ADDR")
	setString(&cfg.Database.URL, "DATABASE_URL")
	setString(&cfg.Redis.Addr, "REDIS_ADDR")
	setString(&cfg.Redis.Password, "REDIS_PASSWORD")
	setString(&cfg.Functions.BaseURL, "FUNCTIONS_BASE_URL")
	setString(&cfg.Functions.ServiceKey, "FUNCTIONS_SERVICE_KEY")
	setString(&cfg.Bucket.BaseURL, "BUCKET_BASE_URL")
	setString(&cfg.Bucket.CarouselName, "BUCKET_CAROUSEL_NAME")
	setString(&cfg.Bucket.SigningSecret, "BUCKET_SIGNING_SECRET")
	setString(&cfg.Telegram.BotToken, "TELEGRAM_BOT_TOKEN")
	setString(&cfg.Realtime.Channel, "REALTIME_CHANNEL")
	setString(&cfg.Logging.Level, "LOG_LEVEL")
	setInt(&cfg.Functions.TimeoutSecs, "FUNCTIONS_TIMEOUT_SECS")
	setInt(&cfg.Realtime.DebounceMS, "REALTIME_DEBOUNCE_MS")

	if v := os.Getenv("TELEGRAM_CHAT_ID"); v != "" {
		if id, err := strconv.ParseInt(v, 10, 64); err == nil {
			cfg.Telegram.ChatID = id
		}
	}
}

func setString(dst *string, key string) {
	if v := os.Getenv(key); v != "" {
		*dst = v
	}
}

func setInt(dst *int, key string) {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			*dst = n
		}
	}
}

// applyDefaults fills anything the file and environment left at zero.
func applyDefaults(cfg *Config) {
	if cfg.HTTP.Addr == "" {
		cfg.HTTP.Addr = ":8080"
	}
	if cfg.Redis.Addr == "" {
		cfg.Redis.Addr = "localhost:6379"
	}
	if cfg.Functions.TimeoutSecs <= 0 {
		cfg.Functions.TimeoutSecs = 60
	}
	if cfg.Bucket.CarouselName == "" {
		cfg.Bucket.CarouselName = "exports"
	}
	if cfg.Bucket.SignedTTLSecs <= 0 {
		cfg.Bucket.SignedTTLSecs = 900
	}
	if cfg.Realtime.Channel == "" {
		cfg.Realtime.Channel = "forge:changes"
	}
	if cfg.Realtime.DebounceMS <= 0 {
		cfg.Realtime.DebounceMS = 500
	}
	if cfg.Sweeper.IntervalMins <= 0 {
		cfg.Sweeper.IntervalMins = 5
	}
	if cfg.Sweeper.StuckAfterMins <= 0 {
		cfg.Sweeper.StuckAfterMins = 10
	}
	if cfg.Logging.Level == "" {
		cfg.Logging.Level = "info"
	}
}

func (c *Config) validate() error {
	if c.Database.URL == "" {
		return fmt.Errorf("database.url is required (or set DATABASE_URL)")
	}
	if c.Functions.BaseURL == "" {
		return fmt.Errorf("functions.base_url is required (or set FUNCTIONS_BASE_URL)")
	}
	if c.Bucket.BaseURL != "" && c.Bucket.SigningSecret == "" {
		return fmt.Errorf("bucket.signing_secret is required when bucket.base_url is set")
	}
	if c.Telegram.BotToken != "" && c.Telegram.ChatID == 0 {
		return fmt.Errorf("telegram.chat_id is required when telegram.bot_token is set")
	}
	return nil
}
