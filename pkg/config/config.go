// TransClaw - Telegram translation relay
// License: MIT
//
// Copyright (c) 2026 TransClaw contributors

package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/zhaopengme/transclaw/pkg/logger"
)

const EnvPrefix = "TRANSCLAW_"

var ErrMissingToken = errors.New("telegram.token is required (set it in the config file or TRANSCLAW_TELEGRAM_TOKEN)")

type Config struct {
	Telegram    TelegramConfig    `yaml:"telegram" envPrefix:"TELEGRAM_"`
	Translation TranslationConfig `yaml:"translation" envPrefix:"TRANSLATION_"`
	Extraction  ExtractionConfig  `yaml:"extraction" envPrefix:"EXTRACTION_"`
	Relay       RelayConfig       `yaml:"relay" envPrefix:"RELAY_"`
	Logging     logger.Config     `yaml:"logging" envPrefix:"LOGGING_"`
	Metrics     MetricsConfig     `yaml:"metrics" envPrefix:"METRICS_"`
}

type TelegramConfig struct {
	Token          string        `yaml:"token" env:"TOKEN"`
	APIURL         string        `yaml:"api_url" env:"API_URL"`
	Proxy          string        `yaml:"proxy" env:"PROXY"`
	PollTimeout    time.Duration `yaml:"poll_timeout" env:"POLL_TIMEOUT"`
	RequestTimeout time.Duration `yaml:"request_timeout" env:"REQUEST_TIMEOUT"`
	AllowFrom      []int64       `yaml:"allow_from" env:"ALLOW_FROM" envSeparator:","`
}

type TranslationConfig struct {
	Provider       string        `yaml:"provider" env:"PROVIDER"`
	TargetLanguage string        `yaml:"target_language" env:"TARGET_LANGUAGE"`
	Model          string        `yaml:"model" env:"MODEL"`
	APIKey         string        `yaml:"api_key" env:"API_KEY"`
	APIBase        string        `yaml:"api_base" env:"API_BASE"`
	Email          string        `yaml:"email" env:"EMAIL"`
	Timeout        time.Duration `yaml:"timeout" env:"TIMEOUT"`
}

type ExtractionConfig struct {
	Provider       string        `yaml:"provider" env:"PROVIDER"`
	Model          string        `yaml:"model" env:"MODEL"`
	APIKey         string        `yaml:"api_key" env:"API_KEY"`
	APIBase        string        `yaml:"api_base" env:"API_BASE"`
	TesseractPath  string        `yaml:"tesseract_path" env:"TESSERACT_PATH"`
	TesseractLangs string        `yaml:"tesseract_langs" env:"TESSERACT_LANGS"`
	MaxImageBytes  int64         `yaml:"max_image_bytes" env:"MAX_IMAGE_BYTES"`
	Timeout        time.Duration `yaml:"timeout" env:"TIMEOUT"`
}

type RelayConfig struct {
	TempDir        string        `yaml:"temp_dir" env:"TEMP_DIR"`
	Workers        int           `yaml:"workers" env:"WORKERS"`
	QueueSize      int           `yaml:"queue_size" env:"QUEUE_SIZE"`
	EventCacheSize int           `yaml:"event_cache_size" env:"EVENT_CACHE_SIZE"`
	FileCacheTTL   time.Duration `yaml:"file_cache_ttl" env:"FILE_CACHE_TTL"`
	RetryAttempts  int           `yaml:"retry_attempts" env:"RETRY_ATTEMPTS"`
	RetryBaseDelay time.Duration `yaml:"retry_base_delay" env:"RETRY_BASE_DELAY"`
	ErrorPause     time.Duration `yaml:"error_pause" env:"ERROR_PAUSE"`
	NetworkPause   time.Duration `yaml:"network_pause" env:"NETWORK_PAUSE"`
	SendRate       float64       `yaml:"send_rate" env:"SEND_RATE"`
}

type MetricsConfig struct {
	Addr string `yaml:"addr" env:"ADDR"`
}

func DefaultConfig() *Config {
	return &Config{
		Telegram: TelegramConfig{
			PollTimeout:    30 * time.Second,
			RequestTimeout: 30 * time.Second,
		},
		Translation: TranslationConfig{
			Provider:       "mymemory",
			TargetLanguage: "zh-CN",
			Timeout:        30 * time.Second,
		},
		Extraction: ExtractionConfig{
			Provider:       "tesseract",
			TesseractPath:  "tesseract",
			TesseractLangs: "chi_sim+eng",
			MaxImageBytes:  20 << 20,
			Timeout:        60 * time.Second,
		},
		Relay: RelayConfig{
			TempDir:        "./temp",
			Workers:        1,
			QueueSize:      100,
			EventCacheSize: 1000,
			FileCacheTTL:   10 * time.Minute,
			RetryAttempts:  3,
			RetryBaseDelay: 5 * time.Second,
			ErrorPause:     5 * time.Second,
			NetworkPause:   30 * time.Second,
			SendRate:       25,
		},
		Logging: logger.Config{
			Level:  "info",
			Format: "console",
		},
	}
}

// Load reads the configuration with Read and validates it.
func Load(path string) (*Config, error) {
	cfg, err := Read(path)
	if err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Read builds the configuration from defaults, the optional YAML file at
// path, an optional .env file in the working directory and finally
// TRANSCLAW_* environment variables. It does not validate.
func Read(path string) (*Config, error) {
	cfg := DefaultConfig()

	if path != "" {
		data, err := os.ReadFile(path)
		switch {
		case err == nil:
			if err := yaml.Unmarshal(data, cfg); err != nil {
				return nil, fmt.Errorf("parse config %s: %w", path, err)
			}
		case errors.Is(err, os.ErrNotExist):
			// env-only deployments are fine
		default:
			return nil, fmt.Errorf("read config %s: %w", path, err)
		}
	}

	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("load .env: %w", err)
	}

	if err := env.ParseWithOptions(cfg, env.Options{Prefix: EnvPrefix}); err != nil {
		return nil, fmt.Errorf("parse environment: %w", err)
	}

	cfg.normalize()
	return cfg, nil
}

func (c *Config) normalize() {
	c.Telegram.Token = strings.TrimSpace(c.Telegram.Token)
	c.Translation.Provider = strings.ToLower(strings.TrimSpace(c.Translation.Provider))
	c.Extraction.Provider = strings.ToLower(strings.TrimSpace(c.Extraction.Provider))
	c.Translation.TargetLanguage = strings.TrimSpace(c.Translation.TargetLanguage)
	if c.Relay.TempDir != "" {
		c.Relay.TempDir = filepath.Clean(c.Relay.TempDir)
	}
}

func (c *Config) Validate() error {
	if c.Telegram.Token == "" || c.Telegram.Token == "YOUR_TELEGRAM_BOT_TOKEN" {
		return ErrMissingToken
	}
	switch c.Translation.Provider {
	case "mymemory", "openai", "anthropic":
	default:
		return fmt.Errorf("unknown translation.provider: %q", c.Translation.Provider)
	}
	switch c.Extraction.Provider {
	case "tesseract", "openai", "anthropic":
	default:
		return fmt.Errorf("unknown extraction.provider: %q", c.Extraction.Provider)
	}
	if c.Translation.TargetLanguage == "" {
		return errors.New("translation.target_language is required")
	}
	if c.Relay.TempDir == "" {
		return errors.New("relay.temp_dir is required")
	}
	if c.Relay.Workers < 1 {
		return fmt.Errorf("relay.workers must be >= 1, got %d", c.Relay.Workers)
	}
	if c.Relay.RetryAttempts < 1 {
		return fmt.Errorf("relay.retry_attempts must be >= 1, got %d", c.Relay.RetryAttempts)
	}
	return nil
}

// AllowsChat reports whether chatID may use the bot. An empty allowlist
// allows everyone.
func (c *TelegramConfig) AllowsChat(chatID int64) bool {
	if len(c.AllowFrom) == 0 {
		return true
	}
	for _, id := range c.AllowFrom {
		if id == chatID {
			return true
		}
	}
	return false
}
