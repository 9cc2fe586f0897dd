package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// LLM backends understood by llm.New.
const (
	BackendOpenAI = "openai"
	BackendCompat = "compat"
)

// Config holds all runtime configuration loaded from environment variables.
type Config struct {
	TelegramBotToken      string
	TelegramAPIBaseURL    string
	TelegramWebhookSecret string
	AllowedChats          []int64

	OpenAIAPIKey     string
	OpenAIAPIBaseURL string
	LLMBackend       string
	LLMModel         string

	Location         *time.Location
	StrictTimeRanges bool

	DefaultListWindow    time.Duration
	MaxListWindow        time.Duration
	ReminderPollInterval time.Duration
	LinkPreviewTimeout   time.Duration

	ListenAddr  string
	WebhookPath string

	DatabasePath string

	LogLevel  string
	LogFormat string
}

// LoadEnvFile preloads variables from a dotenv file. A missing file is not an
// error; variables already set in the environment win.
func LoadEnvFile(path string) error {
	if path == "" {
		return nil
	}
	if err := godotenv.Load(path); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("load env file %s: %w", path, err)
	}
	return nil
}

// Load reads configuration from environment variables and applies sensible
// defaults where possible. It returns an error if a value is present but
// invalid.
func Load() (*Config, error) {
	cfg := &Config{}

	cfg.TelegramBotToken = env("TELEGRAM_BOT_TOKEN", "")
	cfg.TelegramAPIBaseURL = env("TELEGRAM_API_BASE_URL", "https://api.telegram.org")
	cfg.TelegramWebhookSecret = env("TELEGRAM_WEBHOOK_SECRET", "")

	allowedRaw := env("ALLOWED_CHATS", "")
	if allowedRaw != "" {
		for _, p := range strings.Split(allowedRaw, ",") {
			p = strings.TrimSpace(p)
			if p == "" {
				continue
			}
			id, err := strconv.ParseInt(p, 10, 64)
			if err != nil {
				return nil, fmt.Errorf("invalid chat id %q in ALLOWED_CHATS: %w", p, err)
			}
			cfg.AllowedChats = append(cfg.AllowedChats, id)
		}
	}

	cfg.OpenAIAPIKey = env("OPENAI_API_KEY", "")
	cfg.OpenAIAPIBaseURL = env("OPENAI_API_BASE_URL", "https://api.openai.com/v1")
	cfg.LLMModel = env("LLM_MODEL", "gpt-4.1-mini")
	cfg.LLMBackend = strings.ToLower(env("LLM_BACKEND", BackendOpenAI))
	if cfg.LLMBackend != BackendOpenAI && cfg.LLMBackend != BackendCompat {
		return nil, fmt.Errorf("invalid LLM_BACKEND %q: want %q or %q", cfg.LLMBackend, BackendOpenAI, BackendCompat)
	}

	loc, err := time.LoadLocation(env("TIMEZONE", "UTC"))
	if err != nil {
		return nil, fmt.Errorf("invalid TIMEZONE: %w", err)
	}
	cfg.Location = loc

	if raw := env("STRICT_TIME_RANGES", ""); raw != "" {
		v, err := strconv.ParseBool(raw)
		if err != nil {
			return nil, fmt.Errorf("invalid STRICT_TIME_RANGES: %w", err)
		}
		cfg.StrictTimeRanges = v
	}

	if cfg.DefaultListWindow, err = duration("DEFAULT_LIST_WINDOW", 24*time.Hour); err != nil {
		return nil, err
	}
	if cfg.MaxListWindow, err = duration("MAX_LIST_WINDOW", 31*24*time.Hour); err != nil {
		return nil, err
	}
	if cfg.MaxListWindow < cfg.DefaultListWindow {
		return nil, fmt.Errorf("MAX_LIST_WINDOW must be >= DEFAULT_LIST_WINDOW")
	}
	if cfg.ReminderPollInterval, err = duration("REMINDER_POLL_INTERVAL", 30*time.Second); err != nil {
		return nil, err
	}
	if cfg.ReminderPollInterval <= 0 {
		return nil, fmt.Errorf("REMINDER_POLL_INTERVAL must be positive")
	}
	if cfg.LinkPreviewTimeout, err = duration("LINK_PREVIEW_TIMEOUT", 5*time.Second); err != nil {
		return nil, err
	}

	cfg.ListenAddr = env("LISTEN_ADDR", ":8080")
	cfg.WebhookPath = env("WEBHOOK_PATH", "/telegram/webhook")
	cfg.DatabasePath = env("DATABASE_PATH", "callnotes.db")
	cfg.LogLevel = env("LOG_LEVEL", "info")
	cfg.LogFormat = env("LOG_FORMAT", "json")

	return cfg, nil
}

// RequireTelegram reports an error when the bot cannot be started.
func (c *Config) RequireTelegram() error {
	if c.TelegramBotToken == "" {
		return fmt.Errorf("TELEGRAM_BOT_TOKEN is required")
	}
	return nil
}

// LLMEnabled reports whether an LLM key was configured.
func (c *Config) LLMEnabled() bool {
	return c.OpenAIAPIKey != ""
}

func env(key, def string) string {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def
	}
	return v
}

func duration(key string, def time.Duration) (time.Duration, error) {
	raw := env(key, "")
	if raw == "" {
		return def, nil
	}
	d, err := time.ParseDuration(raw)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return d, nil
}
