package config

import (
	"fmt"
	"log/slog"
	"strings"

	"github.com/caarlos0/env/v11"
)

type Config struct {
	// Server
	Port           int      `env:"PORT" envDefault:"8080"`
	AppEnv         string   `env:"APP_ENV" envDefault:"production"`
	LogLevel       string   `env:"LOG_LEVEL" envDefault:"info"`
	AllowedOrigins []string `env:"ALLOWED_ORIGINS" envSeparator:"," envDefault:"*"`

	// Direct Line
	DirectLineBaseURL  string `env:"DIRECTLINE_BASE_URL" envDefault:"https://directline.botframework.com/v3/directline"`
	DirectLineTokenURL string `env:"DIRECTLINE_TOKEN_URL,required"`

	// Storage
	StoreDriver string `env:"STORE_DRIVER" envDefault:"sqlite"`
	DatabaseURL string `env:"DATABASE_URL"`
	SQLitePath  string `env:"SQLITE_PATH" envDefault:"data/shopassist.db"`

	// Telegram ops logging
	LogTelegramBotToken  string `env:"LOG_TELEGRAM_BOT_TOKEN"`
	LogTelegramChatID    int64  `env:"LOG_TELEGRAM_CHAT_ID"`
	LogTopicSendFailure  int    `env:"LOG_TOPIC_SEND_FAILURE"`
	LogTopicSessionReset int    `env:"LOG_TOPIC_SESSION_RESET"`
}

func Load() (*Config, error) {
	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) validate() error {
	switch c.StoreDriver {
	case StoreDriverPostgres:
		if c.DatabaseURL == "" {
			return fmt.Errorf("DATABASE_URL is required for store driver %q", c.StoreDriver)
		}
	case StoreDriverSQLite, StoreDriverMemory:
	default:
		return fmt.Errorf("unknown store driver %q", c.StoreDriver)
	}
	return nil
}

func (c *Config) IsDevelopment() bool {
	return c.AppEnv == "development"
}

// TelegramLoggingEnabled reports whether ops alerts can be delivered.
func (c *Config) TelegramLoggingEnabled() bool {
	return c.LogTelegramBotToken != "" && c.LogTelegramChatID != 0
}

func (c *Config) SlogLevel() slog.Level {
	switch strings.ToLower(c.LogLevel) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
