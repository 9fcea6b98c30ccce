package config

import (
	"fmt"
	"strings"

	"github.com/caarlos0/env/v11"
)

type Config struct {
	// Core
	BotToken   string `env:"BOT_TOKEN,required"`
	SupportURL string `env:"SUPPORT_URL" envDefault:"https://t.me/suporte"`
	AccessURL  string `env:"ACCESS_URL"`

	// Payment: Asaas (PIX)
	AsaasAPIKey  string `env:"ASAAS_API_KEY,required"`
	AsaasBaseURL string `env:"ASAAS_BASE_URL" envDefault:"https://api-sandbox.asaas.com"`

	// Admin
	AdminIDs []int64 `env:"ADMIN_IDS" envSeparator:","`

	// State persistence: file, postgres or redis
	StateBackend  string `env:"STATE_BACKEND" envDefault:"file"`
	StateFile     string `env:"STATE_FILE" envDefault:"data/bot-state.json"`
	DatabaseURL   string `env:"DATABASE_URL"`
	RedisAddr     string `env:"REDIS_ADDR" envDefault:"localhost:6379"`
	RedisPassword string `env:"REDIS_PASSWORD"`
	RedisDB       int    `env:"REDIS_DB" envDefault:"0"`
	RedisPrefix   string `env:"REDIS_PREFIX" envDefault:"vitrine"`

	// Bot behavior
	DropPendingUpdates bool `env:"BOT_DROP_PENDING_UPDATES" envDefault:"false"`

	// Telegram logging
	LogTelegramChatID int64 `env:"LOG_TELEGRAM_CHAT_ID"`
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
	switch c.StateBackend {
	case BackendFile, BackendRedis:
	case BackendPostgres:
		if c.DatabaseURL == "" {
			return fmt.Errorf("DATABASE_URL is required for the %s state backend", BackendPostgres)
		}
	default:
		return fmt.Errorf("unknown STATE_BACKEND %q", c.StateBackend)
	}
	return nil
}

func (c *Config) IsAdmin(telegramID int64) bool {
	for _, id := range c.AdminIDs {
		if id == telegramID {
			return true
		}
	}
	return false
}

func (c *Config) AdminIDsString() string {
	parts := make([]string, len(c.AdminIDs))
	for i, id := range c.AdminIDs {
		parts[i] = fmt.Sprintf("%d", id)
	}
	return strings.Join(parts, ",")
}

// GatewayBaseURL returns the Asaas base URL with exactly one trailing /v3.
func (c *Config) GatewayBaseURL() string {
	u := strings.TrimRight(strings.TrimSpace(c.AsaasBaseURL), "/")
	u = strings.TrimSuffix(u, "/v3")
	return u + "/v3"
}
