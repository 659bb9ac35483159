package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds all application configuration.
type Config struct {
	Server struct {
		ListenAddr string `yaml:"listen_addr"`
	} `yaml:"server"`
	Ledger struct {
		BaseURL        string `yaml:"base_url"`
		TimeoutSeconds int    `yaml:"timeout_seconds"`
	} `yaml:"ledger"`
	Telegram struct {
		BotName string `yaml:"bot_name"`
	} `yaml:"telegram"`
	Game struct {
		SettleDelayMs int `yaml:"settle_delay_ms"`
		DaisyPrice    int `yaml:"daisy_price"`
	} `yaml:"game"`
	Journal struct {
		SQLitePath string `yaml:"sqlite_path"`
	} `yaml:"journal"`
	Refresh struct {
		Cron string `yaml:"cron"`
	} `yaml:"refresh"`
}

// Load reads config from a YAML file, then applies environment variable overrides.
func Load(path string) (*Config, error) {
	cfg := &Config{}

	data, err := os.ReadFile(path)
	if err != nil && !os.IsNotExist(err) {
		return nil, fmt.Errorf("read config: %w", err)
	}
	if len(data) > 0 {
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config: %w", err)
		}
	}

	// Environment variable overrides
	if v := os.Getenv("LISTEN_ADDR"); v != "" {
		cfg.Server.ListenAddr = v
	}
	if v := os.Getenv("LEDGER_BASE_URL"); v != "" {
		cfg.Ledger.BaseURL = v
	}
	if v := os.Getenv("LEDGER_TIMEOUT_SECONDS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.Ledger.TimeoutSeconds = n
		}
	}
	if v := os.Getenv("TELEGRAM_BOT_NAME"); v != "" {
		cfg.Telegram.BotName = v
	}
	if v := os.Getenv("JOURNAL_SQLITE_PATH"); v != "" {
		cfg.Journal.SQLitePath = v
	}
	if v := os.Getenv("REFRESH_CRON"); v != "" {
		cfg.Refresh.Cron = v
	}

	// Defaults
	if cfg.Server.ListenAddr == "" {
		cfg.Server.ListenAddr = ":8080"
	}
	if cfg.Ledger.TimeoutSeconds == 0 {
		cfg.Ledger.TimeoutSeconds = 10
	}
	if cfg.Game.SettleDelayMs == 0 {
		cfg.Game.SettleDelayMs = 1000
	}
	if cfg.Game.DaisyPrice == 0 {
		cfg.Game.DaisyPrice = 50
	}
	if cfg.Refresh.Cron == "" {
		cfg.Refresh.Cron = "@every 5m"
	}

	return cfg, nil
}

// Validate checks that all required fields are set.
func (c *Config) Validate() error {
	if c.Ledger.BaseURL == "" {
		return fmt.Errorf("ledger.base_url is required")
	}
	if c.Telegram.BotName == "" {
		return fmt.Errorf("telegram.bot_name is required")
	}
	if c.Ledger.TimeoutSeconds < 0 {
		return fmt.Errorf("ledger.timeout_seconds must be positive")
	}
	return nil
}

func (c *Config) LedgerTimeout() time.Duration {
	return time.Duration(c.Ledger.TimeoutSeconds) * time.Second
}

func (c *Config) SettleDelay() time.Duration {
	return time.Duration(c.Game.SettleDelayMs) * time.Millisecond
}
