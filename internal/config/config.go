package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds all application configuration.
type Config struct {
	Server struct {
		Port           int           `yaml:"port"`
		Mode           string        `yaml:"mode"` // debug, release, test
		StaticDir      string        `yaml:"static_dir"`
		CORSOrigins    []string      `yaml:"cors_origins"`
		ReadTimeout    time.Duration `yaml:"read_timeout"`
		WriteTimeout   time.Duration `yaml:"write_timeout"`
		RequestTimeout time.Duration `yaml:"request_timeout"`
	} `yaml:"server"`
	PriceSource struct {
		Type        string        `yaml:"type"` // binance, rest, static
		BaseURL     string        `yaml:"base_url"`
		APIKey      string        `yaml:"api_key"`
		StaticPrice float64       `yaml:"static_price"`
		Timeout     time.Duration `yaml:"timeout"`
	} `yaml:"price_source"`
	Binance struct {
		APIKey    string `yaml:"api_key"`
		APISecret string `yaml:"api_secret"`
		Testnet   *bool  `yaml:"testnet"`
	} `yaml:"binance"`
	Storage struct {
		Driver      string `yaml:"driver"` // sqlite, postgres, file, memory
		SQLitePath  string `yaml:"sqlite_path"`
		PostgresDSN string `yaml:"postgres_dsn"`
		DataDir     string `yaml:"data_dir"`
		MaxOrders   int    `yaml:"max_orders"`
		Fallback    *bool  `yaml:"fallback"`
	} `yaml:"storage"`
	Telegram struct {
		BotToken string `yaml:"bot_token"`
		ChatID   string `yaml:"chat_id"`
	} `yaml:"telegram"`
	Schedule struct {
		DigestCron string `yaml:"digest_cron"`
		PruneCron  string `yaml:"prune_cron"`
	} `yaml:"schedule"`
	Log struct {
		Dir   string `yaml:"dir"`
		Debug bool   `yaml:"debug"`
	} `yaml:"log"`
	Proxy string `yaml:"proxy"`
}

// Load reads config from a YAML file, then applies environment variable overrides.
// A missing file is not an error.
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

	if err := cfg.applyEnv(); err != nil {
		return nil, err
	}
	cfg.applyDefaults()
	return cfg, nil
}

func (c *Config) applyEnv() error {
	str := func(key string, dst *string) {
		if v := os.Getenv(key); v != "" {
			*dst = v
		}
	}
	boolean := func(key string, dst **bool) error {
		v := os.Getenv(key)
		if v == "" {
			return nil
		}
		b, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("env %s: %w", key, err)
		}
		*dst = &b
		return nil
	}

	if v := os.Getenv("PORT"); v != "" {
		port, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("env PORT: %w", err)
		}
		c.Server.Port = port
	}
	if v := os.Getenv("APP_ENV"); v != "" {
		if v == "production" {
			c.Server.Mode = "release"
		} else {
			c.Server.Mode = "debug"
		}
	}
	str("BINANCE_API_KEY", &c.Binance.APIKey)
	str("BINANCE_API_SECRET", &c.Binance.APISecret)
	if err := boolean("BINANCE_TESTNET", &c.Binance.Testnet); err != nil {
		return err
	}
	str("PRICE_SOURCE", &c.PriceSource.Type)
	str("PRICE_SOURCE_URL", &c.PriceSource.BaseURL)
	str("STORAGE_DRIVER", &c.Storage.Driver)
	str("SQLITE_PATH", &c.Storage.SQLitePath)
	str("POSTGRES_DSN", &c.Storage.PostgresDSN)
	str("DATA_DIR", &c.Storage.DataDir)
	if err := boolean("USE_FALLBACK_STORAGE", &c.Storage.Fallback); err != nil {
		return err
	}
	str("TELEGRAM_BOT_TOKEN", &c.Telegram.BotToken)
	str("TELEGRAM_CHAT_ID", &c.Telegram.ChatID)
	str("HTTPS_PROXY", &c.Proxy)
	str("LOG_DIR", &c.Log.Dir)
	if v := os.Getenv("DEBUG"); v != "" {
		c.Log.Debug, _ = strconv.ParseBool(v)
	}
	str("CRON_DIGEST", &c.Schedule.DigestCron)
	str("CRON_PRUNE", &c.Schedule.PruneCron)
	return nil
}

func (c *Config) applyDefaults() {
	yes := true
	if c.Server.Port == 0 {
		c.Server.Port = 3000
	}
	if c.Server.Mode == "" {
		c.Server.Mode = "release"
	}
	if c.Server.ReadTimeout == 0 {
		c.Server.ReadTimeout = 15 * time.Second
	}
	if c.Server.WriteTimeout == 0 {
		c.Server.WriteTimeout = 30 * time.Second
	}
	if c.Server.RequestTimeout == 0 {
		c.Server.RequestTimeout = 20 * time.Second
	}
	if len(c.Server.CORSOrigins) == 0 {
		c.Server.CORSOrigins = []string{"*"}
	}
	if c.PriceSource.Type == "" {
		c.PriceSource.Type = "binance"
	}
	if c.PriceSource.Timeout == 0 {
		c.PriceSource.Timeout = 10 * time.Second
	}
	if c.Binance.Testnet == nil {
		c.Binance.Testnet = &yes
	}
	if c.Storage.Driver == "" {
		c.Storage.Driver = "sqlite"
	}
	if c.Storage.SQLitePath == "" {
		c.Storage.SQLitePath = "data/trendsignal.db"
	}
	if c.Storage.DataDir == "" {
		c.Storage.DataDir = "data"
	}
	if c.Storage.MaxOrders == 0 {
		c.Storage.MaxOrders = 100
	}
	if c.Storage.Fallback == nil {
		c.Storage.Fallback = &yes
	}
	if c.Schedule.DigestCron == "" {
		c.Schedule.DigestCron = "0 0 22 * * *"
	}
	if c.Schedule.PruneCron == "" {
		c.Schedule.PruneCron = "0 0 * * * *"
	}
	if c.Log.Dir == "" {
		c.Log.Dir = "logs"
	}
}

// Validate checks that all fields hold usable values.
func (c *Config) Validate() error {
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("server.port %d out of range", c.Server.Port)
	}
	switch c.Server.Mode {
	case "debug", "release", "test":
	default:
		return fmt.Errorf("server.mode %q must be debug, release or test", c.Server.Mode)
	}
	switch c.PriceSource.Type {
	case "binance":
	case "rest":
		if c.PriceSource.BaseURL == "" {
			return fmt.Errorf("price_source.base_url is required for the rest source")
		}
	case "static":
		if c.PriceSource.StaticPrice <= 0 {
			return fmt.Errorf("price_source.static_price must be positive")
		}
	default:
		return fmt.Errorf("price_source.type %q is not supported", c.PriceSource.Type)
	}
	switch c.Storage.Driver {
	case "sqlite", "file", "memory":
	case "postgres":
		if c.Storage.PostgresDSN == "" && !c.FallbackEnabled() {
			return fmt.Errorf("storage.postgres_dsn is required for the postgres driver")
		}
	default:
		return fmt.Errorf("storage.driver %q is not supported", c.Storage.Driver)
	}
	if c.Storage.MaxOrders < 0 {
		return fmt.Errorf("storage.max_orders must not be negative")
	}
	if (c.Telegram.BotToken == "") != (c.Telegram.ChatID == "") {
		return fmt.Errorf("telegram.bot_token and telegram.chat_id must be set together")
	}
	if c.Telegram.ChatID != "" {
		if _, err := c.TelegramChatID(); err != nil {
			return err
		}
	}
	return nil
}

// TelegramEnabled reports whether notifications are configured.
func (c *Config) TelegramEnabled() bool {
	return c.Telegram.BotToken != "" && c.Telegram.ChatID != ""
}

// TelegramChatID parses the configured chat id.
func (c *Config) TelegramChatID() (int64, error) {
	id, err := strconv.ParseInt(strings.TrimSpace(c.Telegram.ChatID), 10, 64)
	if err != nil {
		return 0, fmt.Errorf("telegram.chat_id %q is not numeric", c.Telegram.ChatID)
	}
	return id, nil
}

// BinanceTestnet reports whether the Binance test exchange is used.
func (c *Config) BinanceTestnet() bool {
	return c.Binance.Testnet == nil || *c.Binance.Testnet
}

// FallbackEnabled reports whether the memory store may replace an unreachable one.
func (c *Config) FallbackEnabled() bool {
	return c.Storage.Fallback == nil || *c.Storage.Fallback
}

// Addr is the listen address for the HTTP server.
func (c *Config) Addr() string {
	return fmt.Sprintf(":%d", c.Server.Port)
}
