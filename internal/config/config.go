// Package config loads and validates the application configuration.
package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config represents the complete application configuration.
type Config struct {
	Steam   SteamConfig   `mapstructure:"steam"`
	Items   ItemsConfig   `mapstructure:"items"`
	Monitor MonitorConfig `mapstructure:"monitor"`
	Notify  NotifyConfig  `mapstructure:"notify"`
	Storage StorageConfig `mapstructure:"storage"`
	Logging LoggingConfig `mapstructure:"logging"`
}

// SteamConfig holds Steam Community Market client configuration.
type SteamConfig struct {
	CommunityURL    string        `mapstructure:"community_url"`
	AppID           int           `mapstructure:"app_id"`
	Currency        int           `mapstructure:"currency"`
	CurrencySymbol  string        `mapstructure:"currency_symbol"`
	CurrencyCode    string        `mapstructure:"currency_code"`
	Timeout         time.Duration `mapstructure:"timeout"`
	MaxRetries      int           `mapstructure:"max_retries"`
	RetryBase       int           `mapstructure:"retry_base"`
	RequestInterval time.Duration `mapstructure:"request_interval"`
}

// ItemsConfig holds item-list source configuration. A readable list file
// takes precedence over the inventory lookup.
type ItemsConfig struct {
	File           string `mapstructure:"file"`
	SteamID        string `mapstructure:"steam_id"`
	InventoryCount int    `mapstructure:"inventory_count"`
}

// MonitorConfig holds staleness and alert-threshold configuration.
type MonitorConfig struct {
	RefreshInterval  time.Duration `mapstructure:"refresh_interval"`
	Window           time.Duration `mapstructure:"window"`
	InstantThreshold float64       `mapstructure:"instant_threshold"`
	WindowThreshold  float64       `mapstructure:"window_threshold"`
}

// NotifyConfig holds the webhook channel configuration. The instant webhook
// is required; the window webhook is optional.
type NotifyConfig struct {
	InstantWebhookURL string        `mapstructure:"instant_webhook_url"`
	WindowWebhookURL  string        `mapstructure:"window_webhook_url"`
	Timeout           time.Duration `mapstructure:"timeout"`
	MaxRetries        int           `mapstructure:"max_retries"`
	RetryDelayBase    time.Duration `mapstructure:"retry_delay_base"`
}

// StorageConfig holds persisted state locations.
type StorageConfig struct {
	CachePath  string `mapstructure:"cache_path"`
	LedgerPath string `mapstructure:"ledger_path"`
}

// LoggingConfig holds logging configuration.
type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// Load reads configuration from file and environment variables. A missing
// config file is not an error; defaults plus STEAMWATCH_* env overrides apply.
func Load(path string) (*Config, error) {
	v := viper.New()
	v.SetConfigFile(path)

	setDefaults(v)

	v.SetEnvPrefix("STEAMWATCH")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if _, err := os.Stat(path); err == nil {
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	return &cfg, nil
}

// setDefaults configures default values for all configuration options.
func setDefaults(v *viper.Viper) {
	v.SetDefault("steam.community_url", "https://steamcommunity.com")
	v.SetDefault("steam.app_id", 730)
	v.SetDefault("steam.currency", 24)
	v.SetDefault("steam.currency_symbol", "₹")
	v.SetDefault("steam.currency_code", "INR")
	v.SetDefault("steam.timeout", "30s")
	v.SetDefault("steam.max_retries", 6)
	v.SetDefault("steam.retry_base", 2)
	v.SetDefault("steam.request_interval", "1200ms")

	v.SetDefault("items.file", "items.txt")
	v.SetDefault("items.steam_id", "")
	v.SetDefault("items.inventory_count", 2000)

	v.SetDefault("monitor.refresh_interval", "1h")
	v.SetDefault("monitor.window", "3h")
	v.SetDefault("monitor.instant_threshold", 0.10)
	v.SetDefault("monitor.window_threshold", 0.05)

	v.SetDefault("notify.instant_webhook_url", "")
	v.SetDefault("notify.window_webhook_url", "")
	v.SetDefault("notify.timeout", "10s")
	v.SetDefault("notify.max_retries", 3)
	v.SetDefault("notify.retry_delay_base", "1s")

	v.SetDefault("storage.cache_path", ".data/prices.json")
	v.SetDefault("storage.ledger_path", ".data/history.csv")

	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "text")
}

// Validate checks that all configuration values are valid.
func (c *Config) Validate() error {
	if c.Steam.CommunityURL == "" {
		return fmt.Errorf("steam.community_url is required")
	}
	if c.Steam.AppID < 1 {
		return fmt.Errorf("steam.app_id must be positive")
	}
	if c.Steam.Currency < 1 {
		return fmt.Errorf("steam.currency must be positive")
	}
	if c.Steam.Timeout <= 0 {
		return fmt.Errorf("steam.timeout must be positive")
	}
	if c.Steam.MaxRetries < 1 {
		return fmt.Errorf("steam.max_retries must be at least 1")
	}
	if c.Steam.RetryBase < 2 {
		return fmt.Errorf("steam.retry_base must be at least 2")
	}
	if c.Steam.RequestInterval < 0 {
		return fmt.Errorf("steam.request_interval must not be negative")
	}

	if c.Items.InventoryCount < 1 {
		return fmt.Errorf("items.inventory_count must be at least 1")
	}

	if c.Monitor.RefreshInterval < time.Minute {
		return fmt.Errorf("monitor.refresh_interval must be at least 1 minute")
	}
	if c.Monitor.Window < time.Minute {
		return fmt.Errorf("monitor.window must be at least 1 minute")
	}
	if c.Monitor.InstantThreshold <= 0.0 || c.Monitor.InstantThreshold > 1.0 {
		return fmt.Errorf("monitor.instant_threshold must be in (0.0, 1.0]")
	}
	if c.Monitor.WindowThreshold <= 0.0 || c.Monitor.WindowThreshold > 1.0 {
		return fmt.Errorf("monitor.window_threshold must be in (0.0, 1.0]")
	}

	// No alert could ever be delivered without the primary channel.
	if c.Notify.InstantWebhookURL == "" {
		return fmt.Errorf("notify.instant_webhook_url is required")
	}
	if c.Notify.Timeout <= 0 {
		return fmt.Errorf("notify.timeout must be positive")
	}
	if c.Notify.MaxRetries < 1 {
		return fmt.Errorf("notify.max_retries must be at least 1")
	}
	if c.Notify.RetryDelayBase <= 0 {
		return fmt.Errorf("notify.retry_delay_base must be positive")
	}

	if c.Storage.CachePath == "" {
		return fmt.Errorf("storage.cache_path is required")
	}
	if c.Storage.LedgerPath == "" {
		return fmt.Errorf("storage.ledger_path is required")
	}

	validLogLevels := map[string]bool{"debug": true, "info": true, "warn": true, "error": true}
	if !validLogLevels[c.Logging.Level] {
		return fmt.Errorf("logging.level must be one of: debug, info, warn, error")
	}
	validFormats := map[string]bool{"json": true, "text": true}
	if !validFormats[c.Logging.Format] {
		return fmt.Errorf("logging.format must be one of: json, text")
	}

	return nil
}
