package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"TradeSentry/internal/collector"
)

// Instrument is one watched code plus its optional position context.
type Instrument struct {
	Code  string  `yaml:"code"`
	Cost  float64 `yaml:"cost"`  // cost basis, 0 = unknown
	Ratio float64 `yaml:"ratio"` // position fraction 0.0-1.0
}

// Config holds all application configuration. Everything is supplied at
// startup and immutable for the process lifetime.
type Config struct {
	Instruments []Instrument `yaml:"instruments"`
	Poll        struct {
		IntervalSeconds   int  `yaml:"interval_seconds"`
		AllDay            bool `yaml:"all_day"`
		PerRequestDelayMS int  `yaml:"per_request_delay_ms"`
	} `yaml:"poll"`
	Database struct {
		SQLitePath string `yaml:"sqlite_path"`
	} `yaml:"database"`
	DataSource struct {
		TimeoutSeconds int `yaml:"timeout_seconds"`
	} `yaml:"data_source"`
	Advisory struct {
		Enabled        bool   `yaml:"enabled"`
		BaseURL        string `yaml:"base_url"`
		APIKey         string `yaml:"api_key"`
		Model          string `yaml:"model"`
		TimeoutSeconds int    `yaml:"timeout_seconds"`
	} `yaml:"advisory"`
	Alerts struct {
		Enabled     bool   `yaml:"enabled"`
		WebhookURL  string `yaml:"webhook_url"`
		Prefix      string `yaml:"prefix"`
		EmitAll     bool   `yaml:"emit_all"`
		AlertErrors bool   `yaml:"alert_errors"`
	} `yaml:"alerts"`
	Backfill struct {
		Cron    string `yaml:"cron"`
		Limit   int    `yaml:"limit"`
		OnStart bool   `yaml:"on_start"`
		Review  bool   `yaml:"review"` // push an after-close advisory review
	} `yaml:"backfill"`
	Proxy string `yaml:"proxy"`
}

// Load reads config from a YAML file, then applies environment variable
// overrides and defaults.
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
	if v := os.Getenv("WATCH_CODES"); v != "" {
		cfg.Instruments = nil
		for _, code := range strings.Split(v, ",") {
			if code = strings.TrimSpace(code); code != "" {
				cfg.Instruments = append(cfg.Instruments, Instrument{Code: code})
			}
		}
	}
	if v := os.Getenv("SQLITE_PATH"); v != "" {
		cfg.Database.SQLitePath = v
	}
	if v := os.Getenv("DEEPSEEK_API_KEY"); v != "" {
		cfg.Advisory.APIKey = v
	}
	if v := os.Getenv("ADVISORY_BASE_URL"); v != "" {
		cfg.Advisory.BaseURL = v
	}
	if v := os.Getenv("ADVISORY_MODEL"); v != "" {
		cfg.Advisory.Model = v
	}
	if v := os.Getenv("LARK_WEBHOOK_URL"); v != "" {
		cfg.Alerts.WebhookURL = v
	}
	if v := os.Getenv("HTTPS_PROXY"); v != "" {
		cfg.Proxy = v
	}
	if v := os.Getenv("POLL_INTERVAL_SECONDS"); v != "" {
		var n int
		if _, err := fmt.Sscanf(v, "%d", &n); err == nil {
			cfg.Poll.IntervalSeconds = n
		}
	}

	// Defaults
	if cfg.Poll.IntervalSeconds == 0 {
		cfg.Poll.IntervalSeconds = 60
	}
	if cfg.Poll.PerRequestDelayMS == 0 {
		cfg.Poll.PerRequestDelayMS = 200
	}
	if cfg.Database.SQLitePath == "" {
		cfg.Database.SQLitePath = "data/tradesentry.db"
	}
	if cfg.DataSource.TimeoutSeconds == 0 {
		cfg.DataSource.TimeoutSeconds = 15
	}
	if cfg.Advisory.BaseURL == "" {
		cfg.Advisory.BaseURL = "https://api.deepseek.com/v1"
	}
	if cfg.Advisory.Model == "" {
		cfg.Advisory.Model = "deepseek-chat"
	}
	if cfg.Advisory.TimeoutSeconds == 0 {
		cfg.Advisory.TimeoutSeconds = 30
	}
	if cfg.Alerts.Prefix == "" {
		cfg.Alerts.Prefix = "[TradeSentry]"
	}
	if cfg.Backfill.Cron == "" {
		cfg.Backfill.Cron = "0 10 15 * * 1-5" // 15:10, right after the close
	}
	if cfg.Backfill.Limit == 0 {
		cfg.Backfill.Limit = 120
	}

	return cfg, nil
}

// Validate checks required fields and normalizes instrument codes. Any
// failure here is a configuration error: fatal at startup.
func (c *Config) Validate() error {
	if len(c.Instruments) == 0 {
		return fmt.Errorf("at least one instrument is required")
	}
	for i, inst := range c.Instruments {
		code, err := collector.NormalizeCode(inst.Code)
		if err != nil {
			return fmt.Errorf("instruments[%d]: %w", i, err)
		}
		if _, err := collector.SecID(code); err != nil {
			return fmt.Errorf("instruments[%d]: %w", i, err)
		}
		c.Instruments[i].Code = code
		if inst.Ratio < 0 || inst.Ratio > 1 {
			return fmt.Errorf("instruments[%d]: ratio must be within 0.0-1.0, got %v", i, inst.Ratio)
		}
	}
	if c.Database.SQLitePath == "" {
		return fmt.Errorf("database.sqlite_path is required")
	}
	if c.Advisory.Enabled && c.Advisory.APIKey == "" {
		return fmt.Errorf("advisory.api_key is required when advisory is enabled")
	}
	if c.Alerts.Enabled && c.Alerts.WebhookURL == "" {
		return fmt.Errorf("alerts.webhook_url is required when alerts are enabled")
	}
	return nil
}

// PollInterval returns the cycle cadence as a duration.
func (c *Config) PollInterval() time.Duration {
	return time.Duration(c.Poll.IntervalSeconds) * time.Second
}

// PerRequestDelay returns the provider request spacing.
func (c *Config) PerRequestDelay() time.Duration {
	return time.Duration(c.Poll.PerRequestDelayMS) * time.Millisecond
}
