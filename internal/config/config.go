package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"github.com/robfig/cron/v3"
	"gopkg.in/yaml.v3"

	"TopBolsas/internal/collector"
	"TopBolsas/internal/universe"
)

// DefaultPath is used when CONFIG_PATH is unset.
const DefaultPath = "configs/config.yaml"

// Config holds all application configuration.
type Config struct {
	DataSource struct {
		Provider    string        `yaml:"provider"` // yahoo, vstrader or mock
		BaseURL     string        `yaml:"base_url"`
		APIKey      string        `yaml:"api_key"`
		RateLimit   int           `yaml:"rate_limit"`
		Timeout     time.Duration `yaml:"timeout"`
		Concurrency int           `yaml:"concurrency"`
	} `yaml:"data_source"`
	Cache struct {
		TTL time.Duration `yaml:"ttl"`
	} `yaml:"cache"`
	Telegram struct {
		BotToken string `yaml:"bot_token"`
		ChatID   string `yaml:"chat_id"`
		TopN     int    `yaml:"top_n"`
	} `yaml:"telegram"`
	Schedule struct {
		RefreshCron string `yaml:"refresh_cron"`
		DigestCron  string `yaml:"digest_cron"`
	} `yaml:"schedule"`
	Database struct {
		SQLitePath string `yaml:"sqlite_path"`
	} `yaml:"database"`
	Export struct {
		Dir string `yaml:"dir"`
	} `yaml:"export"`
	Logging struct {
		Level    string `yaml:"level"`
		Format   string `yaml:"format"`
		FilePath string `yaml:"file_path"`
	} `yaml:"logging"`
	Universes []Universe `yaml:"universes"`
	Proxy     string     `yaml:"proxy"`
}

// Universe names one market and asset type, by display name or alias.
type Universe struct {
	Market string `yaml:"market"`
	Asset  string `yaml:"asset"`
}

// Path returns CONFIG_PATH or DefaultPath.
func Path() string {
	if v := os.Getenv("CONFIG_PATH"); v != "" {
		return v
	}
	return DefaultPath
}

// Load reads .env, then the YAML file, then applies environment variable
// overrides and defaults. A missing file is not an error.
func Load(path string) (*Config, error) {
	// .env is optional; real environment variables take precedence
	_ = godotenv.Load()

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
	if v := os.Getenv("TELEGRAM_BOT_TOKEN"); v != "" {
		c.Telegram.BotToken = v
	}
	if v := os.Getenv("TELEGRAM_CHAT_ID"); v != "" {
		c.Telegram.ChatID = v
	}
	if v := os.Getenv("DATA_SOURCE_BASE_URL"); v != "" {
		c.DataSource.BaseURL = v
	}
	if v := os.Getenv("DATA_SOURCE_API_KEY"); v != "" {
		c.DataSource.APIKey = v
	}
	if v := os.Getenv("HTTPS_PROXY"); v != "" {
		c.Proxy = v
	}
	if v := os.Getenv("SQLITE_PATH"); v != "" {
		c.Database.SQLitePath = v
	}
	if v := os.Getenv("LOG_LEVEL"); v != "" {
		c.Logging.Level = v
	}
	if v := os.Getenv("EXPORT_DIR"); v != "" {
		c.Export.Dir = v
	}
	if v := os.Getenv("CACHE_TTL"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("CACHE_TTL: %w", err)
		}
		c.Cache.TTL = d
	}
	if v := os.Getenv("DATA_SOURCE_CONCURRENCY"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("DATA_SOURCE_CONCURRENCY: %w", err)
		}
		c.DataSource.Concurrency = n
	}
	return nil
}

func (c *Config) applyDefaults() {
	if c.DataSource.Provider == "" {
		c.DataSource.Provider = "yahoo"
	}
	if c.DataSource.RateLimit == 0 {
		c.DataSource.RateLimit = 5
	}
	if c.DataSource.Timeout == 0 {
		c.DataSource.Timeout = 30 * time.Second
	}
	if c.DataSource.Concurrency == 0 {
		c.DataSource.Concurrency = 4
	}
	if c.Cache.TTL == 0 {
		c.Cache.TTL = time.Hour
	}
	if c.Telegram.TopN == 0 {
		c.Telegram.TopN = 5
	}
	if c.Schedule.RefreshCron == "" {
		c.Schedule.RefreshCron = "0 0 * * * *"
	}
	if c.Schedule.DigestCron == "" {
		c.Schedule.DigestCron = "0 30 22 * * 1-5"
	}
	if c.Export.Dir == "" {
		c.Export.Dir = "data/export"
	}
	if c.Logging.Level == "" {
		c.Logging.Level = "info"
	}
	if c.Logging.Format == "" {
		c.Logging.Format = "pretty"
	}
	if len(c.Universes) == 0 {
		for _, s := range universe.All() {
			c.Universes = append(c.Universes, Universe{Market: string(s.Market), Asset: string(s.Asset)})
		}
	}
}

// Selections resolves the configured universes.
func (c *Config) Selections() ([]universe.Selection, error) {
	out := make([]universe.Selection, 0, len(c.Universes))
	for i, u := range c.Universes {
		m, ok := universe.ParseMarket(u.Market)
		if !ok {
			return nil, fmt.Errorf("universes[%d]: unknown market %q", i, u.Market)
		}
		a, ok := universe.ParseAssetType(u.Asset)
		if !ok {
			return nil, fmt.Errorf("universes[%d]: unknown asset type %q", i, u.Asset)
		}
		out = append(out, universe.Selection{Market: m, Asset: a})
	}
	return out, nil
}

// Source returns the data source settings for collector.NewFetcher.
func (c *Config) Source() collector.SourceConfig {
	return collector.SourceConfig{
		Provider:  c.DataSource.Provider,
		BaseURL:   c.DataSource.BaseURL,
		APIKey:    c.DataSource.APIKey,
		Proxy:     c.Proxy,
		RateLimit: c.DataSource.RateLimit,
		Timeout:   c.DataSource.Timeout,
	}
}

// Validate checks that required fields are set and values are usable.
// Telegram credentials are only required when requireTelegram is true.
func (c *Config) Validate(requireTelegram bool) error {
	if requireTelegram {
		if c.Telegram.BotToken == "" {
			return errors.New("telegram.bot_token is required")
		}
		if c.Telegram.ChatID == "" {
			return errors.New("telegram.chat_id is required")
		}
	}
	switch c.DataSource.Provider {
	case "yahoo", "mock":
	case "vstrader":
		if c.DataSource.BaseURL == "" {
			return errors.New("data_source.base_url is required for vstrader")
		}
	default:
		return fmt.Errorf("data_source.provider %q is not supported", c.DataSource.Provider)
	}
	if c.DataSource.Concurrency < 1 {
		return errors.New("data_source.concurrency must be positive")
	}
	if c.DataSource.RateLimit < 1 {
		return errors.New("data_source.rate_limit must be positive")
	}
	if c.Cache.TTL <= 0 {
		return errors.New("cache.ttl must be positive")
	}
	if c.Telegram.TopN < 1 {
		return errors.New("telegram.top_n must be positive")
	}
	parser := cron.NewParser(cron.Second | cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow | cron.Descriptor)
	if _, err := parser.Parse(c.Schedule.RefreshCron); err != nil {
		return fmt.Errorf("schedule.refresh_cron: %w", err)
	}
	if _, err := parser.Parse(c.Schedule.DigestCron); err != nil {
		return fmt.Errorf("schedule.digest_cron: %w", err)
	}
	if _, err := c.Selections(); err != nil {
		return err
	}
	return nil
}
