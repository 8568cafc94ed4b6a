package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/kktt667/Pair-Finder/internal/logger"
	"github.com/kktt667/Pair-Finder/internal/model"
)

// Data sources.
const (
	SourceBybit = "bybit"
	SourceYahoo = "yahoo"
	SourceMock  = "mock"
)

// Config holds all application configuration.
type Config struct {
	Telegram struct {
		BotToken string `yaml:"bot_token"`
		ChatID   string `yaml:"chat_id"`
	} `yaml:"telegram"`
	DataSource struct {
		Source              string        `yaml:"source"`
		BaseURL             string        `yaml:"base_url"`
		Category            string        `yaml:"category"`
		QuoteCoin           string        `yaml:"quote_coin"`
		MinTurnoverMillions float64       `yaml:"min_turnover_millions"`
		Symbols             []string      `yaml:"symbols"`
		FetchTimeout        time.Duration `yaml:"fetch_timeout"`
		SymbolTimeout       time.Duration `yaml:"symbol_timeout"`
		MaxAttempts         int           `yaml:"max_attempts"`
	} `yaml:"data_source"`
	Scan struct {
		Workers int                  `yaml:"workers"`
		Cron    string               `yaml:"cron"`
		Params  model.ScanParameters `yaml:"params"`
	} `yaml:"scan"`
	HTTP struct {
		Addr string `yaml:"addr"`
	} `yaml:"http"`
	Database struct {
		SQLitePath string `yaml:"sqlite_path"`
	} `yaml:"database"`
	Log   logger.Config `yaml:"log"`
	Proxy string        `yaml:"proxy"`
}

// LoadDotEnv loads KEY=VALUE files into the environment without overriding
// variables that are already set. Missing files are skipped.
func LoadDotEnv(paths ...string) error {
	if len(paths) == 0 {
		paths = []string{".env"}
	}
	for _, p := range paths {
		if _, err := os.Stat(p); errors.Is(err, os.ErrNotExist) {
			continue
		}
		if err := godotenv.Load(p); err != nil {
			return fmt.Errorf("load %s: %w", p, err)
		}
	}
	return nil
}

// Load reads config from a YAML file, then applies environment variable overrides.
// A missing file yields the defaults.
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
	envString("TELEGRAM_BOT_TOKEN", &c.Telegram.BotToken)
	envString("TELEGRAM_CHAT_ID", &c.Telegram.ChatID)
	envString("DATA_SOURCE", &c.DataSource.Source)
	envString("BYBIT_BASE_URL", &c.DataSource.BaseURL)
	envString("SCAN_INTERVAL", &c.Scan.Params.Interval)
	envString("SCAN_CRON", &c.Scan.Cron)
	envString("HTTP_ADDR", &c.HTTP.Addr)
	envString("SQLITE_PATH", &c.Database.SQLitePath)
	envString("LOG_LEVEL", &c.Log.Level)
	envString("HTTPS_PROXY", &c.Proxy)
	if v := os.Getenv("SCAN_SYMBOLS"); v != "" {
		c.DataSource.Symbols = splitList(v)
	}

	if err := envInt("SCAN_LOOKBACK_DAYS", &c.Scan.Params.LookbackDays); err != nil {
		return err
	}
	if err := envInt("SCAN_WORKERS", &c.Scan.Workers); err != nil {
		return err
	}
	if v := os.Getenv("MIN_TURNOVER_MILLIONS"); v != "" {
		f, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return fmt.Errorf("MIN_TURNOVER_MILLIONS: %w", err)
		}
		c.DataSource.MinTurnoverMillions = f
	}
	return nil
}

func (c *Config) applyDefaults() {
	if c.DataSource.Source == "" {
		c.DataSource.Source = SourceBybit
	}
	c.DataSource.Source = strings.ToLower(c.DataSource.Source)
	if c.DataSource.Category == "" {
		c.DataSource.Category = "linear"
	}
	if c.DataSource.QuoteCoin == "" {
		c.DataSource.QuoteCoin = "USDT"
	}
	if c.DataSource.SymbolTimeout <= 0 {
		c.DataSource.SymbolTimeout = 2 * time.Minute
	}
	if c.DataSource.FetchTimeout <= 0 {
		c.DataSource.FetchTimeout = 10 * time.Second
	}
	if c.DataSource.MaxAttempts <= 0 {
		c.DataSource.MaxAttempts = 5
	}
	if c.Scan.Workers <= 0 {
		c.Scan.Workers = 10
	}
	c.Scan.Params = c.Scan.Params.WithDefaults()
	if c.HTTP.Addr == "" {
		c.HTTP.Addr = ":8080"
	}
	if c.Database.SQLitePath == "" {
		c.Database.SQLitePath = "data/pairfinder.db"
	}
}

// MinTurnover is the ticker turnover floor in quote units.
func (c *Config) MinTurnover() float64 {
	return c.DataSource.MinTurnoverMillions * 1_000_000
}

// TelegramEnabled reports whether bot credentials are configured.
func (c *Config) TelegramEnabled() bool {
	return c.Telegram.BotToken != "" && c.Telegram.ChatID != ""
}

// Validate checks that the configuration can start the service.
func (c *Config) Validate() error {
	switch c.DataSource.Source {
	case SourceBybit, SourceMock:
	case SourceYahoo:
		if len(c.DataSource.Symbols) == 0 {
			return fmt.Errorf("data_source.symbols is required for the yahoo source")
		}
	default:
		return fmt.Errorf("data_source.source %q is not one of bybit, yahoo, mock", c.DataSource.Source)
	}
	if (c.Telegram.BotToken == "") != (c.Telegram.ChatID == "") {
		return fmt.Errorf("telegram.bot_token and telegram.chat_id must be set together")
	}
	if c.DataSource.MinTurnoverMillions < 0 {
		return fmt.Errorf("data_source.min_turnover_millions must not be negative")
	}
	if err := c.Scan.Params.Validate(); err != nil {
		return fmt.Errorf("scan.params: %w", err)
	}
	return nil
}

func envString(key string, dst *string) {
	if v := os.Getenv(key); v != "" {
		*dst = v
	}
}

func envInt(key string, dst *int) error {
	v := os.Getenv(key)
	if v == "" {
		return nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return fmt.Errorf("%s: %w", key, err)
	}
	*dst = n
	return nil
}

func splitList(v string) []string {
	var out []string
	for _, s := range strings.Split(v, ",") {
		if s = strings.TrimSpace(s); s != "" {
			out = append(out, s)
		}
	}
	return out
}
