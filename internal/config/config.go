package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

var defaultTickers = []string{"AAPL", "MSFT", "AMZN", "GOOGL", "META", "NVDA", "JPM", "JNJ", "XOM", "PG"}

type Config struct {
	Tickers       []string      `yaml:"tickers"`
	NumPortfolios int           `yaml:"num_portfolios"`
	Window        string        `yaml:"window"`
	Seed          uint64        `yaml:"seed"`
	Workers       int           `yaml:"workers"`
	DBPath        string        `yaml:"db_path"`
	PriceCacheTTL time.Duration `yaml:"price_cache_ttl"`
	LogLevel      string        `yaml:"log_level"`
	LogPretty     bool          `yaml:"log_pretty"`

	TelegramToken    string `yaml:"telegram_token"`
	WebhookPublicURL string `yaml:"webhook_public_url"`
	Port             string `yaml:"port"`
	OpenAIKey        string `yaml:"openai_key"`
	OpenAIModel      string `yaml:"openai_model"`
}

// Load reads configuration from a .env file (if present) and the environment.
func Load() (*Config, error) {
	_ = godotenv.Load()

	cfg := &Config{
		Tickers:          getEnvAsList("PORTFOLIO_TICKERS", defaultTickers),
		NumPortfolios:    getEnvAsInt("PORTFOLIO_NUM_PORTFOLIOS", 10000),
		Window:           getEnv("PORTFOLIO_WINDOW", "3y"),
		Seed:             getEnvAsUint("PORTFOLIO_SEED", 0),
		Workers:          getEnvAsInt("PORTFOLIO_WORKERS", 1),
		DBPath:           getEnv("DB_PATH", "data/portfolio.db"),
		PriceCacheTTL:    getEnvAsDuration("PRICE_CACHE_TTL", 12*time.Hour),
		LogLevel:         getEnv("LOG_LEVEL", "info"),
		LogPretty:        getEnvAsBool("LOG_PRETTY", false),
		TelegramToken:    getEnv("TELEGRAM_BOT_TOKEN", ""),
		WebhookPublicURL: getEnv("WEBHOOK_PUBLIC_URL", ""),
		Port:             getEnv("PORT", "9095"),
		OpenAIKey:        getEnv("OPENAI_API_KEY", ""),
		OpenAIModel:      getEnv("OPENAI_MODEL", "gpt-4o-mini"),
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// LoadFile overlays the YAML file at path on top of c. Keys absent from the file keep
// their current values.
func (c *Config) LoadFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("parse config %s: %w", path, err)
	}
	return c.Validate()
}

func (c *Config) Validate() error {
	if c.NumPortfolios < 1 {
		return fmt.Errorf("num_portfolios must be positive, got %d", c.NumPortfolios)
	}
	if c.Workers < 1 {
		return fmt.Errorf("workers must be positive, got %d", c.Workers)
	}
	if c.DBPath == "" {
		return fmt.Errorf("DB_PATH is required")
	}
	return nil
}

// ValidateBot checks the keys only the Telegram bot needs.
func (c *Config) ValidateBot() error {
	var missing []string
	if c.TelegramToken == "" {
		missing = append(missing, "TELEGRAM_BOT_TOKEN")
	}
	if c.WebhookPublicURL == "" {
		missing = append(missing, "WEBHOOK_PUBLIC_URL")
	}
	if len(missing) > 0 {
		return fmt.Errorf("missing env %s", strings.Join(missing, ", "))
	}
	return nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

func getEnvAsUint(key string, defaultValue uint64) uint64 {
	if value := os.Getenv(key); value != "" {
		if v, err := strconv.ParseUint(value, 10, 64); err == nil {
			return v
		}
	}
	return defaultValue
}

func getEnvAsBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolVal, err := strconv.ParseBool(value); err == nil {
			return boolVal
		}
	}
	return defaultValue
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}

func getEnvAsList(key string, defaultValue []string) []string {
	value := os.Getenv(key)
	if value == "" {
		return append([]string(nil), defaultValue...)
	}
	var out []string
	for _, part := range strings.Split(value, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
