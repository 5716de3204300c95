package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/Rhymond/go-money"
	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config is the full application configuration.
type Config struct {
	User     string         `mapstructure:"user"`
	Storage  StorageConfig  `mapstructure:"storage"`
	Mongo    MongoConfig    `mapstructure:"mongo"`
	Postgres PostgresConfig `mapstructure:"postgres"`
	Redis    RedisConfig    `mapstructure:"redis"`
	Finnhub  FinnhubConfig  `mapstructure:"finnhub"`
	Market   MarketConfig   `mapstructure:"market"`
	Display  DisplayConfig  `mapstructure:"display"`
	Server   ServerConfig   `mapstructure:"server"`
	Log      LogConfig      `mapstructure:"log"`
}

type StorageConfig struct {
	Driver string `mapstructure:"driver"` // memory, mongo, postgres
}

type MongoConfig struct {
	URI      string `mapstructure:"uri"`
	Database string `mapstructure:"database"`
}

type PostgresConfig struct {
	URL      string `mapstructure:"url"`
	MaxConns int32  `mapstructure:"max_conns"`
}

type RedisConfig struct {
	Addr     string `mapstructure:"addr"` // empty disables redis
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
	Channel  string `mapstructure:"channel"`
}

type FinnhubConfig struct {
	APIKey  string `mapstructure:"api_key"`
	BaseURL string `mapstructure:"base_url"`
}

type MarketConfig struct {
	QuoteSource   string        `mapstructure:"quote_source"` // finnhub, yahoo
	MaxInFlight   int           `mapstructure:"max_in_flight"`
	Timeout       time.Duration `mapstructure:"timeout"`
	RetryAttempts int           `mapstructure:"retry_attempts"`
	RetryBackoff  time.Duration `mapstructure:"retry_backoff"`
}

type DisplayConfig struct {
	Currency string `mapstructure:"currency"`
}

type ServerConfig struct {
	Addr            string        `mapstructure:"addr"`
	CORSOrigins     []string      `mapstructure:"cors_origins"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
}

type LogConfig struct {
	Level         string `mapstructure:"level"`
	Format        string `mapstructure:"format"`
	FileEnabled   bool   `mapstructure:"file_enabled"`
	FilePath      string `mapstructure:"file_path"`
	RotationSize  int    `mapstructure:"rotation_size"`
	RetentionDays int    `mapstructure:"retention_days"`
}

const envPrefix = "WL"

func setDefaults(v *viper.Viper) {
	v.SetDefault("user", "")
	v.SetDefault("storage.driver", "memory")
	v.SetDefault("mongo.uri", "mongodb://localhost:27017")
	v.SetDefault("mongo.database", "stocks")
	v.SetDefault("postgres.url", "postgres://localhost:5432/watchlist?sslmode=disable")
	v.SetDefault("postgres.max_conns", 10)
	v.SetDefault("redis.addr", "")
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.db", 0)
	v.SetDefault("redis.channel", "wl:invalidate")
	v.SetDefault("finnhub.api_key", "")
	v.SetDefault("finnhub.base_url", "https://finnhub.io/api/v1")
	v.SetDefault("market.quote_source", "finnhub")
	v.SetDefault("market.max_in_flight", 8)
	v.SetDefault("market.timeout", 10*time.Second)
	v.SetDefault("market.retry_attempts", 2)
	v.SetDefault("market.retry_backoff", 250*time.Millisecond)
	v.SetDefault("display.currency", "USD")
	v.SetDefault("server.addr", ":8080")
	v.SetDefault("server.cors_origins", []string{"http://localhost:3000"})
	v.SetDefault("server.shutdown_timeout", 10*time.Second)
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "pretty")
	v.SetDefault("log.file_enabled", false)
	v.SetDefault("log.file_path", "logs")
	v.SetDefault("log.rotation_size", 50)
	v.SetDefault("log.retention_days", 14)
}

// Load reads .env (if any), the optional config file at path and WL_*
// environment overrides, in increasing precedence.
func Load(path string) (*Config, error) {
	// a missing .env is fine, plain environment variables still apply
	_ = godotenv.Load()

	v := viper.New()
	setDefaults(v)
	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config %s: %w", path, err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	if cfg.Finnhub.APIKey == "" {
		cfg.Finnhub.APIKey = firstEnv("FINNHUB_API_KEY", "NEXT_PUBLIC_FINNHUB_API_KEY")
	}
	cfg.Display.Currency = strings.ToUpper(cfg.Display.Currency)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate rejects settings the application cannot run with.
func (c *Config) Validate() error {
	var errs []error
	switch c.Storage.Driver {
	case "memory", "mongo", "postgres":
	default:
		errs = append(errs, fmt.Errorf("unknown storage.driver %q", c.Storage.Driver))
	}
	switch c.Market.QuoteSource {
	case "finnhub", "yahoo":
	default:
		errs = append(errs, fmt.Errorf("unknown market.quote_source %q", c.Market.QuoteSource))
	}
	if money.GetCurrency(c.Display.Currency) == nil {
		errs = append(errs, fmt.Errorf("unknown display.currency %q", c.Display.Currency))
	}
	if c.Market.MaxInFlight < 0 {
		errs = append(errs, errors.New("market.max_in_flight must not be negative"))
	}
	if c.Market.RetryAttempts < 1 {
		errs = append(errs, errors.New("market.retry_attempts must be at least 1"))
	}
	return errors.Join(errs...)
}

func firstEnv(keys ...string) string {
	for _, k := range keys {
		if v := os.Getenv(k); v != "" {
			return v
		}
	}
	return ""
}
