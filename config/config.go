package config

import (
	"errors"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

type Config struct {
	Environment string          `mapstructure:"environment"` // "dev" or "prod"
	CoinGecko   CoinGeckoConfig `mapstructure:"coingecko"`
	Pipeline    PipelineConfig  `mapstructure:"pipeline"`
	Log         LogConfig       `mapstructure:"log"`
	Postgres    PostgresConfig  `mapstructure:"postgres"`
}

type CoinGeckoConfig struct {
	REST RESTConfig `mapstructure:"rest"`
}

// RESTConfig is the fetch connection: endpoint plus optional credentials.
type RESTConfig struct {
	BaseURL           string        `mapstructure:"base_url"`
	Timeout           time.Duration `mapstructure:"timeout"`
	APIKey            string        `mapstructure:"api_key"`
	APIKeyHeader      string        `mapstructure:"api_key_header"` // "x-cg-demo-api-key" or "x-cg-pro-api-key"
	APIKeyParam       string        `mapstructure:"api_key_param"`  // SSM parameter name used in prod
	RequestsPerMinute int           `mapstructure:"requests_per_minute"`
}

type PipelineConfig struct {
	AssetID    string         `mapstructure:"asset_id"`
	Currency   string         `mapstructure:"currency"`
	RunTimeout time.Duration  `mapstructure:"run_timeout"`
	Schedule   ScheduleConfig `mapstructure:"schedule"`
}

type ScheduleConfig struct {
	Interval   time.Duration `mapstructure:"interval"`
	RunOnStart bool          `mapstructure:"run_on_start"`
}

// LogConfig defines the logger configuration options.
type LogConfig struct {
	Level       string `mapstructure:"level"`       // log level: "debug", "info", "warn", "error"
	Format      string `mapstructure:"format"`      // log format: "json" or "console"
	OutputFile  string `mapstructure:"output_file"` // file path to store logs (optional)
	Environment string `mapstructure:"environment"` // environment: "dev" or "prod"

	MaxSizeMB  int  `mapstructure:"max_size_mb"`
	MaxBackups int  `mapstructure:"max_backups"`
	MaxAgeDays int  `mapstructure:"max_age_days"`
	Compress   bool `mapstructure:"compress"`
}

// Load loads application configuration from the default search paths.
// It reads config.yaml and overrides with environment variables; failures are fatal.
func Load() *Config {
	cfg, err := LoadFrom("")
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}
	return cfg
}

// LoadFrom reads the given config file, or searches the default locations when path is empty.
// A .env file in the working directory, if present, is loaded into the environment first.
func LoadFrom(path string) (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("load .env: %w", err)
	}

	v := viper.New()
	setDefaults(v)

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("config") // config.yaml
		v.SetConfigType("yaml")

		ex, _ := os.Executable()
		if strings.Contains(ex, "go-build") {
			pwd, _ := os.Getwd()
			v.AddConfigPath(filepath.Join(pwd, "../../config"))
		} else {
			v.AddConfigPath(filepath.Join(filepath.Dir(ex), "../config"))
		}
	}

	// Support environment variables with dot notation (e.g., PIPELINE_ASSET_ID)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("environment", "dev")

	v.SetDefault("coingecko.rest.base_url", "https://api.coingecko.com")
	v.SetDefault("coingecko.rest.timeout", 10*time.Second)
	v.SetDefault("coingecko.rest.api_key", "")
	v.SetDefault("coingecko.rest.api_key_header", "x-cg-demo-api-key")
	v.SetDefault("coingecko.rest.api_key_param", "")
	v.SetDefault("coingecko.rest.requests_per_minute", 30)

	v.SetDefault("pipeline.asset_id", "bitcoin")
	v.SetDefault("pipeline.currency", "usd")
	v.SetDefault("pipeline.run_timeout", time.Minute)
	v.SetDefault("pipeline.schedule.interval", 24*time.Hour)
	v.SetDefault("pipeline.schedule.run_on_start", true)

	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")
	v.SetDefault("log.output_file", "")
	v.SetDefault("log.environment", "dev")
	v.SetDefault("log.max_size_mb", 10)
	v.SetDefault("log.max_backups", 5)
	v.SetDefault("log.max_age_days", 7)
	v.SetDefault("log.compress", true)

	// Keys must be known to viper for AutomaticEnv to apply them on Unmarshal.
	v.SetDefault("postgres.host", "localhost")
	v.SetDefault("postgres.port", 5432)
	v.SetDefault("postgres.user", "postgres")
	v.SetDefault("postgres.password", "")
	v.SetDefault("postgres.dbname", "crypto")
	v.SetDefault("postgres.timezone", "UTC")
	v.SetDefault("postgres.create_database", false)
	v.SetDefault("postgres.ssm.host_param", "")
	v.SetDefault("postgres.ssm.user_param", "")
	v.SetDefault("postgres.ssm.password_param", "")
	v.SetDefault("postgres.sslmode", "disable")
	v.SetDefault("postgres.max_open_conns", 2)
	v.SetDefault("postgres.max_idle_conns", 1)
	v.SetDefault("postgres.conn_max_lifetime", time.Hour)
}

// Validate checks the options the pipeline cannot run without.
func (c *Config) Validate() error {
	switch {
	case strings.TrimSpace(c.Pipeline.AssetID) == "":
		return errors.New("config: pipeline.asset_id is required")
	case strings.TrimSpace(c.Pipeline.Currency) == "":
		return errors.New("config: pipeline.currency is required")
	case c.CoinGecko.REST.BaseURL == "":
		return errors.New("config: coingecko.rest.base_url is required")
	case c.CoinGecko.REST.Timeout <= 0:
		return errors.New("config: coingecko.rest.timeout must be positive")
	case c.Pipeline.RunTimeout <= 0:
		return errors.New("config: pipeline.run_timeout must be positive")
	case c.Pipeline.Schedule.Interval <= 0:
		return errors.New("config: pipeline.schedule.interval must be positive")
	}
	// The API keys its response by the lowercase currency code.
	c.Pipeline.Currency = strings.ToLower(c.Pipeline.Currency)
	return nil
}
