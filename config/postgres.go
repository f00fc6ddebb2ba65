package config

import (
	"context"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/ssm"
)

// PostgresConfig defines the sink connection for the price history table.
type PostgresConfig struct {
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	User     string `mapstructure:"user"`
	Password string `mapstructure:"password"`
	DBName   string `mapstructure:"dbname"`
	SSLMode  string `mapstructure:"sslmode"`
	TimeZone string `mapstructure:"timezone"`

	MaxOpenConns    int           `mapstructure:"max_open_conns"`
	MaxIdleConns    int           `mapstructure:"max_idle_conns"`
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime"`

	// CreateDatabase bootstraps DBName on startup when it does not exist.
	CreateDatabase bool `mapstructure:"create_database"`

	SSM SSMParams `mapstructure:"ssm"`
}

// SSMParams names the Parameter Store entries that hold prod credentials.
type SSMParams struct {
	HostParam     string `mapstructure:"host_param"`
	UserParam     string `mapstructure:"user_param"`
	PasswordParam string `mapstructure:"password_param"`
}

// DSN returns the connection string for DBName.
// In prod, host, user and password are read from SSM when a parameter name is configured.
func (cfg *PostgresConfig) DSN(env string) string {
	return cfg.dsnFor(env, cfg.DBName)
}

// MaintenanceDSN points at the "postgres" database, used to create DBName.
func (cfg *PostgresConfig) MaintenanceDSN(env string) string {
	return cfg.dsnFor(env, "postgres")
}

func (cfg *PostgresConfig) dsnFor(env, dbName string) string {
	host, user, password := cfg.Host, cfg.User, cfg.Password
	if env == "prod" {
		host = parameterOr(cfg.SSM.HostParam, host)
		user = parameterOr(cfg.SSM.UserParam, user)
		password = parameterOr(cfg.SSM.PasswordParam, password)
	}

	dsn := fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		host, cfg.Port, user, password, dbName, cfg.SSLMode,
	)

	if cfg.TimeZone != "" {
		dsn += fmt.Sprintf(" TimeZone=%s", cfg.TimeZone)
	}

	return dsn
}

// ResolveAPIKey returns the price API key, reading it from SSM in prod when configured.
func (c *RESTConfig) ResolveAPIKey(env string) string {
	if env == "prod" {
		return parameterOr(c.APIKeyParam, c.APIKey)
	}
	return c.APIKey
}

func parameterOr(name, fallback string) string {
	if name == "" {
		return fallback
	}
	if v := getParameterStoreValue(name, true); v != "" {
		return v
	}
	return fallback
}

func getParameterStoreValue(parameterName string, decrypt bool) string {
	ctxWithTimeout, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	cfg, err := config.LoadDefaultConfig(ctxWithTimeout)
	if err != nil {
		return ""
	}

	client := ssm.NewFromConfig(cfg)

	result, err := client.GetParameter(ctxWithTimeout, &ssm.GetParameterInput{
		Name:           &parameterName,
		WithDecryption: &decrypt,
	})
	if err != nil {
		return ""
	}

	if result.Parameter == nil || result.Parameter.Value == nil {
		return ""
	}

	return *result.Parameter.Value
}
