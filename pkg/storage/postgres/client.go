package postgres

import (
	"context"
	"database/sql"
	"fmt"

	"cryptoetl/config"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

// PostgresClient is the price history sink backed by gorm.
type PostgresClient struct {
	DB *gorm.DB
}

func gormConfig() *gorm.Config {
	return &gorm.Config{Logger: gormlogger.Default.LogMode(gormlogger.Warn)}
}

// NewClient opens and pings a connection to dsn.
func NewClient(dsn string) (*PostgresClient, error) {
	db, err := gorm.Open(postgres.Open(dsn), gormConfig())
	if err != nil {
		return nil, fmt.Errorf("failed to connect to postgres: %w", err)
	}

	return &PostgresClient{DB: db}, nil
}

// NewClientFromConn wraps an externally managed *sql.DB.
func NewClientFromConn(conn *sql.DB) (*PostgresClient, error) {
	db, err := gorm.Open(postgres.New(postgres.Config{Conn: conn}), gormConfig())
	if err != nil {
		return nil, fmt.Errorf("failed to wrap postgres connection: %w", err)
	}

	return &PostgresClient{DB: db}, nil
}

// InitializePriceHistory connects to Postgres, optionally creates the database, and ensures
// the price history table exists.
func InitializePriceHistory(ctx context.Context, cfg config.PostgresConfig, env string) (*PostgresClient, error) {
	if cfg.CreateDatabase {
		if err := CreateDatabase(ctx, cfg, env); err != nil {
			return nil, fmt.Errorf("failed to create database: %w", err)
		}
	}

	client, err := NewClient(cfg.DSN(env))
	if err != nil {
		return nil, fmt.Errorf("failed to connect: %w", err)
	}

	if err := client.ConfigurePool(cfg); err != nil {
		_ = client.Close()
		return nil, err
	}

	if err := client.EnsurePriceHistoryTable(ctx); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("ensure price history table: %w", err)
	}

	return client, nil
}

// ConfigurePool applies the pool limits from cfg. Zero values leave the driver defaults.
func (p *PostgresClient) ConfigurePool(cfg config.PostgresConfig) error {
	db, err := p.DB.DB()
	if err != nil {
		return fmt.Errorf("failed to retrieve raw DB: %w", err)
	}
	if cfg.MaxOpenConns > 0 {
		db.SetMaxOpenConns(cfg.MaxOpenConns)
	}
	if cfg.MaxIdleConns > 0 {
		db.SetMaxIdleConns(cfg.MaxIdleConns)
	}
	if cfg.ConnMaxLifetime > 0 {
		db.SetConnMaxLifetime(cfg.ConnMaxLifetime)
	}
	return nil
}

// IsHealthy pings the database.
func (p *PostgresClient) IsHealthy(ctx context.Context) bool {
	db, err := p.DB.DB()
	if err != nil {
		return false
	}
	return db.PingContext(ctx) == nil
}

func (p *PostgresClient) Close() error {
	db, err := p.DB.DB()
	if err != nil {
		return fmt.Errorf("failed to retrieve raw DB: %w", err)
	}
	return db.Close()
}
