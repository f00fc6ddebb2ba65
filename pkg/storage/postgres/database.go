package postgres

import (
	"context"
	"database/sql"
	"fmt"

	"cryptoetl/config"

	"github.com/lib/pq"
)

// CreateDatabase connects to the maintenance database and creates cfg.DBName if it doesn't exist.
func CreateDatabase(ctx context.Context, cfg config.PostgresConfig, env string) error {
	db, err := sql.Open("postgres", cfg.MaintenanceDSN(env))
	if err != nil {
		return fmt.Errorf("connect failed: %w", err)
	}
	defer db.Close()

	var exists bool
	query := `SELECT EXISTS(SELECT 1 FROM pg_database WHERE datname = $1);`
	if err := db.QueryRowContext(ctx, query, cfg.DBName).Scan(&exists); err != nil {
		return fmt.Errorf("check db exists failed: %w", err)
	}

	if exists {
		return nil
	}

	// CREATE DATABASE takes no bind parameters; quote the identifier instead.
	if _, err := db.ExecContext(ctx, "CREATE DATABASE "+pq.QuoteIdentifier(cfg.DBName)); err != nil {
		return fmt.Errorf("create db failed: %w", err)
	}

	return nil
}
