package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

// go test -v --run TestPostgresDSN
func TestPostgresDSN(t *testing.T) {
	cfg := PostgresConfig{
		Host:     "localhost",
		Port:     5432,
		User:     "postgres",
		Password: "yourpw",
		DBName:   "crypto",
		SSLMode:  "disable",
		TimeZone: "UTC",
	}

	assert.Equal(t,
		"host=localhost port=5432 user=postgres password=yourpw dbname=crypto sslmode=disable TimeZone=UTC",
		cfg.DSN("dev"))
	assert.Equal(t,
		"host=localhost port=5432 user=postgres password=yourpw dbname=postgres sslmode=disable TimeZone=UTC",
		cfg.MaintenanceDSN("dev"))

	cfg.TimeZone = ""
	assert.NotContains(t, cfg.DSN("dev"), "TimeZone")
}

// Without SSM parameter names, prod falls back to the configured credentials.
func TestPostgresDSNProdWithoutParams(t *testing.T) {
	cfg := PostgresConfig{Host: "h", Port: 5432, User: "u", Password: "p", DBName: "d", SSLMode: "require"}
	assert.Equal(t, "host=h port=5432 user=u password=p dbname=d sslmode=require", cfg.DSN("prod"))
}

func TestResolveAPIKey(t *testing.T) {
	c := RESTConfig{APIKey: "demo-key"}
	assert.Equal(t, "demo-key", c.ResolveAPIKey("dev"))
	assert.Equal(t, "demo-key", c.ResolveAPIKey("prod"))
}
