package config_test

import (
	"testing"
	"time"

	"github.com/brgycare/brgycare-backend/pkg/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := config.Load("inventory-service")
	require.NoError(t, err)

	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, config.EnvDevelopment, cfg.Server.Environment)
	assert.Equal(t, 30*time.Second, cfg.Server.ReadTimeout)

	assert.Equal(t, "postgres", cfg.Database.Driver)
	assert.Equal(t, "brgycare_health", cfg.Database.Database)
	assert.Equal(t, 25, cfg.Database.MaxOpenConns)

	assert.Equal(t, 30, cfg.Inventory.ExpiryWarningDays)
	assert.Equal(t, 50, cfg.Inventory.DefaultMinimumStock)
}

func TestLoad_EnvOverride(t *testing.T) {
	t.Setenv("BRGYCARE_SERVER_PORT", "9090")
	t.Setenv("BRGYCARE_DATABASE_DRIVER", "sqlite")
	t.Setenv("BRGYCARE_DATABASE_PATH", "/tmp/brgycare.db")

	cfg, err := config.Load("inventory-service")
	require.NoError(t, err)

	assert.Equal(t, 9090, cfg.Server.Port)
	assert.Equal(t, "sqlite", cfg.Database.Driver)
	assert.Equal(t, "/tmp/brgycare.db", cfg.Database.DSN())
}

func TestDatabaseConfig_DSN_Postgres(t *testing.T) {
	cfg := config.DatabaseConfig{
		Driver:   "postgres",
		Host:     "db.internal",
		Port:     5432,
		User:     "brgycare",
		Password: "secret",
		Database: "brgycare_health",
		SSLMode:  "require",
	}

	assert.Equal(t,
		"host=db.internal port=5432 user=brgycare password=secret dbname=brgycare_health sslmode=require",
		cfg.DSN())
}

func TestDatabaseConfig_Validate(t *testing.T) {
	sqliteNoPath := config.DatabaseConfig{Driver: "sqlite"}
	assert.Error(t, sqliteNoPath.Validate(config.EnvDevelopment))

	unknown := config.DatabaseConfig{Driver: "oracle"}
	assert.Error(t, unknown.Validate(config.EnvDevelopment))

	localProd := config.DatabaseConfig{Driver: "postgres", Host: "localhost"}
	assert.Error(t, localProd.Validate(config.EnvProduction))
	assert.NoError(t, localProd.Validate(config.EnvDevelopment))
}
