package config_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/georgemunganga/prepick-backend/internal/config"
)

func TestFromEnv_Defaults(t *testing.T) {
	t.Setenv("GATEWAY_DRIVER", "")
	t.Setenv("APP_PORT", "")

	cfg, err := config.FromEnv()
	require.NoError(t, err)
	assert.Equal(t, "memory", cfg.GatewayDriver)
	assert.Equal(t, "8080", cfg.AppPort)
	assert.Equal(t, 24*time.Hour, cfg.SessionTTL)
	assert.Equal(t, 5, cfg.MaxAttempts)
	assert.False(t, cfg.IsProduction())
}

func TestFromEnv_PostgresNeedsURL(t *testing.T) {
	t.Setenv("GATEWAY_DRIVER", "postgres")
	t.Setenv("DATABASE_URL", "")

	_, err := config.FromEnv()
	assert.ErrorContains(t, err, "DATABASE_URL")
}

func TestFromEnv_InvalidDuration(t *testing.T) {
	t.Setenv("GATEWAY_DRIVER", "memory")
	t.Setenv("SESSION_TTL", "soon")

	_, err := config.FromEnv()
	assert.ErrorContains(t, err, "SESSION_TTL")
}

func TestFromEnv_UnknownDriver(t *testing.T) {
	t.Setenv("GATEWAY_DRIVER", "cassandra")

	_, err := config.FromEnv()
	assert.Error(t, err)
}
