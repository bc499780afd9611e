package config

import (
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad(t *testing.T) {
	// Save original env vars and restore after tests
	originalEnv := map[string]string{
		"VALVE_APP_NAME":                       os.Getenv("VALVE_APP_NAME"),
		"VALVE_APP_ENV":                        os.Getenv("VALVE_APP_ENV"),
		"VALVE_APP_PORT":                       os.Getenv("VALVE_APP_PORT"),
		"VALVE_DATABASE_HOST":                  os.Getenv("VALVE_DATABASE_HOST"),
		"VALVE_DATABASE_PORT":                  os.Getenv("VALVE_DATABASE_PORT"),
		"VALVE_DATABASE_USER":                  os.Getenv("VALVE_DATABASE_USER"),
		"VALVE_DATABASE_PASSWORD":              os.Getenv("VALVE_DATABASE_PASSWORD"),
		"VALVE_DATABASE_DBNAME":                os.Getenv("VALVE_DATABASE_DBNAME"),
		"VALVE_DATABASE_SSLMODE":               os.Getenv("VALVE_DATABASE_SSLMODE"),
		"VALVE_DATABASE_MAX_OPEN_CONNS":        os.Getenv("VALVE_DATABASE_MAX_OPEN_CONNS"),
		"VALVE_DATABASE_MAX_IDLE_CONNS":        os.Getenv("VALVE_DATABASE_MAX_IDLE_CONNS"),
		"VALVE_JWT_SECRET":                     os.Getenv("VALVE_JWT_SECRET"),
		"VALVE_DEPOSIT_PERCENTAGE":             os.Getenv("VALVE_DEPOSIT_PERCENTAGE"),
		"VALVE_STRIPE_SECRET_KEY":              os.Getenv("VALVE_STRIPE_SECRET_KEY"),
		"VALVE_CRON_SECRET":                    os.Getenv("VALVE_CRON_SECRET"),
		"VALVE_HTTP_TRACK_RATE_LIMIT_REQUESTS": os.Getenv("VALVE_HTTP_TRACK_RATE_LIMIT_REQUESTS"),
	}

	defer func() {
		for k, v := range originalEnv {
			if v == "" {
				os.Unsetenv(k)
			} else {
				os.Setenv(k, v)
			}
		}
	}()

	clearEnv := func() {
		for k := range originalEnv {
			os.Unsetenv(k)
		}
	}

	t.Run("loads default values when env vars not set", func(t *testing.T) {
		clearEnv()

		cfg, err := Load()
		require.NoError(t, err)

		assert.Equal(t, "valveaudio-backend", cfg.App.Name)
		assert.Equal(t, "development", cfg.App.Env)
		assert.Equal(t, "8080", cfg.App.Port)
		assert.Equal(t, "localhost", cfg.Database.Host)
		assert.Equal(t, 5432, cfg.Database.Port)
		assert.Equal(t, "valveaudio", cfg.Database.DBName)
		assert.Equal(t, 25, cfg.Database.MaxOpenConns)
		assert.Equal(t, 7*24*time.Hour, cfg.Tracking.TokenTTL)
		assert.Equal(t, 30, cfg.Deposit.Percentage)
		assert.Equal(t, 72*time.Hour, cfg.Deposit.DueWindow)
		assert.Equal(t, 10, cfg.HTTP.TrackRateLimitRequests)
		assert.Equal(t, 15*time.Minute, cfg.HTTP.TrackRateLimitWindow)
	})

	t.Run("loads values from environment variables with VALVE prefix", func(t *testing.T) {
		clearEnv()
		os.Setenv("VALVE_APP_NAME", "test-app")
		os.Setenv("VALVE_APP_ENV", "testing")
		os.Setenv("VALVE_DATABASE_HOST", "testdb.local")
		os.Setenv("VALVE_DATABASE_PORT", "5433")
		os.Setenv("VALVE_DATABASE_PASSWORD", "testpass")
		os.Setenv("VALVE_DEPOSIT_PERCENTAGE", "50")

		cfg, err := Load()
		require.NoError(t, err)

		assert.Equal(t, "test-app", cfg.App.Name)
		assert.Equal(t, "testing", cfg.App.Env)
		assert.Equal(t, "testdb.local", cfg.Database.Host)
		assert.Equal(t, 5433, cfg.Database.Port)
		assert.Equal(t, "testpass", cfg.Database.Password)
		assert.Equal(t, 50, cfg.Deposit.Percentage)
	})

	t.Run("validates MaxIdleConns cannot exceed MaxOpenConns", func(t *testing.T) {
		clearEnv()
		os.Setenv("VALVE_DATABASE_MAX_OPEN_CONNS", "10")
		os.Setenv("VALVE_DATABASE_MAX_IDLE_CONNS", "20")

		_, err := Load()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "max_idle_conns")
		assert.Contains(t, err.Error(), "cannot exceed")
	})

	t.Run("validates deposit percentage bounds", func(t *testing.T) {
		clearEnv()
		os.Setenv("VALVE_DEPOSIT_PERCENTAGE", "120")

		_, err := Load()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "deposit.percentage")
	})

	t.Run("production requires secrets", func(t *testing.T) {
		clearEnv()
		os.Setenv("VALVE_APP_ENV", "production")

		_, err := Load()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "jwt.secret")
	})
}

func TestDatabaseConfig_DSN(t *testing.T) {
	d := DatabaseConfig{
		Host:     "db.internal",
		Port:     5432,
		User:     "app",
		Password: "p@ss/word",
		DBName:   "valveaudio",
		SSLMode:  "require",
	}

	dsn := d.DSN()
	assert.Contains(t, dsn, "postgres://")
	assert.Contains(t, dsn, "db.internal:5432")
	assert.Contains(t, dsn, "sslmode=require")
	// Special characters must be escaped
	assert.NotContains(t, dsn, "p@ss/word")
}

func TestRedisConfig_Addr(t *testing.T) {
	r := RedisConfig{Host: "cache.internal", Port: 6380}
	assert.Equal(t, "cache.internal:6380", r.Addr())
}
