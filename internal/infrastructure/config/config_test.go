package config

import (
	"os"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// clearMeritEnv removes every MERIT_ variable for the duration of the test.
func clearMeritEnv(t *testing.T) {
	t.Helper()
	for _, kv := range os.Environ() {
		key, _, _ := strings.Cut(kv, "=")
		if strings.HasPrefix(key, "MERIT_") {
			t.Setenv(key, "")
			os.Unsetenv(key)
		}
	}
}

func TestLoad(t *testing.T) {
	t.Run("loads default values when env vars not set", func(t *testing.T) {
		clearMeritEnv(t)

		cfg, err := Load()
		require.NoError(t, err)

		assert.Equal(t, "merit-ledger", cfg.App.Name)
		assert.Equal(t, "development", cfg.App.Env)
		assert.Equal(t, "8080", cfg.App.Port)
		assert.Equal(t, "postgres", cfg.Database.Driver)
		assert.Equal(t, "localhost", cfg.Database.Host)
		assert.Equal(t, 5432, cfg.Database.Port)
		assert.Equal(t, "merit_ledger", cfg.Database.DBName)
		assert.Equal(t, 25, cfg.Database.MaxOpenConns)
		assert.Equal(t, 5, cfg.Database.MaxIdleConns)

		assert.Equal(t, "levenshtein", cfg.Reconcile.SimilarityStrategy)
		assert.Equal(t, 15.0, cfg.Reconcile.SimilarityThreshold)
		assert.Equal(t, "ENT", cfg.Reconcile.IDTag)
		assert.Equal(t, 90.0, cfg.Reconcile.ConfidenceThreshold)
		assert.Equal(t, 1, cfg.Reconcile.DocumentReward)
		assert.True(t, cfg.Reconcile.ScopeToEntity)
		assert.Equal(t, 2.0, cfg.Reconcile.InflationMultiplier)
		assert.Equal(t, -5, cfg.Reconcile.PricePenalty)

		assert.Equal(t, 4.0, cfg.Market.Fallback)
		assert.True(t, cfg.Market.CacheEnabled)
		assert.Equal(t, "local", cfg.Batch.Source)
		assert.Equal(t, 10*time.Minute, cfg.Batch.LockTTL)
		assert.False(t, cfg.Redis.Enabled)
		assert.False(t, cfg.JWT.Enabled)
	})

	t.Run("loads values from environment variables with MERIT prefix", func(t *testing.T) {
		clearMeritEnv(t)
		t.Setenv("MERIT_APP_NAME", "test-app")
		t.Setenv("MERIT_APP_PORT", "9000")
		t.Setenv("MERIT_DATABASE_DRIVER", "sqlite")
		t.Setenv("MERIT_DATABASE_PATH", ":memory:")
		t.Setenv("MERIT_RECONCILE_SIMILARITY_THRESHOLD", "20")
		t.Setenv("MERIT_RECONCILE_ID_TAG", "CL")
		t.Setenv("MERIT_RECONCILE_SCOPE_TO_ENTITY", "false")
		t.Setenv("MERIT_MARKET_FALLBACK", "3.5")
		t.Setenv("MERIT_BATCH_INBOX_DIR", "/data/inbox")
		t.Setenv("MERIT_REDIS_ENABLED", "true")

		cfg, err := Load()
		require.NoError(t, err)

		assert.Equal(t, "test-app", cfg.App.Name)
		assert.Equal(t, "9000", cfg.App.Port)
		assert.Equal(t, "sqlite", cfg.Database.Driver)
		assert.Equal(t, ":memory:", cfg.Database.DSN())
		assert.Equal(t, 20.0, cfg.Reconcile.SimilarityThreshold)
		assert.Equal(t, "CL", cfg.Reconcile.IDTag)
		assert.False(t, cfg.Reconcile.ScopeToEntity)
		assert.Equal(t, 3.5, cfg.Market.Fallback)
		assert.Equal(t, "/data/inbox", cfg.Batch.InboxDir)
		assert.True(t, cfg.Redis.Enabled)
		assert.Equal(t, "localhost:6379", cfg.Redis.Addr())
	})

	t.Run("rejects unknown database driver", func(t *testing.T) {
		clearMeritEnv(t)
		t.Setenv("MERIT_DATABASE_DRIVER", "mysql")

		_, err := Load()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "database.driver must be postgres or sqlite")
	})

	t.Run("validates MaxIdleConns cannot exceed MaxOpenConns", func(t *testing.T) {
		clearMeritEnv(t)
		t.Setenv("MERIT_DATABASE_MAX_OPEN_CONNS", "5")
		t.Setenv("MERIT_DATABASE_MAX_IDLE_CONNS", "10")

		_, err := Load()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "max_idle_conns")
	})

	t.Run("rejects similarity threshold out of range", func(t *testing.T) {
		clearMeritEnv(t)
		t.Setenv("MERIT_RECONCILE_SIMILARITY_THRESHOLD", "150")

		_, err := Load()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "similarity_threshold")
	})

	t.Run("rejects positive price penalty", func(t *testing.T) {
		clearMeritEnv(t)
		t.Setenv("MERIT_RECONCILE_PRICE_PENALTY", "5")

		_, err := Load()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "price_penalty")
	})

	t.Run("requires a bucket for the s3 batch source", func(t *testing.T) {
		clearMeritEnv(t)
		t.Setenv("MERIT_BATCH_SOURCE", "s3")

		_, err := Load()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "storage.bucket is required")
	})

	t.Run("accepts a disabled batch source", func(t *testing.T) {
		clearMeritEnv(t)
		t.Setenv("MERIT_BATCH_SOURCE", "none")

		cfg, err := Load()
		require.NoError(t, err)
		assert.Equal(t, "none", cfg.Batch.Source)
	})

	t.Run("rejects an unknown batch source", func(t *testing.T) {
		clearMeritEnv(t)
		t.Setenv("MERIT_BATCH_SOURCE", "ftp")

		_, err := Load()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "batch.source")
	})

	t.Run("requires an api key when extraction is enabled", func(t *testing.T) {
		clearMeritEnv(t)
		t.Setenv("MERIT_EXTRACTION_ENABLED", "true")

		_, err := Load()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "extraction.api_key")
	})
}

func TestLoad_ProductionValidation(t *testing.T) {
	setValidProductionBase := func(t *testing.T) {
		clearMeritEnv(t)
		t.Setenv("MERIT_APP_ENV", "production")
		t.Setenv("MERIT_JWT_ENABLED", "true")
		t.Setenv("MERIT_JWT_SECRET", "this-is-a-very-secure-jwt-secret-key-32chars")
		t.Setenv("MERIT_DATABASE_PASSWORD", "secure-password")
		t.Setenv("MERIT_DATABASE_SSLMODE", "require")
	}

	t.Run("passes validation with valid production config", func(t *testing.T) {
		setValidProductionBase(t)

		cfg, err := Load()
		require.NoError(t, err)
		assert.Equal(t, "production", cfg.App.Env)
	})

	t.Run("requires jwt.secret at least 32 characters in production", func(t *testing.T) {
		setValidProductionBase(t)
		t.Setenv("MERIT_JWT_SECRET", "short-secret")

		_, err := Load()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "jwt.secret must be at least 32 characters")
	})

	t.Run("requires database.password in production", func(t *testing.T) {
		setValidProductionBase(t)
		os.Unsetenv("MERIT_DATABASE_PASSWORD")

		_, err := Load()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "database.password is required in production")
	})

	t.Run("requires SSL enabled in production", func(t *testing.T) {
		setValidProductionBase(t)
		t.Setenv("MERIT_DATABASE_SSLMODE", "disable")

		_, err := Load()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "database.sslmode cannot be 'disable' in production")
	})

	t.Run("sqlite skips postgres credential checks", func(t *testing.T) {
		setValidProductionBase(t)
		os.Unsetenv("MERIT_DATABASE_PASSWORD")
		t.Setenv("MERIT_DATABASE_DRIVER", "sqlite")

		_, err := Load()
		require.NoError(t, err)
	})

	t.Run("rejects full SQL logging in production", func(t *testing.T) {
		setValidProductionBase(t)
		t.Setenv("MERIT_TELEMETRY_DB_LOG_FULL_SQL", "true")

		_, err := Load()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "db_log_full_sql")
	})
}

func TestDatabaseConfig_DSN(t *testing.T) {
	t.Run("generates valid DSN", func(t *testing.T) {
		cfg := DatabaseConfig{
			Driver:   "postgres",
			Host:     "localhost",
			Port:     5432,
			User:     "testuser",
			Password: "testpass",
			DBName:   "testdb",
			SSLMode:  "disable",
		}

		dsn := cfg.DSN()
		assert.Contains(t, dsn, "localhost")
		assert.Contains(t, dsn, "5432")
		assert.Contains(t, dsn, "testuser")
		assert.Contains(t, dsn, "testdb")
		assert.Contains(t, dsn, "sslmode=disable")
	})

	t.Run("escapes special characters in password", func(t *testing.T) {
		cfg := DatabaseConfig{
			Driver:   "postgres",
			Host:     "localhost",
			Port:     5432,
			User:     "user",
			Password: "pass@word#123",
			DBName:   "db",
			SSLMode:  "disable",
		}

		assert.Contains(t, cfg.DSN(), "pass%40word%23123")
	})

	t.Run("sqlite returns the file path", func(t *testing.T) {
		cfg := DatabaseConfig{Driver: "sqlite", Path: "/var/lib/merit/ledger.db"}
		assert.Equal(t, "/var/lib/merit/ledger.db", cfg.DSN())
	})
}
