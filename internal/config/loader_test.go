package config

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	gfconfig "github.com/fulmenhq/gofulmen/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func isolateConfig(t *testing.T) {
	t.Helper()
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())
	t.Setenv("XDG_DATA_HOME", t.TempDir())
	SetConfigFile("")
	t.Cleanup(func() { SetConfigFile("") })
}

func TestLoad(t *testing.T) {
	ctx := context.Background()

	// Test basic config loading with defaults
	t.Run("LoadDefaults", func(t *testing.T) {
		isolateConfig(t)

		cfg, err := Load(ctx)
		require.NoError(t, err)
		require.NotNil(t, cfg)

		// Verify server defaults
		assert.Equal(t, "localhost", cfg.Server.Host)
		assert.Equal(t, 8080, cfg.Server.Port)
		assert.Equal(t, 30*time.Second, cfg.Server.ReadTimeout)
		assert.Equal(t, 60*time.Second, cfg.Server.WriteTimeout)
		assert.Equal(t, 120*time.Second, cfg.Server.IdleTimeout)
		assert.Equal(t, 10*time.Second, cfg.Server.ShutdownTimeout)

		// Verify store defaults
		assert.Equal(t, "libsql", cfg.Store.Driver)
		expectedStorePath := filepath.Join(gfconfig.GetAppDataDir("domainsearch"), "domainsearch.db")
		assert.Equal(t, expectedStorePath, cfg.Store.Path)
		assert.Equal(t, "", cfg.Store.URL)
		assert.Equal(t, "", cfg.Store.AuthToken)

		// Verify domain lookup defaults
		assert.Equal(t, 5*time.Second, cfg.Domain.Availability.Timeout)
		assert.Equal(t, 6, cfg.Domain.Availability.MinRandomRun)
		assert.Contains(t, cfg.Domain.Availability.Denylist, "143.244.220.150")
		assert.True(t, cfg.Domain.Demand.TrendsEnabled)
		assert.Equal(t, 24*time.Hour, cfg.Domain.Demand.CacheTTL)
		assert.Equal(t, "https://rdap.org", cfg.Domain.Info.Server)

		// Verify search defaults
		assert.Equal(t, []string{"com", "io", "app", "ai", "co", "dev", "tech", "net", "xyz"}, cfg.Search.TLDs)
		assert.True(t, cfg.Search.IncludePrices)
		assert.Equal(t, filepath.Join(gfconfig.GetAppDataDir("domainsearch"), "domain-prices.json"), cfg.Prices.Path)

		// Verify cron defaults
		assert.Equal(t, "", cfg.Cron.Secret)
		assert.Equal(t, "cron", cfg.Cron.Mode)

		// Verify rate limit defaults
		assert.Equal(t, 0.9, cfg.RateLimitMargin)

		// Verify logging defaults
		assert.Equal(t, "info", cfg.Logging.Level)
		assert.Equal(t, "SIMPLE", cfg.Logging.Profile)

		// Verify metrics defaults
		assert.True(t, cfg.Metrics.Enabled)
		assert.Equal(t, 9090, cfg.Metrics.Port)

		// Verify health defaults
		assert.True(t, cfg.Health.Enabled)

		// Verify debug defaults
		assert.False(t, cfg.Debug.Enabled)
		assert.False(t, cfg.Debug.PprofEnabled)
	})

	// Test runtime overrides
	t.Run("RuntimeOverrides", func(t *testing.T) {
		isolateConfig(t)
		overrides := map[string]any{
			"server": map[string]any{
				"port": 9000,
				"host": "0.0.0.0",
			},
			"logging": map[string]any{
				"level": "debug",
			},
		}

		cfg, err := Load(ctx, overrides)
		require.NoError(t, err)
		require.NotNil(t, cfg)

		// Verify overrides were applied
		assert.Equal(t, "0.0.0.0", cfg.Server.Host)
		assert.Equal(t, 9000, cfg.Server.Port)
		assert.Equal(t, "debug", cfg.Logging.Level)

		// Verify non-overridden values remain default
		assert.Equal(t, "SIMPLE", cfg.Logging.Profile)
		assert.Equal(t, 9090, cfg.Metrics.Port)
		assert.Equal(t, 30*time.Second, cfg.Server.ReadTimeout)
	})

	// Test environment variable overrides
	t.Run("EnvOverrides", func(t *testing.T) {
		isolateConfig(t)
		t.Setenv("DOMAINSEARCH_PORT", "3000")
		t.Setenv("DOMAINSEARCH_LOG_LEVEL", "warn")
		t.Setenv("DOMAINSEARCH_METRICS_ENABLED", "false")
		t.Setenv("DOMAINSEARCH_RATE_LIMIT_MARGIN", "0.8")
		t.Setenv("DOMAINSEARCH_SEARCH_TLDS", "com,io")

		cfg, err := Load(ctx)
		require.NoError(t, err)
		require.NotNil(t, cfg)

		// Verify env overrides were applied
		assert.Equal(t, 3000, cfg.Server.Port)
		assert.Equal(t, "warn", cfg.Logging.Level)
		assert.False(t, cfg.Metrics.Enabled)
		assert.Equal(t, 0.8, cfg.RateLimitMargin)
		assert.Equal(t, []string{"com", "io"}, cfg.Search.TLDs)
	})

	t.Run("LegacyCredentialEnv", func(t *testing.T) {
		isolateConfig(t)
		t.Setenv("GODADDY_API_KEY", "legacy-key")
		t.Setenv("CRON_SECRET", "legacy-secret")
		t.Setenv("DOMAINSEARCH_CRON_SECRET", "prefixed-secret")

		cfg, err := Load(ctx)
		require.NoError(t, err)

		assert.Equal(t, "legacy-key", cfg.Registrars.GoDaddy.APIKey)
		assert.Equal(t, "prefixed-secret", cfg.Cron.Secret)
	})

	t.Run("UserConfigFile", func(t *testing.T) {
		isolateConfig(t)
		path := filepath.Join(t.TempDir(), "config.yaml")
		require.NoError(t, os.WriteFile(path, []byte("server:\n  port: 7070\ndomain:\n  availability:\n    min_random_run: 8\n"), 0o600))
		SetConfigFile(path)

		cfg, err := Load(ctx)
		require.NoError(t, err)

		assert.Equal(t, 7070, cfg.Server.Port)
		assert.Equal(t, "localhost", cfg.Server.Host)
		assert.Equal(t, 8, cfg.Domain.Availability.MinRandomRun)
		assert.Equal(t, 5*time.Second, cfg.Domain.Availability.Timeout)
	})

	t.Run("MissingExplicitConfigFile", func(t *testing.T) {
		isolateConfig(t)
		SetConfigFile(filepath.Join(t.TempDir(), "absent.yaml"))

		_, err := Load(ctx)
		require.Error(t, err)
	})

	// Test config precedence: runtime > env > user file > defaults
	t.Run("ConfigPrecedence", func(t *testing.T) {
		isolateConfig(t)
		t.Setenv("DOMAINSEARCH_PORT", "4000")

		// Runtime override should win
		overrides := map[string]any{
			"server": map[string]any{
				"port": 5000,
			},
		}

		cfg, err := Load(ctx, overrides)
		require.NoError(t, err)
		require.NotNil(t, cfg)

		// Runtime override should take precedence over env var
		assert.Equal(t, 5000, cfg.Server.Port)
	})
}

func TestGetConfig(t *testing.T) {
	ctx := context.Background()
	isolateConfig(t)

	// Load config first
	cfg, err := Load(ctx)
	require.NoError(t, err)
	require.NotNil(t, cfg)

	// Test GetConfig returns the same instance
	t.Run("GetConfigReturnsLoadedConfig", func(t *testing.T) {
		retrieved := GetConfig()
		assert.NotNil(t, retrieved)
		assert.Equal(t, cfg.Server.Port, retrieved.Server.Port)
		assert.Equal(t, cfg.Logging.Level, retrieved.Logging.Level)
	})
}

func TestEnvSpecs(t *testing.T) {
	// Need to set app identity for env specs
	ctx := context.Background()
	isolateConfig(t)
	_, err := Load(ctx)
	require.NoError(t, err)

	specs := getEnvSpecs()
	assert.NotEmpty(t, specs)

	// Verify critical env var mappings exist
	envVarNames := make(map[string]bool)
	for _, spec := range specs {
		envVarNames[spec.Name] = true
	}

	assert.True(t, envVarNames["DOMAINSEARCH_LOG_LEVEL"], "LOG_LEVEL env var must be mapped")
	assert.True(t, envVarNames["DOMAINSEARCH_PORT"], "PORT env var must be mapped")
	assert.True(t, envVarNames["DOMAINSEARCH_HOST"], "HOST env var must be mapped")
	assert.True(t, envVarNames["DOMAINSEARCH_METRICS_PORT"], "METRICS_PORT env var must be mapped")
	assert.True(t, envVarNames["DOMAINSEARCH_DB_PATH"], "DB_PATH env var must be mapped")
	assert.True(t, envVarNames["DOMAINSEARCH_CRON_SECRET"], "CRON_SECRET env var must be mapped")
}

func TestDurationParsing(t *testing.T) {
	ctx := context.Background()

	// Test duration parsing from string env var
	t.Run("DurationFromEnv", func(t *testing.T) {
		isolateConfig(t)
		t.Setenv("DOMAINSEARCH_READ_TIMEOUT", "45s")
		t.Setenv("DOMAINSEARCH_SHUTDOWN_TIMEOUT", "5m")
		t.Setenv("DOMAINSEARCH_DNS_TIMEOUT", "2s")

		cfg, err := Load(ctx)
		require.NoError(t, err)
		require.NotNil(t, cfg)

		assert.Equal(t, 45*time.Second, cfg.Server.ReadTimeout)
		assert.Equal(t, 5*time.Minute, cfg.Server.ShutdownTimeout)
		assert.Equal(t, 2*time.Second, cfg.Domain.Availability.Timeout)
	})
}

func TestConfigReload(t *testing.T) {
	ctx := context.Background()
	isolateConfig(t)

	// Load initial config
	cfg1, err := Load(ctx)
	require.NoError(t, err)
	require.NotNil(t, cfg1)
	initialPort := cfg1.Server.Port

	// Reload with different runtime overrides
	overrides := map[string]any{
		"server": map[string]any{
			"port": initialPort + 1000,
		},
	}

	cfg2, err := Load(ctx, overrides)
	require.NoError(t, err)
	require.NotNil(t, cfg2)

	// Verify reload updated the config
	assert.Equal(t, initialPort+1000, cfg2.Server.Port)

	// Verify GetConfig returns the updated config
	current := GetConfig()
	assert.Equal(t, cfg2.Server.Port, current.Server.Port)
}

func TestMergeMaps(t *testing.T) {
	dst := map[string]any{
		"server": map[string]any{"host": "localhost", "port": 8080},
		"debug":  false,
	}
	mergeMaps(dst, map[string]any{
		"server": map[string]any{"port": 9090},
		"debug":  true,
	})

	server := dst["server"].(map[string]any)
	assert.Equal(t, "localhost", server["host"])
	assert.Equal(t, 9090, server["port"])
	assert.Equal(t, true, dst["debug"])
}
