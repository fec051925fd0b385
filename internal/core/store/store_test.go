package store

import (
	"context"
	"testing"

	"github.com/namelens/domainsearch/internal/config"
	"github.com/stretchr/testify/require"
)

func TestBuildLibsqlDSN(t *testing.T) {
	t.Run("URLUsesRawValue", func(t *testing.T) {
		cfg := config.StoreConfig{
			URL:       "libsql://example.turso.io",
			AuthToken: "token123",
		}

		dsn, err := buildLibsqlDSN(cfg)
		require.NoError(t, err)
		require.Equal(t, "libsql://example.turso.io?authToken=token123", dsn)
	})

	t.Run("URLWithExistingQuery", func(t *testing.T) {
		cfg := config.StoreConfig{
			URL:       "libsql://example.turso.io?foo=bar",
			AuthToken: "token123",
		}

		dsn, err := buildLibsqlDSN(cfg)
		require.NoError(t, err)
		require.Equal(t, "libsql://example.turso.io?authToken=token123&foo=bar", dsn)
	})

	t.Run("PathWithFilePrefix", func(t *testing.T) {
		cfg := config.StoreConfig{Path: "file:./domainsearch.db"}

		dsn, err := buildLibsqlDSN(cfg)
		require.NoError(t, err)
		require.Equal(t, "file:./domainsearch.db", dsn)
	})

	t.Run("PathMissing", func(t *testing.T) {
		cfg := config.StoreConfig{}

		_, err := buildLibsqlDSN(cfg)
		require.Error(t, err)
	})

	t.Run("MemoryPath", func(t *testing.T) {
		cfg := config.StoreConfig{Path: ":memory:"}

		dsn, err := buildLibsqlDSN(cfg)
		require.NoError(t, err)
		require.Equal(t, ":memory:", dsn)
	})
}

func TestBuildSQLiteDSN(t *testing.T) {
	t.Run("MemoryPath", func(t *testing.T) {
		dsn, err := buildSQLiteDSN(config.StoreConfig{Path: ":memory:"})
		require.NoError(t, err)
		require.Equal(t, ":memory:", dsn)
	})

	t.Run("LocalPathGetsPragmas", func(t *testing.T) {
		dir := t.TempDir()
		dsn, err := buildSQLiteDSN(config.StoreConfig{Path: "file:" + dir + "/data/domainsearch.db"})
		require.NoError(t, err)
		require.Equal(t, "file:"+dir+"/data/domainsearch.db?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)", dsn)
		require.DirExists(t, dir+"/data")
	})

	t.Run("RemoteURLRejected", func(t *testing.T) {
		_, err := buildSQLiteDSN(config.StoreConfig{URL: "libsql://example.turso.io"})
		require.Error(t, err)
	})
}

func TestIsLocalDSN(t *testing.T) {
	require.True(t, isLocalDSN(":memory:"))
	require.True(t, isLocalDSN("file:/tmp/domainsearch.db"))
	require.False(t, isLocalDSN("libsql://example.turso.io?authToken=x"))
}

func TestOpenRejectsUnknownDriver(t *testing.T) {
	_, err := Open(context.Background(), config.StoreConfig{Driver: "postgres", Path: "x"})
	require.ErrorContains(t, err, "unsupported store driver")
}
