package bootstrap

import (
	"context"
	"path/filepath"
	"testing"

	"agora/internal/audit"
	"agora/internal/config"
	"agora/internal/models"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sqliteConfig(t *testing.T) *config.Config {
	t.Helper()
	dir := t.TempDir()
	return &config.Config{
		Env:          "test",
		DBDriver:     "sqlite",
		DBPath:       filepath.Join(dir, "main.db"),
		AuthDBDriver: "sqlite",
		AuthDBPath:   filepath.Join(dir, "auth.db"),
		DBSchemaMode: "auto",
		AuditSink:    "log",
	}
}

func TestInitRuntime_SQLiteWithRedisSink(t *testing.T) {
	mr := miniredis.RunT(t)
	cfg := sqliteConfig(t)
	cfg.RedisURL = "redis://" + mr.Addr()
	cfg.AuditSink = "redis"
	cfg.AuditStream = "audit:test"

	ctx := context.Background()
	rt, err := InitRuntime(ctx, cfg, Options{ApplySchema: true})
	require.NoError(t, err)
	t.Cleanup(func() { _ = rt.Close(ctx) })

	require.NotNil(t, rt.Redis)
	_, isStream := rt.Sink.(*audit.RedisStreamSink)
	assert.True(t, isStream)

	require.NoError(t, rt.Stores.Main.Ping(ctx))
	require.NoError(t, rt.Stores.Auth.Ping(ctx))
	assert.True(t, rt.Stores.Main.DB().Migrator().HasTable(&models.User{}))
	assert.True(t, rt.Stores.Auth.DB().Migrator().HasTable(&models.Credential{}))
	assert.False(t, rt.Stores.Auth.DB().Migrator().HasTable(&models.User{}))
}

func TestInitRuntime_RedisSinkWithoutRedisFallsBackToLog(t *testing.T) {
	cfg := sqliteConfig(t)
	cfg.AuditSink = "redis"

	ctx := context.Background()
	rt, err := InitRuntime(ctx, cfg, Options{})
	require.NoError(t, err)
	t.Cleanup(func() { _ = rt.Close(ctx) })

	assert.Nil(t, rt.Redis)
	assert.Equal(t, "log", rt.Sink.Name())
}
