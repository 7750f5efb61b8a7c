package config_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"gotodo/internal/client/config"
)

func TestLoad_Defaults(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("TODO_STORAGE_DIR", dir)

	cfg, err := config.Load(context.Background(), "")

	require.NoError(t, err)
	assert.Equal(t, "http://localhost:3000", cfg.API.URL)
	assert.Equal(t, 10*time.Second, cfg.API.Timeout)
	assert.Equal(t, config.StorageDisk, cfg.Storage.Backend)
	assert.Equal(t, dir, cfg.Storage.Dir)
	assert.Equal(t, "localhost", cfg.Storage.Redis.Host)
	assert.Equal(t, 6379, cfg.Storage.Redis.Port)
	assert.Equal(t, time.Second, cfg.Board.MinInterval)
	assert.Equal(t, uint64(30), cfg.Board.PerMinute)
}

func TestLoad_EnvFileAndOverrides(t *testing.T) {
	path := filepath.Join(t.TempDir(), "todoctl.env")
	content := "TODO_API_URL=http://api.example.com\nTODO_STORAGE_BACKEND=redis\nTODO_REDIS_PORT=6380\n"
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	t.Setenv("TODO_REDIS_HOST", "cache.internal")
	// cleanenv переносит значения .env файла в окружение процесса.
	for _, key := range []string{"TODO_API_URL", "TODO_STORAGE_BACKEND", "TODO_REDIS_PORT"} {
		t.Setenv(key, "")
	}

	cfg, err := config.Load(context.Background(), path)

	require.NoError(t, err)
	assert.Equal(t, "http://api.example.com", cfg.API.URL)
	assert.Equal(t, config.StorageRedis, cfg.Storage.Backend)
	assert.Equal(t, "cache.internal:6380", cfg.Storage.Redis.GetAddress())
}

func TestLoad_UnknownBackend(t *testing.T) {
	t.Setenv("TODO_STORAGE_BACKEND", "cookies")

	_, err := config.Load(context.Background(), "")

	require.Error(t, err)
	assert.Contains(t, err.Error(), config.ErrorUnknownStorage)
}
