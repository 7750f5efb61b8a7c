// Package config содержит конфигурацию клиента todoctl.
package config

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"time"

	"go.uber.org/zap"

	pkgconfig "gotodo/pkg/config"
	dbredis "gotodo/pkg/db/redis"
	"gotodo/pkg/logger"
)

// ServiceName - имя клиента в логах и каталоге данных.
const ServiceName = "todoctl"

// Хранилища учетных данных.
const (
	StorageMemory = "memory"
	StorageDisk   = "disk"
	StorageRedis  = "redis"
	StorageNone   = "none"
)

// Константы ошибок и сообщений для конфигурации.
const (
	LogConfigLoaded      = "client configuration loaded"
	ErrorInvalidConfig   = "invalid client configuration"
	ErrorStorageDir      = "failed to resolve storage directory"
	ErrorUnknownStorage  = "unknown storage backend"
	ErrorEmptyAPIAddress = "api url must not be empty"
)

// Config - полная конфигурация клиента.
type Config struct {
	API     APIConfig     `yaml:"api"`
	Storage StorageConfig `yaml:"storage"`
	Board   BoardConfig   `yaml:"board"`
	Logging LoggingConfig `yaml:"logging"`
}

// APIConfig - параметры внешнего API.
type APIConfig struct {
	URL            string        `yaml:"url" env:"TODO_API_URL" env-default:"http://localhost:3000"`
	Timeout        time.Duration `yaml:"timeout" env:"TODO_API_TIMEOUT" env-default:"10s"`
	RefreshTimeout time.Duration `yaml:"refresh_timeout" env:"TODO_REFRESH_TIMEOUT" env-default:"10s"`
	LogoutTimeout  time.Duration `yaml:"logout_timeout" env:"TODO_LOGOUT_TIMEOUT" env-default:"5s"`
}

// StorageConfig - где хранятся токены и кэшированный профиль.
type StorageConfig struct {
	Backend     string         `yaml:"backend" env:"TODO_STORAGE_BACKEND" env-default:"disk"`
	Dir         string         `yaml:"dir" env:"TODO_STORAGE_DIR"`
	RedisPrefix string         `yaml:"redis_prefix" env:"TODO_REDIS_KEY_PREFIX" env-default:"gotodo:"`
	Redis       dbredis.Config `yaml:"redis" env-prefix:"TODO_REDIS_"`
}

// BoardConfig - ограничения загрузки списка задач.
type BoardConfig struct {
	MinInterval time.Duration `yaml:"min_interval" env:"TODO_BOARD_MIN_INTERVAL" env-default:"1s"`
	PerMinute   uint64        `yaml:"per_minute" env:"TODO_BOARD_PER_MINUTE" env-default:"30"`
	PageSize    int           `yaml:"page_size" env:"TODO_BOARD_PAGE_SIZE" env-default:"50"`
}

// LoggingConfig - параметры логирования.
type LoggingConfig struct {
	Level string `yaml:"level" env:"TODO_LOGGER_LEVEL" env-default:"warn"`
	Mode  string `yaml:"mode" env:"TODO_LOGGER_MODE" env-default:"production"`
}

// GetEnvironment возвращает режим работы логгера.
func (c *LoggingConfig) GetEnvironment() logger.Environment {
	if c.Mode == "development" {
		return logger.Development
	}
	return logger.Production
}

// Load читает конфигурацию из envPath (если файл есть) и окружения.
func Load(ctx context.Context, envPath string) (*Config, error) {
	cfg, err := pkgconfig.Load[Config](ctx, ServiceName, envPath)
	if err != nil {
		return nil, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("%s: %w", ErrorInvalidConfig, err)
	}

	if cfg.Storage.Backend == StorageDisk && cfg.Storage.Dir == "" {
		dir, err := DefaultStorageDir()
		if err != nil {
			return nil, fmt.Errorf("%s: %w", ErrorStorageDir, err)
		}
		cfg.Storage.Dir = dir
	}

	logger.Log(ctx).Debug(ctx, LogConfigLoaded,
		zap.String("api_url", cfg.API.URL),
		zap.String("storage_backend", cfg.Storage.Backend),
		zap.String("storage_dir", cfg.Storage.Dir))

	return cfg, nil
}

// Validate проверяет значения, которые cleanenv не может проверить сам.
func (c *Config) Validate() error {
	if c.API.URL == "" {
		return errors.New(ErrorEmptyAPIAddress)
	}
	backends := []string{StorageMemory, StorageDisk, StorageRedis, StorageNone}
	if !slices.Contains(backends, c.Storage.Backend) {
		return fmt.Errorf("%s: %q", ErrorUnknownStorage, c.Storage.Backend)
	}
	return nil
}

// DefaultStorageDir возвращает каталог данных пользователя для todoctl.
func DefaultStorageDir() (string, error) {
	base, err := os.UserConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(base, "gotodo"), nil
}
