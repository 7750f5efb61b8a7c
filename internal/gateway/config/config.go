// Package config содержит конфигурацию для Gateway сервиса.
package config

import (
	"context"

	"go.uber.org/zap"

	"gotodo/internal/gateway/session"
	pkgconfig "gotodo/pkg/config"
	"gotodo/pkg/logger"
)

// ServiceName - имя сервиса в логах.
const ServiceName = "gateway"

// Константы ошибок и сообщений для конфигурации.
const (
	LogConfigLoaded = "gateway configuration loaded"
)

// Config представляет полную конфигурацию Gateway.
type Config struct {
	HTTP     HTTPConfig     `yaml:"http"`
	Upstream UpstreamConfig `yaml:"upstream"`
	Logging  LoggingConfig  `yaml:"logging"`
	Shutdown ShutdownConfig `yaml:"shutdown"`
	Redis    RedisConfig    `yaml:"redis"`
	Session  session.Config `yaml:"session"`
}

// Load загружает конфигурацию из envPath (если файл есть) и переменных окружения.
func Load(ctx context.Context, envPath string) (*Config, error) {
	cfg, err := pkgconfig.Load[Config](ctx, ServiceName, envPath)
	if err != nil {
		return nil, err
	}

	logger.Log(ctx).Info(ctx, LogConfigLoaded,
		zap.String("http_address", cfg.HTTP.GetAddress()),
		zap.String("upstream_url", cfg.Upstream.GetBaseURL()),
		zap.String("log_level", cfg.Logging.Level),
		zap.String("log_mode", cfg.Logging.Mode),
		zap.Duration("shutdown_timeout", cfg.Shutdown.GetTimeout()),
		zap.Bool("redis_enabled", cfg.Redis.Enabled),
		zap.String("redis_address", cfg.Redis.Connection.GetAddress()),
		zap.Duration("redis_default_ttl", cfg.Redis.DefaultTTL),
		zap.Duration("session_duration", cfg.Session.Duration))

	return cfg, nil
}

// GetEnvironment возвращает режим работы логгера.
func (c *LoggingConfig) GetEnvironment() logger.Environment {
	if c.Mode == "development" {
		return logger.Development
	}
	return logger.Production
}
