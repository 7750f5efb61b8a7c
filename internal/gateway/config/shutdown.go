package config

import "time"

// ShutdownConfig задает время на остановку сервера и закрытие соединений.
type ShutdownConfig struct {
	Timeout time.Duration `yaml:"timeout" env:"GATEWAY_GRACEFUL_SHUTDOWN_TIMEOUT" env-default:"5s"`
}

// GetTimeout возвращает таймаут остановки.
func (c *ShutdownConfig) GetTimeout() time.Duration {
	return c.Timeout
}
