package config

import (
	"strings"
	"time"
)

// UpstreamConfig представляет параметры внешнего API, к которому проксирует Gateway.
type UpstreamConfig struct {
	BaseURL string        `yaml:"base_url" env:"GATEWAY_UPSTREAM_URL"`
	Timeout time.Duration `yaml:"timeout" env:"GATEWAY_UPSTREAM_TIMEOUT" env-default:"10s"`
}

// GetBaseURL возвращает адрес без завершающего слэша.
func (c *UpstreamConfig) GetBaseURL() string {
	return strings.TrimSuffix(c.BaseURL, "/")
}

// IsConfigured сообщает, задан ли адрес внешнего API.
func (c *UpstreamConfig) IsConfigured() bool {
	return c.GetBaseURL() != ""
}
