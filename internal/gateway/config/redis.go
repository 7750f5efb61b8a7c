package config

import (
	"time"

	dbredis "gotodo/pkg/db/redis"
)

// RedisConfig представляет конфигурацию кэша профилей в Redis.
type RedisConfig struct {
	Enabled    bool           `yaml:"enabled" env:"GATEWAY_REDIS_ENABLED" env-default:"true"`
	DefaultTTL time.Duration  `yaml:"default_ttl" env:"GATEWAY_REDIS_DEFAULT_TTL" env-default:"15m"`
	Connection dbredis.Config `yaml:"connection" env-prefix:"GATEWAY_REDIS_"`
}
