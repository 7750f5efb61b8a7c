package storage

import (
	"context"
	"errors"
	"fmt"

	"gotodo/internal/client/ports/storage"
	dbredis "gotodo/pkg/db/redis"
)

// RedisKV хранит значения в Redis под общим префиксом.
type RedisKV struct {
	client *dbredis.Client
	prefix string
}

// NewRedisKV создает хранилище поверх клиента Redis.
func NewRedisKV(client *dbredis.Client, prefix string) *RedisKV {
	return &RedisKV{client: client, prefix: prefix}
}

// Get читает значение по ключу.
func (r *RedisKV) Get(ctx context.Context, key string) (string, error) {
	value, err := r.client.Get(ctx, r.prefix+key)
	if errors.Is(err, dbredis.ErrNotFound) {
		return "", storage.ErrNotFound
	}
	if err != nil {
		return "", fmt.Errorf("redis get %q: %w", key, err)
	}
	return value, nil
}

// Set записывает значение без срока жизни.
func (r *RedisKV) Set(ctx context.Context, key string, value string) error {
	if err := r.client.Set(ctx, r.prefix+key, value, 0); err != nil {
		return fmt.Errorf("redis set %q: %w", key, err)
	}
	return nil
}

// Delete удаляет ключи.
func (r *RedisKV) Delete(ctx context.Context, keys ...string) error {
	if len(keys) == 0 {
		return nil
	}

	prefixed := make([]string, 0, len(keys))
	for _, key := range keys {
		prefixed = append(prefixed, r.prefix+key)
	}

	if err := r.client.Delete(ctx, prefixed...); err != nil {
		return fmt.Errorf("redis delete: %w", err)
	}
	return nil
}

// Close закрывает соединение с Redis.
func (r *RedisKV) Close() error {
	return r.client.Close()
}
