// Package storage определяет порт key/value хранилища для клиентского состояния.
package storage

import (
	"context"
	"errors"
)

// ErrNotFound возвращается, когда ключ отсутствует.
var ErrNotFound = errors.New("storage: key not found")

// KV - плоское key/value хранилище строк.
type KV interface {
	Get(ctx context.Context, key string) (string, error)

	Set(ctx context.Context, key string, value string) error

	Delete(ctx context.Context, keys ...string) error

	Close() error
}
