package storage

import (
	"context"

	"gotodo/internal/client/ports/storage"
)

// Unavailable - хранилище для окружений без локального состояния:
// любое чтение дает ErrNotFound, записи отбрасываются.
type Unavailable struct{}

// Get всегда возвращает ErrNotFound.
func (Unavailable) Get(context.Context, string) (string, error) {
	return "", storage.ErrNotFound
}

// Set отбрасывает значение.
func (Unavailable) Set(context.Context, string, string) error { return nil }

// Delete ничего не делает.
func (Unavailable) Delete(context.Context, ...string) error { return nil }

// Close ничего не делает.
func (Unavailable) Close() error { return nil }
