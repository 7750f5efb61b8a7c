package cache

import (
	"context"
	"time"
)

// Noop - кэш, который ничего не хранит. Используется, когда Redis отключен.
type Noop struct{}

// Get всегда сообщает об отсутствии ключа.
func (Noop) Get(context.Context, string) (string, error) { return "", nil }

// Set ничего не делает.
func (Noop) Set(context.Context, string, string, time.Duration) error { return nil }

// Delete ничего не делает.
func (Noop) Delete(context.Context, string) error { return nil }

// Close ничего не делает.
func (Noop) Close() error { return nil }
