// Package storage содержит реализации порта KV.
package storage

import (
	"context"
	"sync"

	"gotodo/internal/client/ports/storage"
)

// MemoryKV хранит значения в памяти процесса.
type MemoryKV struct {
	mu     sync.RWMutex
	values map[string]string
}

// NewMemoryKV создает пустое хранилище в памяти.
func NewMemoryKV() *MemoryKV {
	return &MemoryKV{values: make(map[string]string)}
}

// Get возвращает значение по ключу.
func (m *MemoryKV) Get(_ context.Context, key string) (string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	value, ok := m.values[key]
	if !ok {
		return "", storage.ErrNotFound
	}
	return value, nil
}

// Set сохраняет значение.
func (m *MemoryKV) Set(_ context.Context, key string, value string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.values[key] = value
	return nil
}

// Delete удаляет ключи; отсутствующие ключи игнорируются.
func (m *MemoryKV) Delete(_ context.Context, keys ...string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, key := range keys {
		delete(m.values, key)
	}
	return nil
}

// Close ничего не делает.
func (m *MemoryKV) Close() error {
	return nil
}
