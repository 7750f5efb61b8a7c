// Package app собирает клиентский слой из конфигурации.
package app

import (
	"context"
	"errors"
	"fmt"

	"github.com/jonboulle/clockwork"
	"go.uber.org/zap"

	adapters "gotodo/internal/client/adapters/storage"
	"gotodo/internal/client/api"
	"gotodo/internal/client/board"
	"gotodo/internal/client/config"
	"gotodo/internal/client/credentials"
	"gotodo/internal/client/executor"
	"gotodo/internal/client/pipeline"
	"gotodo/internal/client/ports/storage"
	"gotodo/internal/client/refresh"
	dbredis "gotodo/pkg/db/redis"
	"gotodo/pkg/logger"
)

// Константы для логирования.
const (
	LogStorageSelected = "client: credential storage selected"

	ErrorCreateStorage = "failed to create credential storage"
	ErrorCreateBoard   = "failed to create todo board"
)

// Client - собранный клиентский слой.
type Client struct {
	Store *credentials.Store
	Auth  *api.AuthAPI
	Todos *api.TodoAPI
	Board *board.Board

	kv storage.KV
}

// New создает клиента. redirector вызывается, когда сессия истекла.
func New(ctx context.Context, cfg *config.Config, redirector pipeline.Redirector) (*Client, error) {
	kv, err := NewKV(ctx, &cfg.Storage)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", ErrorCreateStorage, err)
	}

	store := credentials.NewStore(kv)
	exec := executor.New(executor.Config{BaseURL: cfg.API.URL, Timeout: cfg.API.Timeout}, store)
	coordinator := refresh.NewCoordinator(store, exec, cfg.API.RefreshTimeout)
	p := pipeline.New(exec, store, coordinator, redirector)

	todos := api.NewTodoAPI(p)
	b, err := board.New(todos, board.Config{
		MinInterval: cfg.Board.MinInterval,
		PerMinute:   cfg.Board.PerMinute,
	}, clockwork.NewRealClock())
	if err != nil {
		_ = kv.Close()
		return nil, fmt.Errorf("%s: %w", ErrorCreateBoard, err)
	}

	return &Client{
		Store: store,
		Auth:  api.NewAuthAPI(p, exec, store, cfg.API.LogoutTimeout),
		Todos: todos,
		Board: b,
		kv:    kv,
	}, nil
}

// Close освобождает хранилище и ограничитель.
func (c *Client) Close(ctx context.Context) error {
	return errors.Join(c.Board.Close(ctx), c.kv.Close())
}

// NewKV создает хранилище по имени бэкенда.
func NewKV(ctx context.Context, cfg *config.StorageConfig) (storage.KV, error) {
	logger.Log(ctx).Debug(ctx, LogStorageSelected, zap.String("backend", cfg.Backend))

	switch cfg.Backend {
	case config.StorageMemory:
		return adapters.NewMemoryKV(), nil
	case config.StorageDisk:
		return adapters.NewDiskKV(cfg.Dir), nil
	case config.StorageRedis:
		client, err := dbredis.NewClient(ctx, &cfg.Redis)
		if err != nil {
			return nil, err
		}
		return adapters.NewRedisKV(client, cfg.RedisPrefix), nil
	case config.StorageNone:
		return adapters.Unavailable{}, nil
	default:
		return nil, fmt.Errorf("%s: %q", config.ErrorUnknownStorage, cfg.Backend)
	}
}
