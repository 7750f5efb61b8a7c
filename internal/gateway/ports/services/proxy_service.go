package services

import (
	"context"

	"gotodo/internal/gateway/ports/upstream"
)

// ProxyService пересылает запросы пользователя во внешний API.
type ProxyService interface {
	Forward(ctx context.Context, req *upstream.Request) (*upstream.Response, error)

	// Configured сообщает, задан ли адрес внешнего API.
	Configured() bool
}
