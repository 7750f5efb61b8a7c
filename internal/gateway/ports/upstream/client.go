// Package upstream определяет клиент внешнего API, к которому обращается Gateway.
package upstream

import (
	"context"
	"errors"
)

// ErrUnavailable - внешний API недоступен (сетевая ошибка, таймаут).
var ErrUnavailable = errors.New("upstream unavailable")

// Request - запрос к внешнему API.
type Request struct {
	Method string
	// Path - путь относительно базового адреса, например /api/v1/auth/login.
	Path     string
	RawQuery string
	Body     []byte
	// Token добавляется как Authorization: Bearer, если не пуст.
	Token string
}

// Response - ответ внешнего API с любым статусом.
type Response struct {
	Status      int
	Body        []byte
	ContentType string
}

// IsSuccess сообщает, что статус в диапазоне 2xx.
func (r *Response) IsSuccess() bool {
	return r.Status >= 200 && r.Status <= 299
}

// Client выполняет запросы к внешнему API.
// Ошибка возвращается только если ответ не получен.
type Client interface {
	Do(ctx context.Context, req *Request) (*Response, error)
}
