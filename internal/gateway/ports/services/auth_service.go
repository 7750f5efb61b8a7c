// Package services определяет интерфейсы сервисов Gateway.
package services

import (
	"context"
	"errors"
	"fmt"

	"gotodo/internal/gateway/app/dto"
	"gotodo/internal/gateway/ports/upstream"
)

// AuthService определяет операции входа, регистрации и выхода.
type AuthService interface {
	Login(ctx context.Context, req *dto.LoginRequest) (*dto.UpstreamLogin, error)

	Signup(ctx context.Context, req *dto.SignupRequest) (*upstream.Response, error)

	Logout(ctx context.Context, token string) error
}

// Ошибки входа, которые обработчик переводит в HTTP статусы.
var (
	ErrMalformedResponse = errors.New("malformed response from authentication service")
	ErrNoAccessToken     = errors.New("no authentication token provided by server")
)

// StatusError - внешний API ответил статусом вне 2xx.
type StatusError struct {
	Status int
	// Message и Detail - поля message и error из тела ответа, если оно разобрано.
	Message string
	Detail  string
	// Parsed сообщает, удалось ли разобрать тело ответа как JSON.
	Parsed bool
}

func (e *StatusError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("upstream status %d: %s", e.Status, e.Message)
	}
	return fmt.Sprintf("upstream status %d", e.Status)
}
