// Package pipeline выполняет запросы от имени пользователя.
//
// Запрос, получивший 401, проходит через одно обновление токенов и
// повторяется ровно один раз. Если обновление не удалось, учетные данные
// очищаются и пользователь отправляется на страницу входа.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"gotodo/internal/client/credentials"
	"gotodo/internal/client/executor"
	"gotodo/internal/client/refresh"
	"gotodo/pkg/logger"
)

// Константы для логирования.
const (
	LogUnauthorized  = "pipeline: got 401, refreshing token"
	LogRetrying      = "pipeline: retrying with refreshed token"
	LogAuthExpired   = "pipeline: session expired, redirecting to login"
	LogClearFailed   = "pipeline: failed to clear credentials"
	ErrorAuthExpired = "authentication expired"
	ErrorNoContent   = "response has no content"
)

var (
	// ErrAuthExpired - сессия истекла и не может быть обновлена.
	ErrAuthExpired = errors.New(ErrorAuthExpired)
	// ErrNoContent - сервер ответил 204 там, где ожидалось тело.
	ErrNoContent = errors.New(ErrorNoContent)
)

// Executor выполняет одиночный запрос с заданным токеном.
type Executor interface {
	DoWithToken(ctx context.Context, req executor.Request, token string) (*executor.Response, error)
}

// TokenStore - часть хранилища учетных данных, нужная конвейеру.
type TokenStore interface {
	AccessToken(ctx context.Context) (string, bool)
	RefreshToken(ctx context.Context) (string, bool)
	Clear(ctx context.Context) error
}

// Refresher обновляет токены после 401.
type Refresher interface {
	RefreshStale(ctx context.Context, stale string) (*credentials.Credential, error)
}

// Redirector отправляет пользователя на страницу входа.
type Redirector interface {
	RedirectToLogin(ctx context.Context)
}

// RedirectFunc позволяет использовать функцию как Redirector.
type RedirectFunc func(ctx context.Context)

// RedirectToLogin вызывает f.
func (f RedirectFunc) RedirectToLogin(ctx context.Context) { f(ctx) }

// Pipeline - конвейер аутентифицированных запросов.
type Pipeline struct {
	exec       Executor
	store      TokenStore
	refresher  Refresher
	redirector Redirector
}

// New создает конвейер. redirector может быть nil.
func New(exec Executor, store TokenStore, refresher Refresher, redirector Redirector) *Pipeline {
	if redirector == nil {
		redirector = RedirectFunc(func(context.Context) {})
	}
	return &Pipeline{exec: exec, store: store, refresher: refresher, redirector: redirector}
}

// Do выполняет запрос, при 401 обновляет токены и повторяет его один раз.
func (p *Pipeline) Do(ctx context.Context, req executor.Request) (*executor.Response, error) {
	token := ""
	if !req.SkipAuth {
		token, _ = p.store.AccessToken(ctx)
	}

	resp, err := p.exec.DoWithToken(ctx, req, token)
	if err == nil || !p.shouldRefresh(ctx, req, err) {
		return resp, err
	}

	log := logger.Log(ctx).With(
		zap.String("method", req.Method),
		zap.String("endpoint", req.Endpoint),
	)
	log.Debug(ctx, LogUnauthorized)

	cred, refreshErr := p.refresher.RefreshStale(ctx, token)
	if refreshErr != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		return nil, p.expire(ctx, log, refreshErr)
	}

	log.Debug(ctx, LogRetrying)

	// Повтор с токеном, выданным обновлением. Повторный 401 возвращается как есть.
	return p.exec.DoWithToken(ctx, req, cred.AccessToken)
}

func (p *Pipeline) shouldRefresh(ctx context.Context, req executor.Request, err error) bool {
	if req.SkipAuth || !executor.IsUnauthorized(err) || IsRefreshEndpoint(req.Endpoint) {
		return false
	}
	_, ok := p.store.RefreshToken(ctx)
	return ok
}

func (p *Pipeline) expire(ctx context.Context, log *logger.Logger, cause error) error {
	log.Warn(ctx, LogAuthExpired, zap.Error(cause))

	if err := p.store.Clear(ctx); err != nil {
		log.Error(ctx, LogClearFailed, zap.Error(err))
	}
	p.redirector.RedirectToLogin(ctx)

	return fmt.Errorf("%w: %w", ErrAuthExpired, cause)
}

// IsRefreshEndpoint сообщает, что endpoint - путь обновления токенов.
func IsRefreshEndpoint(endpoint string) bool {
	path, _, _ := strings.Cut(endpoint, "?")
	return strings.TrimSuffix(path, "/") == refresh.Endpoint
}

// IsAuthError сообщает, что пользователь должен войти заново.
func IsAuthError(err error) bool {
	return errors.Is(err, ErrAuthExpired) || errors.Is(err, refresh.ErrNoRefreshToken)
}

// Call выполняет запрос и разбирает JSON ответ в T.
// Ответ 204 дает ErrNoContent, результат никогда не бывает nil без ошибки.
func Call[T any](ctx context.Context, p *Pipeline, req executor.Request) (*T, error) {
	resp, err := p.Do(ctx, req)
	if err != nil {
		return nil, err
	}
	if resp.NoContent {
		return nil, ErrNoContent
	}

	var out T
	if err := resp.Decode(&out); err != nil {
		return nil, err
	}
	return &out, nil
}
