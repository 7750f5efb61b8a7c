// Package refresh обновляет пару токенов не более одного раза на волну 401.
//
// Все вызывающие, получившие 401 с одним и тем же access token, ждут один
// общий запрос к /api/v1/auth/refresh и получают один и тот же результат.
package refresh

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	"gotodo/internal/client/credentials"
	"gotodo/internal/client/domain/entities"
	"gotodo/internal/client/executor"
	"gotodo/pkg/logger"
)

// Endpoint - путь обновления токенов. Запросы к нему никогда не обновляются.
const Endpoint = "/api/v1/auth/refresh"

// DefaultTimeout ограничивает один запрос обновления.
const DefaultTimeout = 10 * time.Second

// Полеты различаются устаревшим токеном: одна волна 401 - один полет.
const flightKeyPrefix = "refresh:"

// Константы для логирования.
const (
	LogRefreshStarted   = "refresh: requesting new token pair"
	LogRefreshSucceeded = "refresh: token pair updated"
	LogRefreshFailed    = "refresh: failed, clearing credentials"
	LogRefreshSkipped   = "refresh: newer token already stored"
	LogClearFailed      = "refresh: failed to clear credentials"

	ErrorMissingAccessToken = "refresh response has no access token"
	ErrorSaveFailed         = "failed to store refreshed tokens"
)

// Ошибки координатора.
var (
	ErrNoRefreshToken = errors.New("no refresh token available")
	ErrRefreshFailed  = errors.New("token refresh failed")
)

// TokenStore - часть хранилища учетных данных, нужная координатору.
type TokenStore interface {
	AccessToken(ctx context.Context) (string, bool)
	RefreshToken(ctx context.Context) (string, bool)
	Read(ctx context.Context) (*credentials.Credential, error)
	Save(ctx context.Context, accessToken, refreshToken string) error
	Clear(ctx context.Context) error
}

// Doer выполняет HTTP запрос.
type Doer interface {
	Do(ctx context.Context, req executor.Request) (*executor.Response, error)
}

// Coordinator объединяет параллельные обновления в один запрос.
type Coordinator struct {
	store   TokenStore
	doer    Doer
	timeout time.Duration
	group   singleflight.Group
}

// NewCoordinator создает координатор. Нулевой timeout заменяется DefaultTimeout.
func NewCoordinator(store TokenStore, doer Doer, timeout time.Duration) *Coordinator {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &Coordinator{store: store, doer: doer, timeout: timeout}
}

// Refresh принудительно обновляет текущую пару токенов.
func (c *Coordinator) Refresh(ctx context.Context) (*credentials.Credential, error) {
	current, _ := c.store.AccessToken(ctx)
	return c.RefreshStale(ctx, current)
}

// RefreshStale обновляет токены после 401, полученного с токеном stale.
// Если в хранилище уже лежит другой access token, он возвращается без
// обращения к сети.
func (c *Coordinator) RefreshStale(ctx context.Context, stale string) (*credentials.Credential, error) {
	if cred, ok := c.newer(ctx, stale); ok {
		return cred, nil
	}

	if _, ok := c.store.RefreshToken(ctx); !ok {
		return nil, ErrNoRefreshToken
	}

	flightCtx := context.WithoutCancel(ctx)
	ch := c.group.DoChan(flightKeyPrefix+stale, func() (interface{}, error) {
		if cred, ok := c.newer(flightCtx, stale); ok {
			return cred, nil
		}
		return c.refresh(flightCtx)
	})

	select {
	case res := <-ch:
		if res.Err != nil {
			return nil, res.Err
		}
		cred := *res.Val.(*credentials.Credential)
		return &cred, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// newer возвращает сохраненную пару, если ее access token отличается от stale.
func (c *Coordinator) newer(ctx context.Context, stale string) (*credentials.Credential, bool) {
	cred, err := c.store.Read(ctx)
	if err != nil || cred.AccessToken == stale {
		return nil, false
	}
	logger.Log(ctx).Debug(ctx, LogRefreshSkipped)
	return cred, true
}

func (c *Coordinator) refresh(ctx context.Context) (*credentials.Credential, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	log := logger.Log(ctx).With(zap.String("endpoint", Endpoint))

	refreshToken, ok := c.store.RefreshToken(ctx)
	if !ok {
		return nil, ErrNoRefreshToken
	}

	log.Debug(ctx, LogRefreshStarted)

	cred, err := c.exchange(ctx, refreshToken)
	if err != nil {
		log.Warn(ctx, LogRefreshFailed, zap.Error(err))
		if clearErr := c.store.Clear(ctx); clearErr != nil {
			log.Error(ctx, LogClearFailed, zap.Error(clearErr))
		}
		return nil, fmt.Errorf("%w: %w", ErrRefreshFailed, err)
	}

	log.Info(ctx, LogRefreshSucceeded)
	return cred, nil
}

func (c *Coordinator) exchange(ctx context.Context, refreshToken string) (*credentials.Credential, error) {
	resp, err := c.doer.Do(ctx, executor.Request{
		Method:   http.MethodPost,
		Endpoint: Endpoint,
		Body:     map[string]string{"refresh_token": refreshToken},
		SkipAuth: true,
	})
	if err != nil {
		return nil, err
	}

	var auth entities.AuthResponse
	if err := resp.Decode(&auth); err != nil {
		return nil, err
	}
	if auth.AccessToken == "" {
		return nil, errors.New(ErrorMissingAccessToken)
	}

	// Сервер без ротации не присылает новый refresh token.
	if auth.RefreshToken == "" {
		auth.RefreshToken = refreshToken
	}

	if err := c.store.Save(ctx, auth.AccessToken, auth.RefreshToken); err != nil {
		return nil, fmt.Errorf("%s: %w", ErrorSaveFailed, err)
	}

	return &credentials.Credential{AccessToken: auth.AccessToken, RefreshToken: auth.RefreshToken}, nil
}
