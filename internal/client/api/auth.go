// Package api содержит типизированные обертки над endpoint'ами внешнего API.
package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"go.uber.org/zap"

	"gotodo/internal/client/credentials"
	"gotodo/internal/client/domain/entities"
	"gotodo/internal/client/executor"
	"gotodo/internal/client/pipeline"
	"gotodo/pkg/logger"
)

const authBase = "/api/v1/auth"

// DefaultLogoutTimeout ограничивает удаленную часть выхода.
const DefaultLogoutTimeout = 5 * time.Second

// Константы для логирования.
const (
	LogLoggedIn       = "auth: logged in"
	LogLogoutFailed   = "auth: remote logout failed, clearing local credentials anyway"
	LogLoggedOut      = "auth: logged out"
	LogRestoreFailed  = "auth: failed to restore session"
	LogCacheUserError = "auth: failed to cache user"

	ErrorLogin       = "login failed"
	ErrorSignup      = "signup failed"
	ErrorCurrentUser = "failed to get current user"
	ErrorNoTokens    = "login response has no tokens"
)

// ErrNotAuthenticated - в хранилище нет учетных данных.
var ErrNotAuthenticated = errors.New("not authenticated")

// Doer выполняет HTTP запрос.
type Doer interface {
	Do(ctx context.Context, req executor.Request) (*executor.Response, error)
}

// AuthAPI - операции аутентификации и администрирования пользователей.
type AuthAPI struct {
	pipeline      *pipeline.Pipeline
	direct        Doer
	store         *credentials.Store
	logoutTimeout time.Duration
}

// NewAuthAPI создает AuthAPI. direct используется для выхода, который не
// должен запускать обновление токенов.
func NewAuthAPI(p *pipeline.Pipeline, direct Doer, store *credentials.Store, logoutTimeout time.Duration) *AuthAPI {
	if logoutTimeout <= 0 {
		logoutTimeout = DefaultLogoutTimeout
	}
	return &AuthAPI{pipeline: p, direct: direct, store: store, logoutTimeout: logoutTimeout}
}

// Login выполняет вход и сохраняет выданную пару токенов.
func (a *AuthAPI) Login(ctx context.Context, creds entities.LoginCredentials) (*entities.AuthResponse, error) {
	resp, err := pipeline.Call[entities.AuthResponse](ctx, a.pipeline, executor.Request{
		Method:   http.MethodPost,
		Endpoint: authBase + "/login",
		Body:     creds,
		SkipAuth: true,
	})
	if err != nil {
		return nil, fmt.Errorf("%s: %w", ErrorLogin, err)
	}
	if resp == nil || resp.AccessToken == "" || resp.RefreshToken == "" {
		return nil, errors.New(ErrorNoTokens)
	}

	if err := a.store.Save(ctx, resp.AccessToken, resp.RefreshToken); err != nil {
		return nil, fmt.Errorf("%s: %w", ErrorLogin, err)
	}

	if resp.ID != "" {
		user := &entities.User{ID: resp.ID, Email: resp.Email, Role: entities.RoleUser}
		if err := a.store.SetStoredUser(ctx, user); err != nil {
			logger.Log(ctx).Warn(ctx, LogCacheUserError, zap.Error(err))
		}
	}

	logger.Log(ctx).Info(ctx, LogLoggedIn, zap.String("user_id", resp.ID))
	return resp, nil
}

// Signup регистрирует нового пользователя.
func (a *AuthAPI) Signup(ctx context.Context, creds entities.SignupCredentials) error {
	_, err := a.pipeline.Do(ctx, executor.Request{
		Method:   http.MethodPost,
		Endpoint: authBase + "/signup",
		Body:     creds,
		SkipAuth: true,
	})
	if err != nil {
		return fmt.Errorf("%s: %w", ErrorSignup, err)
	}
	return nil
}

// Logout отзывает refresh token на сервере и всегда очищает локальные данные.
// Ошибки удаленного вызова только логируются.
func (a *AuthAPI) Logout(ctx context.Context) error {
	log := logger.Log(ctx)

	if refreshToken, ok := a.store.RefreshToken(ctx); ok {
		remoteCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), a.logoutTimeout)
		_, err := a.direct.Do(remoteCtx, executor.Request{
			Method:   http.MethodPost,
			Endpoint: authBase + "/logout",
			Body:     map[string]string{"refresh_token": refreshToken},
		})
		cancel()
		if err != nil {
			log.Warn(ctx, LogLogoutFailed, zap.Error(err))
		}
	}

	if err := a.store.Clear(ctx); err != nil {
		return err
	}

	log.Info(ctx, LogLoggedOut)
	return nil
}

// CurrentUser загружает профиль и обновляет его кэшированную копию.
func (a *AuthAPI) CurrentUser(ctx context.Context) (*entities.User, error) {
	user, err := pipeline.Call[entities.User](ctx, a.pipeline, executor.Request{
		Method:   http.MethodGet,
		Endpoint: authBase + "/me",
	})
	if err != nil {
		return nil, fmt.Errorf("%s: %w", ErrorCurrentUser, err)
	}
	if err := a.store.SetStoredUser(ctx, user); err != nil {
		logger.Log(ctx).Warn(ctx, LogCacheUserError, zap.Error(err))
	}
	return user, nil
}

// Restore восстанавливает сессию при запуске. Если профиль не загружается,
// выполняется выход.
func (a *AuthAPI) Restore(ctx context.Context) (*entities.User, error) {
	if !a.store.IsAuthenticated(ctx) {
		return nil, ErrNotAuthenticated
	}

	user, err := a.CurrentUser(ctx)
	if err != nil {
		logger.Log(ctx).Warn(ctx, LogRestoreFailed, zap.Error(err))
		if logoutErr := a.Logout(ctx); logoutErr != nil {
			return nil, errors.Join(err, logoutErr)
		}
		return nil, err
	}
	return user, nil
}

// UpdateProfile изменяет профиль текущего пользователя.
func (a *AuthAPI) UpdateProfile(ctx context.Context, data entities.UpdateUserData) (*entities.User, error) {
	user, err := pipeline.Call[entities.User](ctx, a.pipeline, executor.Request{
		Method:   http.MethodPut,
		Endpoint: authBase + "/me",
		Body:     data,
	})
	if err != nil {
		return nil, err
	}
	if err := a.store.SetStoredUser(ctx, user); err != nil {
		logger.Log(ctx).Warn(ctx, LogCacheUserError, zap.Error(err))
	}
	return user, nil
}

// ListUsers возвращает страницу пользователей. page <= 0 не передается.
func (a *AuthAPI) ListUsers(ctx context.Context, page int) (*entities.UserListResponse, error) {
	endpoint := authBase + "/users"
	if page > 0 {
		endpoint += "?page=" + strconv.Itoa(page)
	}
	return pipeline.Call[entities.UserListResponse](ctx, a.pipeline, executor.Request{
		Method:   http.MethodGet,
		Endpoint: endpoint,
	})
}

// GetUser возвращает пользователя по id.
func (a *AuthAPI) GetUser(ctx context.Context, id string) (*entities.User, error) {
	return pipeline.Call[entities.User](ctx, a.pipeline, executor.Request{
		Method:   http.MethodGet,
		Endpoint: userPath(id),
	})
}

// UpdateUser изменяет пользователя по id.
func (a *AuthAPI) UpdateUser(ctx context.Context, id string, data entities.UpdateUserData) (*entities.User, error) {
	return pipeline.Call[entities.User](ctx, a.pipeline, executor.Request{
		Method:   http.MethodPut,
		Endpoint: userPath(id),
		Body:     data,
	})
}

// DeleteUser удаляет пользователя по id.
func (a *AuthAPI) DeleteUser(ctx context.Context, id string) error {
	_, err := a.pipeline.Do(ctx, executor.Request{
		Method:   http.MethodDelete,
		Endpoint: userPath(id),
	})
	return err
}

// IsAuthenticated проверяет только наличие токенов.
func (a *AuthAPI) IsAuthenticated(ctx context.Context) bool {
	return a.store.IsAuthenticated(ctx)
}

// StoredUser возвращает кэшированный профиль.
func (a *AuthAPI) StoredUser(ctx context.Context) (*entities.User, error) {
	return a.store.StoredUser(ctx)
}

func userPath(id string) string {
	return authBase + "/users/" + url.PathEscape(id)
}
