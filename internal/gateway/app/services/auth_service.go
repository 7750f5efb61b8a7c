// Package services содержит реализации сервисов Gateway.
package services

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/tidwall/gjson"
	"go.uber.org/zap"

	"gotodo/internal/gateway/app/dto"
	"gotodo/internal/gateway/ports/cache"
	"gotodo/internal/gateway/ports/services"
	"gotodo/internal/gateway/ports/upstream"
	"gotodo/pkg/logger"
)

// Константы для логирования.
const (
	LogServiceSignup = "auth service: signup user"
	LogServiceLogin  = "auth service: login user"
	LogServiceLogout = "auth service: logout"

	ErrorSignupFailed       = "failed to signup"
	ErrorLoginFailed        = "failed to login"
	ErrorLogoutFailed       = "failed to logout"
	ErrorEncodeFailed       = "failed to encode request body"
	ErrorInvalidateFailed   = "failed to invalidate cached profile"
	ErrorUpstreamLogoutCode = "upstream logout returned error status"
)

// Пути внешнего API.
const (
	authBase     = "/api/v1/auth"
	loginPath    = authBase + "/login"
	signupPath   = authBase + "/signup"
	logoutPath   = authBase + "/logout"
	profilePath  = authBase + "/me"
	cacheTimeout = 5 * time.Second
)

// AuthServiceImpl реализует интерфейс AuthService.
type AuthServiceImpl struct {
	upstream upstream.Client
	cache    cache.Cache
}

// NewAuthService создает сервис авторизации.
func NewAuthService(client upstream.Client, cache cache.Cache) services.AuthService {
	return &AuthServiceImpl{upstream: client, cache: cache}
}

// Login выполняет вход во внешнем API.
func (s *AuthServiceImpl) Login(ctx context.Context, req *dto.LoginRequest) (*dto.UpstreamLogin, error) {
	log := logger.Log(ctx)
	log.Info(ctx, LogServiceLogin)

	body, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", ErrorEncodeFailed, err)
	}

	resp, err := s.upstream.Do(ctx, &upstream.Request{
		Method: http.MethodPost,
		Path:   loginPath,
		Body:   body,
	})
	if err != nil {
		log.Error(ctx, ErrorLoginFailed, zap.Error(err))
		return nil, fmt.Errorf("%s: %w", ErrorLoginFailed, err)
	}

	if !resp.IsSuccess() {
		return nil, statusError(resp)
	}

	var result dto.UpstreamLogin
	if err := json.Unmarshal(resp.Body, &result); err != nil {
		return nil, fmt.Errorf("%w: %w", services.ErrMalformedResponse, err)
	}
	if result.AccessToken == "" {
		return nil, services.ErrNoAccessToken
	}

	return &result, nil
}

// Signup пересылает регистрацию во внешний API и возвращает его ответ как есть.
func (s *AuthServiceImpl) Signup(ctx context.Context, req *dto.SignupRequest) (*upstream.Response, error) {
	log := logger.Log(ctx)
	log.Info(ctx, LogServiceSignup)

	body, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", ErrorEncodeFailed, err)
	}

	resp, err := s.upstream.Do(ctx, &upstream.Request{
		Method: http.MethodPost,
		Path:   signupPath,
		Body:   body,
	})
	if err != nil {
		log.Error(ctx, ErrorSignupFailed, zap.Error(err))
		return nil, fmt.Errorf("%s: %w", ErrorSignupFailed, err)
	}

	return resp, nil
}

// Logout сообщает внешнему API о выходе и сбрасывает кэш профиля.
// Пустой токен означает, что сессии нет и звать внешний API незачем.
func (s *AuthServiceImpl) Logout(ctx context.Context, token string) error {
	log := logger.Log(ctx)
	log.Info(ctx, LogServiceLogout)

	if token == "" {
		return nil
	}

	cacheCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), cacheTimeout)
	defer cancel()
	if err := s.cache.Delete(cacheCtx, profileCacheKey(token)); err != nil {
		log.Warn(ctx, ErrorInvalidateFailed, zap.Error(err))
	}

	resp, err := s.upstream.Do(ctx, &upstream.Request{
		Method: http.MethodPost,
		Path:   logoutPath,
		Token:  token,
	})
	if err != nil {
		return fmt.Errorf("%s: %w", ErrorLogoutFailed, err)
	}
	if !resp.IsSuccess() {
		return fmt.Errorf("%s: %w", ErrorUpstreamLogoutCode, statusError(resp))
	}

	return nil
}

// statusError разбирает тело ответа с ошибкой.
func statusError(resp *upstream.Response) *services.StatusError {
	e := &services.StatusError{Status: resp.Status}
	if !gjson.ValidBytes(resp.Body) {
		return e
	}

	e.Parsed = true
	e.Message = gjson.GetBytes(resp.Body, "message").String()
	e.Detail = gjson.GetBytes(resp.Body, "error").String()
	return e
}
