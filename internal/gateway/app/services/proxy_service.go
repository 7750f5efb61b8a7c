package services

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/tidwall/gjson"
	"go.uber.org/zap"

	"gotodo/internal/gateway/ports/cache"
	"gotodo/internal/gateway/ports/services"
	"gotodo/internal/gateway/ports/upstream"
	"gotodo/pkg/logger"
)

// Константы для логирования и кэширования.
const (
	LogProxyForward     = "proxy service: forward request"
	LogProfileCacheHit  = "user profile found in cache"
	LogProfileCached    = "user profile cached"
	LogProfileStale     = "user profile changed, cache invalidated"
	ErrorProxyFailed    = "failed to forward request"
	ErrorProfileCaching = "failed to cache user profile"
	ErrorProfileInvalid = "failed to invalidate cached user profile"

	ProfileCacheKeyPrefix = "profile:"
	ProfileStaleKeyPrefix = "profile-stale:"
	ProfileCacheTTL       = 15 * time.Minute

	usersPrefix = authBase + "/users/"

	jsonContentType = "application/json"
)

// ProxyServiceImpl пересылает запросы во внешний API.
// Ответы GET /api/v1/auth/me кэшируются по хэшу токена.
//
// Успешное изменение профиля удаляет запись вызывающего и помечает
// пользователя устаревшим на ProfileCacheTTL. Пока метка жива, профиль этого
// пользователя не читается из кэша и не пишется в него, поэтому записи,
// сделанные до изменения, к ее истечению уже истекают сами.
type ProxyServiceImpl struct {
	upstream   upstream.Client
	cache      cache.Cache
	configured bool
}

// NewProxyService создает сервис проксирования.
func NewProxyService(client upstream.Client, cache cache.Cache, configured bool) services.ProxyService {
	return &ProxyServiceImpl{upstream: client, cache: cache, configured: configured}
}

// Configured сообщает, задан ли адрес внешнего API.
func (s *ProxyServiceImpl) Configured() bool {
	return s.configured
}

// Forward выполняет запрос во внешний API.
func (s *ProxyServiceImpl) Forward(ctx context.Context, req *upstream.Request) (*upstream.Response, error) {
	log := logger.Log(ctx).With(zap.String("method", req.Method), zap.String("path", req.Path))
	log.Debug(ctx, LogProxyForward)

	cacheable := isProfileRequest(req)
	if cacheable {
		if cached, err := s.cache.Get(ctx, profileCacheKey(req.Token)); err == nil && cached != "" && !s.isStale(ctx, cached) {
			log.Debug(ctx, LogProfileCacheHit)
			return &upstream.Response{Status: http.StatusOK, Body: []byte(cached), ContentType: jsonContentType}, nil
		}
	}

	resp, err := s.upstream.Do(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", ErrorProxyFailed, err)
	}

	switch {
	case cacheable && resp.Status == http.StatusOK && len(resp.Body) > 0:
		s.storeProfile(ctx, log, req.Token, resp.Body)
	case req.Method != http.MethodGet && resp.IsSuccess():
		s.invalidateProfile(ctx, log, req, resp)
	}

	return resp, nil
}

func (s *ProxyServiceImpl) storeProfile(ctx context.Context, log *logger.Logger, token string, body []byte) {
	cacheCtx, cancel := context.WithTimeout(ctx, cacheTimeout)
	defer cancel()

	if s.isStale(cacheCtx, string(body)) {
		return
	}
	if err := s.cache.Set(cacheCtx, profileCacheKey(token), string(body), ProfileCacheTTL); err != nil {
		log.Warn(ctx, ErrorProfileCaching, zap.Error(err))
		return
	}
	log.Debug(ctx, LogProfileCached)
}

// invalidateProfile сбрасывает кэш после изменения /auth/me или /auth/users/{id}.
func (s *ProxyServiceImpl) invalidateProfile(ctx context.Context, log *logger.Logger, req *upstream.Request, resp *upstream.Response) {
	var userID string
	ownProfile := underPath(req.Path, profilePath)
	switch {
	case ownProfile:
		userID = gjson.GetBytes(resp.Body, "id").String()
	case strings.HasPrefix(req.Path, usersPrefix):
		userID, _, _ = strings.Cut(strings.TrimPrefix(req.Path, usersPrefix), "/")
	default:
		return
	}

	cacheCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), cacheTimeout)
	defer cancel()

	if ownProfile && req.Token != "" {
		if err := s.cache.Delete(cacheCtx, profileCacheKey(req.Token)); err != nil {
			log.Warn(ctx, ErrorProfileInvalid, zap.Error(err))
		}
	}
	if userID != "" {
		if err := s.cache.Set(cacheCtx, ProfileStaleKeyPrefix+userID, "1", ProfileCacheTTL); err != nil {
			log.Warn(ctx, ErrorProfileInvalid, zap.String("user_id", userID), zap.Error(err))
			return
		}
	}
	log.Debug(ctx, LogProfileStale, zap.String("user_id", userID))
}

// isStale сообщает, что профиль в body менялся за последние ProfileCacheTTL.
func (s *ProxyServiceImpl) isStale(ctx context.Context, body string) bool {
	userID := gjson.Get(body, "id").String()
	if userID == "" {
		return false
	}
	marker, err := s.cache.Get(ctx, ProfileStaleKeyPrefix+userID)
	return err != nil || marker != ""
}

func isProfileRequest(req *upstream.Request) bool {
	return req.Method == http.MethodGet && req.Path == profilePath && req.RawQuery == "" && req.Token != ""
}

func underPath(path, base string) bool {
	return path == base || strings.HasPrefix(path, base+"/")
}

// profileCacheKey строит ключ кэша без хранения токена в открытом виде.
func profileCacheKey(token string) string {
	return ProfileCacheKeyPrefix + hashToken(token)
}

func hashToken(token string) string {
	sum := sha256.Sum256([]byte(token))
	return hex.EncodeToString(sum[:])
}
