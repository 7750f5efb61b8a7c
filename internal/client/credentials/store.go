// Package credentials хранит пару токенов и кэшированный профиль пользователя.
//
// Store - единственный владелец ключей access_token, refresh_token и user.
// Запись пары токенов атомарна для читателей этого Store: Read видит либо
// старую пару, либо новую, но не их смесь.
package credentials

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"

	"go.uber.org/zap"

	"gotodo/internal/client/domain/entities"
	"gotodo/internal/client/ports/storage"
	"gotodo/pkg/logger"
)

// Ключи хранилища.
const (
	KeyAccessToken  = "access_token"
	KeyRefreshToken = "refresh_token" // #nosec G101 - key name, not a credential
	KeyUser         = "user"
)

// Константы для логирования.
const (
	LogTokensSaved   = "credentials saved"
	LogTokensCleared = "credentials cleared"
	LogUserCorrupted = "cached user is corrupted, dropping it"
	LogUserDropError = "failed to drop corrupted cached user"

	ErrorSaveFailed  = "failed to save credentials"
	ErrorClearFailed = "failed to clear credentials"
	ErrorReadFailed  = "failed to read credentials"
	ErrorUserFailed  = "failed to store cached user"
)

// Ошибки Store.
var (
	ErrNoCredentials = errors.New("no credentials stored")
	ErrNoStoredUser  = errors.New("no cached user")
	ErrEmptyToken    = errors.New("access and refresh tokens must both be non-empty")
)

// Credential - пара токенов, выданная внешним API.
type Credential struct {
	AccessToken  string
	RefreshToken string
}

// Store реализует хранилище учетных данных поверх KV.
type Store struct {
	kv storage.KV
	mu sync.RWMutex
}

// NewStore создает Store поверх переданного KV.
func NewStore(kv storage.KV) *Store {
	return &Store{kv: kv}
}

// Save перезаписывает обе строки токенов. При частичном сбое записи
// пара удаляется целиком, чтобы не оставить половину.
func (s *Store) Save(ctx context.Context, accessToken, refreshToken string) error {
	if accessToken == "" || refreshToken == "" {
		return ErrEmptyToken
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	log := logger.Log(ctx)

	if err := s.kv.Set(ctx, KeyAccessToken, accessToken); err != nil {
		return fmt.Errorf("%s: %w", ErrorSaveFailed, err)
	}
	if err := s.kv.Set(ctx, KeyRefreshToken, refreshToken); err != nil {
		if delErr := s.kv.Delete(ctx, KeyAccessToken, KeyRefreshToken); delErr != nil {
			log.Error(ctx, ErrorClearFailed, zap.Error(delErr))
		}
		return fmt.Errorf("%s: %w", ErrorSaveFailed, err)
	}

	log.Debug(ctx, LogTokensSaved)
	return nil
}

// Read возвращает сохраненную пару или ErrNoCredentials.
func (s *Store) Read(ctx context.Context) (*Credential, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	access, err := s.get(ctx, KeyAccessToken)
	if err != nil {
		return nil, err
	}
	refresh, err := s.get(ctx, KeyRefreshToken)
	if err != nil {
		return nil, err
	}

	return &Credential{AccessToken: access, RefreshToken: refresh}, nil
}

// AccessToken возвращает access token, если он есть.
func (s *Store) AccessToken(ctx context.Context) (string, bool) {
	return s.lookup(ctx, KeyAccessToken)
}

// RefreshToken возвращает refresh token, если он есть.
func (s *Store) RefreshToken(ctx context.Context) (string, bool) {
	return s.lookup(ctx, KeyRefreshToken)
}

// IsAuthenticated проверяет только наличие access token. Срок действия
// не проверяется: истекший токен обнаруживается по 401.
func (s *Store) IsAuthenticated(ctx context.Context) bool {
	_, ok := s.AccessToken(ctx)
	return ok
}

// Clear удаляет оба токена и кэшированный профиль.
func (s *Store) Clear(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.kv.Delete(ctx, KeyAccessToken, KeyRefreshToken, KeyUser); err != nil {
		return fmt.Errorf("%s: %w", ErrorClearFailed, err)
	}

	logger.Log(ctx).Debug(ctx, LogTokensCleared)
	return nil
}

// StoredUser возвращает кэшированный профиль. Битое значение удаляется.
func (s *Store) StoredUser(ctx context.Context) (*entities.User, error) {
	s.mu.RLock()
	raw, err := s.kv.Get(ctx, KeyUser)
	s.mu.RUnlock()

	if errors.Is(err, storage.ErrNotFound) {
		return nil, ErrNoStoredUser
	}
	if err != nil {
		return nil, fmt.Errorf("%s: %w", ErrorReadFailed, err)
	}

	var user entities.User
	if err := json.Unmarshal([]byte(raw), &user); err != nil {
		logger.Log(ctx).Warn(ctx, LogUserCorrupted, zap.Error(err))
		if clearErr := s.ClearStoredUser(ctx); clearErr != nil {
			logger.Log(ctx).Warn(ctx, LogUserDropError, zap.Error(clearErr))
		}
		return nil, ErrNoStoredUser
	}
	return &user, nil
}

// SetStoredUser кэширует профиль пользователя.
func (s *Store) SetStoredUser(ctx context.Context, user *entities.User) error {
	payload, err := json.Marshal(user)
	if err != nil {
		return fmt.Errorf("%s: %w", ErrorUserFailed, err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.kv.Set(ctx, KeyUser, string(payload)); err != nil {
		return fmt.Errorf("%s: %w", ErrorUserFailed, err)
	}
	return nil
}

// ClearStoredUser удаляет кэшированный профиль.
func (s *Store) ClearStoredUser(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.kv.Delete(ctx, KeyUser); err != nil {
		return fmt.Errorf("%s: %w", ErrorClearFailed, err)
	}
	return nil
}

func (s *Store) lookup(ctx context.Context, key string) (string, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	value, err := s.get(ctx, key)
	if err != nil {
		return "", false
	}
	return value, true
}

// get читает ключ без блокировки; вызывающий держит mu.
func (s *Store) get(ctx context.Context, key string) (string, error) {
	value, err := s.kv.Get(ctx, key)
	if errors.Is(err, storage.ErrNotFound) || (err == nil && value == "") {
		return "", ErrNoCredentials
	}
	if err != nil {
		logger.Log(ctx).Error(ctx, ErrorReadFailed, zap.String("key", key), zap.Error(err))
		return "", fmt.Errorf("%s: %w", ErrorReadFailed, err)
	}
	return value, nil
}
