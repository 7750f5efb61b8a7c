// Package session хранит токен пользователя в httpOnly cookie.
//
// Сессия действительна, только если cookie присутствует, разбирается и
// срок ее действия не истек. Любое другое состояние считается отсутствием
// сессии, а cookie удаляется.
package session

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"time"

	"github.com/gofiber/fiber/v3"
	"github.com/jonboulle/clockwork"
	"go.uber.org/zap"

	"gotodo/pkg/logger"
)

// Параметры cookie по умолчанию.
const (
	CookieName       = "auth-session"
	DefaultDuration  = 24 * time.Hour
	DefaultLoginPath = "/login"
)

// Константы для логирования.
const (
	LogSessionCreated = "session: created"
	LogSessionInvalid = "session: invalid cookie, deleting"
	LogSessionDeleted = "session: deleted"

	ErrorEncodeSession = "failed to encode session"
)

// Ошибки сессии.
var (
	ErrNoSession  = errors.New("no valid session")
	ErrEmptyToken = errors.New("session token must not be empty")
)

// Session - содержимое cookie.
type Session struct {
	Token string `json:"token"`
	// Expires - момент истечения в миллисекундах Unix.
	Expires int64 `json:"expires"`
}

// Config - параметры менеджера сессий.
type Config struct {
	Duration  time.Duration `yaml:"duration" env:"GATEWAY_SESSION_DURATION" env-default:"24h"`
	LoginPath string        `yaml:"login_path" env:"GATEWAY_SESSION_LOGIN_PATH" env-default:"/login"`
	Secure    bool          `yaml:"secure" env:"GATEWAY_SESSION_SECURE" env-default:"true"`
}

// Manager создает и проверяет cookie сессии.
type Manager struct {
	clock     clockwork.Clock
	duration  time.Duration
	loginPath string
	secure    bool
}

// NewManager создает менеджер. clock может быть nil.
func NewManager(cfg Config, clock clockwork.Clock) *Manager {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	if cfg.Duration <= 0 {
		cfg.Duration = DefaultDuration
	}
	if cfg.LoginPath == "" {
		cfg.LoginPath = DefaultLoginPath
	}
	return &Manager{
		clock:     clock,
		duration:  cfg.Duration,
		loginPath: cfg.LoginPath,
		secure:    cfg.Secure,
	}
}

// LoginPath возвращает путь страницы входа.
func (m *Manager) LoginPath() string {
	return m.loginPath
}

// Create записывает cookie со сроком действия now + duration.
func (m *Manager) Create(c fiber.Ctx, token string) error {
	if token == "" {
		return ErrEmptyToken
	}

	expires := m.clock.Now().Add(m.duration)
	raw, err := json.Marshal(Session{Token: token, Expires: expires.UnixMilli()})
	if err != nil {
		return fmt.Errorf("%s: %w", ErrorEncodeSession, err)
	}

	c.Cookie(&fiber.Cookie{
		Name:     CookieName,
		Value:    url.QueryEscape(string(raw)),
		Path:     "/",
		Expires:  expires,
		HTTPOnly: true,
		Secure:   m.secure,
		SameSite: fiber.CookieSameSiteLaxMode,
	})

	logger.Log(c.Context()).Debug(c.Context(), LogSessionCreated, zap.Time("expires", expires))
	return nil
}

// Get возвращает токен действительной сессии. Недействительная cookie удаляется.
func (m *Manager) Get(c fiber.Ctx) (string, bool) {
	raw := c.Cookies(CookieName)
	if raw == "" {
		return "", false
	}

	session, err := m.Parse(raw)
	if err != nil {
		logger.Log(c.Context()).Debug(c.Context(), LogSessionInvalid, zap.Error(err))
		m.Delete(c)
		return "", false
	}

	return session.Token, true
}

// Verify работает как Get, но при отсутствии сессии перенаправляет на страницу
// входа и возвращает ErrNoSession. Обработчик должен вернуть управление.
func (m *Manager) Verify(c fiber.Ctx) (string, error) {
	if token, ok := m.Get(c); ok {
		return token, nil
	}

	if err := c.Redirect().Status(fiber.StatusFound).To(m.loginPath); err != nil {
		return "", errors.Join(ErrNoSession, err)
	}
	return "", ErrNoSession
}

// Delete удаляет cookie. Повторный вызов безопасен.
func (m *Manager) Delete(c fiber.Ctx) {
	c.Cookie(&fiber.Cookie{
		Name:     CookieName,
		Value:    "",
		Path:     "/",
		Expires:  m.clock.Now().Add(-time.Hour),
		HTTPOnly: true,
		Secure:   m.secure,
		SameSite: fiber.CookieSameSiteLaxMode,
	})
	logger.Log(c.Context()).Debug(c.Context(), LogSessionDeleted)
}

// Parse разбирает значение cookie и проверяет срок действия.
func (m *Manager) Parse(raw string) (*Session, error) {
	decoded, err := url.QueryUnescape(raw)
	if err != nil {
		return nil, err
	}

	var session Session
	if err := json.Unmarshal([]byte(decoded), &session); err != nil {
		return nil, err
	}
	if session.Token == "" || session.Expires == 0 {
		return nil, ErrNoSession
	}
	if m.clock.Now().UnixMilli() >= session.Expires {
		return nil, fmt.Errorf("%w: expired", ErrNoSession)
	}

	return &session, nil
}
