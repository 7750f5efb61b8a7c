// Package pages отдает описания страниц приложения. Разметка страниц
// строится клиентом, сервер только решает, пускать ли пользователя.
package pages

import (
	"errors"

	"github.com/gofiber/fiber/v3"

	"gotodo/internal/gateway/app/dto"
	"gotodo/internal/gateway/session"
)

// Страницы приложения.
const (
	PageHome      = "home"
	PageLogin     = "login"
	PageSignup    = "signup"
	PageDashboard = "dashboard"
	PageProfile   = "profile"
	PageUsers     = "admin-users"
)

// Handler отдает описания страниц.
type Handler struct {
	sessions *session.Manager
}

// NewHandler создает обработчик страниц.
func NewHandler(sessions *session.Manager) *Handler {
	return &Handler{sessions: sessions}
}

// Public отдает страницу, доступную без сессии.
func (h *Handler) Public(page string) fiber.Handler {
	return func(c fiber.Ctx) error {
		_, ok := h.sessions.Get(c)
		return c.JSON(dto.PageResponse{Page: page, Authenticated: ok})
	}
}

// Protected отдает страницу только при действительной сессии,
// иначе перенаправляет на вход.
func (h *Handler) Protected(page string) fiber.Handler {
	return func(c fiber.Ctx) error {
		if _, err := h.sessions.Verify(c); err != nil {
			if errors.Is(err, session.ErrNoSession) {
				return nil
			}
			return err
		}
		return c.JSON(dto.PageResponse{Page: page, Authenticated: true})
	}
}
