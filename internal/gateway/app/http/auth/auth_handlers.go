// Package auth содержит HTTP обработчики входа, регистрации и выхода.
package auth

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/asaskevich/govalidator"
	"github.com/gofiber/fiber/v3"
	"go.uber.org/zap"

	"gotodo/internal/gateway/app/dto"
	"gotodo/internal/gateway/app/http/middleware"
	"gotodo/internal/gateway/ports/services"
	"gotodo/internal/gateway/ports/upstream"
	"gotodo/internal/gateway/resilience"
	"gotodo/internal/gateway/session"
	"gotodo/pkg/logger"
)

// Константы для логирования.
const (
	LogHandlerLogin   = "auth handler: login"
	LogHandlerSignup  = "auth handler: signup"
	LogHandlerLogout  = "auth handler: logout"
	LogLogoutUpstream = "auth handler: upstream logout failed, session deleted anyway"
)

// Сообщения ответов.
const (
	MsgInvalidBody        = "Invalid request body: Expected JSON"
	MsgInvalidInput       = "Invalid input data"
	MsgConnectFailed      = "Failed to connect to authentication service"
	MsgInvalidCredentials = "Invalid credentials"
	MsgAuthFailed         = "Authentication failed"
	MsgInvalidResponse    = "Invalid response from authentication service"
	MsgMalformedResponse  = "Malformed response from authentication service"
	MsgNoToken            = "No authentication token provided by server"
	MsgSessionFailed      = "Failed to create session"
	MsgUnexpected         = "Unexpected error occurred"
	MsgLoggedOut          = "Logged out"
	MsgEmailInvalid       = "Invalid email address"
	MsgPasswordRequired   = "Password is required"
	msgUnknownError       = "Unknown error"
)

// DefaultLogoutTimeout ограничивает ожидание ответа внешнего API при выходе.
const DefaultLogoutTimeout = 5 * time.Second

// Handler содержит HTTP обработчики авторизации.
type Handler struct {
	authService   services.AuthService
	sessions      *session.Manager
	logoutTimeout time.Duration
}

// NewHandler создает обработчик авторизации.
func NewHandler(authService services.AuthService, sessions *session.Manager) *Handler {
	return &Handler{
		authService:   authService,
		sessions:      sessions,
		logoutTimeout: DefaultLogoutTimeout,
	}
}

// Login проверяет учетные данные во внешнем API и создает сессию.
func (h *Handler) Login(c fiber.Ctx) error {
	ctx := middleware.Context(c)
	log := logger.Log(ctx)
	log.Info(ctx, LogHandlerLogin)

	var req dto.LoginRequest
	if err := c.Bind().JSON(&req); err != nil {
		return reply(c, fiber.StatusBadRequest, MsgInvalidBody, err.Error())
	}
	if problems := validateCredentials(req.Email, req.Password); problems != "" {
		return reply(c, fiber.StatusBadRequest, MsgInvalidInput, problems)
	}

	result, err := h.authService.Login(ctx, &req)
	if err != nil {
		log.Warn(ctx, MsgAuthFailed, zap.Error(err))
		return loginError(c, err)
	}

	if err := h.sessions.Create(c, result.AccessToken); err != nil {
		log.Error(ctx, MsgSessionFailed, zap.Error(err))
		return reply(c, fiber.StatusInternalServerError, MsgSessionFailed, MsgSessionFailed)
	}

	return c.Status(fiber.StatusOK).JSON(dto.LoginResponse{ID: result.ID, Email: result.Email})
}

// Signup проверяет данные и пересылает регистрацию во внешний API.
func (h *Handler) Signup(c fiber.Ctx) error {
	ctx := middleware.Context(c)
	log := logger.Log(ctx)
	log.Info(ctx, LogHandlerSignup)

	var req dto.SignupRequest
	if err := c.Bind().JSON(&req); err != nil {
		return reply(c, fiber.StatusBadRequest, MsgInvalidBody, err.Error())
	}
	if problems := validateCredentials(req.Email, req.Password); problems != "" {
		return reply(c, fiber.StatusBadRequest, MsgInvalidInput, problems)
	}

	resp, err := h.authService.Signup(ctx, &req)
	if err != nil {
		log.Warn(ctx, MsgConnectFailed, zap.Error(err))
		if isUnavailable(err) {
			return reply(c, fiber.StatusServiceUnavailable, MsgConnectFailed, err.Error())
		}
		return reply(c, fiber.StatusInternalServerError, MsgUnexpected, err.Error())
	}

	return Mirror(c, resp)
}

// Logout сообщает внешнему API о выходе и всегда удаляет сессию.
func (h *Handler) Logout(c fiber.Ctx) error {
	ctx := middleware.Context(c)
	log := logger.Log(ctx)
	log.Info(ctx, LogHandlerLogout)

	token, _ := h.sessions.Get(c)

	logoutCtx, cancel := context.WithTimeout(ctx, h.logoutTimeout)
	defer cancel()
	if err := h.authService.Logout(logoutCtx, token); err != nil {
		log.Warn(ctx, LogLogoutUpstream, zap.Error(err))
	}

	h.sessions.Delete(c)
	return c.Status(fiber.StatusOK).JSON(dto.MessageResponse{Message: MsgLoggedOut})
}

// Session сообщает, есть ли у запроса действительная сессия. Никогда не перенаправляет.
func (h *Handler) Session(c fiber.Ctx) error {
	_, ok := h.sessions.Get(c)
	return c.Status(fiber.StatusOK).JSON(dto.SessionResponse{Authenticated: ok})
}

func validateCredentials(email, password string) string {
	var problems []string
	if !govalidator.IsEmail(email) {
		problems = append(problems, MsgEmailInvalid)
	}
	if password == "" {
		problems = append(problems, MsgPasswordRequired)
	}
	return strings.Join(problems, ", ")
}

func loginError(c fiber.Ctx, err error) error {
	var statusErr *services.StatusError
	switch {
	case isUnavailable(err):
		return reply(c, fiber.StatusServiceUnavailable, MsgConnectFailed, err.Error())
	case errors.As(err, &statusErr):
		return statusReply(c, statusErr)
	case errors.Is(err, services.ErrMalformedResponse):
		return reply(c, fiber.StatusInternalServerError, MsgMalformedResponse, err.Error())
	case errors.Is(err, services.ErrNoAccessToken):
		return reply(c, fiber.StatusInternalServerError, MsgNoToken, MsgNoToken)
	default:
		return reply(c, fiber.StatusInternalServerError, err.Error(), MsgUnexpected)
	}
}

func statusReply(c fiber.Ctx, e *services.StatusError) error {
	if !e.Parsed {
		return reply(c, e.Status, MsgInvalidResponse, msgUnknownError)
	}

	if e.Status == fiber.StatusUnauthorized {
		return reply(c, e.Status, orDefault(e.Message, MsgAuthFailed), orDefault(e.Message, MsgInvalidCredentials))
	}
	return reply(c, e.Status, orDefault(e.Message, MsgAuthFailed), e.Detail)
}

func isUnavailable(err error) bool {
	return errors.Is(err, upstream.ErrUnavailable) || errors.Is(err, resilience.ErrCircuitOpen)
}

func orDefault(value, fallback string) string {
	if value == "" {
		return fallback
	}
	return value
}

func reply(c fiber.Ctx, status int, message, detail string) error {
	return c.Status(status).JSON(dto.ErrorResponse{Message: message, Error: detail})
}

// Mirror отдает ответ внешнего API клиенту без изменений.
func Mirror(c fiber.Ctx, resp *upstream.Response) error {
	if resp.ContentType != "" {
		c.Set(fiber.HeaderContentType, resp.ContentType)
	}
	return c.Status(resp.Status).Send(resp.Body)
}
