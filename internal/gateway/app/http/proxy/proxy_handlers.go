// Package proxy содержит обработчик, пересылающий запросы во внешний API
// с токеном из cookie сессии.
package proxy

import (
	"github.com/gofiber/fiber/v3"
	"github.com/tidwall/gjson"
	"go.uber.org/zap"

	"gotodo/internal/gateway/app/dto"
	"gotodo/internal/gateway/app/http/auth"
	"gotodo/internal/gateway/app/http/middleware"
	"gotodo/internal/gateway/ports/services"
	"gotodo/internal/gateway/ports/upstream"
	"gotodo/internal/gateway/session"
	"gotodo/pkg/logger"
)

// Константы для логирования и ответов.
const (
	LogProxyFailed = "proxy handler: upstream request failed"

	MsgUnauthorized  = "Unauthorized"
	MsgNotConfigured = "API base URL is not configured"
	MsgInvalidBody   = "Invalid request body"

	upstreamPrefix = "/api/"
)

// Handler пересылает запросы во внешний API.
type Handler struct {
	proxyService services.ProxyService
	sessions     *session.Manager
}

// NewHandler создает обработчик прокси.
func NewHandler(proxyService services.ProxyService, sessions *session.Manager) *Handler {
	return &Handler{proxyService: proxyService, sessions: sessions}
}

// Forward пересылает запрос на {base}/api/{path} и отдает ответ без изменений.
func (h *Handler) Forward(c fiber.Ctx) error {
	ctx := middleware.Context(c)

	token, ok := h.sessions.Get(c)
	if !ok {
		return c.Status(fiber.StatusUnauthorized).JSON(dto.MessageResponse{Message: MsgUnauthorized})
	}

	if !h.proxyService.Configured() {
		return c.Status(fiber.StatusInternalServerError).JSON(dto.MessageResponse{Message: MsgNotConfigured})
	}

	req := &upstream.Request{
		Method:   c.Method(),
		Path:     upstreamPrefix + c.Params("*"),
		RawQuery: string(c.Request().URI().QueryString()),
		Token:    token,
	}

	if c.Method() != fiber.MethodGet {
		body := c.Body()
		if !gjson.ValidBytes(body) {
			return c.Status(fiber.StatusBadRequest).JSON(dto.MessageResponse{Message: MsgInvalidBody})
		}
		req.Body = append([]byte(nil), body...)
	}

	resp, err := h.proxyService.Forward(ctx, req)
	if err != nil {
		logger.Log(ctx).Error(ctx, LogProxyFailed, zap.String("path", req.Path), zap.Error(err))
		return c.Status(fiber.StatusInternalServerError).JSON(dto.MessageResponse{Message: err.Error()})
	}

	return auth.Mirror(c, resp)
}
