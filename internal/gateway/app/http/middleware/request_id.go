// Package middleware содержит промежуточное ПО для HTTP обработчиков.
package middleware

import (
	"context"

	"github.com/gofiber/fiber/v3"

	"gotodo/pkg/logger"
)

const requestIDLocal = "requestID"

// NewRequestIDMiddleware берет идентификатор запроса из заголовка или создает новый.
func NewRequestIDMiddleware() fiber.Handler {
	return func(c fiber.Ctx) error {
		id := c.Get(logger.RequestIDHeader)
		if id == "" {
			id = logger.GenerateRequestID()
		}

		c.Locals(requestIDLocal, id)
		c.Set(logger.RequestIDHeader, id)
		return c.Next()
	}
}

// Context возвращает контекст запроса с идентификатором и логгером запроса.
func Context(c fiber.Ctx) context.Context {
	var ctx context.Context = c.Context()
	if id, ok := c.Locals(requestIDLocal).(string); ok && id != "" {
		ctx = logger.NewRequestIDContext(ctx, id)
		ctx = logger.NewContext(ctx, logger.Log(ctx).WithRequestID(ctx))
	}
	return ctx
}
