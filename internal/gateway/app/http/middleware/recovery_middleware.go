package middleware

import (
	"fmt"
	"runtime/debug"

	"github.com/gofiber/fiber/v3"
	"go.uber.org/zap"

	"gotodo/pkg/logger"
)

// Константы для логирования.
const (
	LogServerPanic        = "server panic"
	ErrorPanicResponse    = "failed to send error response after panic"
	ErrorInternalResponse = "Internal Server Error"
)

// NewRecoveryMiddleware создает промежуточное ПО для восстановления после паники.
func NewRecoveryMiddleware() fiber.Handler {
	return func(c fiber.Ctx) (err error) {
		defer func() {
			r := recover()
			if r == nil {
				return
			}

			ctx := Context(c)
			log := logger.Log(ctx)
			log.Error(ctx, LogServerPanic,
				zap.String("error", fmt.Sprintf("%v", r)),
				zap.String("stack", string(debug.Stack())),
			)

			err = c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
				"message": ErrorInternalResponse,
			})
			if err != nil {
				log.Error(ctx, ErrorPanicResponse, zap.Error(err))
			}
		}()

		return c.Next()
	}
}
