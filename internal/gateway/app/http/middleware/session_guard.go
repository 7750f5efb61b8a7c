package middleware

import (
	"regexp"

	"github.com/gofiber/fiber/v3"
	"go.uber.org/zap"

	"gotodo/internal/gateway/session"
	"gotodo/pkg/logger"
)

// Константы для логирования.
const (
	LogGuardToLogin = "route guard: no session, redirecting to login"
	LogGuardToHome  = "route guard: session present, redirecting home"

	HomePath = "/"
)

// authPage соответствует страницам входа и регистрации.
var authPage = regexp.MustCompile(`^/(login|signup)$`)

// IsAuthPage сообщает, является ли путь страницей входа или регистрации.
func IsAuthPage(path string) bool {
	return authPage.MatchString(path)
}

// NewSessionGuard защищает страницы: без сессии доступны только страницы входа,
// с сессией они перенаправляют на главную.
func NewSessionGuard(sessions *session.Manager) fiber.Handler {
	return func(c fiber.Ctx) error {
		ctx := Context(c)
		log := logger.Log(ctx).With(zap.String("path", c.Path()))

		_, ok := sessions.Get(c)
		authRoute := IsAuthPage(c.Path())

		switch {
		case !ok && !authRoute:
			log.Debug(ctx, LogGuardToLogin)
			return c.Redirect().Status(fiber.StatusFound).To(sessions.LoginPath())
		case ok && authRoute:
			log.Debug(ctx, LogGuardToHome)
			return c.Redirect().Status(fiber.StatusFound).To(HomePath)
		default:
			return c.Next()
		}
	}
}
