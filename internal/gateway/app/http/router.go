// Package http содержит компоненты для HTTP сервера.
package http

import (
	"github.com/gofiber/fiber/v3"

	"gotodo/internal/gateway/app/http/auth"
	"gotodo/internal/gateway/app/http/middleware"
	"gotodo/internal/gateway/app/http/pages"
	"gotodo/internal/gateway/app/http/proxy"
	"gotodo/internal/gateway/ports/services"
	"gotodo/internal/gateway/session"
)

// ErrorRouteNotFound - ответ для несуществующих маршрутов.
const ErrorRouteNotFound = "Route not found"

// Services - зависимости маршрутов.
type Services struct {
	Auth     services.AuthService
	Proxy    services.ProxyService
	Sessions *session.Manager
}

// SetupRouter настраивает маршрутизацию для HTTP сервера.
func SetupRouter(app *fiber.App, deps Services) {
	authHandler := auth.NewHandler(deps.Auth, deps.Sessions)
	proxyHandler := proxy.NewHandler(deps.Proxy, deps.Sessions)
	pageHandler := pages.NewHandler(deps.Sessions)

	// Middleware для всех запросов.
	app.Use(middleware.NewRequestIDMiddleware())
	app.Use(middleware.NewLoggerMiddleware())
	app.Use(middleware.NewRecoveryMiddleware())

	// API версии 1.
	apiV1 := app.Group("/api/v1")

	authRoutes := apiV1.Group("/auth")
	authRoutes.Post("/login", authHandler.Login)
	authRoutes.Post("/sign-up", authHandler.Signup)
	authRoutes.Post("/logout", authHandler.Logout)
	authRoutes.Get("/session", authHandler.Session)

	proxyRoutes := apiV1.Group("/proxy")
	proxyRoutes.Get("/*", proxyHandler.Forward)
	proxyRoutes.Post("/*", proxyHandler.Forward)
	proxyRoutes.Put("/*", proxyHandler.Forward)
	proxyRoutes.Delete("/*", proxyHandler.Forward)

	// Страницы.
	guard := middleware.NewSessionGuard(deps.Sessions)
	app.Get("/", guard, pageHandler.Protected(pages.PageHome))
	app.Get("/login", guard, pageHandler.Public(pages.PageLogin))
	app.Get("/signup", guard, pageHandler.Public(pages.PageSignup))
	app.Get("/dashboard", guard, pageHandler.Protected(pages.PageDashboard))
	app.Get("/profile", guard, pageHandler.Protected(pages.PageProfile))
	app.Get("/admin/users", guard, pageHandler.Protected(pages.PageUsers))

	// Обработчик для несуществующих маршрутов.
	app.Use(func(c fiber.Ctx) error {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"message": ErrorRouteNotFound,
		})
	})
}
