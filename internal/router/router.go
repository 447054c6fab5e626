package router

import (
	"github.com/gofiber/fiber/v2"

	"github.com/quizora/evaluation-api/internal/config"
	"github.com/quizora/evaluation-api/internal/handler"
	"github.com/quizora/evaluation-api/internal/observability"
)

// Dependencies groups router dependencies for registration.
type Dependencies struct {
	EvaluationHandler *handler.EvaluationHandler
	JWTMiddleware     fiber.Handler
	RateLimit         fiber.Handler
}

// Register wires the HTTP routes into the fiber application.
func Register(app *fiber.App, cfg config.Config, deps Dependencies) {
	api := app.Group("/api/v1", func(c *fiber.Ctx) error {
		c.Set("X-Application", cfg.AppName)
		return c.Next()
	})
	api.Get("/health", handler.HealthCheck(cfg))

	app.Get("/metrics", observability.MetricsHandler())

	jwtMiddleware := deps.JWTMiddleware
	if jwtMiddleware == nil {
		jwtMiddleware = func(c *fiber.Ctx) error { return c.Next() }
	}

	if deps.EvaluationHandler != nil {
		evaluation := api.Group("/evaluation", jwtMiddleware)
		if deps.RateLimit != nil {
			evaluation.Use(deps.RateLimit)
		}
		deps.EvaluationHandler.Register(evaluation)
	}
}
