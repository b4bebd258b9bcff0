package server

import (
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/homemade/capture2sailthru/logger"
	"go.uber.org/zap"
)

// RayIDHeader is the request header a caller may use to supply its own ray id.
const RayIDHeader = "X-Request-ID"

// New returns a Fiber app serving the handler's routes.
func New(handler *Handler, log *zap.Logger) *fiber.App {
	app := fiber.New(fiber.Config{
		DisableStartupMessage: true, // We log our own startup message
	})

	// RayID must be first to trace everything
	app.Use(RayID())
	app.Use(RequestLogger(log))

	handler.RegisterRoutes(app)
	return app
}

// RayID stores a ray id for the request in the "ray_id" local and echoes it in the response.
func RayID() fiber.Handler {
	return func(c *fiber.Ctx) error {
		rid := c.Get(RayIDHeader)
		if rid == "" {
			rid = uuid.NewString()
		}
		c.Locals("ray_id", rid)
		c.Set(RayIDHeader, rid)
		return c.Next()
	}
}

// RequestLogger logs every request with its ray id.
func RequestLogger(log *zap.Logger) fiber.Handler {
	return func(c *fiber.Ctx) error {
		l := logger.WithRayID(log, c)
		l.Info("Request started",
			zap.String("method", c.Method()),
			zap.String("path", c.Path()),
			zap.String("ip", c.IP()),
		)
		err := c.Next()
		if err != nil {
			l.Error("Request error", zap.Error(err))
		}
		return err
	}
}
