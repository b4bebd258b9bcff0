package server

import (
	"context"

	"github.com/gofiber/fiber/v2"
	"github.com/homemade/capture2sailthru/logger"
	"github.com/homemade/capture2sailthru/sync"
	"go.uber.org/zap"
)

// Syncer syncs the records named by a webhook.
type Syncer interface {
	Sync(ctx context.Context, payload []sync.WebhookEntry) sync.Outcome
}

// Handler handles the webhook HTTP requests.
type Handler struct {
	syncer Syncer
	logger *zap.Logger
}

// NewHandler creates a new HTTP handler.
func NewHandler(syncer Syncer, logger *zap.Logger) *Handler {
	return &Handler{syncer: syncer, logger: logger}
}

// RegisterRoutes registers the webhook routes.
func (h *Handler) RegisterRoutes(app fiber.Router) {
	app.Get("/", h.HandleRoot)
	app.Post("/sync", h.HandleSync)
}

// HandleRoot responds to health checks.
func (h *Handler) HandleRoot(c *fiber.Ctx) error {
	return c.SendString("ok")
}

// HandleSync syncs the records named in the webhook payload.
func (h *Handler) HandleSync(c *fiber.Ctx) error {
	l := logger.WithRayID(h.logger, c)

	payload, err := sync.ParseWebhookPayload(c.Body())
	if err != nil {
		// treated as an empty payload, redelivering it would not help
		l.Warn("invalid webhook payload", zap.Error(err), zap.ByteString("body", c.Body()))
	}

	outcome := h.syncer.Sync(c.UserContext(), payload)
	l.Info("sync finished", zap.String("outcome", outcome.String()))
	return c.Status(fiber.StatusOK).SendString(outcome.String())
}
