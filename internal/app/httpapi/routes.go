package httpapi

import (
	"log/slog"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/nezasa/credstore/internal/infra/config"
)

func RegisterRoutes(app *fiber.App, h *Handler, keys map[string]config.APIKey, logger *slog.Logger) {
	app.Get("/metrics", adaptor.HTTPHandler(promhttp.Handler()))

	// Health check
	app.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"status": "ok"})
	})

	v1 := app.Group("/api/v1", APIKeyAuth(keys, logger))
	v1.Post("/credentials", h.CreateCredential)
	v1.Get("/credentials", h.ListCredentials)
	v1.Get("/credentials/:id", h.GetCredential)
	v1.Put("/credentials/:id", h.UpdateCredential)
	v1.Post("/credentials/:id/rotate", h.RotateCredential)
	v1.Delete("/credentials/:id", h.DeleteCredential)
	v1.Get("/audit-logs", h.ListAuditLogs)
}
