package httpapi

import (
	"log/slog"

	"github.com/gofiber/fiber/v2"

	"github.com/nezasa/credstore/internal/domain"
	"github.com/nezasa/credstore/internal/infra/config"
)

const principalKey = "principal"

// APIKeyAuth authenticates requests by the X-API-Key header against the
// configured key table and stores the resolved principal in the request
// locals. Unknown or missing keys fail closed with 401.
func APIKeyAuth(keys map[string]config.APIKey, logger *slog.Logger) fiber.Handler {
	return func(c *fiber.Ctx) error {
		key := c.Get("X-API-Key")
		if key == "" {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"error": "missing X-API-Key header",
			})
		}
		entry, ok := keys[key]
		if !ok {
			logger.WarnContext(c.Context(), "rejected request with unknown api key",
				"path", c.Path(),
			)
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"error": "invalid API key",
			})
		}
		c.Locals(principalKey, domain.Principal{
			Role:  domain.Role(entry.Role),
			Actor: entry.Actor,
		})
		return c.Next()
	}
}

func principalFrom(c *fiber.Ctx) domain.Principal {
	p, _ := c.Locals(principalKey).(domain.Principal)
	return p
}
