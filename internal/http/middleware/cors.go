package middleware

import (
	"github.com/gofiber/fiber/v2"
)

// CORS allows any origin; the service is meant to be called from a separately hosted frontend.
func CORS() fiber.Handler {
	return func(c *fiber.Ctx) error {
		c.Set(fiber.HeaderAccessControlAllowOrigin, "*")
		c.Set(fiber.HeaderAccessControlAllowMethods, "GET, POST, OPTIONS")
		c.Set(fiber.HeaderAccessControlAllowHeaders, "Origin, Content-Type, Accept")
		c.Set(fiber.HeaderAccessControlExposeHeaders, "Content-Length, Content-Type, Location")
		c.Set(fiber.HeaderAccessControlMaxAge, "86400")

		if c.Method() == fiber.MethodOptions {
			return c.SendStatus(fiber.StatusNoContent)
		}

		return c.Next()
	}
}
