package util

import (
	"strings"

	"github.com/gofiber/fiber/v2"
)

// BaseURLResolver decides which scheme+host short links are composed with.
type BaseURLResolver struct {
	fallback         string
	trustRequestHost bool
}

// NewBaseURLResolver returns a resolver that prefers the request host when trustRequestHost is set.
func NewBaseURLResolver(fallback string, trustRequestHost bool) *BaseURLResolver {
	return &BaseURLResolver{
		fallback:         strings.TrimRight(fallback, "/"),
		trustRequestHost: trustRequestHost,
	}
}

// Resolve returns the base URL for c, without trailing slash.
func (r *BaseURLResolver) Resolve(c *fiber.Ctx) string {
	if r.trustRequestHost && c.Hostname() != "" {
		return c.BaseURL()
	}
	return r.fallback
}
