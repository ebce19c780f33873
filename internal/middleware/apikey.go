package middleware

import (
	"crypto/subtle"

	"github.com/gofiber/fiber/v2"

	"github.com/petavatar/api/pkg/response"
)

// APIKeyMiddleware guards routes with a static x-api-key header check.
type APIKeyMiddleware struct {
	apiKey string
}

func NewAPIKeyMiddleware(apiKey string) *APIKeyMiddleware {
	return &APIKeyMiddleware{apiKey: apiKey}
}

// Authenticate rejects requests without the configured key. When no key
// is configured (local development), any non-empty key is accepted.
func (m *APIKeyMiddleware) Authenticate() fiber.Handler {
	return func(c *fiber.Ctx) error {
		provided := c.Get("x-api-key")
		if provided == "" {
			return response.Unauthorized(c, "Unauthorized: Missing API key")
		}
		if m.apiKey == "" {
			return c.Next()
		}
		if subtle.ConstantTimeCompare([]byte(provided), []byte(m.apiKey)) != 1 {
			return response.Unauthorized(c, "Unauthorized: Invalid API key")
		}
		return c.Next()
	}
}

// ClientKey identifies the caller for rate limiting.
func ClientKey(c *fiber.Ctx) string {
	if key := c.Get("x-api-key"); key != "" {
		return key
	}
	return c.IP()
}
