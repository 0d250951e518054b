package middleware

import (
	"github.com/gofiber/fiber/v2"
)

const principalHeader = "X-User-ID"

// Principal extracts the authenticated user id forwarded by the identity
// layer in front of this service and exposes it as the user_id local.
// Session verification itself happens upstream; requests reaching this
// service without a principal are rejected.
func Principal() fiber.Handler {
	return func(c *fiber.Ctx) error {
		uid := c.Get(principalHeader)
		if uid == "" {
			return fiber.NewError(fiber.StatusUnauthorized, "missing principal")
		}
		c.Locals("user_id", uid)
		return c.Next()
	}
}
