package middleware

import (
	"log/slog"
	"time"

	"github.com/gofiber/fiber/v2"
)

// Audit logs one structured line per request. Money moves through most of
// these endpoints, so the line carries enough to reconstruct who did what:
// principal, request id, status, latency. Health probes are skipped to keep
// the log signal-bearing.
func Audit(logger *slog.Logger) fiber.Handler {
	return func(c *fiber.Ctx) error {
		if c.Path() == "/healthz" {
			return c.Next()
		}

		start := time.Now()
		err := c.Next()

		status := c.Response().StatusCode()
		if err != nil {
			if fe, ok := err.(*fiber.Error); ok {
				status = fe.Code
			}
		}

		attrs := []any{
			slog.String("method", c.Method()),
			slog.String("path", c.Path()),
			slog.Int("status", status),
			slog.Int64("latency_ms", time.Since(start).Milliseconds()),
		}
		if id, ok := c.Locals(requestIDKey).(string); ok && id != "" {
			attrs = append(attrs, slog.String("request_id", id))
		}
		if userID, ok := c.Locals("user_id").(string); ok && userID != "" {
			attrs = append(attrs, slog.String("user_id", userID))
		}

		switch {
		case err != nil:
			logger.Error("request", append(attrs, slog.Any("error", err))...)
		case status >= 500:
			logger.Error("request", attrs...)
		default:
			logger.Info("request", attrs...)
		}
		return err
	}
}
