package middleware

import (
	"log/slog"
	"time"

	"github.com/gofiber/fiber/v2"
)

// Logger writes one access log line per request. Frame uploads arrive several
// times per second per candidate, so successful frame pushes log at Debug.
func Logger(logger *slog.Logger) fiber.Handler {
	return func(c *fiber.Ctx) error {
		start := time.Now()
		err := c.Next()
		status := statusFor(c, err)

		level := levelFor(c, status)
		if !logger.Enabled(c.Context(), level) {
			return err
		}

		logger.LogAttrs(c.Context(), level, "http request",
			slog.String("method", c.Method()),
			slog.String("path", c.Path()),
			slog.String("session_id", c.Params("session_id")),
			slog.Int("status", status),
			slog.Duration("latency", time.Since(start)),
			slog.String("ip", c.IP()),
			slog.String("request_id", requestID(c)),
		)

		return err
	}
}

func levelFor(c *fiber.Ctx, status int) slog.Level {
	switch {
	case status >= 500:
		return slog.LevelError
	case status >= 400:
		return slog.LevelWarn
	case status == fiber.StatusAccepted && c.Method() == fiber.MethodPost:
		return slog.LevelDebug
	default:
		return slog.LevelInfo
	}
}
