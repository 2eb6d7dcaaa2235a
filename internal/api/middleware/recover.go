package middleware

import (
	"fmt"
	"log/slog"
	"runtime/debug"

	"github.com/gofiber/fiber/v2"

	"github.com/saturnino-fabrica-de-software/sentinela/internal/domain"
)

// Recover converts a handler panic into a 500 envelope and logs the stack
func Recover(logger *slog.Logger) fiber.Handler {
	return func(c *fiber.Ctx) (err error) {
		defer func() {
			r := recover()
			if r == nil {
				return
			}

			logger.Error("panic recovered",
				slog.String("panic", fmt.Sprint(r)),
				slog.String("method", c.Method()),
				slog.String("route", c.Route().Path),
				slog.String("request_id", requestID(c)),
				slog.String("stack", string(debug.Stack())),
			)

			err = domain.ErrInternal.WithError(fmt.Errorf("panic: %v", r))
		}()

		return c.Next()
	}
}
