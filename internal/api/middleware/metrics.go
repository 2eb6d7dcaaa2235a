package middleware

import (
	"strconv"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/saturnino-fabrica-de-software/sentinela/internal/metrics"
)

// Metrics records request latency labeled by route template, so path
// parameters never become label values.
func Metrics(m *metrics.Metrics) fiber.Handler {
	return func(c *fiber.Ctx) error {
		start := time.Now()

		err := c.Next()

		route := c.Route().Path
		if route == "" || (route == "/" && c.Path() != "/") {
			route = "unmatched"
		}
		m.ObserveHTTP(c.Method(), route, strconv.Itoa(statusFor(c, err)), time.Since(start))

		return err
	}
}
