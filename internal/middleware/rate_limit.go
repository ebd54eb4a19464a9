package middleware

import (
	"fmt"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/limiter"
)

// RateLimit guards the credential endpoints with a fixed-window counter.
// Authenticated requests are keyed by account so members behind the campus
// NAT do not throttle each other; anonymous requests fall back to the client
// IP.
func RateLimit(name string, max int, window time.Duration) fiber.Handler {
	if max <= 0 {
		max = 10
	}
	if window <= 0 {
		window = time.Minute
	}

	return limiter.New(limiter.Config{
		Max:        max,
		Expiration: window,
		KeyGenerator: func(c *fiber.Ctx) string {
			key := c.IP()
			if v := c.Locals(LocalUserID); v != nil {
				if id, ok := v.(uint); ok && id > 0 {
					key = fmt.Sprintf("u%d", id)
				}
			}
			return name + ":" + key
		},
	})
}
