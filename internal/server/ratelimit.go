package server

import (
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"golang.org/x/time/rate"

	"github.com/Phineas-bot/PHINSECOLANG/internal/errors"
	"github.com/Phineas-bot/PHINSECOLANG/internal/metrics"
)

const rateLimiterExpiry = 5 * time.Minute

// newRunRateLimiter limits POST /api/run per client IP with a token bucket.
func newRunRateLimiter(ratePerSecond float64, burst int) echo.MiddlewareFunc {
	store := middleware.NewRateLimiterMemoryStoreWithConfig(
		middleware.RateLimiterMemoryStoreConfig{
			Rate:      rate.Limit(ratePerSecond),
			Burst:     burst,
			ExpiresIn: rateLimiterExpiry,
		},
	)
	return middleware.RateLimiterWithConfig(middleware.RateLimiterConfig{
		IdentifierExtractor: func(c echo.Context) (string, error) {
			return c.RealIP(), nil
		},
		Store: store,
		DenyHandler: func(c echo.Context, identifier string, err error) error {
			metrics.RunsRateLimited.Inc()
			return errors.RateLimitedError("rate limit exceeded").WithField("ip", identifier)
		},
	})
}
