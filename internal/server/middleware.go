package server

import (
	"github.com/labstack/echo/v4"

	"github.com/Phineas-bot/PHINSECOLANG/internal/correlation"
)

const correlationHeader = "X-Correlation-ID"

// correlationMiddleware attaches a correlation ID to the request context so
// every log line of a request can be tied together. An inbound header wins
// over a freshly generated ID.
func correlationMiddleware() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			id := c.Request().Header.Get(correlationHeader)
			if id == "" {
				id = correlation.NewID()
			}

			ctx := correlation.WithID(c.Request().Context(), id)
			c.SetRequest(c.Request().WithContext(ctx))
			c.Response().Header().Set(correlationHeader, id)

			return next(c)
		}
	}
}
