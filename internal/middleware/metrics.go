package middleware

import (
	"strconv"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/sudo-init-do/taskhub/internal/metrics"
)

// Instrument records request counts and latency per route.
func Instrument(m *metrics.Metrics) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			start := time.Now()
			err := next(c)

			path := c.Path()
			if path == "" {
				path = c.Request().URL.Path
			}
			method := c.Request().Method
			status := c.Response().Status
			if err != nil {
				if he, ok := err.(*echo.HTTPError); ok {
					status = he.Code
				}
			}

			m.HTTPRequests.WithLabelValues(method, path, strconv.Itoa(status)).Inc()
			m.HTTPLatency.WithLabelValues(method, path).Observe(time.Since(start).Seconds())
			return err
		}
	}
}
