package dashboard

import (
	"log/slog"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/sudo-init-do/taskhub/internal/metrics"
)

var defaultAgg *Aggregator

// Init wires the default aggregator against the shared pool.
func Init(logger *slog.Logger, m *metrics.Metrics) {
	defaultAgg = New(PGQueries{}, logger, m)
}

// Handler serves the dashboard payload for the authenticated user.
func Handler(c echo.Context) error {
	uid, ok := c.Get("user_id").(string)
	if !ok || uid == "" {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	if defaultAgg == nil {
		return c.JSON(http.StatusServiceUnavailable, echo.Map{"success": false, "error": "dashboard not ready"})
	}

	overview, err := defaultAgg.Overview(c.Request().Context(), uid)
	if err != nil {
		return c.JSON(http.StatusServiceUnavailable, echo.Map{"success": false, "error": "store unreachable"})
	}
	return c.JSON(http.StatusOK, echo.Map{"success": true, "dashboard": overview})
}
