package admin

import (
	"context"
	"net/http"
	"sync"

	"github.com/labstack/echo/v4"

	"github.com/sudo-init-do/taskhub/internal/db"
)

// GET /admin/stats — platform-wide counters, fanned out concurrently.
// A failing counter reports zero rather than failing the page.
func Stats(c echo.Context) error {
	ctx := c.Request().Context()

	tables := []string{"users", "services", "service_bookings", "wallets", "transactions", "disputes"}
	counts := make([]int, len(tables))

	var wg sync.WaitGroup
	wg.Add(len(tables))
	for i, table := range tables {
		go func(i int, table string) {
			defer wg.Done()
			_ = db.Conn.QueryRow(ctx, `SELECT COUNT(*) FROM `+table).Scan(&counts[i])
		}(i, table)
	}
	wg.Wait()

	var openDisputes int
	_ = db.Conn.QueryRow(context.Background(),
		`SELECT COUNT(*) FROM disputes WHERE status = 'open'`).Scan(&openDisputes)

	return c.JSON(http.StatusOK, echo.Map{
		"users":         counts[0],
		"services":      counts[1],
		"bookings":      counts[2],
		"wallets":       counts[3],
		"transactions":  counts[4],
		"disputes":      counts[5],
		"open_disputes": openDisputes,
	})
}
