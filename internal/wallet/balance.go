package wallet

import (
	"context"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/sudo-init-do/taskhub/internal/db"
)

// Balance returns the authenticated user's wallet balance and escrowed funds
func Balance(c echo.Context) error {
	uid, ok := c.Get("user_id").(string)
	if !ok || uid == "" {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}

	var balance, escrow float64
	err := db.Conn.QueryRow(context.Background(),
		`SELECT balance, COALESCE(escrow, 0) FROM wallets WHERE user_id = $1`, uid).
		Scan(&balance, &escrow)
	if err != nil {
		return c.JSON(http.StatusNotFound, echo.Map{"error": "wallet not found"})
	}

	return c.JSON(http.StatusOK, echo.Map{
		"user_id": uid,
		"balance": balance,
		"escrow":  escrow,
	})
}
