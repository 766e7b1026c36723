package wallet

import (
	"context"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/sudo-init-do/taskhub/internal/db"
)

// InitWithdrawal handles immediate user withdrawals (no admin approval)
func InitWithdrawal(c echo.Context) error {
	uid, ok := c.Get("user_id").(string)
	if !ok || uid == "" {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}

	var req struct {
		Amount float64 `json:"amount"`
	}
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request body"})
	}
	if req.Amount <= 0 {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "amount must be greater than zero"})
	}

	ctx := context.Background()

	tx, err := db.Conn.Begin(ctx)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "could not start transaction"})
	}
	defer tx.Rollback(ctx)

	var balance float64
	err = tx.QueryRow(ctx, `SELECT balance FROM wallets WHERE user_id = $1 FOR UPDATE`, uid).Scan(&balance)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "could not fetch wallet balance"})
	}

	if req.Amount > balance {
		_, _ = db.Conn.Exec(ctx,
			`INSERT INTO transactions (id, user_id, amount, type, status, created_at)
			 VALUES ($1, $2, $3, 'withdrawal', 'failed', $4)`,
			uuid.New().String(), uid, req.Amount, time.Now(),
		)
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "insufficient balance"})
	}

	_, err = tx.Exec(ctx, `UPDATE wallets SET balance = balance - $1 WHERE user_id = $2`, req.Amount, uid)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "could not update wallet balance"})
	}

	withdrawalID := uuid.New().String()
	_, err = tx.Exec(ctx,
		`INSERT INTO transactions (id, user_id, amount, type, status, created_at)
		 VALUES ($1, $2, $3, 'withdrawal', 'completed', $4)`,
		withdrawalID, uid, req.Amount, time.Now(),
	)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "could not record transaction"})
	}

	if err = tx.Commit(ctx); err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "could not finalize withdrawal"})
	}

	return c.JSON(http.StatusOK, echo.Map{
		"withdrawal_id": withdrawalID,
		"amount":        req.Amount,
		"status":        "completed",
		"message":       "Withdrawal successful and balance updated",
	})
}
