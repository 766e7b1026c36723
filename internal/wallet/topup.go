package wallet

import (
	"context"
	"net/http"
	"os"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/sudo-init-do/taskhub/internal/db"
)

type TopupRequest struct {
	Amount float64 `json:"amount"`
}

type TopupResponse struct {
	TopupID string `json:"topup_id"`
	Status  string `json:"status"`
	Message string `json:"message"`
}

// TopupInit creates a pending topup record and hands back a payment URL
func TopupInit(c echo.Context) error {
	uid, ok := c.Get("user_id").(string)
	if !ok || uid == "" {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}

	req := new(TopupRequest)
	if err := c.Bind(req); err != nil || req.Amount <= 0 {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request"})
	}

	topupID := uuid.New().String()
	_, err := db.Conn.Exec(context.Background(),
		`INSERT INTO transactions (id, user_id, amount, type, status, created_at)
		 VALUES ($1, $2, $3, 'topup', 'pending', $4)`,
		topupID, uid, req.Amount, time.Now(),
	)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "could not create topup"})
	}

	paymentURL := os.Getenv("MOCK_PAYMENT_URL")
	if paymentURL == "" {
		paymentURL = "https://pay.taskhub.dev/mock/" + topupID
	}

	return c.JSON(http.StatusOK, TopupResponse{
		TopupID: topupID,
		Status:  "pending",
		Message: "Topup initialized. Complete payment at " + paymentURL,
	})
}

// TopupConfirm settles a pending topup and credits the wallet. Stands in
// for the payment provider webhook.
func TopupConfirm(c echo.Context) error {
	uid, ok := c.Get("user_id").(string)
	if !ok || uid == "" {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	topupID := c.Param("id")
	if topupID == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "missing topup id"})
	}

	ctx := context.Background()

	tx, err := db.Conn.Begin(ctx)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "could not start transaction"})
	}
	defer tx.Rollback(ctx)

	var amount float64
	err = tx.QueryRow(ctx,
		`UPDATE transactions SET status = 'success'
		 WHERE id = $1 AND user_id = $2 AND type = 'topup' AND status = 'pending'
		 RETURNING amount`,
		topupID, uid,
	).Scan(&amount)
	if err != nil {
		return c.JSON(http.StatusNotFound, echo.Map{"error": "topup not found or already settled"})
	}

	_, err = tx.Exec(ctx, `UPDATE wallets SET balance = balance + $1 WHERE user_id = $2`, amount, uid)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "could not credit wallet"})
	}

	if err = tx.Commit(ctx); err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "could not finalize topup"})
	}

	return c.JSON(http.StatusOK, echo.Map{
		"topup_id": topupID,
		"amount":   amount,
		"status":   "success",
	})
}
