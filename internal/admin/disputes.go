package admin

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/labstack/echo/v4"

	"github.com/sudo-init-do/taskhub/internal/alerts"
	"github.com/sudo-init-do/taskhub/internal/db"
)

type AdminDispute struct {
	ID         string     `json:"id"`
	BookingID  string     `json:"booking_id"`
	OpenedBy   string     `json:"opened_by"`
	Reason     string     `json:"reason"`
	Status     string     `json:"status"`
	Resolution string     `json:"resolution,omitempty"`
	CreatedAt  time.Time  `json:"created_at"`
	ResolvedAt *time.Time `json:"resolved_at,omitempty"`
}

// GET /admin/disputes
func ListDisputes(c echo.Context) error {
	query := `SELECT id::text, booking_id::text, opened_by::text, reason, status, COALESCE(resolution, ''), created_at, resolved_at
	          FROM disputes`
	args := []any{}
	if status := c.QueryParam("status"); status != "" {
		args = append(args, status)
		query += " WHERE status = $1"
	}
	query += " ORDER BY created_at DESC"

	rows, err := db.Conn.Query(context.Background(), query, args...)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "could not fetch disputes"})
	}
	defer rows.Close()

	var disputes []AdminDispute
	for rows.Next() {
		var d AdminDispute
		if err := rows.Scan(&d.ID, &d.BookingID, &d.OpenedBy, &d.Reason, &d.Status, &d.Resolution, &d.CreatedAt, &d.ResolvedAt); err != nil {
			return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to read dispute record"})
		}
		disputes = append(disputes, d)
	}
	return c.JSON(http.StatusOK, echo.Map{"disputes": disputes})
}

// POST /admin/disputes/:id/resolve
// Resolution "release" pays the tasker out of escrow, "refund" returns the
// hold to the customer, "none" just closes the dispute.
func ResolveDispute(c echo.Context) error {
	adminID, _ := c.Get("user_id").(string)
	disputeID := c.Param("id")
	if disputeID == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "dispute id required"})
	}

	var req struct {
		Resolution string `json:"resolution"`
		Notes      string `json:"notes"`
	}
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request"})
	}
	switch req.Resolution {
	case "release", "refund", "none":
	default:
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "resolution must be release, refund or none"})
	}

	ctx := context.Background()

	var bookingID, customerID, taskerID, bookingStatus string
	var amount float64
	err := db.Conn.QueryRow(ctx,
		`SELECT d.booking_id::text, b.customer_id::text, b.tasker_id::text, b.status, COALESCE(b.agreed_price, 0)
		 FROM disputes d
		 JOIN service_bookings b ON b.id = d.booking_id
		 WHERE d.id = $1 AND d.status = 'open'`,
		disputeID,
	).Scan(&bookingID, &customerID, &taskerID, &bookingStatus, &amount)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "open dispute not found"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to fetch dispute"})
	}

	held := bookingStatus == "disputed"

	tx, err := db.Conn.Begin(ctx)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "transaction start failed"})
	}
	defer tx.Rollback(ctx)

	finalStatus := bookingStatus
	switch req.Resolution {
	case "release":
		if held {
			if _, err = tx.Exec(ctx,
				`UPDATE wallets SET escrow = escrow - $1 WHERE user_id = $2 AND escrow >= $1`,
				amount, customerID); err != nil {
				return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to release escrow"})
			}
			if _, err = tx.Exec(ctx,
				`UPDATE wallets SET balance = balance + $1 WHERE user_id = $2`,
				amount, taskerID); err != nil {
				return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to credit tasker"})
			}
			if _, err = tx.Exec(ctx,
				`INSERT INTO transactions (user_id, amount, type, status, reference, created_at)
				 VALUES ($1, $2, 'credit', 'dispute_release', $3, $4)`,
				taskerID, amount, bookingID, time.Now()); err != nil {
				return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to record release"})
			}
			finalStatus = "completed"
		}
	case "refund":
		if held {
			if _, err = tx.Exec(ctx,
				`UPDATE wallets SET escrow = escrow - $1, balance = balance + $1 WHERE user_id = $2 AND escrow >= $1`,
				amount, customerID); err != nil {
				return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to refund escrow"})
			}
			if _, err = tx.Exec(ctx,
				`INSERT INTO transactions (user_id, amount, type, status, reference, created_at)
				 VALUES ($1, $2, 'credit', 'dispute_refund', $3, $4)`,
				customerID, amount, bookingID, time.Now()); err != nil {
				return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to record refund"})
			}
			finalStatus = "refunded"
		}
	case "none":
		// Dispute dismissed; the booking resumes with funds still escrowed.
		if held {
			finalStatus = "in_progress"
		}
	}

	if finalStatus != bookingStatus {
		if _, err = tx.Exec(ctx,
			`UPDATE service_bookings SET status = $1, updated_at = NOW() WHERE id = $2`,
			finalStatus, bookingID); err != nil {
			return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to update booking"})
		}
	}

	if _, err = tx.Exec(ctx,
		`UPDATE disputes SET status = 'resolved', resolution = $1, notes = NULLIF($2, ''),
		        resolved_by = $3, resolved_at = NOW()
		 WHERE id = $4`,
		req.Resolution, req.Notes, adminID, disputeID); err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to resolve dispute"})
	}

	if err = tx.Commit(ctx); err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "commit failed"})
	}

	ref := bookingID
	_ = alerts.CreateNotification(customerID, "dispute:resolved", "Dispute resolved",
		"Resolution: "+req.Resolution, &ref)
	_ = alerts.CreateNotification(taskerID, "dispute:resolved", "Dispute resolved",
		"Resolution: "+req.Resolution, &ref)

	return c.JSON(http.StatusOK, echo.Map{
		"message":    "dispute resolved",
		"resolution": req.Resolution,
	})
}
