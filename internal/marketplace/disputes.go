package marketplace

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/labstack/echo/v4"

	"github.com/sudo-init-do/taskhub/internal/alerts"
	"github.com/sudo-init-do/taskhub/internal/db"
	"github.com/sudo-init-do/taskhub/internal/realtime"
)

// Dispute represents an open disagreement over a booking. Resolution is
// an admin action.
type Dispute struct {
	ID         string     `json:"id"`
	BookingID  string     `json:"booking_id"`
	OpenedBy   string     `json:"opened_by"`
	Reason     string     `json:"reason"`
	Status     string     `json:"status"`
	Resolution string     `json:"resolution,omitempty"`
	CreatedAt  time.Time  `json:"created_at"`
	ResolvedAt *time.Time `json:"resolved_at,omitempty"`
}

// =========================
// OpenDispute - Either booking party flags a problem
// =========================
func OpenDispute(c echo.Context) error {
	uid, ok := c.Get("user_id").(string)
	if !ok || uid == "" {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}

	var req struct {
		BookingID string `json:"booking_id"`
		Reason    string `json:"reason"`
	}
	if err := c.Bind(&req); err != nil || req.BookingID == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request"})
	}
	if req.Reason == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "reason is required"})
	}

	ctx := context.Background()

	var customerID, taskerID, status string
	err := db.Conn.QueryRow(ctx,
		`SELECT customer_id, tasker_id, status FROM service_bookings
		 WHERE id = $1 AND (customer_id = $2 OR tasker_id = $2)`,
		req.BookingID, uid,
	).Scan(&customerID, &taskerID, &status)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "booking not found"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to fetch booking"})
	}

	switch status {
	case StatusConfirmed, StatusInProgress, StatusCompleted:
	default:
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "booking cannot be disputed at this stage"})
	}

	var open bool
	err = db.Conn.QueryRow(ctx,
		`SELECT EXISTS(SELECT 1 FROM disputes WHERE booking_id = $1 AND status = 'open')`, req.BookingID,
	).Scan(&open)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to check existing dispute"})
	}
	if open {
		return c.JSON(http.StatusConflict, echo.Map{"error": "dispute already open for this booking"})
	}

	tx, err := db.Conn.Begin(ctx)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "transaction start failed"})
	}
	defer tx.Rollback(ctx)

	var disputeID string
	err = tx.QueryRow(ctx,
		`INSERT INTO disputes (booking_id, opened_by, reason, status, created_at)
		 VALUES ($1, $2, $3, 'open', $4) RETURNING id::text`,
		req.BookingID, uid, req.Reason, time.Now(),
	).Scan(&disputeID)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to open dispute"})
	}

	// Completed bookings stay completed; escrowed ones freeze on disputed.
	if status != StatusCompleted {
		_, err = tx.Exec(ctx,
			`UPDATE service_bookings SET status = 'disputed', updated_at = NOW() WHERE id = $1`, req.BookingID)
		if err != nil {
			return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to update booking status"})
		}
	}

	if err = tx.Commit(ctx); err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "commit failed"})
	}

	if status != StatusCompleted {
		countTransition(StatusDisputed)
	}

	other := taskerID
	if uid == taskerID {
		other = customerID
	}
	ref := req.BookingID
	_ = alerts.CreateNotification(other, "dispute:opened", "A dispute was opened",
		"Booking "+req.BookingID+" is under dispute", &ref)

	b, _ := fetchBooking(ctx, req.BookingID)
	realtime.PublishBookingChange(realtime.KindUpdate, req.BookingID, customerID, taskerID, b)

	return c.JSON(http.StatusCreated, echo.Map{
		"dispute_id": disputeID,
		"message":    "dispute opened",
	})
}

// =========================
// GetUserDisputes - Disputes on bookings the caller took part in
// =========================
func GetUserDisputes(c echo.Context) error {
	uid, ok := c.Get("user_id").(string)
	if !ok || uid == "" {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}

	rows, err := db.Conn.Query(context.Background(),
		`SELECT d.id::text, d.booking_id, d.opened_by, d.reason, d.status, COALESCE(d.resolution, ''), d.created_at, d.resolved_at
		 FROM disputes d
		 JOIN service_bookings b ON b.id = d.booking_id
		 WHERE b.customer_id = $1 OR b.tasker_id = $1
		 ORDER BY d.created_at DESC`, uid)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to fetch disputes"})
	}
	defer rows.Close()

	var disputes []Dispute
	for rows.Next() {
		var d Dispute
		if err := rows.Scan(&d.ID, &d.BookingID, &d.OpenedBy, &d.Reason, &d.Status, &d.Resolution, &d.CreatedAt, &d.ResolvedAt); err != nil {
			return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to parse record"})
		}
		disputes = append(disputes, d)
	}

	return c.JSON(http.StatusOK, echo.Map{"disputes": disputes})
}
