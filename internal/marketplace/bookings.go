package marketplace

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/labstack/echo/v4"

	"github.com/sudo-init-do/taskhub/internal/alerts"
	"github.com/sudo-init-do/taskhub/internal/db"
	"github.com/sudo-init-do/taskhub/internal/realtime"
)

// =========================
// CreateBooking - Customer books a service
// =========================
func CreateBooking(c echo.Context) error {
	customerID, ok := c.Get("user_id").(string)
	if !ok || customerID == "" {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}

	var req struct {
		ServiceID   string     `json:"service_id"`
		ScheduledAt *time.Time `json:"scheduled_at"`
		AgreedPrice *float64   `json:"agreed_price"`
	}
	if err := c.Bind(&req); err != nil || req.ServiceID == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid service_id"})
	}

	var taskerID string
	var price float64
	err := db.Conn.QueryRow(context.Background(),
		`SELECT user_id, price FROM services WHERE id = $1 AND COALESCE(status, 'active') = 'active'`,
		req.ServiceID,
	).Scan(&taskerID, &price)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "service not found"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to fetch service"})
	}

	if taskerID == customerID {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "you cannot book your own service"})
	}

	agreed := price
	if req.AgreedPrice != nil && *req.AgreedPrice > 0 {
		agreed = *req.AgreedPrice
	}

	var balance float64
	err = db.Conn.QueryRow(context.Background(),
		`SELECT balance FROM wallets WHERE user_id = $1`, customerID,
	).Scan(&balance)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "wallet not found"})
	}
	if balance < agreed {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "insufficient balance"})
	}

	// No funds move yet; escrow happens on confirmation.
	bookingID := uuid.New().String()
	var createdAt time.Time
	err = db.Conn.QueryRow(context.Background(),
		`INSERT INTO service_bookings (id, service_id, customer_id, tasker_id, agreed_price, status, scheduled_at, created_at)
		 VALUES ($1, $2, $3, $4, $5, 'pending', $6, $7) RETURNING created_at`,
		bookingID, req.ServiceID, customerID, taskerID, agreed, req.ScheduledAt, time.Now(),
	).Scan(&createdAt)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to create booking"})
	}

	booking := Booking{
		ID:          bookingID,
		ServiceID:   req.ServiceID,
		CustomerID:  customerID,
		TaskerID:    taskerID,
		AgreedPrice: &agreed,
		Status:      StatusPending,
		ScheduledAt: req.ScheduledAt,
		CreatedAt:   createdAt,
	}
	countTransition(StatusPending)
	realtime.PublishBookingChange(realtime.KindInsert, bookingID, customerID, taskerID, booking)
	notifyBookingStatus(booking, taskerID, "booking:new", "New booking request")

	return c.JSON(http.StatusCreated, echo.Map{
		"booking_id": bookingID,
		"message":    "Booking placed successfully. Awaiting tasker acceptance.",
	})
}

// transition applies a status change guarded by the expected current status
// and the acting party's column. Returns the updated booking.
func transition(ctx context.Context, bookingID, actorColumn, actorID, from, to string) (Booking, error) {
	var b Booking
	err := db.Conn.QueryRow(ctx,
		`UPDATE service_bookings SET status = $1, updated_at = NOW(),
		        completed_at = CASE WHEN $1 = 'completed' THEN NOW() ELSE completed_at END
		 WHERE id = $2 AND `+actorColumn+` = $3 AND status = $4
		 RETURNING id, service_id, customer_id, tasker_id, agreed_price, status, scheduled_at, completed_at, created_at`,
		to, bookingID, actorID, from,
	).Scan(&b.ID, &b.ServiceID, &b.CustomerID, &b.TaskerID, &b.AgreedPrice, &b.Status, &b.ScheduledAt, &b.CompletedAt, &b.CreatedAt)
	if err == nil {
		countTransition(to)
	}
	return b, err
}

// =========================
// AcceptBooking - Tasker accepts a pending booking
// =========================
func AcceptBooking(c echo.Context) error {
	taskerID, ok := c.Get("user_id").(string)
	if !ok || taskerID == "" {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	bookingID := c.Param("id")
	if bookingID == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "missing booking id in URL"})
	}

	b, err := transition(context.Background(), bookingID, "tasker_id", taskerID, StatusPending, StatusAccepted)
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "booking not found or not pending"})
	}

	realtime.PublishBookingChange(realtime.KindUpdate, b.ID, b.CustomerID, b.TaskerID, b)
	notifyBookingStatus(b, b.CustomerID, "booking:accepted", "Your booking was accepted")

	return c.JSON(http.StatusOK, echo.Map{"message": "Booking accepted"})
}

// =========================
// ConfirmBooking - Customer confirms; funds move into escrow
// =========================
func ConfirmBooking(c echo.Context) error {
	customerID, ok := c.Get("user_id").(string)
	if !ok || customerID == "" {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	bookingID := c.Param("id")
	if bookingID == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "missing booking id in URL"})
	}

	ctx := context.Background()

	var taskerID string
	var amount float64
	var status string
	err := db.Conn.QueryRow(ctx,
		`SELECT tasker_id, COALESCE(agreed_price, 0), status FROM service_bookings WHERE id = $1 AND customer_id = $2`,
		bookingID, customerID,
	).Scan(&taskerID, &amount, &status)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "booking not found or not yours"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to fetch booking"})
	}
	if status != StatusAccepted {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "booking not accepted yet"})
	}

	tx, err := db.Conn.Begin(ctx)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "transaction start failed"})
	}
	defer tx.Rollback(ctx)

	var balance float64
	err = tx.QueryRow(ctx, `SELECT balance FROM wallets WHERE user_id = $1 FOR UPDATE`, customerID).Scan(&balance)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "wallet not found"})
	}
	if balance < amount {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "insufficient balance"})
	}

	_, err = tx.Exec(ctx,
		`UPDATE wallets SET balance = balance - $1, escrow = escrow + $1 WHERE user_id = $2`,
		amount, customerID,
	)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to move funds to escrow"})
	}

	_, err = tx.Exec(ctx,
		`UPDATE service_bookings SET status = 'confirmed', updated_at = NOW() WHERE id = $1`, bookingID,
	)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to update booking status"})
	}

	_, err = tx.Exec(ctx,
		`INSERT INTO transactions (user_id, amount, type, status, reference, created_at)
		 VALUES ($1, $2, 'debit', 'escrow_hold', $3, $4)`,
		customerID, amount, bookingID, time.Now(),
	)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to record escrow hold"})
	}

	if err = tx.Commit(ctx); err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "commit failed"})
	}

	countTransition(StatusConfirmed)
	b, _ := fetchBooking(ctx, bookingID)
	realtime.PublishBookingChange(realtime.KindUpdate, bookingID, customerID, taskerID, b)
	notifyBookingStatus(b, taskerID, "booking:confirmed", "Booking confirmed and funds escrowed")

	return c.JSON(http.StatusOK, echo.Map{"message": "Booking confirmed and escrowed"})
}

// =========================
// StartBooking - Tasker marks work started
// =========================
func StartBooking(c echo.Context) error {
	taskerID, ok := c.Get("user_id").(string)
	if !ok || taskerID == "" {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	bookingID := c.Param("id")
	if bookingID == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "missing booking id in URL"})
	}

	b, err := transition(context.Background(), bookingID, "tasker_id", taskerID, StatusConfirmed, StatusInProgress)
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "booking not found or not confirmed"})
	}

	realtime.PublishBookingChange(realtime.KindUpdate, b.ID, b.CustomerID, b.TaskerID, b)
	notifyBookingStatus(b, b.CustomerID, "booking:in_progress", "Work on your booking has started")

	return c.JSON(http.StatusOK, echo.Map{"message": "Booking in progress"})
}

// =========================
// CompleteBooking - Customer marks booking complete (releases escrow funds)
// =========================
func CompleteBooking(c echo.Context) error {
	customerID, ok := c.Get("user_id").(string)
	if !ok || customerID == "" {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	bookingID := c.Param("id")
	if bookingID == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "missing booking id in URL"})
	}

	ctx := context.Background()

	var taskerID string
	var amount float64
	err := db.Conn.QueryRow(ctx,
		`SELECT tasker_id, COALESCE(agreed_price, 0) FROM service_bookings
		 WHERE id = $1 AND customer_id = $2 AND status = 'in_progress'`,
		bookingID, customerID,
	).Scan(&taskerID, &amount)
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "booking not found or not in progress"})
	}

	tx, err := db.Conn.Begin(ctx)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "transaction start failed"})
	}
	defer tx.Rollback(ctx)

	_, err = tx.Exec(ctx,
		`UPDATE wallets SET escrow = escrow - $1 WHERE user_id = $2 AND escrow >= $1`,
		amount, customerID)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to deduct customer escrow"})
	}

	_, err = tx.Exec(ctx,
		`UPDATE wallets SET balance = balance + $1 WHERE user_id = $2`,
		amount, taskerID)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to credit tasker"})
	}

	_, err = tx.Exec(ctx,
		`UPDATE service_bookings SET status = 'completed', completed_at = NOW(), updated_at = NOW() WHERE id = $1`,
		bookingID)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to update status"})
	}

	// Keep the stored aggregate counters in step; the dashboard prefers them
	// over recounting when the row exists.
	_, err = tx.Exec(ctx,
		`INSERT INTO tasker_stats (tasker_id, completed_jobs, total_earnings, updated_at)
		 VALUES ($1, 1, $2, NOW())
		 ON CONFLICT (tasker_id) DO UPDATE SET
		     completed_jobs = tasker_stats.completed_jobs + 1,
		     total_earnings = tasker_stats.total_earnings + $2,
		     updated_at = NOW()`,
		taskerID, amount)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to update tasker stats"})
	}

	_, err = tx.Exec(ctx,
		`INSERT INTO transactions (user_id, amount, type, status, reference, created_at)
		 VALUES ($1, $2, 'debit', 'escrow_release', $3, $4)`,
		customerID, amount, bookingID, time.Now())
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to record customer escrow release"})
	}

	_, err = tx.Exec(ctx,
		`INSERT INTO transactions (user_id, amount, type, status, reference, created_at)
		 VALUES ($1, $2, 'credit', 'success', $3, $4)`,
		taskerID, amount, bookingID, time.Now())
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to record tasker credit"})
	}

	if err = tx.Commit(ctx); err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "commit failed"})
	}

	countTransition(StatusCompleted)
	b, _ := fetchBooking(ctx, bookingID)
	realtime.PublishBookingChange(realtime.KindUpdate, bookingID, customerID, taskerID, b)
	notifyBookingStatus(b, taskerID, "booking:completed", "Booking completed and paid out")

	return c.JSON(http.StatusOK, echo.Map{"message": "Booking completed successfully"})
}

// =========================
// CancelBooking - Either party cancels; escrow refunds to the customer
// =========================
func CancelBooking(c echo.Context) error {
	uid, ok := c.Get("user_id").(string)
	if !ok || uid == "" {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	bookingID := c.Param("id")
	if bookingID == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "missing booking id in URL"})
	}

	ctx := context.Background()

	var customerID, taskerID, status string
	var amount float64
	err := db.Conn.QueryRow(ctx,
		`SELECT customer_id, tasker_id, COALESCE(agreed_price, 0), status
		 FROM service_bookings WHERE id = $1 AND (customer_id = $2 OR tasker_id = $2)`,
		bookingID, uid,
	).Scan(&customerID, &taskerID, &amount, &status)
	if err != nil {
		return c.JSON(http.StatusNotFound, echo.Map{"error": "booking not found"})
	}

	switch status {
	case StatusPending, StatusAccepted, StatusConfirmed, StatusInProgress:
	default:
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "booking cannot be cancelled at this stage"})
	}

	tx, err := db.Conn.Begin(ctx)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "transaction start failed"})
	}
	defer tx.Rollback(ctx)

	if escrowHeld(status) {
		_, err = tx.Exec(ctx,
			`UPDATE wallets SET escrow = escrow - $1, balance = balance + $1 WHERE user_id = $2 AND escrow >= $1`,
			amount, customerID)
		if err != nil {
			return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to refund escrow"})
		}
		_, err = tx.Exec(ctx,
			`INSERT INTO transactions (user_id, amount, type, status, reference, created_at)
			 VALUES ($1, $2, 'credit', 'refund', $3, $4)`,
			customerID, amount, bookingID, time.Now())
		if err != nil {
			return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to record refund"})
		}
	}

	_, err = tx.Exec(ctx,
		`UPDATE service_bookings SET status = 'cancelled', updated_at = NOW() WHERE id = $1`, bookingID)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to update booking status"})
	}

	if err = tx.Commit(ctx); err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "commit failed"})
	}

	countTransition(StatusCancelled)
	other := taskerID
	if uid == taskerID {
		other = customerID
	}
	b, _ := fetchBooking(ctx, bookingID)
	realtime.PublishBookingChange(realtime.KindUpdate, bookingID, customerID, taskerID, b)
	notifyBookingStatus(b, other, "booking:cancelled", "Booking cancelled")

	return c.JSON(http.StatusOK, echo.Map{"message": "Booking cancelled"})
}

// =========================
// GetUserBookings - Fetch bookings for a user (as customer or tasker)
// =========================
func GetUserBookings(c echo.Context) error {
	uid, ok := c.Get("user_id").(string)
	if !ok || uid == "" {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}

	query := `SELECT id, service_id, customer_id, tasker_id, agreed_price, status, scheduled_at, completed_at, created_at
	          FROM service_bookings WHERE (customer_id = $1 OR tasker_id = $1)`
	args := []any{uid}
	if status := c.QueryParam("status"); status != "" {
		args = append(args, status)
		query += " AND status = $2"
	}
	query += " ORDER BY created_at DESC"

	rows, err := db.Conn.Query(context.Background(), query, args...)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to fetch bookings"})
	}
	defer rows.Close()

	var bookings []Booking
	for rows.Next() {
		var b Booking
		if err := rows.Scan(&b.ID, &b.ServiceID, &b.CustomerID, &b.TaskerID, &b.AgreedPrice, &b.Status, &b.ScheduledAt, &b.CompletedAt, &b.CreatedAt); err != nil {
			return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to parse record"})
		}
		bookings = append(bookings, b)
	}

	return c.JSON(http.StatusOK, echo.Map{"bookings": bookings})
}

func fetchBooking(ctx context.Context, bookingID string) (Booking, error) {
	var b Booking
	err := db.Conn.QueryRow(ctx,
		`SELECT id, service_id, customer_id, tasker_id, agreed_price, status, scheduled_at, completed_at, created_at
		 FROM service_bookings WHERE id = $1`, bookingID,
	).Scan(&b.ID, &b.ServiceID, &b.CustomerID, &b.TaskerID, &b.AgreedPrice, &b.Status, &b.ScheduledAt, &b.CompletedAt, &b.CreatedAt)
	return b, err
}

// notifyBookingStatus writes an in-app notification and enqueues a best-effort
// email to the recipient.
func notifyBookingStatus(b Booking, recipientID, ntype, title string) {
	if b.ID == "" || recipientID == "" {
		return
	}
	ref := b.ID
	_ = alerts.CreateNotification(recipientID, ntype, title, "Booking "+b.ID+" is now "+b.Status, &ref)

	var email string
	_ = db.Conn.QueryRow(context.Background(), `SELECT email FROM users WHERE id = $1`, recipientID).Scan(&email)
	if email != "" {
		amount := 0.0
		if b.AgreedPrice != nil {
			amount = *b.AgreedPrice
		}
		_ = alerts.EnqueueBookingStatus(b.ID, b.CustomerID, b.TaskerID, b.Status, email, amount)
	}
}
