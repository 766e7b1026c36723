package marketplace

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/labstack/echo/v4"

	"github.com/sudo-init-do/taskhub/internal/alerts"
	"github.com/sudo-init-do/taskhub/internal/db"
)

// Review represents a customer's rating of a completed booking
type Review struct {
	ID         string    `json:"id"`
	BookingID  string    `json:"booking_id"`
	CustomerID string    `json:"customer_id"`
	TaskerID   string    `json:"tasker_id"`
	Rating     int       `json:"rating"`
	Comment    string    `json:"comment,omitempty"`
	CreatedAt  time.Time `json:"created_at"`
}

// =========================
// CreateReview - Customer reviews a completed booking
// =========================
func CreateReview(c echo.Context) error {
	customerID, ok := c.Get("user_id").(string)
	if !ok || customerID == "" {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}

	var req struct {
		BookingID string `json:"booking_id"`
		Rating    int    `json:"rating"`
		Comment   string `json:"comment"`
	}
	if err := c.Bind(&req); err != nil || req.BookingID == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request"})
	}
	if req.Rating < 1 || req.Rating > 5 {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "rating must be between 1 and 5"})
	}
	if len(req.Comment) > 1000 {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "comment too long (max 1000 characters)"})
	}

	ctx := context.Background()

	var taskerID, status string
	err := db.Conn.QueryRow(ctx,
		`SELECT tasker_id, status FROM service_bookings WHERE id = $1 AND customer_id = $2`,
		req.BookingID, customerID,
	).Scan(&taskerID, &status)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "booking not found or not yours"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to fetch booking"})
	}
	if status != StatusCompleted {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "only completed bookings can be reviewed"})
	}

	var exists bool
	err = db.Conn.QueryRow(ctx,
		`SELECT EXISTS(SELECT 1 FROM reviews WHERE booking_id = $1)`, req.BookingID,
	).Scan(&exists)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to check existing review"})
	}
	if exists {
		return c.JSON(http.StatusConflict, echo.Map{"error": "booking already reviewed"})
	}

	tx, err := db.Conn.Begin(ctx)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "transaction start failed"})
	}
	defer tx.Rollback(ctx)

	var reviewID string
	err = tx.QueryRow(ctx,
		`INSERT INTO reviews (booking_id, customer_id, tasker_id, rating, comment, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6) RETURNING id::text`,
		req.BookingID, customerID, taskerID, req.Rating, req.Comment, time.Now(),
	).Scan(&reviewID)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to create review"})
	}

	// Refresh the tasker's stored average from the source rows.
	_, err = tx.Exec(ctx,
		`INSERT INTO tasker_stats (tasker_id, average_rating, updated_at)
		 VALUES ($1, (SELECT AVG(rating)::float FROM reviews WHERE tasker_id = $1), NOW())
		 ON CONFLICT (tasker_id) DO UPDATE SET
		     average_rating = (SELECT AVG(rating)::float FROM reviews WHERE tasker_id = $1),
		     updated_at = NOW()`,
		taskerID,
	)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to update tasker rating"})
	}

	if err = tx.Commit(ctx); err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "commit failed"})
	}

	ref := req.BookingID
	_ = alerts.CreateNotification(taskerID, "review:new", "You received a new review",
		"A customer rated your work "+strconv.Itoa(req.Rating)+"/5", &ref)

	return c.JSON(http.StatusCreated, echo.Map{
		"review_id": reviewID,
		"message":   "review submitted",
	})
}

// =========================
// GetTaskerReviews - Public listing with summary and rating breakdown
// =========================
func GetTaskerReviews(c echo.Context) error {
	taskerID := c.Param("id")
	if taskerID == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "missing tasker id"})
	}

	limit := 20
	offset := 0
	if l := c.QueryParam("limit"); l != "" {
		if v, err := strconv.Atoi(l); err == nil && v > 0 && v <= 100 {
			limit = v
		}
	}
	if o := c.QueryParam("offset"); o != "" {
		if v, err := strconv.Atoi(o); err == nil && v >= 0 {
			offset = v
		}
	}

	ctx := context.Background()

	var total int
	var avg float64
	err := db.Conn.QueryRow(ctx,
		`SELECT COUNT(*), COALESCE(AVG(rating)::float, 0) FROM reviews WHERE tasker_id = $1`, taskerID,
	).Scan(&total, &avg)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to load summary"})
	}

	breakdown := map[string]int{"1": 0, "2": 0, "3": 0, "4": 0, "5": 0}
	rows, err := db.Conn.Query(ctx,
		`SELECT rating, COUNT(*) FROM reviews WHERE tasker_id = $1 GROUP BY rating`, taskerID)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to load breakdown"})
	}
	for rows.Next() {
		var rating, count int
		if err := rows.Scan(&rating, &count); err != nil {
			rows.Close()
			return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to parse breakdown"})
		}
		breakdown[strconv.Itoa(rating)] = count
	}
	rows.Close()

	rows, err = db.Conn.Query(ctx,
		`SELECT id::text, booking_id, customer_id, tasker_id, rating, COALESCE(comment, ''), created_at
		 FROM reviews WHERE tasker_id = $1 ORDER BY created_at DESC LIMIT $2 OFFSET $3`,
		taskerID, limit, offset)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to fetch reviews"})
	}
	defer rows.Close()

	var reviews []Review
	for rows.Next() {
		var r Review
		if err := rows.Scan(&r.ID, &r.BookingID, &r.CustomerID, &r.TaskerID, &r.Rating, &r.Comment, &r.CreatedAt); err != nil {
			return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to parse record"})
		}
		reviews = append(reviews, r)
	}

	return c.JSON(http.StatusOK, echo.Map{
		"summary": echo.Map{
			"total":          total,
			"average_rating": avg,
			"breakdown":      breakdown,
		},
		"reviews": reviews,
		"pagination": echo.Map{
			"limit":  limit,
			"offset": offset,
		},
	})
}

// =========================
// GetBookingReview - Fetch the review for a booking the caller took part in
// =========================
func GetBookingReview(c echo.Context) error {
	uid, ok := c.Get("user_id").(string)
	if !ok || uid == "" {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	bookingID := c.Param("id")
	if bookingID == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "missing booking id"})
	}

	var r Review
	err := db.Conn.QueryRow(context.Background(),
		`SELECT r.id::text, r.booking_id, r.customer_id, r.tasker_id, r.rating, COALESCE(r.comment, ''), r.created_at
		 FROM reviews r
		 JOIN service_bookings b ON b.id = r.booking_id
		 WHERE r.booking_id = $1 AND (b.customer_id = $2 OR b.tasker_id = $2)`,
		bookingID, uid,
	).Scan(&r.ID, &r.BookingID, &r.CustomerID, &r.TaskerID, &r.Rating, &r.Comment, &r.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "review not found"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to fetch review"})
	}

	return c.JSON(http.StatusOK, echo.Map{"review": r})
}
