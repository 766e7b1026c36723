package alerts

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/sudo-init-do/taskhub/internal/db"
	"github.com/sudo-init-do/taskhub/internal/realtime"
)

// Notification mirrors a notifications row.
type Notification struct {
	ID        string     `json:"id"`
	Type      string     `json:"type"`
	Title     string     `json:"title"`
	Body      string     `json:"body"`
	Reference *string    `json:"reference"`
	CreatedAt time.Time  `json:"created_at"`
	ReadAt    *time.Time `json:"read_at"`
}

// CreateNotification inserts a notification row and pushes it over the
// realtime hub.
func CreateNotification(userID, ntype, title, body string, reference *string) error {
	var n Notification
	err := db.Conn.QueryRow(context.Background(),
		`INSERT INTO notifications (user_id, type, title, body, reference)
         VALUES ($1, $2, $3, $4, $5)
         RETURNING id::text, type, title, COALESCE(body, ''), reference::text, created_at`,
		userID, ntype, title, body, reference,
	).Scan(&n.ID, &n.Type, &n.Title, &n.Body, &n.Reference, &n.CreatedAt)
	if err != nil {
		return err
	}
	realtime.PublishNotification(n.ID, userID, n)
	return nil
}

// LatestNotifications returns the newest notifications for the user.
func LatestNotifications(ctx context.Context, userID string, limit int) ([]Notification, error) {
	rows, err := db.Conn.Query(ctx,
		`SELECT id::text, type, title, COALESCE(body, ''), reference::text, created_at, read_at
         FROM notifications WHERE user_id = $1 ORDER BY created_at DESC LIMIT $2`,
		userID, limit,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var items []Notification
	for rows.Next() {
		var n Notification
		if err := rows.Scan(&n.ID, &n.Type, &n.Title, &n.Body, &n.Reference, &n.CreatedAt, &n.ReadAt); err != nil {
			return nil, err
		}
		items = append(items, n)
	}
	return items, rows.Err()
}

// ListNotifications returns current user's notifications, newest first
func ListNotifications(c echo.Context) error {
	userID, ok := c.Get("user_id").(string)
	if !ok || userID == "" {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}

	limit := 20
	if v := c.QueryParam("limit"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 && n <= 100 {
			limit = n
		}
	}

	items, err := LatestNotifications(c.Request().Context(), userID, limit)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to load notifications"})
	}
	return c.JSON(http.StatusOK, echo.Map{"notifications": items})
}

// MarkNotificationRead marks specific notification as read
func MarkNotificationRead(c echo.Context) error {
	userID, ok := c.Get("user_id").(string)
	if !ok || userID == "" {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	nid := c.Param("id")
	if nid == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "missing notification id"})
	}

	res, err := db.Conn.Exec(context.Background(),
		`UPDATE notifications SET read_at = NOW() WHERE id = $1 AND user_id = $2 AND read_at IS NULL`, nid, userID,
	)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to update"})
	}
	if res.RowsAffected() == 0 {
		return c.JSON(http.StatusNotFound, echo.Map{"error": "not found or already read"})
	}
	return c.JSON(http.StatusOK, echo.Map{"message": "ok"})
}
