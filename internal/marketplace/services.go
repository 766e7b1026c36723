package marketplace

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/sudo-init-do/taskhub/internal/db"
)

// CreateService allows a tasker to list a new service
func CreateService(c echo.Context) error {
	uid, ok := c.Get("user_id").(string)
	if !ok || uid == "" {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}

	var req struct {
		Title       string  `json:"title"`
		Description string  `json:"description"`
		Price       float64 `json:"price"`
		Category    string  `json:"category"`
	}
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request"})
	}

	if req.Title == "" || req.Price <= 0 {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "title and valid price are required"})
	}

	serviceID := uuid.New().String()
	_, err := db.Conn.Exec(context.Background(),
		`INSERT INTO services (id, user_id, title, description, price, category, status, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6, 'active', $7)`,
		serviceID, uid, req.Title, req.Description, req.Price, req.Category, time.Now(),
	)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "could not create service"})
	}

	return c.JSON(http.StatusCreated, echo.Map{
		"service_id": serviceID,
		"message":    "service created successfully",
	})
}

// GetAllServices returns active services, filtered, sorted and paginated
func GetAllServices(c echo.Context) error {
	q := c.QueryParam("q")
	category := c.QueryParam("category")
	minPrice := c.QueryParam("min_price")
	maxPrice := c.QueryParam("max_price")
	sortParam := c.QueryParam("sort")

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

	query := `SELECT s.id, s.user_id, s.title, s.description, s.price, COALESCE(s.category, ''), COALESCE(s.status, 'active'), s.created_at,
                     COALESCE(AVG(r.rating)::float, 0) AS avg_rating
              FROM services s
              LEFT JOIN service_bookings b ON b.service_id = s.id
              LEFT JOIN reviews r ON r.booking_id = b.id
              WHERE COALESCE(s.status, 'active') = 'active'`
	var args []any

	if q != "" {
		args = append(args, "%"+q+"%")
		query += fmt.Sprintf(" AND (s.title ILIKE $%d OR s.description ILIKE $%d)", len(args), len(args))
	}
	if category != "" {
		args = append(args, category)
		query += fmt.Sprintf(" AND s.category = $%d", len(args))
	}
	if minPrice != "" {
		if v, err := strconv.ParseFloat(minPrice, 64); err == nil {
			args = append(args, v)
			query += fmt.Sprintf(" AND s.price >= $%d", len(args))
		}
	}
	if maxPrice != "" {
		if v, err := strconv.ParseFloat(maxPrice, 64); err == nil {
			args = append(args, v)
			query += fmt.Sprintf(" AND s.price <= $%d", len(args))
		}
	}

	query += " GROUP BY s.id"
	switch sortParam {
	case "price_asc":
		query += " ORDER BY s.price ASC"
	case "price_desc":
		query += " ORDER BY s.price DESC"
	case "rating":
		query += " ORDER BY avg_rating DESC"
	default:
		query += " ORDER BY s.created_at DESC"
	}
	args = append(args, limit, offset)
	query += fmt.Sprintf(" LIMIT $%d OFFSET $%d", len(args)-1, len(args))

	rows, err := db.Conn.Query(context.Background(), query, args...)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to fetch services"})
	}
	defer rows.Close()

	var services []ServiceSummary
	for rows.Next() {
		var s ServiceSummary
		if err := rows.Scan(&s.ID, &s.TaskerID, &s.Title, &s.Description, &s.Price, &s.Category, &s.Status, &s.CreatedAt, &s.AvgRating); err != nil {
			return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to parse record"})
		}
		services = append(services, s)
	}

	return c.JSON(http.StatusOK, echo.Map{
		"services": services,
		"pagination": echo.Map{
			"limit":  limit,
			"offset": offset,
		},
	})
}

// GetUserServices returns the authenticated tasker's own listings
func GetUserServices(c echo.Context) error {
	uid, ok := c.Get("user_id").(string)
	if !ok || uid == "" {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}

	rows, err := db.Conn.Query(context.Background(),
		`SELECT id, user_id, title, description, price, COALESCE(category, ''), COALESCE(status, 'active'), created_at
		 FROM services WHERE user_id = $1 ORDER BY created_at DESC`, uid)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to fetch services"})
	}
	defer rows.Close()

	var services []Service
	for rows.Next() {
		var s Service
		if err := rows.Scan(&s.ID, &s.TaskerID, &s.Title, &s.Description, &s.Price, &s.Category, &s.Status, &s.CreatedAt); err != nil {
			return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to parse record"})
		}
		services = append(services, s)
	}

	return c.JSON(http.StatusOK, echo.Map{"services": services})
}
