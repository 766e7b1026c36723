package user

import (
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/sudo-init-do/taskhub/internal/db"
)

type PublicProfile struct {
	ID            string    `json:"id"`
	Name          string    `json:"name"`
	Role          string    `json:"role"`
	Bio           string    `json:"bio,omitempty"`
	AvatarURL     string    `json:"avatar_url,omitempty"`
	CompletedJobs int       `json:"completed_jobs"`
	AverageRating float64   `json:"average_rating"`
	MemberSince   time.Time `json:"member_since"`
}

// GET /users/:id — public view, no email, stats folded in for taskers
func GetPublicProfile(c echo.Context) error {
	uid := c.Param("id")
	if uid == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "missing user id"})
	}

	var p PublicProfile
	err := db.Conn.QueryRow(c.Request().Context(),
		`SELECT u.id::text, u.name, u.role, COALESCE(u.bio, ''), COALESCE(u.avatar_url, ''),
		        COALESCE(ts.completed_jobs, 0), COALESCE(ts.average_rating, 0), u.created_at
		 FROM users u
		 LEFT JOIN tasker_stats ts ON ts.tasker_id = u.id
		 WHERE u.id = $1 AND COALESCE(u.is_active, TRUE)`, uid,
	).Scan(&p.ID, &p.Name, &p.Role, &p.Bio, &p.AvatarURL, &p.CompletedJobs, &p.AverageRating, &p.MemberSince)
	if err != nil {
		return c.JSON(http.StatusNotFound, echo.Map{"error": "user not found"})
	}

	return c.JSON(http.StatusOK, echo.Map{"user": p})
}
