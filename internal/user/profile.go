package user

import (
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/sudo-init-do/taskhub/internal/db"
)

type Profile struct {
	ID            string    `json:"id"`
	Name          string    `json:"name"`
	Email         string    `json:"email"`
	Role          string    `json:"role"`
	Bio           string    `json:"bio,omitempty"`
	AvatarURL     string    `json:"avatar_url,omitempty"`
	EmailVerified bool      `json:"email_verified"`
	CreatedAt     time.Time `json:"created_at"`
}

// GET /user/profile
func GetProfile(c echo.Context) error {
	uid, ok := c.Get("user_id").(string)
	if !ok || uid == "" {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "invalid or missing token"})
	}

	var p Profile
	err := db.Conn.QueryRow(c.Request().Context(),
		`SELECT id::text, name, email, role, COALESCE(bio, ''), COALESCE(avatar_url, ''),
		        COALESCE(email_verified, FALSE), created_at
		 FROM users WHERE id = $1`, uid,
	).Scan(&p.ID, &p.Name, &p.Email, &p.Role, &p.Bio, &p.AvatarURL, &p.EmailVerified, &p.CreatedAt)
	if err != nil {
		return c.JSON(http.StatusNotFound, echo.Map{"error": "user not found"})
	}

	return c.JSON(http.StatusOK, echo.Map{"user": p})
}
