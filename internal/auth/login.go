package auth

import (
	"context"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"golang.org/x/crypto/bcrypt"

	"github.com/sudo-init-do/taskhub/internal/cache"
	"github.com/sudo-init-do/taskhub/internal/db"
)

type LoginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

type LoginResponse struct {
	Token string `json:"token"`
}

// ===== Login =====
func Login(c echo.Context) error {
	req := new(LoginRequest)
	if err := c.Bind(req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request"})
	}

	ctx := context.Background()

	var (
		userID   string
		password string
		role     string
		isActive bool
	)
	err := db.Conn.QueryRow(ctx, `
        SELECT id, password, role, COALESCE(is_active, TRUE) FROM users WHERE email = $1
    `, req.Email).Scan(&userID, &password, &role, &isActive)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "invalid credentials"})
	}
	if !isActive {
		return c.JSON(http.StatusForbidden, echo.Map{"error": "account suspended"})
	}
	if err := bcrypt.CompareHashAndPassword([]byte(password), []byte(req.Password)); err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "invalid credentials"})
	}

	signed, err := IssueToken(userID, role)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "token generation failed"})
	}

	return c.JSON(http.StatusOK, LoginResponse{Token: signed})
}

// ===== Logout =====
// Revokes the presented token by denylisting its id until expiry.
func Logout(c echo.Context) error {
	tokenID, _ := c.Get("token_id").(string)
	expiresAt, _ := c.Get("token_expires").(time.Time)
	if tokenID == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "no session token"})
	}

	ttl := time.Until(expiresAt)
	if ttl <= 0 {
		ttl = time.Minute
	}
	if cache.Default != nil {
		if err := cache.Default.SetString(context.Background(), revokedKey(tokenID), "1", ttl); err != nil {
			return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to revoke session"})
		}
	}
	return c.JSON(http.StatusOK, echo.Map{"message": "logged out"})
}

func revokedKey(tokenID string) string {
	return "session:revoked:" + tokenID
}

// IsRevoked reports whether the token id has been denylisted by Logout.
func IsRevoked(ctx context.Context, tokenID string) bool {
	if cache.Default == nil || tokenID == "" {
		return false
	}
	_, found, err := cache.Default.GetString(ctx, revokedKey(tokenID))
	if err != nil {
		return false
	}
	return found
}
