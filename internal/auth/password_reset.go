package auth

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/labstack/echo/v4"
	"golang.org/x/crypto/bcrypt"

	"github.com/sudo-init-do/taskhub/internal/alerts"
	"github.com/sudo-init-do/taskhub/internal/db"
)

type RequestPasswordResetRequest struct {
	Email string `json:"email" validate:"required,email"`
}

type RequestPasswordResetResponse struct {
	Message string `json:"message"`
}

// POST /auth/password/request
// Always responds with success message to avoid user enumeration.
func RequestPasswordReset(c echo.Context) error {
	generic := RequestPasswordResetResponse{Message: "If the email exists, a reset link has been sent."}

	req := new(RequestPasswordResetRequest)
	if err := c.Bind(req); err != nil || req.Email == "" {
		return c.JSON(http.StatusOK, generic)
	}

	var userID, name string
	err := db.Conn.QueryRow(context.Background(), `SELECT id, name FROM users WHERE email = $1`, req.Email).Scan(&userID, &name)
	if err != nil || userID == "" {
		return c.JSON(http.StatusOK, generic)
	}

	expiryMinutes := 30
	if v := os.Getenv("PASSWORD_RESET_EXP_MINUTES"); v != "" {
		if dur, parseErr := time.ParseDuration(v + "m"); parseErr == nil {
			expiryMinutes = int(dur.Minutes())
		}
	}
	claims := jwt.MapClaims{
		"user_id": userID,
		"purpose": "password_reset",
		"exp":     time.Now().Add(time.Duration(expiryMinutes) * time.Minute).Unix(),
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, signErr := token.SignedString(jwtSecret)
	if signErr != nil {
		return c.JSON(http.StatusOK, generic)
	}

	base := os.Getenv("APP_URL")
	if base == "" {
		base = "http://localhost:3000"
	}
	resetURL := fmt.Sprintf("%s/reset-password?token=%s", strings.TrimRight(base, "/"), url.QueryEscape(signed))

	_ = alerts.EnqueuePasswordReset(userID, req.Email, resetURL, name)

	return c.JSON(http.StatusOK, generic)
}

type ResetPasswordRequest struct {
	Token       string `json:"token" validate:"required"`
	NewPassword string `json:"new_password" validate:"required,min=6"`
}

// POST /auth/password/reset
func ResetPassword(c echo.Context) error {
	req := new(ResetPasswordRequest)
	if err := c.Bind(req); err != nil || req.Token == "" || len(req.NewPassword) < 6 {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request"})
	}

	claims := jwt.MapClaims{}
	parsed, err := jwt.ParseWithClaims(req.Token, claims, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method")
		}
		return jwtSecret, nil
	})
	if err != nil || !parsed.Valid {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "invalid or expired token"})
	}

	purpose, _ := claims["purpose"].(string)
	if purpose != "password_reset" {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "invalid token purpose"})
	}
	userID, _ := claims["user_id"].(string)
	if userID == "" {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "invalid token subject"})
	}

	hashed, err := bcrypt.GenerateFromPassword([]byte(req.NewPassword), bcrypt.DefaultCost)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "server error"})
	}

	ct, err := db.Conn.Exec(context.Background(),
		`UPDATE users SET password = $1, updated_at = NOW() WHERE id = $2`, string(hashed), userID)
	if err != nil || ct.RowsAffected() == 0 {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to reset password"})
	}

	return c.JSON(http.StatusOK, echo.Map{"message": "password updated"})
}
