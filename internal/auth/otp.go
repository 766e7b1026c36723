package auth

import (
	"context"
	"crypto/rand"
	"fmt"
	"math/big"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/sudo-init-do/taskhub/internal/alerts"
	"github.com/sudo-init-do/taskhub/internal/cache"
	"github.com/sudo-init-do/taskhub/internal/db"
)

const otpTTL = 10 * time.Minute

func otpKey(userID string) string {
	return "otp:" + userID
}

func generateCode() (string, error) {
	n, err := rand.Int(rand.Reader, big.NewInt(1000000))
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%06d", n.Int64()), nil
}

func sendVerificationCode(ctx context.Context, userID, email string) error {
	if cache.Default == nil {
		return fmt.Errorf("otp storage unavailable")
	}
	code, err := generateCode()
	if err != nil {
		return err
	}
	if err := cache.Default.SetString(ctx, otpKey(userID), code, otpTTL); err != nil {
		return err
	}
	return alerts.EnqueueOTPCode(userID, email, code)
}

type VerifyOTPRequest struct {
	Code string `json:"code" validate:"required"`
}

// POST /auth/otp/verify
func VerifyOTP(c echo.Context) error {
	userID, ok := c.Get("user_id").(string)
	if !ok || userID == "" {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}

	req := new(VerifyOTPRequest)
	if err := c.Bind(req); err != nil || req.Code == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "code required"})
	}
	if cache.Default == nil {
		return c.JSON(http.StatusServiceUnavailable, echo.Map{"error": "verification unavailable"})
	}

	ctx := context.Background()
	stored, found, err := cache.Default.GetString(ctx, otpKey(userID))
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "verification failed"})
	}
	if !found || stored != req.Code {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid or expired code"})
	}

	_ = cache.Default.Delete(ctx, otpKey(userID))
	if _, err := db.Conn.Exec(ctx, `UPDATE users SET email_verified = TRUE, updated_at = NOW() WHERE id = $1`, userID); err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to mark verified"})
	}

	return c.JSON(http.StatusOK, echo.Map{"message": "email verified"})
}

// POST /auth/otp/resend
func ResendOTP(c echo.Context) error {
	userID, ok := c.Get("user_id").(string)
	if !ok || userID == "" {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}

	ctx := context.Background()
	var email string
	var verified bool
	err := db.Conn.QueryRow(ctx,
		`SELECT email, COALESCE(email_verified, FALSE) FROM users WHERE id = $1`, userID,
	).Scan(&email, &verified)
	if err != nil {
		return c.JSON(http.StatusNotFound, echo.Map{"error": "user not found"})
	}
	if verified {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "email already verified"})
	}

	if err := sendVerificationCode(ctx, userID, email); err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to send code"})
	}
	return c.JSON(http.StatusOK, echo.Map{"message": "verification code sent"})
}
