package auth

import (
	"context"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"golang.org/x/crypto/bcrypt"

	"github.com/sudo-init-do/taskhub/internal/alerts"
	"github.com/sudo-init-do/taskhub/internal/db"
)

type SignupRequest struct {
	Name     string `json:"name" validate:"required"`
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,min=6"`
	Role     string `json:"role"`
}

type SignupResponse struct {
	Token string `json:"token"`
}

// ===== Signup =====
func Signup(c echo.Context) error {
	req := new(SignupRequest)
	if err := c.Bind(req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request"})
	}
	if req.Email == "" || len(req.Password) < 6 || req.Name == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "name, email and password (min 6 chars) are required"})
	}

	// Self-service roles only; admin is assigned out of band
	role := req.Role
	switch role {
	case "", "customer":
		role = "customer"
	case "tasker":
	default:
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "role must be customer or tasker"})
	}

	hashed, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "server error"})
	}

	ctx := context.Background()
	tx, err := db.Conn.Begin(ctx)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "db transaction error"})
	}
	defer tx.Rollback(ctx)

	var userID string
	err = tx.QueryRow(ctx, `
		INSERT INTO users (id, name, email, password, role)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id
	`, uuid.New().String(), req.Name, req.Email, string(hashed), role).Scan(&userID)
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "email already exists"})
	}

	// Create wallet for user
	_, err = tx.Exec(ctx, `
		INSERT INTO wallets (user_id, balance, escrow, created_at)
		VALUES ($1, 0, 0, $2)
	`, userID, time.Now())
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "wallet creation failed"})
	}

	if err := tx.Commit(ctx); err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "transaction failed"})
	}

	signed, err := IssueToken(userID, role)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "token generation failed"})
	}

	// Best-effort welcome email plus verification code
	_ = alerts.EnqueueWelcomeEmail(userID, req.Email, req.Name)
	_ = sendVerificationCode(ctx, userID, req.Email)

	return c.JSON(http.StatusCreated, SignupResponse{Token: signed})
}
