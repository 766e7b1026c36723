package middleware

import (
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/sudo-init-do/taskhub/internal/auth"
)

// JWTMiddleware authenticates the bearer token and loads the session identity
// into the request context.
func JWTMiddleware(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		header := c.Request().Header.Get("Authorization")
		if header == "" {
			return c.JSON(http.StatusUnauthorized, echo.Map{"error": "missing Authorization header"})
		}
		tokenStr, ok := strings.CutPrefix(header, "Bearer ")
		if !ok || tokenStr == "" {
			return c.JSON(http.StatusUnauthorized, echo.Map{"error": "invalid Authorization format"})
		}

		claims, err := auth.ParseToken(tokenStr)
		if err != nil {
			return c.JSON(http.StatusUnauthorized, echo.Map{"error": "invalid or expired token"})
		}
		if auth.IsRevoked(c.Request().Context(), claims.TokenID) {
			return c.JSON(http.StatusUnauthorized, echo.Map{"error": "session revoked"})
		}

		c.Set("user_id", claims.UserID)
		c.Set("role", claims.Role)
		c.Set("token_id", claims.TokenID)
		c.Set("token_expires", claims.ExpiresAt)
		return next(c)
	}
}
