package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

var (
	jwtSecret []byte
	tokenTTL  = 72 * time.Hour
)

// Init sets the signing secret and session lifetime used by the package.
func Init(secret string, ttl time.Duration) {
	jwtSecret = []byte(secret)
	if ttl > 0 {
		tokenTTL = ttl
	}
}

// Claims is the verified content of a session token.
type Claims struct {
	UserID    string
	Role      string
	TokenID   string
	ExpiresAt time.Time
}

// IssueToken signs a session token for the user.
func IssueToken(userID, role string) (string, error) {
	claims := jwt.MapClaims{
		"user_id": userID,
		"role":    role,
		"jti":     uuid.New().String(),
		"exp":     time.Now().Add(tokenTTL).Unix(),
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(jwtSecret)
	if err != nil {
		return "", fmt.Errorf("sign token: %w", err)
	}
	return signed, nil
}

// ParseToken verifies a session token and extracts its claims.
func ParseToken(tokenStr string) (Claims, error) {
	var out Claims

	claims := jwt.MapClaims{}
	token, err := jwt.ParseWithClaims(tokenStr, claims, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.New("unexpected signing method")
		}
		return jwtSecret, nil
	})
	if err != nil {
		return out, err
	}
	if !token.Valid {
		return out, errors.New("invalid token")
	}

	userID, _ := claims["user_id"].(string)
	if userID == "" {
		return out, errors.New("invalid token claims")
	}
	out.UserID = userID
	out.Role, _ = claims["role"].(string)
	out.TokenID, _ = claims["jti"].(string)
	if exp, ok := claims["exp"].(float64); ok {
		out.ExpiresAt = time.Unix(int64(exp), 0)
	}
	return out, nil
}
