package middleware

import (
	"errors"
	"fmt"
	"strings"

	"github.com/golang-jwt/jwt/v5"
	"github.com/labstack/echo/v4"

	"github.com/bottlerun/exchange-api/internal/core/domain"
)

// Context keys set by Auth.
const (
	KeyUserID   = "user_id"
	KeyUsername = "username"
	KeyRole     = "role"
)

// Identity is what a valid token says about its bearer.
type Identity struct {
	UserID   int64
	Username string
	Role     domain.Role
}

// ParseToken validates an HS256 token and extracts the caller's identity.
// Expired tokens yield domain.ErrTokenExpired; anything else unusable yields
// domain.ErrInvalidCredentials.
func ParseToken(secret, raw string) (Identity, error) {
	claims := jwt.MapClaims{}
	tkn, err := jwt.ParseWithClaims(raw, claims, func(token *jwt.Token) (interface{}, error) {
		if token.Method.Alg() != jwt.SigningMethodHS256.Alg() {
			return nil, jwt.ErrTokenSignatureInvalid
		}
		return []byte(secret), nil
	})
	if errors.Is(err, jwt.ErrTokenExpired) {
		return Identity{}, domain.ErrTokenExpired
	}
	if err != nil || !tkn.Valid {
		return Identity{}, domain.ErrInvalidCredentials
	}

	// JSON numbers decode as float64.
	id, ok := claims["id"].(float64)
	if !ok || id <= 0 {
		return Identity{}, fmt.Errorf("token missing id: %w", domain.ErrInvalidCredentials)
	}
	role, _ := claims["role"].(string)
	if !domain.Role(role).Valid() {
		return Identity{}, fmt.Errorf("token role %q: %w", role, domain.ErrInvalidCredentials)
	}
	username, _ := claims["username"].(string)

	return Identity{UserID: int64(id), Username: username, Role: domain.Role(role)}, nil
}

// Auth validates the bearer token and injects the identity into context.
func Auth(jwtSecret string) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			authHeader := c.Request().Header.Get("Authorization")
			if authHeader == "" {
				return fmt.Errorf("missing authorization header: %w", domain.ErrInvalidCredentials)
			}

			parts := strings.SplitN(authHeader, " ", 2)
			if len(parts) != 2 || !strings.EqualFold(parts[0], "bearer") {
				return fmt.Errorf("malformed authorization header: %w", domain.ErrInvalidCredentials)
			}

			id, err := ParseToken(jwtSecret, parts[1])
			if err != nil {
				return err
			}

			c.Set(KeyUserID, id.UserID)
			c.Set(KeyUsername, id.Username)
			c.Set(KeyRole, id.Role)

			return next(c)
		}
	}
}
