package middleware

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/labstack/echo/v4"

	"github.com/bottlerun/exchange-api/internal/core/domain"
)

func signToken(t *testing.T, secret string, claims jwt.MapClaims) string {
	t.Helper()
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
	if err != nil {
		t.Fatalf("sign token: %v", err)
	}
	return signed
}

func validClaims() jwt.MapClaims {
	return jwt.MapClaims{
		"id":       int64(42),
		"username": "alice",
		"role":     "Runner",
		"exp":      time.Now().Add(time.Hour).Unix(),
	}
}

func runAuth(t *testing.T, header string, next echo.HandlerFunc) (*httptest.ResponseRecorder, error) {
	t.Helper()
	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	if header != "" {
		req.Header.Set("Authorization", header)
	}
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	return rec, Auth("secret")(next)(c)
}

func TestAuthMiddleware_ValidToken(t *testing.T) {
	signed := signToken(t, "secret", validClaims())

	called := false
	rec, err := runAuth(t, "Bearer "+signed, func(c echo.Context) error {
		called = true
		if c.Get(KeyUserID) != int64(42) {
			t.Fatalf("user_id not set: %v", c.Get(KeyUserID))
		}
		if c.Get(KeyUsername) != "alice" {
			t.Fatalf("username not set")
		}
		if c.Get(KeyRole) != domain.RoleRunner {
			t.Fatalf("role not set: %v", c.Get(KeyRole))
		}
		return c.NoContent(http.StatusOK)
	})

	if err != nil {
		t.Fatalf("handler error: %v", err)
	}
	if !called {
		t.Fatalf("next not called")
	}
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
}

func TestAuthMiddleware_MissingHeader(t *testing.T) {
	_, err := runAuth(t, "", func(c echo.Context) error {
		t.Fatalf("should not reach next")
		return nil
	})

	if !errors.Is(err, domain.ErrInvalidCredentials) {
		t.Fatalf("expected ErrInvalidCredentials, got %v", err)
	}
}

func TestAuthMiddleware_InvalidHeaderFormat(t *testing.T) {
	_, err := runAuth(t, "Token abc", func(c echo.Context) error {
		t.Fatalf("should not reach next")
		return nil
	})

	if !errors.Is(err, domain.ErrInvalidCredentials) {
		t.Fatalf("expected ErrInvalidCredentials, got %v", err)
	}
}

func TestAuthMiddleware_InvalidToken(t *testing.T) {
	_, err := runAuth(t, "Bearer not-a-token", func(c echo.Context) error {
		t.Fatalf("should not reach next")
		return nil
	})

	if !errors.Is(err, domain.ErrInvalidCredentials) {
		t.Fatalf("expected ErrInvalidCredentials, got %v", err)
	}
}

func TestParseToken_Expired(t *testing.T) {
	claims := validClaims()
	claims["exp"] = time.Now().Add(-time.Minute).Unix()

	if _, err := ParseToken("secret", signToken(t, "secret", claims)); !errors.Is(err, domain.ErrTokenExpired) {
		t.Fatalf("expected ErrTokenExpired, got %v", err)
	}
}

func TestParseToken_WrongSecret(t *testing.T) {
	if _, err := ParseToken("secret", signToken(t, "other", validClaims())); !errors.Is(err, domain.ErrInvalidCredentials) {
		t.Fatalf("expected ErrInvalidCredentials, got %v", err)
	}
}

func TestParseToken_RejectsNonHS256(t *testing.T) {
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS384, validClaims()).SignedString([]byte("secret"))
	if err != nil {
		t.Fatalf("sign token: %v", err)
	}
	if _, err := ParseToken("secret", signed); !errors.Is(err, domain.ErrInvalidCredentials) {
		t.Fatalf("expected ErrInvalidCredentials, got %v", err)
	}
}

func TestParseToken_MissingIDOrBadRole(t *testing.T) {
	noID := validClaims()
	delete(noID, "id")
	if _, err := ParseToken("secret", signToken(t, "secret", noID)); !errors.Is(err, domain.ErrInvalidCredentials) {
		t.Fatalf("expected ErrInvalidCredentials for missing id, got %v", err)
	}

	badRole := validClaims()
	badRole["role"] = "guest"
	if _, err := ParseToken("secret", signToken(t, "secret", badRole)); !errors.Is(err, domain.ErrInvalidCredentials) {
		t.Fatalf("expected ErrInvalidCredentials for bad role, got %v", err)
	}
}
