package handler

import (
	"fmt"
	"strconv"

	"github.com/labstack/echo/v4"

	"github.com/bottlerun/exchange-api/internal/api/middleware"
	"github.com/bottlerun/exchange-api/internal/core/domain"
)

// callerID returns the authenticated user's ID set by the Auth middleware.
// Its absence means the route was mounted without Auth.
func callerID(c echo.Context) (int64, error) {
	id, _ := c.Get(middleware.KeyUserID).(int64)
	if id <= 0 {
		return 0, fmt.Errorf("missing authentication claims: %w", domain.ErrInvalidCredentials)
	}
	return id, nil
}

// orderIDParam parses the :id path parameter.
func orderIDParam(c echo.Context) (int64, error) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("invalid order id %q: %w", c.Param("id"), domain.ErrValidation)
	}
	return id, nil
}

// bindAndValidate decodes the body into req and runs struct validation.
func bindAndValidate(c echo.Context, req any) error {
	if err := c.Bind(req); err != nil {
		return fmt.Errorf("invalid payload: %w", domain.ErrValidation)
	}
	if err := c.Validate(req); err != nil {
		return err
	}
	return nil
}
