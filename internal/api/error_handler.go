package api

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"github.com/bottlerun/exchange-api/internal/core/domain"
)

// errorResponse is the canonical error envelope for all API errors.
type errorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code"`
}

var codeStatus = map[string]int{
	domain.CodeNotAuthorized:     http.StatusForbidden,
	domain.CodeInvalidState:      http.StatusConflict,
	domain.CodeAlreadyAccepted:   http.StatusConflict,
	domain.CodeActiveOrderExists: http.StatusConflict,
	domain.CodeNotFound:          http.StatusNotFound,
	domain.CodeInvalidCode:       http.StatusBadRequest,
	domain.CodeNoRecipient:       http.StatusBadRequest,
	domain.CodeInvalidCredential: http.StatusUnauthorized,
	domain.CodeExpired:           http.StatusUnauthorized,
	domain.CodeNotVerified:       http.StatusForbidden,
	domain.CodeUserExists:        http.StatusConflict,
	domain.CodeNothingToUpdate:   http.StatusBadRequest,
	domain.CodeValidationFailed:  http.StatusUnprocessableEntity,
}

// NewHTTPErrorHandler returns an echo.HTTPErrorHandler that:
//   - Maps known domain errors to their HTTP status and wire code.
//   - Logs unexpected errors internally without leaking details to the client.
//   - Renders a consistent JSON envelope: {"error": "<message>", "code": "<CODE>"}.
func NewHTTPErrorHandler(log zerolog.Logger) echo.HTTPErrorHandler {
	return func(err error, c echo.Context) {
		if c.Response().Committed {
			return
		}

		status, body := resolveError(err, log, c)
		_ = c.JSON(status, body)
	}
}

func resolveError(err error, log zerolog.Logger, c echo.Context) (int, errorResponse) {
	// Echo's own errors (router 404/405, body too large, etc.)
	var he *echo.HTTPError
	if errors.As(err, &he) {
		return he.Code, errorResponse{Error: fmt.Sprintf("%v", he.Message), Code: httpErrorCode(he.Code)}
	}

	code := domain.ErrorCode(err)
	if status, ok := codeStatus[code]; ok {
		return status, errorResponse{Error: err.Error(), Code: code}
	}

	// Unexpected error: log the real cause, return a generic message.
	log.Error().
		Err(err).
		Str("method", c.Request().Method).
		Str("path", c.Path()).
		Msg("unhandled error")

	return http.StatusInternalServerError, errorResponse{Error: "internal server error", Code: domain.CodeInternal}
}

func httpErrorCode(status int) string {
	switch {
	case status == http.StatusNotFound:
		return domain.CodeNotFound
	case status == http.StatusUnauthorized:
		return domain.CodeInvalidCredential
	case status == http.StatusForbidden:
		return domain.CodeNotAuthorized
	case status >= 500:
		return domain.CodeInternal
	default:
		return domain.CodeValidationFailed
	}
}
