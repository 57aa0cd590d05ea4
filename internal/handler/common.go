package handler // handler defines http handlers

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/mentorship-escrow/internal/booking"
	"github.com/iliyamo/mentorship-escrow/internal/escrow"
	"github.com/iliyamo/mentorship-escrow/internal/session"
	"github.com/iliyamo/mentorship-escrow/internal/token"
)

// currentUserID extracts the user_id set by the JWT middleware.
func currentUserID(c echo.Context) (uint64, bool) {
	switch t := c.Get("user_id").(type) {
	case uint64:
		return t, true
	case int:
		return uint64(t), true
	case int64:
		return uint64(t), true
	case float64:
		return uint64(t), true
	case string:
		if n, err := strconv.ParseUint(t, 10, 64); err == nil {
			return n, true
		}
	}
	return 0, false
}

// currentAddress extracts the account address set by the JWT middleware.
func currentAddress(c echo.Context) (string, bool) {
	if s, ok := c.Get("address").(string); ok && s != "" {
		return s, true
	}
	return "", false
}

// pathID parses the :id route parameter.
func pathID(c echo.Context) (uint64, error) {
	return strconv.ParseUint(c.Param("id"), 10, 64)
}

// domainStatus maps the domain sentinel errors onto HTTP status codes.
// Unrecognized errors map to 500.
func domainStatus(err error) int {
	switch {
	case errors.Is(err, booking.ErrNotFound),
		errors.Is(err, escrow.ErrNotFound),
		errors.Is(err, session.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, booking.ErrInvalidInput),
		errors.Is(err, escrow.ErrInvalidInput):
		return http.StatusBadRequest
	case errors.Is(err, booking.ErrNotMentee),
		errors.Is(err, booking.ErrNotMentor),
		errors.Is(err, session.ErrNotMentor),
		errors.Is(err, session.ErrMentorMismatch):
		return http.StatusForbidden
	case errors.Is(err, booking.ErrMentorUnknown),
		errors.Is(err, session.ErrBadToken):
		return http.StatusUnprocessableEntity
	case errors.Is(err, booking.ErrBadStatus),
		errors.Is(err, booking.ErrWrongType),
		errors.Is(err, booking.ErrAttendanceNotConfirmed),
		errors.Is(err, booking.ErrTooLate),
		errors.Is(err, escrow.ErrExists),
		errors.Is(err, escrow.ErrNotClaimable),
		errors.Is(err, escrow.ErrAlreadyClaimed),
		errors.Is(err, escrow.ErrNothingToClaim),
		errors.Is(err, escrow.ErrNotClaimed),
		errors.Is(err, escrow.ErrFeeClaimed),
		errors.Is(err, escrow.ErrWrongType),
		errors.Is(err, escrow.ErrInvariant),
		errors.Is(err, escrow.ErrInsufficientPool),
		errors.Is(err, escrow.ErrInactive),
		errors.Is(err, escrow.ErrEmergencyOnly),
		errors.Is(err, session.ErrAlreadyGenerated),
		errors.Is(err, session.ErrWindowClosed),
		errors.Is(err, session.ErrLinkExpired),
		errors.Is(err, session.ErrNotExpired),
		errors.Is(err, session.ErrConsumed):
		return http.StatusConflict
	case errors.Is(err, token.ErrInsufficientFunds):
		return http.StatusPaymentRequired
	case errors.Is(err, token.ErrUnknownAccount):
		return http.StatusUnprocessableEntity
	default:
		return http.StatusInternalServerError
	}
}

// domainError writes the standard error envelope for a domain failure.
func domainError(c echo.Context, err error) error {
	status := domainStatus(err)
	msg := err.Error()
	if status == http.StatusInternalServerError {
		msg = "internal error"
	}
	return c.JSON(status, echo.Map{"error": msg})
}
