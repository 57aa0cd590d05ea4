package handler // handler package contains booking lifecycle handlers

import (
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/mentorship-escrow/internal/booking"
	"github.com/iliyamo/mentorship-escrow/internal/model"
)

// BookingHandler exposes the booking lifecycle over HTTP.  All routes are
// protected; the caller's address comes from the access token.
type BookingHandler struct {
	Manager *booking.Manager
}

func NewBookingHandler(m *booking.Manager) *BookingHandler {
	if m == nil {
		panic("nil manager passed to NewBookingHandler")
	}
	return &BookingHandler{Manager: m}
}

type createBookingReq struct {
	Mentor      string    `json:"mentor"`
	SessionTime time.Time `json:"session_time"`
	AmountCents uint64    `json:"amount_cents"`
	Type        string    `json:"type"` // PAID | COMMITMENT_FEE
}

type bookingResp struct {
	ID               uint64    `json:"id"`
	Mentee           string    `json:"mentee"`
	Mentor           string    `json:"mentor"`
	SessionTime      time.Time `json:"session_time"`
	AmountCents      uint64    `json:"amount_cents"`
	Status           string    `json:"status"`
	Type             string    `json:"type"`
	AttendanceSet    bool      `json:"attendance_set"`
	Attended         bool      `json:"attended"`
	CreatedByRelayer bool      `json:"created_by_relayer"`
	AckLink          string    `json:"ack_link,omitempty"`
}

func toBookingResp(b *model.Booking, link string) bookingResp {
	return bookingResp{
		ID:               b.ID,
		Mentee:           b.Mentee,
		Mentor:           b.Mentor,
		SessionTime:      b.SessionTime,
		AmountCents:      b.AmountCents,
		Status:           string(b.Status),
		Type:             string(b.Type),
		AttendanceSet:    b.AttendanceSet,
		Attended:         b.Attended,
		CreatedByRelayer: b.CreatedByRelayer,
		AckLink:          link,
	}
}

// Create handles POST /v1/bookings.  The caller becomes the mentee; the
// booked amount is custodied in the same operation.  For COMMITMENT_FEE
// bookings the response carries the acknowledgment link.
func (h *BookingHandler) Create(c echo.Context) error {
	addr, ok := currentAddress(c)
	if !ok {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	var req createBookingReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	typ := model.BookingType(strings.ToUpper(strings.TrimSpace(req.Type)))
	if typ == "" {
		typ = model.BookingPaid
	}
	b, link, err := h.Manager.CreateBooking(c.Request().Context(), addr, req.Mentor, req.SessionTime, req.AmountCents, typ, false)
	if err != nil {
		return domainError(c, err)
	}
	return c.JSON(http.StatusCreated, toBookingResp(b, link))
}

// List handles GET /v1/bookings and returns all bookings the caller is a
// party to, either side.
func (h *BookingHandler) List(c echo.Context) error {
	addr, ok := currentAddress(c)
	if !ok {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	items, err := h.Manager.ListByAddress(c.Request().Context(), addr)
	if err != nil {
		return domainError(c, err)
	}
	out := make([]bookingResp, 0, len(items))
	for i := range items {
		out = append(out, toBookingResp(&items[i], ""))
	}
	return c.JSON(http.StatusOK, echo.Map{"bookings": out})
}

// Get handles GET /v1/bookings/:id.  Only the parties may read a booking.
func (h *BookingHandler) Get(c echo.Context) error {
	addr, ok := currentAddress(c)
	if !ok {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	id, err := pathID(c)
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid id"})
	}
	b, err := h.Manager.Get(c.Request().Context(), id)
	if err != nil {
		return domainError(c, err)
	}
	if b.Mentee != addr && b.Mentor != addr {
		return c.JSON(http.StatusForbidden, echo.Map{"error": "forbidden"})
	}
	return c.JSON(http.StatusOK, toBookingResp(b, ""))
}

// Cancel handles POST /v1/bookings/:id/cancel (mentee only).
func (h *BookingHandler) Cancel(c echo.Context) error {
	addr, ok := currentAddress(c)
	if !ok {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	id, err := pathID(c)
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid id"})
	}
	if err := h.Manager.CancelBooking(c.Request().Context(), addr, id); err != nil {
		return domainError(c, err)
	}
	return c.NoContent(http.StatusNoContent)
}

// Claim handles POST /v1/bookings/:id/claim: the mentor collects the
// released share once the time-lock has opened.
func (h *BookingHandler) Claim(c echo.Context) error {
	addr, ok := currentAddress(c)
	if !ok {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	id, err := pathID(c)
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid id"})
	}
	if err := h.Manager.ClaimMentorPayment(c.Request().Context(), addr, id); err != nil {
		return domainError(c, err)
	}
	return c.NoContent(http.StatusNoContent)
}

// Refund handles POST /v1/bookings/:id/refund: the mentee of an attended
// COMMITMENT_FEE booking collects the refund.
func (h *BookingHandler) Refund(c echo.Context) error {
	addr, ok := currentAddress(c)
	if !ok {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	id, err := pathID(c)
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid id"})
	}
	if err := h.Manager.ClaimMenteeRefund(c.Request().Context(), addr, id); err != nil {
		return domainError(c, err)
	}
	return c.NoContent(http.StatusNoContent)
}
