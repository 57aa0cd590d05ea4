package handler // handler package contains attendance acknowledgment handlers

import (
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"
	qrcode "github.com/skip2/go-qrcode"

	"github.com/iliyamo/mentorship-escrow/internal/session"
)

// SessionHandler exposes the acknowledgment flow over HTTP.  The token in
// the acknowledgment link is a correlation digest, not a bearer secret: the
// acknowledging caller must additionally authenticate as the mentor.
type SessionHandler struct {
	Engine *session.Engine
}

func NewSessionHandler(e *session.Engine) *SessionHandler {
	if e == nil {
		panic("nil engine passed to NewSessionHandler")
	}
	return &SessionHandler{Engine: e}
}

// Link handles GET /v1/sessions/:id/link: returns the shareable
// acknowledgment link for a booking the caller is a party to.
func (h *SessionHandler) Link(c echo.Context) error {
	addr, ok := currentAddress(c)
	if !ok {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	id, err := pathID(c)
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid id"})
	}
	rec, err := h.Engine.Get(c.Request().Context(), id)
	if err != nil {
		return domainError(c, err)
	}
	if rec.Mentee != addr && rec.Mentor != addr {
		return c.JSON(http.StatusForbidden, echo.Map{"error": "forbidden"})
	}
	return c.JSON(http.StatusOK, echo.Map{
		"link":       h.Engine.Link(id, rec.TokenDigest),
		"expires_at": rec.ExpiresAt,
		"consumed":   rec.Consumed,
	})
}

// QR handles GET /v1/sessions/:id/qr: renders the acknowledgment link as a
// PNG QR code so the mentee can present it on a phone screen.
func (h *SessionHandler) QR(c echo.Context) error {
	addr, ok := currentAddress(c)
	if !ok {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	id, err := pathID(c)
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid id"})
	}
	rec, err := h.Engine.Get(c.Request().Context(), id)
	if err != nil {
		return domainError(c, err)
	}
	if rec.Mentee != addr && rec.Mentor != addr {
		return c.JSON(http.StatusForbidden, echo.Map{"error": "forbidden"})
	}
	png, err := qrcode.Encode(h.Engine.Link(id, rec.TokenDigest), qrcode.Medium, 256)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "render qr failed"})
	}
	return c.Blob(http.StatusOK, "image/png", png)
}

// Ack handles POST /v1/sessions/:id/ack?token=...: the mentor confirms
// attendance by presenting the link token.  On success the booking is
// re-priced for a full mentee refund.
func (h *SessionHandler) Ack(c echo.Context) error {
	addr, ok := currentAddress(c)
	if !ok {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	id, err := pathID(c)
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid id"})
	}
	digest := strings.TrimSpace(c.QueryParam("token"))
	if digest == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "token required"})
	}
	if err := h.Engine.Acknowledge(c.Request().Context(), addr, id, digest); err != nil {
		return domainError(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"acknowledged": true})
}

// NoShow handles POST /v1/sessions/:id/no-show: any authenticated caller
// may flip an expired, unconsumed acknowledgment to the no-show outcome.
func (h *SessionHandler) NoShow(c echo.Context) error {
	if _, ok := currentAddress(c); !ok {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	id, err := pathID(c)
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid id"})
	}
	if err := h.Engine.RecordNoShow(c.Request().Context(), id); err != nil {
		return domainError(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"no_show": true})
}
