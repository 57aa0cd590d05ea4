package handler // handler package contains the delegated-request endpoint

import (
	"errors"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/mentorship-escrow/internal/relay"
)

// RelayHandler accepts signed delegated requests.  The endpoint itself is
// unauthenticated: authorization is the signature inside the request, which
// is how a third-party submitter can act for a signer without holding the
// signer's session.
type RelayHandler struct {
	Relay *relay.Relay
}

func NewRelayHandler(r *relay.Relay) *RelayHandler {
	if r == nil {
		panic("nil relay passed to NewRelayHandler")
	}
	return &RelayHandler{Relay: r}
}

type relayReq struct {
	Request string `json:"request"` // the signed JWT envelope
}

// Process handles POST /v1/relay.
func (h *RelayHandler) Process(c echo.Context) error {
	var req relayReq
	if err := c.Bind(&req); err != nil || strings.TrimSpace(req.Request) == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "request required"})
	}
	rcpt, err := h.Relay.Process(c.Request().Context(), strings.TrimSpace(req.Request))
	if err != nil {
		return c.JSON(relayStatus(err), echo.Map{"error": err.Error()})
	}
	return c.JSON(http.StatusOK, rcpt)
}

func relayStatus(err error) int {
	switch {
	case errors.Is(err, relay.ErrExpired),
		errors.Is(err, relay.ErrBadNonce),
		errors.Is(err, relay.ErrReplayed):
		return http.StatusConflict
	case errors.Is(err, relay.ErrBadSignature),
		errors.Is(err, relay.ErrNoCredentials),
		errors.Is(err, relay.ErrUnknownSigner):
		return http.StatusUnauthorized
	case errors.Is(err, relay.ErrWrongTarget),
		errors.Is(err, relay.ErrUnknownKind),
		errors.Is(err, relay.ErrBadPayload):
		return http.StatusUnprocessableEntity
	default:
		// Dispatch failures carry the booking domain's sentinels.
		return domainStatus(err)
	}
}
