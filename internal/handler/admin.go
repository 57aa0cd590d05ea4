package handler // handler package contains platform-admin handlers

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/mentorship-escrow/internal/booking"
	"github.com/iliyamo/mentorship-escrow/internal/escrow"
	"github.com/iliyamo/mentorship-escrow/internal/model"
	"github.com/iliyamo/mentorship-escrow/internal/repository"
	"github.com/iliyamo/mentorship-escrow/internal/session"
	"github.com/iliyamo/mentorship-escrow/internal/token"
)

// AdminHandler exposes the privileged operations.  It holds the admin
// facades obtained at construction time; the ADMIN gate on the routes
// is the second layer.
type AdminHandler struct {
	Bookings booking.AdminFacade
	Vault    escrow.AdminFacade
	Sessions *session.Engine
	Roles    *repository.RoleRepo
	Users    *repository.UserRepo
	Wallet   *token.WalletLedger
}

func NewAdminHandler(b booking.AdminFacade, v escrow.AdminFacade, sessions *session.Engine, roles *repository.RoleRepo, users *repository.UserRepo, wallet *token.WalletLedger) *AdminHandler {
	return &AdminHandler{Bookings: b, Vault: v, Sessions: sessions, Roles: roles, Users: users, Wallet: wallet}
}

// ConfirmAttendance handles POST /v1/admin/bookings/:id/attendance with
// body {"attended": bool}: records the outcome bypassing the link flow.
func (h *AdminHandler) ConfirmAttendance(c echo.Context) error {
	id, err := pathID(c)
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid id"})
	}
	var req struct {
		Attended bool `json:"attended"`
	}
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	if err := h.Bookings.ConfirmAttendance(c.Request().Context(), id, req.Attended); err != nil {
		return domainError(c, err)
	}
	return c.NoContent(http.StatusNoContent)
}

// MarkInProgress handles POST /v1/admin/bookings/:id/start.
func (h *AdminHandler) MarkInProgress(c echo.Context) error {
	id, err := pathID(c)
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid id"})
	}
	if err := h.Bookings.MarkInProgress(c.Request().Context(), id); err != nil {
		return domainError(c, err)
	}
	return c.NoContent(http.StatusNoContent)
}

// OverrideStatus handles PUT /v1/admin/bookings/:id/status with body
// {"status": "..."}: rewrites the status outside the transition graph.
func (h *AdminHandler) OverrideStatus(c echo.Context) error {
	id, err := pathID(c)
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid id"})
	}
	var req struct {
		Status string `json:"status"`
	}
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	status := model.BookingStatus(strings.ToUpper(strings.TrimSpace(req.Status)))
	if err := h.Bookings.EmergencyUpdateStatus(c.Request().Context(), id, status); err != nil {
		return domainError(c, err)
	}
	return c.NoContent(http.StatusNoContent)
}

// ClaimPlatformFee handles POST /v1/admin/escrows/:id/fee.
func (h *AdminHandler) ClaimPlatformFee(c echo.Context) error {
	id, err := pathID(c)
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid id"})
	}
	if err := h.Bookings.ClaimPlatformFee(c.Request().Context(), id); err != nil {
		return domainError(c, err)
	}
	return c.NoContent(http.StatusNoContent)
}

// ResolveAttendance handles POST /v1/admin/sessions/:id/resolve with body
// {"mentor": "...", "attended": bool}: forces the attendance outcome when a
// link was lost or never delivered, bypassing expiry and the consumed latch.
// The supplied mentor must match the stored record as a sanity binding.
func (h *AdminHandler) ResolveAttendance(c echo.Context) error {
	id, err := pathID(c)
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid id"})
	}
	var req struct {
		Mentor   string `json:"mentor"`
		Attended bool   `json:"attended"`
	}
	if err := c.Bind(&req); err != nil || strings.TrimSpace(req.Mentor) == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "mentor required"})
	}
	if err := h.Sessions.EmergencyResolve(c.Request().Context(), strings.TrimSpace(req.Mentor), id, req.Attended); err != nil {
		return domainError(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"attended": req.Attended})
}

// SetEmergencyMode handles PUT /v1/admin/emergency with body
// {"enabled": bool}.
func (h *AdminHandler) SetEmergencyMode(c echo.Context) error {
	var req struct {
		Enabled bool `json:"enabled"`
	}
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	h.Vault.SetEmergencyMode(req.Enabled)
	return c.JSON(http.StatusOK, echo.Map{"emergency": req.Enabled})
}

// SetPlatformAccount handles PUT /v1/admin/platform-account with body
// {"address": "..."}; allowed only in emergency mode.
func (h *AdminHandler) SetPlatformAccount(c echo.Context) error {
	var req struct {
		Address string `json:"address"`
	}
	if err := c.Bind(&req); err != nil || strings.TrimSpace(req.Address) == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "address required"})
	}
	if err := h.Vault.SetPlatformAccount(strings.TrimSpace(req.Address)); err != nil {
		return domainError(c, err)
	}
	return c.NoContent(http.StatusNoContent)
}

// EmergencyRefund handles POST /v1/admin/escrows/:id/refund with body
// {"amount_cents": n}; allowed only in emergency mode.
func (h *AdminHandler) EmergencyRefund(c echo.Context) error {
	id, err := pathID(c)
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid id"})
	}
	var req struct {
		AmountCents uint64 `json:"amount_cents"`
	}
	if err := c.Bind(&req); err != nil || req.AmountCents == 0 {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "amount_cents required"})
	}
	if err := h.Vault.EmergencyRefund(c.Request().Context(), id, req.AmountCents); err != nil {
		return domainError(c, err)
	}
	return c.NoContent(http.StatusNoContent)
}

// GrantRole handles POST /v1/admin/roles with body
// {"address": "...", "role": "..."}.
func (h *AdminHandler) GrantRole(c echo.Context) error {
	grantor, ok := currentAddress(c)
	if !ok {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	var req struct {
		Address string `json:"address"`
		Role    string `json:"role"`
	}
	if err := c.Bind(&req); err != nil || req.Address == "" || req.Role == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "address and role required"})
	}
	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()
	if err := h.Roles.Grant(ctx, req.Address, strings.ToUpper(req.Role), grantor); err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "grant failed"})
	}
	return c.NoContent(http.StatusNoContent)
}

// RevokeRole handles DELETE /v1/admin/roles with body
// {"address": "...", "role": "..."}.
func (h *AdminHandler) RevokeRole(c echo.Context) error {
	var req struct {
		Address string `json:"address"`
		Role    string `json:"role"`
	}
	if err := c.Bind(&req); err != nil || req.Address == "" || req.Role == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "address and role required"})
	}
	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()
	if err := h.Roles.Revoke(ctx, req.Address, strings.ToUpper(req.Role)); err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "revoke failed"})
	}
	return c.NoContent(http.StatusNoContent)
}

// Deposit handles POST /v1/admin/wallets/deposit with body
// {"address": "...", "amount_cents": n}: the admin on-ramp that credits an
// account wallet.
func (h *AdminHandler) Deposit(c echo.Context) error {
	var req struct {
		Address     string `json:"address"`
		AmountCents uint64 `json:"amount_cents"`
	}
	if err := c.Bind(&req); err != nil || req.Address == "" || req.AmountCents == 0 {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "address and amount_cents required"})
	}
	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()
	if err := h.Wallet.Deposit(ctx, req.Address, req.AmountCents); err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "deposit failed"})
	}
	return c.NoContent(http.StatusNoContent)
}
