package handler // handler package contains wallet handlers

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/mentorship-escrow/internal/escrow"
	"github.com/iliyamo/mentorship-escrow/internal/token"
)

// WalletHandler exposes read access to the caller's wallet plus the public
// custody total.
type WalletHandler struct {
	Ledger *token.WalletLedger
	Vault  *escrow.Vault
}

func NewWalletHandler(l *token.WalletLedger, v *escrow.Vault) *WalletHandler {
	return &WalletHandler{Ledger: l, Vault: v}
}

// Balance handles GET /v1/wallet: the caller's current balance.
func (h *WalletHandler) Balance(c echo.Context) error {
	addr, ok := currentAddress(c)
	if !ok {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	bal, err := h.Ledger.BalanceOf(c.Request().Context(), addr)
	if err != nil {
		return domainError(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"address": addr, "balance_cents": bal})
}

// Custodied handles GET /v1/escrow/custodied: the total the vault currently
// holds across all active escrows.  Public figure, no auth needed.
func (h *WalletHandler) Custodied(c echo.Context) error {
	return c.JSON(http.StatusOK, echo.Map{"custodied_cents": h.Vault.Custodied()})
}
