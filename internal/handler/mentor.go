package handler // handler package contains public mentor directory handlers

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/mentorship-escrow/internal/repository"
)

// MentorHandler serves the public mentor lookup that peer deployments (and
// our own booking flow, when DIRECTORY_URL points here) resolve mentors
// against.
type MentorHandler struct {
	Directory *repository.MentorDirectory
}

func NewMentorHandler(d *repository.MentorDirectory) *MentorHandler {
	return &MentorHandler{Directory: d}
}

// Get handles GET /v1/mentors/:address.  404 when the address is not an
// active mentor.
func (h *MentorHandler) Get(c echo.Context) error {
	address := strings.ToLower(strings.TrimSpace(c.Param("address")))
	if address == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "address required"})
	}
	ctx, cancel := context.WithTimeout(c.Request().Context(), 3*time.Second)
	defer cancel()
	name, ok, err := h.Directory.Exists(ctx, address)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "lookup failed"})
	}
	if !ok {
		return c.JSON(http.StatusNotFound, echo.Map{"error": "mentor not found"})
	}
	return c.JSON(http.StatusOK, echo.Map{"address": address, "name": name})
}
