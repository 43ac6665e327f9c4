package audit

import (
	"errors"
	"net/http"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/labstack/echo/v4"

	"github.com/mamisoa/oph4py-sub000/internal/platform/auth"
	"github.com/mamisoa/oph4py-sub000/pkg/pagination"
)

type Handler struct {
	svc *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

func (h *Handler) RegisterRoutes(api *echo.Group) {
	readGroup := api.Group("", auth.RequireRole("admin", "clinician"))
	readGroup.GET("/audit", h.ListEntries)
	readGroup.GET("/audit/:id", h.GetEntry)
}

// ListEntries returns ledger entries, newest first, optionally filtered by
// transaction id.
func (h *Handler) ListEntries(c echo.Context) error {
	p := pagination.FromContext(c)
	transactionID := c.QueryParam("transaction_id")

	entries, total, err := h.svc.List(c.Request().Context(), transactionID, p.Limit, p.Offset)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "failed to list audit entries")
	}
	if entries == nil {
		entries = []*Entry{}
	}
	return c.JSON(http.StatusOK, pagination.NewResponse(entries, total, p.Limit, p.Offset))
}

// GetEntry returns one ledger entry by id.
func (h *Handler) GetEntry(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid audit entry id")
	}
	entry, err := h.svc.GetEntry(c.Request().Context(), id)
	if errors.Is(err, pgx.ErrNoRows) {
		return echo.NewHTTPError(http.StatusNotFound, "audit entry not found")
	}
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "failed to read audit entry")
	}
	return c.JSON(http.StatusOK, entry)
}
