package worklist

import (
	"errors"
	"net/http"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/mamisoa/oph4py-sub000/internal/platform/auth"
	"github.com/mamisoa/oph4py-sub000/pkg/pagination"
)

type Handler struct {
	svc *Service
	dev bool
}

// NewHandler builds the worklist HTTP surface. dev controls whether internal
// error detail is included in 500 responses.
func NewHandler(svc *Service, dev bool) *Handler {
	return &Handler{svc: svc, dev: dev}
}

func (h *Handler) RegisterRoutes(api *echo.Group) {
	g := api.Group("/worklist", auth.RequireRole("admin", "clinician"))
	g.POST("/batch", h.SubmitBatch)
	g.GET("/transaction/:transaction_id", h.GetTransactionStatus)
	g.POST("/transaction/:transaction_id/retry", h.RetryTransaction)
	g.GET("/items", h.ListItems)
	g.GET("/items/:id", h.GetItem)
	g.PUT("/items/:id/status", h.UpdateItemStatus)
}

// BatchRequest is the POST /worklist/batch body.
type BatchRequest struct {
	Items         []ItemInput `json:"items"`
	TransactionID string      `json:"transaction_id"`
}

type errorBody struct {
	Status  string `json:"status"`
	Message string `json:"message"`
	Code    int    `json:"code"`
	Detail  string `json:"detail,omitempty"`
}

// writeError maps domain error types to HTTP codes. Callers always get a
// structured JSON body, never a bare protocol error.
func (h *Handler) writeError(c echo.Context, err error) error {
	var ve *ValidationError
	var nf *NotFoundError
	var se *ServerError

	switch {
	case errors.As(err, &ve):
		return c.JSON(http.StatusBadRequest, errorBody{Status: "error", Message: ve.Message, Code: http.StatusBadRequest})
	case errors.As(err, &nf):
		return c.JSON(http.StatusNotFound, errorBody{Status: "error", Message: nf.Message, Code: http.StatusNotFound})
	case errors.As(err, &se):
		body := errorBody{Status: "error", Message: se.Message, Code: http.StatusInternalServerError}
		if h.dev && se.Err != nil {
			body.Detail = se.Err.Error()
		}
		return c.JSON(http.StatusInternalServerError, body)
	default:
		body := errorBody{Status: "error", Message: "internal server error", Code: http.StatusInternalServerError}
		if h.dev {
			body.Detail = err.Error()
		}
		return c.JSON(http.StatusInternalServerError, body)
	}
}

func (h *Handler) SubmitBatch(c echo.Context) error {
	var req BatchRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, errorBody{Status: "error", Message: "invalid request body: " + err.Error(), Code: http.StatusBadRequest})
	}

	result, err := h.svc.SubmitBatch(c.Request().Context(), req.Items, req.TransactionID)
	if err != nil {
		return h.writeError(c, err)
	}

	return c.JSON(http.StatusOK, map[string]interface{}{
		"status":         "success",
		"message":        "batch created",
		"items":          result.Items,
		"transaction_id": result.TransactionID,
	})
}

func (h *Handler) GetTransactionStatus(c echo.Context) error {
	transactionID := c.Param("transaction_id")
	status, err := h.svc.GetTransactionStatus(c.Request().Context(), transactionID)
	if err != nil {
		return h.writeError(c, err)
	}
	return c.JSON(http.StatusOK, status)
}

func (h *Handler) RetryTransaction(c echo.Context) error {
	transactionID := c.Param("transaction_id")
	result, err := h.svc.RetryTransaction(c.Request().Context(), transactionID)
	if err != nil {
		return h.writeError(c, err)
	}

	return c.JSON(http.StatusOK, map[string]interface{}{
		"status":          "success",
		"transaction_id":  result.TransactionID,
		"recovered_items": result.RecoveredItems,
		"failed_items":    result.FailedItems,
		"message":         "recovery pass finished",
	})
}

func (h *Handler) ListItems(c echo.Context) error {
	p := pagination.FromContext(c)

	var patientID *int
	if raw := c.QueryParam("patient_id"); raw != "" {
		var pid int
		if err := echo.QueryParamsBinder(c).Int("patient_id", &pid).BindError(); err != nil {
			return c.JSON(http.StatusBadRequest, errorBody{Status: "error", Message: "patient_id must be an integer", Code: http.StatusBadRequest})
		}
		patientID = &pid
	}
	transactionID := c.QueryParam("transaction_id")

	items, total, err := h.svc.ListItems(c.Request().Context(), patientID, transactionID, p.Limit, p.Offset)
	if err != nil {
		return h.writeError(c, err)
	}
	return c.JSON(http.StatusOK, pagination.NewResponse(items, total, p.Limit, p.Offset))
}

func (h *Handler) GetItem(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return c.JSON(http.StatusBadRequest, errorBody{Status: "error", Message: "invalid item id", Code: http.StatusBadRequest})
	}
	item, err := h.svc.GetItem(c.Request().Context(), id)
	if err != nil {
		return h.writeError(c, err)
	}
	return c.JSON(http.StatusOK, item)
}

// UpdateStatusRequest is the PUT /worklist/items/:id/status body.
type UpdateStatusRequest struct {
	StatusFlag string `json:"status_flag"`
}

func (h *Handler) UpdateItemStatus(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return c.JSON(http.StatusBadRequest, errorBody{Status: "error", Message: "invalid item id", Code: http.StatusBadRequest})
	}

	var req UpdateStatusRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, errorBody{Status: "error", Message: "invalid request body: " + err.Error(), Code: http.StatusBadRequest})
	}

	item, err := h.svc.UpdateItemStatus(c.Request().Context(), id, req.StatusFlag)
	if err != nil {
		return h.writeError(c, err)
	}
	return c.JSON(http.StatusOK, item)
}
