package payment

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"
	"github.com/shopspring/decimal"

	"github.com/clinicdesk/clinicdesk/internal/domain/appointment"
	"github.com/clinicdesk/clinicdesk/internal/platform/auth"
	"github.com/clinicdesk/clinicdesk/pkg/pagination"
)

type Handler struct {
	svc *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

func (h *Handler) RegisterRoutes(api *echo.Group) {
	g := api.Group("", auth.RequireRole(auth.RoleAdmin))
	g.POST("/payments", h.Record)
	g.GET("/payments", h.List)
	g.GET("/payments/:id", h.Get)
	g.PUT("/payments/:id/items", h.UpdateItems)
	g.POST("/payments/:id/decision", h.Decide)
}

type itemRequest struct {
	Description string `json:"description"`
	Price       string `json:"price"`
}

func (r itemRequest) toItem() (*PaymentItem, error) {
	price := decimal.Zero
	if r.Price != "" {
		var err error
		price, err = decimal.NewFromString(r.Price)
		if err != nil {
			return nil, err
		}
	}
	return &PaymentItem{Description: r.Description, Price: price}, nil
}

func parseItems(reqs []itemRequest) ([]*PaymentItem, error) {
	var items []*PaymentItem
	for _, r := range reqs {
		item, err := r.toItem()
		if err != nil {
			return nil, err
		}
		items = append(items, item)
	}
	return items, nil
}

type recordRequest struct {
	PatientID     int64         `json:"patient_id"`
	AppointmentID *int64        `json:"appointment_id,omitempty"`
	Method        string        `json:"method"`
	Status        string        `json:"payment_status"`
	TransactionID *string       `json:"transaction_id,omitempty"`
	Notes         *string       `json:"notes,omitempty"`
	Items         []itemRequest `json:"items"`
}

func (h *Handler) Record(c echo.Context) error {
	var req recordRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	items, err := parseItems(req.Items)
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid item price")
	}

	p := &Payment{
		PatientID:     req.PatientID,
		AppointmentID: req.AppointmentID,
		Method:        req.Method,
		Status:        req.Status,
		TransactionID: req.TransactionID,
		Notes:         req.Notes,
	}
	if err := h.svc.Record(c.Request().Context(), p, items); err != nil {
		var ve *ValidationError
		if errors.As(err, &ve) {
			return echo.NewHTTPError(http.StatusBadRequest, ve.Message)
		}
		if errors.Is(err, appointment.ErrNotFound) {
			return echo.NewHTTPError(http.StatusNotFound, "linked appointment not found")
		}
		return echo.NewHTTPError(http.StatusInternalServerError, "record failed")
	}
	return c.JSON(http.StatusCreated, p)
}

func (h *Handler) Get(c echo.Context) error {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	p, items, err := h.svc.Get(c.Request().Context(), id)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return echo.NewHTTPError(http.StatusNotFound, "payment not found")
		}
		return echo.NewHTTPError(http.StatusInternalServerError, "lookup failed")
	}
	return c.JSON(http.StatusOK, map[string]interface{}{
		"payment": p,
		"items":   items,
	})
}

func (h *Handler) List(c echo.Context) error {
	pg := pagination.FromContext(c)

	params := map[string]string{}
	for _, key := range []string{"patient_id", "status", "method"} {
		if v := c.QueryParam(key); v != "" {
			params[key] = v
		}
	}

	items, total, err := h.svc.List(c.Request().Context(), params, pg.Limit, pg.Offset)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "list failed")
	}
	return c.JSON(http.StatusOK, pagination.NewResponse(items, total, pg.Limit, pg.Offset))
}

type updateItemsRequest struct {
	Items []itemRequest `json:"items"`
}

func (h *Handler) UpdateItems(c echo.Context) error {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	var req updateItemsRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	items, err := parseItems(req.Items)
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid item price")
	}

	kept, err := h.svc.UpdateItems(c.Request().Context(), id, items)
	if err != nil {
		var ve *ValidationError
		if errors.As(err, &ve) {
			return echo.NewHTTPError(http.StatusBadRequest, ve.Message)
		}
		if errors.Is(err, ErrNotFound) {
			return echo.NewHTTPError(http.StatusNotFound, "payment not found")
		}
		return echo.NewHTTPError(http.StatusInternalServerError, "update failed")
	}
	return c.JSON(http.StatusOK, kept)
}

type decisionRequest struct {
	ConfirmAction            string  `json:"confirm_action"`
	AppointmentPaymentStatus string  `json:"appointment_payment_status"`
	Notes                    *string `json:"notes,omitempty"`
}

func (h *Handler) Decide(c echo.Context) error {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	var req decisionRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	p, err := h.svc.Decide(c.Request().Context(), id, req.ConfirmAction,
		req.AppointmentPaymentStatus, req.Notes)
	if err != nil {
		var ve *ValidationError
		if errors.As(err, &ve) {
			return echo.NewHTTPError(http.StatusBadRequest, ve.Message)
		}
		if errors.Is(err, ErrNotFound) {
			return echo.NewHTTPError(http.StatusNotFound, "payment not found")
		}
		if errors.Is(err, appointment.ErrNotFound) {
			return echo.NewHTTPError(http.StatusNotFound, "linked appointment not found")
		}
		return echo.NewHTTPError(http.StatusInternalServerError, "decision failed")
	}
	return c.JSON(http.StatusOK, p)
}
