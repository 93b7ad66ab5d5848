package checkin

import (
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"

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
	api.POST("/scans", h.Scan, auth.RequireRole(auth.RoleAdmin, auth.RoleDoctor))
	api.GET("/scans", h.ListEvents, auth.RequireRole(auth.RoleAdmin))
}

type scanRequest struct {
	QRCode string `json:"qr_code"`
}

type scanResponse struct {
	Success bool              `json:"success"`
	Message string            `json:"message"`
	Data    map[string]string `json:"data,omitempty"`
}

func (h *Handler) Scan(c echo.Context) error {
	var req scanRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	if req.QRCode == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "qr_code is required")
	}

	actor := auth.UserNameFromContext(c.Request().Context())
	if actor == "" {
		actor = auth.UserIDFromContext(c.Request().Context())
	}

	res, err := h.svc.Scan(c.Request().Context(), req.QRCode, actor)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "scan failed")
	}

	resp := scanResponse{Success: res.OK(), Message: res.Message}
	if a := res.Appointment; a != nil {
		resp.Data = map[string]string{
			"appointment_id": strconv.FormatInt(a.ID, 10),
			"date":           a.Date,
			"time":           a.StartTime,
			"status":         a.Status,
		}
		if a.CheckedInAt != nil {
			resp.Data["checked_in_at"] = a.CheckedInAt.Format("2006-01-02 15:04")
		}
	}
	return c.JSON(http.StatusOK, resp)
}

func (h *Handler) ListEvents(c echo.Context) error {
	pg := pagination.FromContext(c)
	items, total, err := h.svc.ListEvents(c.Request().Context(), pg.Limit, pg.Offset)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "list failed")
	}
	return c.JSON(http.StatusOK, pagination.NewResponse(items, total, pg.Limit, pg.Offset))
}
