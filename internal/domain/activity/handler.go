package activity

import (
	"errors"
	"net/http"
	"strings"
	"time"

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
	api.GET("/activity", h.Feed, auth.RequireRole(auth.RoleAdmin))
}

func (h *Handler) Feed(c echo.Context) error {
	pg := pagination.FromContext(c)

	var f Filter
	if t := c.QueryParam("type"); t != "" {
		f.Types = strings.Split(t, ",")
	}
	if since := c.QueryParam("since"); since != "" {
		ts, err := time.Parse(time.RFC3339, since)
		if err != nil {
			return echo.NewHTTPError(http.StatusBadRequest, "invalid since timestamp")
		}
		f.Since = ts
	}
	if until := c.QueryParam("until"); until != "" {
		ts, err := time.Parse(time.RFC3339, until)
		if err != nil {
			return echo.NewHTTPError(http.StatusBadRequest, "invalid until timestamp")
		}
		f.Until = ts
	}

	events, total, err := h.svc.Feed(c.Request().Context(), f, pg.Limit, pg.Offset)
	if err != nil {
		if errors.Is(err, ErrInvalidType) {
			return echo.NewHTTPError(http.StatusBadRequest, err.Error())
		}
		return echo.NewHTTPError(http.StatusInternalServerError, "feed failed")
	}
	return c.JSON(http.StatusOK, pagination.NewResponse(events, total, pg.Limit, pg.Offset))
}
