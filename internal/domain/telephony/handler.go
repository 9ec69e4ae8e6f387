package telephony

import (
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/medbook/medbook/internal/domain/identity"
	"github.com/medbook/medbook/internal/platform/apperr"
	"github.com/medbook/medbook/internal/platform/auth"
	"github.com/medbook/medbook/pkg/pagination"
)

type Handler struct {
	svc *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

// RegisterRoutes mounts the telephony webhooks. incoming-call is called by
// the provider and is exempt from bearer auth.
func (h *Handler) RegisterRoutes(api *echo.Group) {
	api.POST("/telephony/incoming-call", h.IncomingCall)
	api.POST("/telephony/schedule-from-call/:call_id", h.ScheduleFromCall)

	admin := api.Group("/telephony", auth.RequireRole(auth.RoleAdmin))
	admin.GET("/calls", h.ListCalls)
}

// IncomingCall accepts caller_number and speech_text as form fields or
// query parameters.
func (h *Handler) IncomingCall(c echo.Context) error {
	resp, err := h.svc.HandleIncomingCall(c.Request().Context(),
		c.FormValue("caller_number"), c.FormValue("speech_text"))
	if err != nil {
		return apperr.HTTP(err)
	}
	return c.JSON(http.StatusOK, resp)
}

func (h *Handler) ScheduleFromCall(c echo.Context) error {
	if _, err := identity.CurrentPrincipal(c); err != nil {
		return err
	}
	id, err := strconv.ParseInt(c.Param("call_id"), 10, 64)
	if err != nil || id <= 0 {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid call id")
	}
	var preferred *time.Time
	if raw := c.QueryParam("preferred_time"); raw != "" {
		t, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			return echo.NewHTTPError(http.StatusBadRequest, "preferred_time must be RFC3339")
		}
		preferred = &t
	}
	resp, err := h.svc.ScheduleFromCall(c.Request().Context(), id, preferred)
	if err != nil {
		return apperr.HTTP(err)
	}
	return c.JSON(http.StatusCreated, resp)
}

func (h *Handler) ListCalls(c echo.Context) error {
	pg := pagination.FromContext(c)
	items, total, err := h.svc.Calls(c.Request().Context(), pg.Limit, pg.Skip)
	if err != nil {
		return apperr.HTTP(err)
	}
	return c.JSON(http.StatusOK, pagination.NewResponse(items, total, pg))
}
