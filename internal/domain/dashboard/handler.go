package dashboard

import (
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/medbook/medbook/internal/platform/apperr"
	"github.com/medbook/medbook/internal/platform/auth"
)

const xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

type Handler struct {
	svc *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

func (h *Handler) RegisterRoutes(api *echo.Group) {
	g := api.Group("/admin/dashboard", auth.RequireRole(auth.RoleAdmin))
	g.GET("/stats", h.Stats)
	g.GET("/recent-activity", h.RecentActivity)
	g.GET("/appointments-overview", h.AppointmentsOverview)
	g.GET("/export", h.Export)
}

func (h *Handler) Stats(c echo.Context) error {
	stats, err := h.svc.Stats(c.Request().Context())
	if err != nil {
		return apperr.HTTP(err)
	}
	return c.JSON(http.StatusOK, stats)
}

func (h *Handler) RecentActivity(c echo.Context) error {
	limit := 10
	if raw := c.QueryParam("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			return echo.NewHTTPError(http.StatusBadRequest, "limit must be a non-negative integer")
		}
		limit = n
	}
	feed, err := h.svc.RecentActivity(c.Request().Context(), limit)
	if err != nil {
		return apperr.HTTP(err)
	}
	return c.JSON(http.StatusOK, feed)
}

func (h *Handler) AppointmentsOverview(c echo.Context) error {
	ov, err := h.svc.AppointmentsOverview(c.Request().Context())
	if err != nil {
		return apperr.HTTP(err)
	}
	return c.JSON(http.StatusOK, ov)
}

func parseDay(raw string, def time.Time) (time.Time, error) {
	if raw == "" {
		return def, nil
	}
	return time.Parse("2006-01-02", raw)
}

// Export covers the last 30 days by default. from and to are inclusive
// calendar days.
func (h *Handler) Export(c echo.Context) error {
	w := NewWindow(h.svc.now())
	from, err := parseDay(c.QueryParam("from"), w.DayStart.AddDate(0, 0, -30))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "from must be YYYY-MM-DD")
	}
	to, err := parseDay(c.QueryParam("to"), w.DayStart)
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "to must be YYYY-MM-DD")
	}
	to = to.AddDate(0, 0, 1)
	if !to.After(from) {
		return echo.NewHTTPError(http.StatusBadRequest, "from must not be after to")
	}

	out, err := h.svc.Export(c.Request().Context(), from, to)
	if err != nil {
		return apperr.HTTP(err)
	}
	name := fmt.Sprintf("medbook-dashboard-%s.xlsx", w.Now.Format("20060102"))
	c.Response().Header().Set(echo.HeaderContentDisposition, fmt.Sprintf(`attachment; filename="%s"`, name))
	return c.Blob(http.StatusOK, xlsxContentType, out)
}
