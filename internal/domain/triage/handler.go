package triage

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/medbook/medbook/internal/domain/identity"
	"github.com/medbook/medbook/internal/platform/apperr"
	"github.com/medbook/medbook/internal/platform/auth"
	"github.com/medbook/medbook/internal/platform/middleware"
	"github.com/medbook/medbook/pkg/pagination"
)

type Handler struct {
	svc *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

func (h *Handler) RegisterRoutes(api *echo.Group) {
	g := api.Group("", auth.RequireRole(auth.RoleUser))
	g.POST("/symptom-check", h.Check)
	g.GET("/symptom-checks", h.History)
}

func currentUser(c echo.Context) (*identity.User, error) {
	p, err := identity.CurrentPrincipal(c)
	if err != nil {
		return nil, err
	}
	up, ok := p.(identity.UserPrincipal)
	if !ok {
		return nil, echo.NewHTTPError(http.StatusForbidden, "Not authorized")
	}
	return up.User, nil
}

func (h *Handler) Check(c echo.Context) error {
	u, err := currentUser(c)
	if err != nil {
		return err
	}
	var req SymptomCheckRequest
	if err := middleware.BindAndValidate(c, &req); err != nil {
		return err
	}
	res, err := h.svc.Check(c.Request().Context(), u.UserID, req.Symptoms)
	if err != nil {
		return apperr.HTTP(err)
	}
	return c.JSON(http.StatusOK, res)
}

func (h *Handler) History(c echo.Context) error {
	u, err := currentUser(c)
	if err != nil {
		return err
	}
	pg := pagination.FromContext(c)
	items, total, err := h.svc.History(c.Request().Context(), u.UserID, pg.Limit, pg.Skip)
	if err != nil {
		return apperr.HTTP(err)
	}
	return c.JSON(http.StatusOK, pagination.NewResponse(items, total, pg))
}
