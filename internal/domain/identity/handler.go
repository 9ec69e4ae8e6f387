package identity

import (
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"

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
	// Public
	api.POST("/token", h.Login)
	api.POST("/users", h.RegisterUser)
	api.POST("/doctors", h.RegisterDoctor)
	api.GET("/doctors", h.ListDoctors)
	api.GET("/doctors/:id", h.GetDoctor)
	api.POST("/doctors/search", h.SearchDoctors)

	// Any authenticated caller
	api.POST("/logout", h.Logout)
	api.GET("/me", h.Me)

	userGroup := api.Group("", auth.RequireRole(auth.RoleUser))
	userGroup.GET("/users/me", h.GetMe)
	userGroup.PUT("/users/me", h.UpdateMe)

	doctorGroup := api.Group("", auth.RequireRole(auth.RoleDoctor))
	doctorGroup.GET("/doctors/me", h.GetDoctorMe)
	doctorGroup.PUT("/doctors/me", h.UpdateDoctorMe)

	adminGroup := api.Group("", auth.RequireRole(auth.RoleAdmin))
	adminGroup.GET("/users", h.ListUsers)
	adminGroup.GET("/admin/pending-doctors", h.ListPendingDoctors)
	adminGroup.POST("/admin/approve-doctor/:id", h.ApproveDoctor)
	adminGroup.POST("/admin/reject-doctor/:id", h.RejectDoctor)
	adminGroup.POST("/admin/suspend-doctor/:id", h.SuspendDoctor)
}

func pathID(c echo.Context) (int64, error) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		return 0, echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	return id, nil
}

// -- Credentials --

func (h *Handler) Login(c echo.Context) error {
	resp, err := h.svc.Login(c.Request().Context(), c.FormValue("username"), c.FormValue("password"))
	if err != nil {
		c.Response().Header().Set("WWW-Authenticate", "Bearer")
		return apperr.HTTP(err)
	}
	return c.JSON(http.StatusOK, resp)
}

func (h *Handler) Logout(c echo.Context) error {
	claims := auth.ClaimsFromContext(c.Request().Context())
	if claims == nil {
		return echo.NewHTTPError(http.StatusUnauthorized, "Could not validate credentials")
	}
	if err := h.svc.Logout(c.Request().Context(), claims); err != nil {
		return apperr.HTTP(err)
	}
	return c.JSON(http.StatusOK, map[string]string{"message": "Successfully logged out"})
}

func (h *Handler) Me(c echo.Context) error {
	p, err := CurrentPrincipal(c)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, map[string]interface{}{
		"role":    p.Kind(),
		"profile": Profile(p),
	})
}

// -- Users --

func (h *Handler) RegisterUser(c echo.Context) error {
	var req UserCreate
	if err := middleware.BindAndValidate(c, &req); err != nil {
		return err
	}
	u, err := h.svc.RegisterUser(c.Request().Context(), req)
	if err != nil {
		return apperr.HTTP(err)
	}
	return c.JSON(http.StatusCreated, u)
}

func (h *Handler) ListUsers(c echo.Context) error {
	pg := pagination.FromContext(c)
	items, total, err := h.svc.ListUsers(c.Request().Context(), pg.Limit, pg.Skip)
	if err != nil {
		return apperr.HTTP(err)
	}
	return c.JSON(http.StatusOK, pagination.NewResponse(items, total, pg))
}

func currentUser(c echo.Context) (*User, error) {
	p, err := CurrentPrincipal(c)
	if err != nil {
		return nil, err
	}
	up, ok := p.(UserPrincipal)
	if !ok {
		return nil, echo.NewHTTPError(http.StatusForbidden, "Not authorized")
	}
	return up.User, nil
}

func (h *Handler) GetMe(c echo.Context) error {
	u, err := currentUser(c)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, u)
}

func (h *Handler) UpdateMe(c echo.Context) error {
	u, err := currentUser(c)
	if err != nil {
		return err
	}
	var req UserUpdate
	if err := middleware.BindAndValidate(c, &req); err != nil {
		return err
	}
	updated, err := h.svc.UpdateUser(c.Request().Context(), u, req)
	if err != nil {
		return apperr.HTTP(err)
	}
	return c.JSON(http.StatusOK, updated)
}

// -- Doctors --

func (h *Handler) RegisterDoctor(c echo.Context) error {
	var req DoctorCreate
	if err := middleware.BindAndValidate(c, &req); err != nil {
		return err
	}
	d, err := h.svc.RegisterDoctor(c.Request().Context(), req)
	if err != nil {
		return apperr.HTTP(err)
	}
	return c.JSON(http.StatusCreated, d)
}

func (h *Handler) ListDoctors(c echo.Context) error {
	pg := pagination.FromContext(c)
	items, total, err := h.svc.ListApprovedDoctors(c.Request().Context(), pg.Limit, pg.Skip)
	if err != nil {
		return apperr.HTTP(err)
	}
	return c.JSON(http.StatusOK, pagination.NewResponse(items, total, pg))
}

func (h *Handler) GetDoctor(c echo.Context) error {
	id, err := pathID(c)
	if err != nil {
		return err
	}
	d, err := h.svc.GetDoctor(c.Request().Context(), id)
	if err != nil {
		return apperr.HTTP(err)
	}
	return c.JSON(http.StatusOK, d)
}

func (h *Handler) SearchDoctors(c echo.Context) error {
	var req DoctorSearch
	if err := middleware.BindAndValidate(c, &req); err != nil {
		return err
	}
	pg := pagination.FromContext(c)
	items, total, err := h.svc.SearchDoctors(c.Request().Context(), req, pg.Limit, pg.Skip)
	if err != nil {
		return apperr.HTTP(err)
	}
	return c.JSON(http.StatusOK, pagination.NewResponse(items, total, pg))
}

func currentDoctor(c echo.Context) (*Doctor, error) {
	p, err := CurrentPrincipal(c)
	if err != nil {
		return nil, err
	}
	dp, ok := p.(DoctorPrincipal)
	if !ok {
		return nil, echo.NewHTTPError(http.StatusForbidden, "Not authorized")
	}
	return dp.Doctor, nil
}

func (h *Handler) GetDoctorMe(c echo.Context) error {
	d, err := currentDoctor(c)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, d)
}

func (h *Handler) UpdateDoctorMe(c echo.Context) error {
	d, err := currentDoctor(c)
	if err != nil {
		return err
	}
	var req DoctorUpdate
	if err := middleware.BindAndValidate(c, &req); err != nil {
		return err
	}
	updated, err := h.svc.UpdateDoctor(c.Request().Context(), d, req)
	if err != nil {
		return apperr.HTTP(err)
	}
	return c.JSON(http.StatusOK, updated)
}

// -- Moderation --

func (h *Handler) ListPendingDoctors(c echo.Context) error {
	pg := pagination.FromContext(c)
	items, total, err := h.svc.ListPendingDoctors(c.Request().Context(), pg.Limit, pg.Skip)
	if err != nil {
		return apperr.HTTP(err)
	}
	return c.JSON(http.StatusOK, pagination.NewResponse(items, total, pg))
}

func (h *Handler) ApproveDoctor(c echo.Context) error {
	return h.moveDoctor(c, DoctorApproved)
}

func (h *Handler) RejectDoctor(c echo.Context) error {
	return h.moveDoctor(c, DoctorRejected)
}

func (h *Handler) SuspendDoctor(c echo.Context) error {
	return h.moveDoctor(c, DoctorSuspended)
}

func (h *Handler) moveDoctor(c echo.Context, to DoctorStatus) error {
	id, err := pathID(c)
	if err != nil {
		return err
	}
	d, err := h.svc.SetDoctorStatus(c.Request().Context(), id, to)
	if err != nil {
		return apperr.HTTP(err)
	}
	return c.JSON(http.StatusOK, d)
}
