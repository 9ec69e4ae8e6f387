package records

import (
	"net/http"
	"strconv"
	"strings"

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

func (h *Handler) RegisterRoutes(api *echo.Group) {
	doctors := api.Group("", auth.RequireRole(auth.RoleDoctor))
	doctors.POST("/doctor-documents", h.UploadDocument)
	doctors.GET("/doctor-documents", h.ListOwnDocuments)

	users := api.Group("", auth.RequireRole(auth.RoleUser))
	users.GET("/medical-records", h.ListRecords)
	users.POST("/medical-records", h.UploadRecord)

	admin := api.Group("/admin", auth.RequireRole(auth.RoleAdmin))
	admin.GET("/doctors/:id/documents", h.ListDoctorDocuments)
	admin.POST("/verify-document/:id", h.VerifyDocument)
}

func pathID(c echo.Context) (int64, error) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		return 0, echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	return id, nil
}

// formUpload opens the multipart "file" field. The caller closes it.
func formUpload(c echo.Context) (Upload, func(), error) {
	fh, err := c.FormFile("file")
	if err != nil {
		return Upload{}, nil, echo.NewHTTPError(http.StatusBadRequest, "file is required")
	}
	src, err := fh.Open()
	if err != nil {
		return Upload{}, nil, echo.NewHTTPError(http.StatusBadRequest, "failed to open uploaded file")
	}
	return Upload{FileName: fh.Filename, Size: fh.Size, Content: src}, func() { src.Close() }, nil
}

func (h *Handler) UploadDocument(c echo.Context) error {
	p, err := identity.CurrentPrincipal(c)
	if err != nil {
		return err
	}
	dp, ok := p.(identity.DoctorPrincipal)
	if !ok {
		return echo.NewHTTPError(http.StatusForbidden, "Not authorized")
	}
	up, closeFn, err := formUpload(c)
	if err != nil {
		return err
	}
	defer closeFn()

	doc, err := h.svc.UploadDocument(c.Request().Context(), dp.Doctor.DoctorID, c.FormValue("document_type"), up)
	if err != nil {
		return apperr.HTTP(err)
	}
	return c.JSON(http.StatusCreated, doc)
}

func (h *Handler) ListOwnDocuments(c echo.Context) error {
	p, err := identity.CurrentPrincipal(c)
	if err != nil {
		return err
	}
	dp, ok := p.(identity.DoctorPrincipal)
	if !ok {
		return echo.NewHTTPError(http.StatusForbidden, "Not authorized")
	}
	return h.listDocuments(c, dp.Doctor.DoctorID)
}

func (h *Handler) ListDoctorDocuments(c echo.Context) error {
	id, err := pathID(c)
	if err != nil {
		return err
	}
	return h.listDocuments(c, id)
}

func (h *Handler) listDocuments(c echo.Context, doctorID int64) error {
	pg := pagination.FromContext(c)
	items, total, err := h.svc.Documents(c.Request().Context(), doctorID, pg.Limit, pg.Skip)
	if err != nil {
		return apperr.HTTP(err)
	}
	return c.JSON(http.StatusOK, pagination.NewResponse(items, total, pg))
}

func (h *Handler) VerifyDocument(c echo.Context) error {
	id, err := pathID(c)
	if err != nil {
		return err
	}
	doc, err := h.svc.VerifyDocument(c.Request().Context(), id)
	if err != nil {
		return apperr.HTTP(err)
	}
	return c.JSON(http.StatusOK, doc)
}

func (h *Handler) UploadRecord(c echo.Context) error {
	p, err := identity.CurrentPrincipal(c)
	if err != nil {
		return err
	}
	up, ok := p.(identity.UserPrincipal)
	if !ok {
		return echo.NewHTTPError(http.StatusForbidden, "Not authorized")
	}
	file, closeFn, err := formUpload(c)
	if err != nil {
		return err
	}
	defer closeFn()

	fileType := FileType(strings.ToUpper(strings.TrimSpace(c.FormValue("file_type"))))
	rec, err := h.svc.UploadRecord(c.Request().Context(), up.User.UserID, fileType, c.FormValue("description"), file)
	if err != nil {
		return apperr.HTTP(err)
	}
	return c.JSON(http.StatusCreated, rec)
}

func (h *Handler) ListRecords(c echo.Context) error {
	p, err := identity.CurrentPrincipal(c)
	if err != nil {
		return err
	}
	up, ok := p.(identity.UserPrincipal)
	if !ok {
		return echo.NewHTTPError(http.StatusForbidden, "Not authorized")
	}
	pg := pagination.FromContext(c)
	items, total, err := h.svc.Records(c.Request().Context(), up.User.UserID, pg.Limit, pg.Skip)
	if err != nil {
		return apperr.HTTP(err)
	}
	return c.JSON(http.StatusOK, pagination.NewResponse(items, total, pg))
}
