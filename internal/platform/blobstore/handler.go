package blobstore

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/labstack/echo/v4"
)

// Handler serves stored blobs back to clients.
type Handler struct {
	store BlobStore
}

func NewHandler(store BlobStore) *Handler {
	return &Handler{store: store}
}

func (h *Handler) RegisterRoutes(g *echo.Group) {
	g.GET("/uploads/:filename", h.Download)
}

func (h *Handler) Download(c echo.Context) error {
	name := c.Param("filename")
	if !ValidName(name) {
		return echo.NewHTTPError(http.StatusBadRequest, ErrInvalidName.Error())
	}

	rc, meta, err := h.store.Open(c.Request().Context(), name)
	if err != nil {
		if errors.Is(err, ErrBlobNotFound) {
			return echo.NewHTTPError(http.StatusNotFound, err.Error())
		}
		return err
	}
	defer rc.Close()

	c.Response().Header().Set("Content-Disposition", fmt.Sprintf(`inline; filename="%s"`, meta.Name))
	return c.Stream(http.StatusOK, meta.ContentType, rc)
}
