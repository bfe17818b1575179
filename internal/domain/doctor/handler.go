package doctor

import (
	"net/http"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/healthcare/healthcare-api/internal/platform/apierror"
	"github.com/healthcare/healthcare-api/internal/platform/validation"
	"github.com/healthcare/healthcare-api/pkg/pagination"
)

type Handler struct {
	svc *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

// RegisterRoutes mounts the doctor endpoints on the authenticated /api group.
func (h *Handler) RegisterRoutes(api *echo.Group) {
	api.GET("/doctors/", h.List)
	api.POST("/doctors/", h.Create)
	api.GET("/doctors/:id/", h.Get)
	api.PUT("/doctors/:id/", h.Update)
	api.PATCH("/doctors/:id/", h.Patch)
	api.DELETE("/doctors/:id/", h.Delete)
}

func (h *Handler) List(c echo.Context) error {
	pg := pagination.FromContext(c)
	doctors, total, err := h.svc.List(c.Request().Context(), pg)
	if err != nil {
		return err
	}
	pg.SetHeaders(c, total)
	return c.JSON(http.StatusOK, doctors)
}

func (h *Handler) Create(c echo.Context) error {
	var req Request
	if err := validation.BindAndValidate(c, &req); err != nil {
		return err
	}
	d, err := h.svc.Create(c.Request().Context(), req)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusCreated, d)
}

func (h *Handler) Get(c echo.Context) error {
	id, err := pathID(c)
	if err != nil {
		return err
	}
	d, err := h.svc.Get(c.Request().Context(), id)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, d)
}

func (h *Handler) Update(c echo.Context) error {
	id, err := pathID(c)
	if err != nil {
		return err
	}
	if _, err := h.svc.Get(c.Request().Context(), id); err != nil {
		return err
	}
	var req Request
	if err := validation.BindAndValidate(c, &req); err != nil {
		return err
	}
	d, err := h.svc.Update(c.Request().Context(), id, req)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, d)
}

func (h *Handler) Patch(c echo.Context) error {
	id, err := pathID(c)
	if err != nil {
		return err
	}
	current, err := h.svc.Get(c.Request().Context(), id)
	if err != nil {
		return err
	}
	req := current.Request()
	if err := validation.BindAndValidate(c, &req); err != nil {
		return err
	}
	d, err := h.svc.Update(c.Request().Context(), id, req)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, d)
}

func (h *Handler) Delete(c echo.Context) error {
	id, err := pathID(c)
	if err != nil {
		return err
	}
	if err := h.svc.Delete(c.Request().Context(), id); err != nil {
		return err
	}
	return c.NoContent(http.StatusNoContent)
}

func pathID(c echo.Context) (uuid.UUID, error) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return uuid.Nil, apierror.NotFound()
	}
	return id, nil
}
