package patient

import (
	"net/http"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/healthcare/healthcare-api/internal/platform/apierror"
	"github.com/healthcare/healthcare-api/internal/platform/ownership"
	"github.com/healthcare/healthcare-api/internal/platform/validation"
	"github.com/healthcare/healthcare-api/pkg/pagination"
)

type Handler struct {
	svc *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

// RegisterRoutes mounts the patient endpoints on the authenticated /api
// group.
func (h *Handler) RegisterRoutes(api *echo.Group) {
	api.GET("/patients/", h.List)
	api.POST("/patients/", h.Create)
	api.GET("/patients/:id/", h.Get)
	api.PUT("/patients/:id/", h.Update)
	api.PATCH("/patients/:id/", h.Patch)
	api.DELETE("/patients/:id/", h.Delete)
}

func (h *Handler) List(c echo.Context) error {
	caller, err := ownership.Caller(c.Request().Context())
	if err != nil {
		return err
	}
	pg := pagination.FromContext(c)
	patients, total, err := h.svc.List(c.Request().Context(), caller, pg)
	if err != nil {
		return err
	}
	pg.SetHeaders(c, total)
	return c.JSON(http.StatusOK, patients)
}

func (h *Handler) Create(c echo.Context) error {
	caller, err := ownership.Caller(c.Request().Context())
	if err != nil {
		return err
	}
	var req Request
	if err := validation.BindAndValidate(c, &req); err != nil {
		return err
	}
	p, err := h.svc.Create(c.Request().Context(), caller, req)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusCreated, p)
}

func (h *Handler) Get(c echo.Context) error {
	caller, id, err := callerAndID(c)
	if err != nil {
		return err
	}
	p, err := h.svc.Get(c.Request().Context(), caller, id)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, p)
}

func (h *Handler) Update(c echo.Context) error {
	caller, id, err := callerAndID(c)
	if err != nil {
		return err
	}
	// Resolve first so a foreign id is a 404, not a 400 about the body.
	if _, err := h.svc.Get(c.Request().Context(), caller, id); err != nil {
		return err
	}
	var req Request
	if err := validation.BindAndValidate(c, &req); err != nil {
		return err
	}
	p, err := h.svc.Update(c.Request().Context(), caller, id, req)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, p)
}

func (h *Handler) Patch(c echo.Context) error {
	caller, id, err := callerAndID(c)
	if err != nil {
		return err
	}
	current, err := h.svc.Get(c.Request().Context(), caller, id)
	if err != nil {
		return err
	}
	req := current.Request()
	if err := validation.BindAndValidate(c, &req); err != nil {
		return err
	}
	p, err := h.svc.Update(c.Request().Context(), caller, id, req)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, p)
}

func (h *Handler) Delete(c echo.Context) error {
	caller, id, err := callerAndID(c)
	if err != nil {
		return err
	}
	if err := h.svc.Delete(c.Request().Context(), caller, id); err != nil {
		return err
	}
	return c.NoContent(http.StatusNoContent)
}

// callerAndID returns the authenticated caller and the :id path parameter. A
// malformed id is reported as not found.
func callerAndID(c echo.Context) (uuid.UUID, uuid.UUID, error) {
	caller, err := ownership.Caller(c.Request().Context())
	if err != nil {
		return uuid.Nil, uuid.Nil, err
	}
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return uuid.Nil, uuid.Nil, apierror.NotFound()
	}
	return caller, id, nil
}
