package mapping

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

// RegisterRoutes mounts the mapping endpoints on the authenticated /api
// group. Mappings cannot be updated.
func (h *Handler) RegisterRoutes(api *echo.Group) {
	api.GET("/mappings/", h.List)
	api.POST("/mappings/", h.Create)
	api.GET("/mappings/patient/:patient_id/", h.ListByPatient)
	api.GET("/mappings/:id/", h.Get)
	api.DELETE("/mappings/:id/", h.Destroy)
}

func (h *Handler) List(c echo.Context) error {
	caller, err := ownership.Caller(c.Request().Context())
	if err != nil {
		return err
	}
	pg := pagination.FromContext(c)
	items, total, err := h.svc.List(c.Request().Context(), caller, pg)
	if err != nil {
		return err
	}
	pg.SetHeaders(c, total)
	return c.JSON(http.StatusOK, items)
}

func (h *Handler) Create(c echo.Context) error {
	caller, err := ownership.Caller(c.Request().Context())
	if err != nil {
		return err
	}
	var req CreateRequest
	if err := validation.BindAndValidate(c, &req); err != nil {
		return err
	}
	m, err := h.svc.Create(c.Request().Context(), caller, req)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusCreated, m)
}

func (h *Handler) Get(c echo.Context) error {
	caller, id, err := callerAndParam(c, "id")
	if err != nil {
		return err
	}
	m, err := h.svc.Get(c.Request().Context(), caller, id)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, m)
}

func (h *Handler) Destroy(c echo.Context) error {
	caller, id, err := callerAndParam(c, "id")
	if err != nil {
		return err
	}
	if err := h.svc.Destroy(c.Request().Context(), caller, id); err != nil {
		return err
	}
	return c.NoContent(http.StatusNoContent)
}

func (h *Handler) ListByPatient(c echo.Context) error {
	caller, patientID, err := callerAndParam(c, "patient_id")
	if err != nil {
		return err
	}
	pg := pagination.FromContext(c)
	items, total, err := h.svc.ListByPatient(c.Request().Context(), caller, patientID, pg)
	if err != nil {
		return err
	}
	pg.SetHeaders(c, total)
	return c.JSON(http.StatusOK, items)
}

func callerAndParam(c echo.Context, name string) (uuid.UUID, uuid.UUID, error) {
	caller, err := ownership.Caller(c.Request().Context())
	if err != nil {
		return uuid.Nil, uuid.Nil, err
	}
	id, err := uuid.Parse(c.Param(name))
	if err != nil {
		return uuid.Nil, uuid.Nil, apierror.NotFound()
	}
	return caller, id, nil
}
