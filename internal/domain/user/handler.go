package user

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/healthcare/healthcare-api/internal/platform/validation"
)

type Handler struct {
	svc *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

// RegisterRoutes mounts the credential endpoints on the /api/auth group.
// They are public; see auth.AuthSkipper.
func (h *Handler) RegisterRoutes(g *echo.Group) {
	g.POST("/register/", h.Register)
	g.POST("/login/", h.Login)
	g.POST("/token/refresh/", h.Refresh)
}

func (h *Handler) Register(c echo.Context) error {
	var req RegisterRequest
	if err := validation.BindAndValidate(c, &req); err != nil {
		return err
	}
	resp, err := h.svc.Register(c.Request().Context(), req)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusCreated, resp)
}

func (h *Handler) Login(c echo.Context) error {
	var req LoginRequest
	if err := validation.BindAndValidate(c, &req); err != nil {
		return err
	}
	resp, err := h.svc.Login(c.Request().Context(), req)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, resp)
}

func (h *Handler) Refresh(c echo.Context) error {
	var req RefreshRequest
	if err := validation.BindAndValidate(c, &req); err != nil {
		return err
	}
	resp, err := h.svc.Refresh(c.Request().Context(), req)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, resp)
}
