package dependent

import (
	"github.com/labstack/echo/v4"

	"github.com/healthgateway/gateway/internal/platform/auth"
	"github.com/healthgateway/gateway/internal/platform/result"
)

type Handler struct {
	svc *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

func (h *Handler) RegisterRoutes(api *echo.Group) {
	g := api.Group("/dependents/:hdid", auth.RequireOwner())
	g.GET("", h.GetDependents)
	g.POST("", h.AddDependent)
	g.DELETE("/:dependentHdid", h.RemoveDependent)
}

func (h *Handler) GetDependents(c echo.Context) error {
	items, err := h.svc.GetDependents(c.Request().Context(), c.Param("hdid"))
	if err != nil {
		return err
	}
	return result.Respond(c, result.SuccessPage(items, len(items), 0, len(items)))
}

func (h *Handler) AddDependent(c echo.Context) error {
	var req AddDependentRequest
	if err := c.Bind(&req); err != nil {
		return result.Validation("invalid request body")
	}
	if err := c.Validate(&req); err != nil {
		return err
	}
	m, err := h.svc.AddDependent(c.Request().Context(), c.Param("hdid"), req)
	if err != nil {
		return err
	}
	return result.Respond(c, result.Success(m))
}

func (h *Handler) RemoveDependent(c echo.Context) error {
	if err := h.svc.RemoveDependent(c.Request().Context(), c.Param("hdid"), c.Param("dependentHdid")); err != nil {
		return err
	}
	return result.Respond(c, result.Success(true))
}
