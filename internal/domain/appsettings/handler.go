package appsettings

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
	api.GET("/configuration/tour-change", h.GetTourChange)
	admin := api.Group("/admin/configuration", auth.RequireRole(auth.RoleAdmin))
	admin.PUT("/tour-change", h.SetTourChange)
}

func (h *Handler) GetTourChange(c echo.Context) error {
	t, err := h.svc.GetLatestTourChangeDateTime(c.Request().Context())
	if err != nil {
		return err
	}
	return result.Respond(c, result.Success(t))
}

func (h *Handler) SetTourChange(c echo.Context) error {
	var req TourChangeRequest
	if err := c.Bind(&req); err != nil {
		return result.Validation("invalid request body")
	}
	if err := c.Validate(&req); err != nil {
		return err
	}
	if err := h.svc.SetLatestTourChangeDateTime(c.Request().Context(), req.LatestChangeDateTime); err != nil {
		return err
	}
	return result.Respond(c, result.Success(req.LatestChangeDateTime.UTC()))
}
