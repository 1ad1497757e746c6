package delegation

import (
	"time"

	"github.com/google/uuid"
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
	g := api.Group("/delegations/:hdid", auth.RequireOwner())
	g.GET("", h.GetDelegations)
	g.POST("", h.CreateDelegation)
	g.PUT("/associate", h.AssociateDelegation)
	g.DELETE("/:id", h.RemoveDelegation)
}

func (h *Handler) GetDelegations(c echo.Context) error {
	items, err := h.svc.GetDelegations(c.Request().Context(), c.Param("hdid"), time.Now())
	if err != nil {
		return err
	}
	return result.Respond(c, result.SuccessPage(items, len(items), 0, len(items)))
}

func (h *Handler) CreateDelegation(c echo.Context) error {
	var req CreateRequest
	if err := c.Bind(&req); err != nil {
		return result.Validation("invalid request body")
	}
	if err := c.Validate(&req); err != nil {
		return err
	}
	out, err := h.svc.CreateDelegation(c.Request().Context(), c.Param("hdid"), req)
	if err != nil {
		return err
	}
	return result.Respond(c, result.Success(out))
}

// AssociateDelegation is called by the delegate; :hdid is the caller.
func (h *Handler) AssociateDelegation(c echo.Context) error {
	var req AssociateRequest
	if err := c.Bind(&req); err != nil {
		return result.Validation("invalid request body")
	}
	if err := c.Validate(&req); err != nil {
		return err
	}
	d, err := h.svc.AssociateDelegation(c.Request().Context(), c.Param("hdid"), req.DelegationID, req.SharingCode, time.Now())
	if err != nil {
		return err
	}
	return result.Respond(c, result.Success(d))
}

func (h *Handler) RemoveDelegation(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return result.Validation("invalid delegation id")
	}
	if err := h.svc.RemoveDelegation(c.Request().Context(), c.Param("hdid"), id); err != nil {
		return err
	}
	return result.Respond(c, result.Success(true))
}
