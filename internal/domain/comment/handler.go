package comment

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
	g := api.Group("/comments/:hdid", auth.RequireOwner())
	g.GET("", h.GetComments)
	g.POST("", h.AddComment)
	g.PUT("", h.UpdateComment)
	g.DELETE("", h.DeleteComment)
}

// GetComments returns the comments of one entry when parentEntryId is given,
// otherwise all of the user's comments grouped by entry.
func (h *Handler) GetComments(c echo.Context) error {
	ctx := c.Request().Context()
	hdid := c.Param("hdid")
	if parent := c.QueryParam("parentEntryId"); parent != "" {
		items, err := h.svc.GetEntryComments(ctx, hdid, parent)
		if err != nil {
			return err
		}
		return result.Respond(c, result.SuccessPage(items, len(items), 0, len(items)))
	}
	grouped, err := h.svc.GetProfileComments(ctx, hdid)
	if err != nil {
		return err
	}
	return result.Respond(c, result.SuccessPage(grouped, len(grouped), 0, len(grouped)))
}

func (h *Handler) AddComment(c echo.Context) error {
	var in Comment
	if err := bind(c, &in); err != nil {
		return err
	}
	out, err := h.svc.AddComment(c.Request().Context(), c.Param("hdid"), &in)
	if err != nil {
		return err
	}
	return result.Respond(c, result.Success(out))
}

func (h *Handler) UpdateComment(c echo.Context) error {
	var in Comment
	if err := bind(c, &in); err != nil {
		return err
	}
	out, err := h.svc.UpdateComment(c.Request().Context(), c.Param("hdid"), &in)
	if err != nil {
		return err
	}
	return result.Respond(c, result.Success(out))
}

func (h *Handler) DeleteComment(c echo.Context) error {
	var in DeleteRequest
	if err := bind(c, &in); err != nil {
		return err
	}
	if err := h.svc.DeleteComment(c.Request().Context(), c.Param("hdid"), in.ID, in.Version); err != nil {
		return err
	}
	return result.Respond(c, result.Success(true))
}

func bind(c echo.Context, dst any) error {
	if err := c.Bind(dst); err != nil {
		return result.Validation("invalid request body")
	}
	return c.Validate(dst)
}
