package note

import (
	"strconv"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/healthgateway/gateway/internal/platform/auth"
	"github.com/healthgateway/gateway/internal/platform/result"
	"github.com/healthgateway/gateway/pkg/pagination"
)

type Handler struct {
	svc *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

func (h *Handler) RegisterRoutes(api *echo.Group) {
	g := api.Group("/notes/:hdid", auth.RequireOwner())
	g.GET("", h.GetNotes)
	g.POST("", h.CreateNote)
	g.PUT("", h.UpdateNote)
	g.DELETE("/:id", h.DeleteNote)
}

func (h *Handler) GetNotes(c echo.Context) error {
	pg := pagination.FromContext(c)
	items, total, err := h.svc.GetNotes(c.Request().Context(), c.Param("hdid"), pg)
	if err != nil {
		return err
	}
	return result.Respond(c, result.SuccessPage(items, total, pg.PageIndex, pg.PageSize))
}

func (h *Handler) CreateNote(c echo.Context) error {
	var n Note
	if err := c.Bind(&n); err != nil {
		return result.Validation("invalid request body")
	}
	out, err := h.svc.CreateNote(c.Request().Context(), c.Param("hdid"), &n)
	if err != nil {
		return err
	}
	return result.Respond(c, result.Success(out))
}

func (h *Handler) UpdateNote(c echo.Context) error {
	var n Note
	if err := c.Bind(&n); err != nil {
		return result.Validation("invalid request body")
	}
	out, err := h.svc.UpdateNote(c.Request().Context(), c.Param("hdid"), &n)
	if err != nil {
		return err
	}
	return result.Respond(c, result.Success(out))
}

// DeleteNote expects the last seen version as ?version=.
func (h *Handler) DeleteNote(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return result.Validation("invalid note id")
	}
	version, err := strconv.Atoi(c.QueryParam("version"))
	if err != nil {
		return result.Validation("version is required")
	}
	if err := h.svc.DeleteNote(c.Request().Context(), c.Param("hdid"), id, version); err != nil {
		return err
	}
	return result.Respond(c, result.Success(true))
}
