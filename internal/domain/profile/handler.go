package profile

import (
	"time"

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
	api.GET("/profiles/termsofservice", h.GetTermsOfService)

	own := api.Group("/profiles/:hdid", auth.RequireOwner())
	own.POST("", h.CreateUserProfile)
	own.GET("", h.GetUserProfile)
	own.DELETE("", h.CloseUserProfile)
	own.PUT("/recover", h.RecoverUserProfile)
	own.PUT("/terms", h.UpdateAcceptedTerms)
	own.GET("/validate-age", h.ValidateAge)
	own.GET("/preferences", h.GetUserPreferences)
	own.POST("/preferences", h.CreateUserPreference)
	own.PUT("/preferences", h.UpdateUserPreference)
}

// bindValid binds the request body into dst and runs the registered validator.
func bindValid(c echo.Context, dst any) error {
	if err := c.Bind(dst); err != nil {
		return result.Validation("invalid request body")
	}
	return c.Validate(dst)
}

func (h *Handler) CreateUserProfile(c echo.Context) error {
	var req CreateProfileRequest
	if err := bindValid(c, &req); err != nil {
		return err
	}
	ctx := c.Request().Context()
	m, err := h.svc.CreateUserProfile(ctx, c.Param("hdid"), req, auth.EmailFromContext(ctx))
	if err != nil {
		return err
	}
	return result.Respond(c, result.Success(m))
}

// GetUserProfile also records the login; the web client loads the profile
// once per session.
func (h *Handler) GetUserProfile(c echo.Context) error {
	ctx := c.Request().Context()
	hdid := c.Param("hdid")
	if err := h.svc.UpdateLastLogin(ctx, hdid, time.Now()); err != nil {
		return err
	}
	m, err := h.svc.GetUserProfile(ctx, hdid)
	if err != nil {
		return err
	}
	return result.Respond(c, result.Success(m))
}

func (h *Handler) CloseUserProfile(c echo.Context) error {
	m, err := h.svc.CloseUserProfile(c.Request().Context(), c.Param("hdid"))
	if err != nil {
		return err
	}
	return result.Respond(c, result.Success(m))
}

func (h *Handler) RecoverUserProfile(c echo.Context) error {
	m, err := h.svc.RecoverUserProfile(c.Request().Context(), c.Param("hdid"))
	if err != nil {
		return err
	}
	return result.Respond(c, result.Success(m))
}

func (h *Handler) UpdateAcceptedTerms(c echo.Context) error {
	var req UpdateTermsRequest
	if err := bindValid(c, &req); err != nil {
		return err
	}
	m, err := h.svc.UpdateAcceptedTerms(c.Request().Context(), c.Param("hdid"), req.TermsOfServiceID)
	if err != nil {
		return err
	}
	return result.Respond(c, result.Success(m))
}

func (h *Handler) GetTermsOfService(c echo.Context) error {
	a, err := h.svc.GetActiveTermsOfService(c.Request().Context())
	if err != nil {
		return err
	}
	return result.Respond(c, result.Success(a))
}

func (h *Handler) ValidateAge(c echo.Context) error {
	ok, err := h.svc.IsValidAge(c.Request().Context(), c.Param("hdid"))
	if err != nil {
		return err
	}
	return result.Respond(c, result.Success(ok))
}

func (h *Handler) GetUserPreferences(c echo.Context) error {
	prefs, err := h.svc.GetUserPreferences(c.Request().Context(), c.Param("hdid"))
	if err != nil {
		return err
	}
	return result.Respond(c, result.Success(prefs))
}

func (h *Handler) CreateUserPreference(c echo.Context) error {
	var p UserPreference
	if err := bindValid(c, &p); err != nil {
		return err
	}
	out, err := h.svc.CreateUserPreference(c.Request().Context(), c.Param("hdid"), &p)
	if err != nil {
		return err
	}
	return result.Respond(c, result.Success(out))
}

func (h *Handler) UpdateUserPreference(c echo.Context) error {
	var p UserPreference
	if err := bindValid(c, &p); err != nil {
		return err
	}
	out, err := h.svc.UpdateUserPreference(c.Request().Context(), c.Param("hdid"), &p)
	if err != nil {
		return err
	}
	return result.Respond(c, result.Success(out))
}
