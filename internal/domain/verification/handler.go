package verification

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
	own := api.Group("/profiles/:hdid", auth.RequireOwner())
	own.PUT("/email", h.UpdateEmailAddress)
	own.GET("/email/validate/:inviteKey", h.VerifyEmailAddress)
	own.PUT("/sms", h.UpdateSmsNumber)
	own.GET("/sms/validate/:code", h.VerifySmsNumber)
}

func (h *Handler) UpdateEmailAddress(c echo.Context) error {
	var req UpdateEmailRequest
	if err := c.Bind(&req); err != nil {
		return result.Validation("invalid request body")
	}
	if err := c.Validate(&req); err != nil {
		return err
	}
	ctx := c.Request().Context()
	if err := h.svc.UpdateEmailAddress(ctx, c.Param("hdid"), req.Email, auth.EmailFromContext(ctx)); err != nil {
		return err
	}
	return result.Respond(c, result.Success(true))
}

func (h *Handler) VerifyEmailAddress(c echo.Context) error {
	res, err := h.svc.VerifyEmailAddress(c.Request().Context(), c.Param("hdid"), c.Param("inviteKey"))
	if err != nil {
		return err
	}
	return result.Respond(c, result.Success(res))
}

func (h *Handler) UpdateSmsNumber(c echo.Context) error {
	var req UpdateSmsRequest
	if err := c.Bind(&req); err != nil {
		return result.Validation("invalid request body")
	}
	if err := c.Validate(&req); err != nil {
		return err
	}
	if err := h.svc.UpdateSmsNumber(c.Request().Context(), c.Param("hdid"), req.SmsNumber); err != nil {
		return err
	}
	return result.Respond(c, result.Success(true))
}

func (h *Handler) VerifySmsNumber(c echo.Context) error {
	res, err := h.svc.VerifySmsNumber(c.Request().Context(), c.Param("hdid"), c.Param("code"))
	if err != nil {
		return err
	}
	return result.Respond(c, result.Success(res))
}
