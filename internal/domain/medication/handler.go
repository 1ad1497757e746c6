package medication

import (
	"github.com/labstack/echo/v4"

	"github.com/healthgateway/gateway/internal/platform/auth"
	"github.com/healthgateway/gateway/internal/platform/result"
)

type Handler struct {
	svc      *Service
	delegate auth.DelegateChecker
}

func NewHandler(svc *Service, delegate auth.DelegateChecker) *Handler {
	return &Handler{svc: svc, delegate: delegate}
}

func (h *Handler) RegisterRoutes(api *echo.Group) {
	guard := auth.RequireOwnerOrDelegate(h.delegate)
	api.GET("/medication-statements/:hdid", h.GetMedicationStatements, guard)
	api.GET("/medication-requests/:hdid", h.GetMedicationRequests, guard)
}

// GetMedicationStatements always answers 200; failures travel in the
// envelope so the client can prompt for the protective word.
func (h *Handler) GetMedicationStatements(c echo.Context) error {
	word := c.Request().Header.Get(protectiveWordHeader)
	return result.Respond(c, h.svc.GetMedicationStatements(c.Request().Context(), c.Param("hdid"), word))
}

func (h *Handler) GetMedicationRequests(c echo.Context) error {
	return result.Respond(c, h.svc.GetMedicationRequests(c.Request().Context(), c.Param("hdid")))
}
