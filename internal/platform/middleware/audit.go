package middleware

import (
	"context"
	"strings"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"github.com/healthgateway/gateway/internal/platform/auth"
)

const auditTimeout = 2 * time.Second

// AuditEvent is one audited API access.
type AuditEvent struct {
	RequestID   string
	Hdid        string
	Application string
	Method      string
	Route       string
	Path        string
	Status      int
	RemoteIP    string
	OccurredAt  time.Time
}

type AuditRecorder interface {
	Record(ctx context.Context, ev AuditEvent) error
}

type AuditRecorderFunc func(ctx context.Context, ev AuditEvent) error

func (f AuditRecorderFunc) Record(ctx context.Context, ev AuditEvent) error {
	return f(ctx, ev)
}

// Audit logs every /api/ request after it completes and hands it to recorder,
// if any. Recorder failures are logged and never change the response.
func Audit(logger zerolog.Logger, application string, recorder AuditRecorder) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			req := c.Request()
			if !strings.HasPrefix(req.URL.Path, "/api/") {
				return next(c)
			}

			err := next(c)

			status := c.Response().Status
			if err != nil {
				status = statusOf(err)
			}
			rid, _ := c.Get("request_id").(string)
			ev := AuditEvent{
				RequestID:   rid,
				Hdid:        auth.HdidFromContext(req.Context()),
				Application: application,
				Method:      req.Method,
				Route:       c.Path(),
				Path:        req.URL.Path,
				Status:      status,
				RemoteIP:    c.RealIP(),
				OccurredAt:  time.Now().UTC(),
			}

			if recorder != nil {
				ctx, cancel := context.WithTimeout(context.WithoutCancel(req.Context()), auditTimeout)
				if recErr := recorder.Record(ctx, ev); recErr != nil {
					logger.Error().Err(recErr).Str("request_id", rid).Msg("failed to record audit event")
				}
				cancel()
			}

			logger.Info().
				Str("type", "audit").
				Str("request_id", rid).
				Str("application", application).
				Str("method", ev.Method).
				Str("route", ev.Route).
				Int("status", status).
				Bool("authenticated", ev.Hdid != "").
				Msg("api access")

			return err
		}
	}
}
