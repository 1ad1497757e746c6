package medication

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"github.com/healthgateway/gateway/internal/platform/auth"
	"github.com/healthgateway/gateway/internal/platform/result"
)

type delegates map[string]string

func (d delegates) IsDelegateOf(_ context.Context, owner, delegate string, _ time.Time) (bool, error) {
	return d[delegate] == owner, nil
}

func newTestServer() *echo.Echo {
	svc, _, _ := newTestService()
	e := echo.New()
	e.HTTPErrorHandler = result.HTTPErrorHandler(zerolog.Nop())
	api := e.Group("/api/v1", func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			ctx := auth.WithIdentity(c.Request().Context(), c.Request().Header.Get("X-Test-Hdid"), "", nil)
			c.SetRequest(c.Request().WithContext(ctx))
			return next(c)
		}
	})
	NewHandler(svc, delegates{"guardian": "protected"}).RegisterRoutes(api)
	return e
}

func get(e *echo.Echo, path, caller, word string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, path, nil)
	req.Header.Set("X-Test-Hdid", caller)
	if word != "" {
		req.Header.Set("protectiveWord", word)
	}
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	return rec
}

func TestHandler_MedicationStatements(t *testing.T) {
	e := newTestServer()

	rec := get(e, "/api/v1/medication-statements/protected", "protected", "")
	if rec.Code != http.StatusOK || !strings.Contains(rec.Body.String(), `"action_code":"PROTECTED"`) {
		t.Errorf("expected protected envelope, got %d %s", rec.Code, rec.Body.String())
	}

	rec = get(e, "/api/v1/medication-statements/protected", "guardian", "KEYWORD")
	if rec.Code != http.StatusOK || !strings.Contains(rec.Body.String(), `"total_result_count":3`) {
		t.Errorf("expected delegate access, got %d %s", rec.Code, rec.Body.String())
	}
}

func TestHandler_MedicationStatements_Forbidden(t *testing.T) {
	rec := get(newTestServer(), "/api/v1/medication-statements/open", "stranger", "")
	if rec.Code != http.StatusForbidden {
		t.Errorf("expected 403, got %d", rec.Code)
	}
}

func TestHandler_MedicationRequests(t *testing.T) {
	rec := get(newTestServer(), "/api/v1/medication-requests/open", "open", "")
	if rec.Code != http.StatusOK || !strings.Contains(rec.Body.String(), `"result_status":1`) {
		t.Errorf("unexpected response %d %s", rec.Code, rec.Body.String())
	}
}
