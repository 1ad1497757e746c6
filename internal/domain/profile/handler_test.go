package profile

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"github.com/healthgateway/gateway/internal/platform/result"
	"github.com/healthgateway/gateway/internal/platform/validate"
)

func newTestHandler() (*Handler, *echo.Echo) {
	h := NewHandler(newTestService())
	e := echo.New()
	e.Validator = validate.New()
	return h, e
}

func TestHandler_CreateUserProfile(t *testing.T) {
	h, e := newTestHandler()
	body := `{"terms_of_service_id":"` + activeTermsID.String() + `"}`
	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(body))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	c.SetParamNames("hdid")
	c.SetParamValues("adult")

	if err := h.CreateUserProfile(c); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if rec.Code != http.StatusOK {
		t.Errorf("expected 200, got %d", rec.Code)
	}
	var out result.RequestResult[UserProfileModel]
	if err := json.Unmarshal(rec.Body.Bytes(), &out); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if out.ResultStatus != result.ResultTypeSuccess || out.ResourcePayload.Hdid != "adult" {
		t.Errorf("unexpected result: %+v", out)
	}
}

func TestHandler_CreateUserProfile_InvalidSms(t *testing.T) {
	h, e := newTestHandler()
	body := `{"terms_of_service_id":"` + activeTermsID.String() + `","sms_number":"12"}`
	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(body))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	c.SetParamNames("hdid")
	c.SetParamValues("adult")

	err := h.CreateUserProfile(c)
	if result.KindOf(err) != result.KindValidation {
		t.Errorf("expected validation error, got %v", err)
	}
}

func TestHandler_GetUserProfile_NotFound(t *testing.T) {
	h, e := newTestHandler()
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	c.SetParamNames("hdid")
	c.SetParamValues("nobody")

	if err := h.GetUserProfile(c); result.StatusCode(err) != http.StatusNotFound {
		t.Errorf("expected 404, got %v", err)
	}
}

func TestHandler_GetTermsOfService(t *testing.T) {
	h, e := newTestHandler()
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	if err := h.GetTermsOfService(c); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !strings.Contains(rec.Body.String(), activeTermsID.String()) {
		t.Errorf("expected active terms id in body, got %s", rec.Body.String())
	}
}

func TestHandler_CreateUserPreference(t *testing.T) {
	h, e := newTestHandler()
	body := `{"preference":"tutorialMenu","value":"true"}`
	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(body))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	c.SetParamNames("hdid")
	c.SetParamValues("adult")

	if err := h.CreateUserPreference(c); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !strings.Contains(rec.Body.String(), `"version":1`) {
		t.Errorf("expected version 1 in body, got %s", rec.Body.String())
	}
}

func TestHandler_RouteRequiresOwner(t *testing.T) {
	h, e := newTestHandler()
	e.HTTPErrorHandler = result.HTTPErrorHandler(zerolog.Nop())
	h.RegisterRoutes(e.Group("/api/v1"))

	req := httptest.NewRequest(http.MethodGet, "/api/v1/profiles/adult", nil)
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	if rec.Code != http.StatusUnauthorized {
		t.Errorf("expected 401 without identity, got %d", rec.Code)
	}
}
