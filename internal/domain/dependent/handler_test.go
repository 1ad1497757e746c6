package dependent

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/labstack/echo/v4"

	"github.com/healthgateway/gateway/internal/platform/result"
	"github.com/healthgateway/gateway/internal/platform/validate"
)

func TestHandler_AddDependent(t *testing.T) {
	svc, _, _ := newTestService()
	h := NewHandler(svc)
	e := echo.New()
	e.Validator = validate.New()

	body := `{"phn":"9735353315","first_name":"Sam","last_name":"Lee","date_of_birth":"2018-03-02"}`
	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(body))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	c.SetParamNames("hdid")
	c.SetParamValues("guardian")

	if err := h.AddDependent(c); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !strings.Contains(rec.Body.String(), `"phn":"******3315"`) {
		t.Errorf("expected masked phn, got %s", rec.Body.String())
	}
}

func TestHandler_AddDependent_InvalidPHN(t *testing.T) {
	svc, _, _ := newTestService()
	h := NewHandler(svc)
	e := echo.New()
	e.Validator = validate.New()

	body := `{"phn":"123","first_name":"Sam","last_name":"Lee","date_of_birth":"2018-03-02"}`
	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(body))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	c.SetParamNames("hdid")
	c.SetParamValues("guardian")

	if err := h.AddDependent(c); result.KindOf(err) != result.KindValidation {
		t.Errorf("expected Validation, got %v", err)
	}
}
