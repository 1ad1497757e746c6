package odr

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/healthgateway/gateway/internal/platform/result"
)

func odrServer(t *testing.T) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/odr/patients/9735353315/protective-word":
			json.NewEncoder(w).Encode(protectiveWordResponse{ProtectiveWord: "KEYWORD"})
		case "/odr/patients/9735361219/protective-word":
			w.WriteHeader(http.StatusNotFound)
		case "/odr/medication-history":
			var req historyRequest
			if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.PHN == "" {
				w.WriteHeader(http.StatusBadRequest)
				return
			}
			json.NewEncoder(w).Encode(historyResponse{TotalRecords: 1, Records: []DispensedMedication{{
				DinPin: "02240081", BrandName: "ATIVAN", GenericName: "LORAZEPAM", Quantity: 30,
				DispensedDate: time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC),
			}}})
		default:
			w.WriteHeader(http.StatusBadGateway)
		}
	}))
}

func TestClient_GetProtectiveWord(t *testing.T) {
	srv := odrServer(t)
	defer srv.Close()
	c := NewClient(srv.URL, time.Second)

	word, err := c.GetProtectiveWord(context.Background(), "9735353315")
	if err != nil || word != "KEYWORD" {
		t.Errorf("expected KEYWORD, got %q %v", word, err)
	}

	word, err = c.GetProtectiveWord(context.Background(), "9735361219")
	if err != nil || word != "" {
		t.Errorf("expected empty word when none is set, got %q %v", word, err)
	}
}

func TestClient_GetMedicationHistory(t *testing.T) {
	srv := odrServer(t)
	defer srv.Close()
	c := NewClient(srv.URL, time.Second)

	records, err := c.GetMedicationHistory(context.Background(), "9735353315", "KEYWORD")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(records) != 1 || records[0].DinPin != "02240081" {
		t.Errorf("unexpected records %+v", records)
	}
}

func TestClient_UpstreamFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer srv.Close()
	c := NewClient(srv.URL, time.Second)
	c.http.SetRetryCount(0)

	_, err := c.GetMedicationHistory(context.Background(), "9735353315", "")
	re, ok := result.As(err)
	if !ok || re.Code() != "server-CE-ODR" {
		t.Errorf("expected server-CE-ODR, got %v", err)
	}
}
