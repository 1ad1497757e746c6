package phsa

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/healthgateway/gateway/internal/platform/result"
)

func TestClient_UpdateNotificationSettings(t *testing.T) {
	var got NotificationSettings
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPut || r.URL.Path != "/notification-settings/HDID-1" {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		json.NewDecoder(r.Body).Decode(&got)
		w.WriteHeader(http.StatusNoContent)
	}))
	defer srv.Close()

	err := NewClient(srv.URL, time.Second).UpdateNotificationSettings(context.Background(), NotificationSettings{
		Hdid: "HDID-1", SmsNumber: "2505551234", SmsVerificationCode: "123456", SmsEnabled: true,
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got.SmsVerificationCode != "123456" || got.SmsVerified || !got.SmsEnabled {
		t.Errorf("unexpected payload %+v", got)
	}
}

func TestClient_UpdateNotificationSettings_Error(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		w.Write([]byte("sms number rejected"))
	}))
	defer srv.Close()

	err := NewClient(srv.URL, time.Second).UpdateNotificationSettings(context.Background(), NotificationSettings{Hdid: "HDID-1"})
	re, ok := result.As(err)
	if !ok || re.Code() != "server-CE-PHSA" {
		t.Errorf("expected server-CE-PHSA, got %v", err)
	}
}
