// Package phsa pushes notification settings to PHSA, which delivers SMS
// verification codes and notifications.
package phsa

import (
	"context"
	"time"

	"github.com/go-resty/resty/v2"

	"github.com/healthgateway/gateway/internal/partner/rest"
	"github.com/healthgateway/gateway/internal/platform/result"
)

type NotificationSettings struct {
	Hdid                string `json:"hdid"`
	Email               string `json:"email,omitempty"`
	EmailEnabled        bool   `json:"email_enabled"`
	SmsNumber           string `json:"sms_number,omitempty"`
	SmsVerificationCode string `json:"sms_verification_code,omitempty"`
	SmsVerified         bool   `json:"sms_verified"`
	SmsEnabled          bool   `json:"sms_enabled"`
}

// SettingsUpdater is what services depend on.
type SettingsUpdater interface {
	UpdateNotificationSettings(ctx context.Context, s NotificationSettings) error
}

type Client struct {
	http *resty.Client
}

func NewClient(baseURL string, timeout time.Duration) *Client {
	return &Client{http: rest.NewClient(baseURL, timeout)}
}

func (c *Client) UpdateNotificationSettings(ctx context.Context, s NotificationSettings) error {
	resp, err := c.http.R().
		SetContext(ctx).
		SetPathParam("hdid", s.Hdid).
		SetBody(s).
		Put("/notification-settings/{hdid}")
	return rest.Check(resp, err, result.ServicePHSA)
}
