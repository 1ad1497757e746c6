// Package salesforce reads Special Authority requests from Salesforce using
// an OAuth client-credentials token.
package salesforce

import (
	"context"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/go-resty/resty/v2"

	"github.com/healthgateway/gateway/internal/partner/rest"
	"github.com/healthgateway/gateway/internal/platform/result"
)

// tokens are refreshed this long before they expire
const tokenSkew = time.Minute

type Config struct {
	BaseURL      string
	TokenURL     string
	ClientID     string
	ClientSecret string
	Timeout      time.Duration
}

type SpecialAuthorityRequest struct {
	ReferenceNumber     string     `json:"reference_number"`
	DrugName            string     `json:"drug_name"`
	RequestStatus       string     `json:"request_status"`
	PrescriberFirstName string     `json:"prescriber_first_name"`
	PrescriberLastName  string     `json:"prescriber_last_name"`
	RequestedDate       time.Time  `json:"requested_date"`
	EffectiveDate       *time.Time `json:"effective_date,omitempty"`
	ExpiryDate          *time.Time `json:"expiry_date,omitempty"`
}

type tokenResponse struct {
	AccessToken string `json:"access_token"`
	ExpiresIn   int    `json:"expires_in"`
}

type Client struct {
	api   *resty.Client
	token *resty.Client
	cfg   Config
	now   func() time.Time

	mu          sync.Mutex
	accessToken string
	expiresAt   time.Time
}

func NewClient(cfg Config) *Client {
	return &Client{
		api:   rest.NewClient(cfg.BaseURL, cfg.Timeout),
		token: rest.NewClient(cfg.TokenURL, cfg.Timeout),
		cfg:   cfg,
		now:   time.Now,
	}
}

func (c *Client) accessTokenFor(ctx context.Context) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.accessToken != "" && c.now().Before(c.expiresAt) {
		return c.accessToken, nil
	}

	var out tokenResponse
	resp, err := c.token.R().
		SetContext(ctx).
		SetFormData(map[string]string{
			"grant_type":    "client_credentials",
			"client_id":     c.cfg.ClientID,
			"client_secret": c.cfg.ClientSecret,
		}).
		SetResult(&out).
		Post("")
	if err := rest.Check(resp, err, result.ServiceSalesforce); err != nil {
		return "", err
	}
	if out.AccessToken == "" {
		return "", result.Upstream(result.ServiceSalesforce, "token response has no access_token", nil)
	}

	c.accessToken = out.AccessToken
	c.expiresAt = c.now().Add(time.Duration(out.ExpiresIn)*time.Second - tokenSkew)
	return c.accessToken, nil
}

func (c *Client) GetSpecialAuthorityRequests(ctx context.Context, phn string) ([]SpecialAuthorityRequest, error) {
	token, err := c.accessTokenFor(ctx)
	if err != nil {
		return nil, err
	}

	var out struct {
		Items []SpecialAuthorityRequest `json:"items"`
	}
	resp, err := c.api.R().
		SetContext(ctx).
		SetAuthToken(token).
		SetQueryParam("phn", phn).
		SetResult(&out).
		Get("/special-authority-requests")
	if err := rest.Check(resp, err, result.ServiceSalesforce); err != nil {
		if result.KindOf(err) == result.KindNotFound {
			return []SpecialAuthorityRequest{}, nil
		}
		if resp != nil && resp.StatusCode() == http.StatusUnauthorized {
			c.invalidate()
		}
		return nil, fmt.Errorf("special authority requests: %w", err)
	}
	return out.Items, nil
}

func (c *Client) invalidate() {
	c.mu.Lock()
	c.accessToken = ""
	c.mu.Unlock()
}
