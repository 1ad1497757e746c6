// Package rest holds the resty setup and error mapping shared by the partner
// system clients.
package rest

import (
	"fmt"
	"net/http"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/go-resty/resty/v2"

	"github.com/healthgateway/gateway/internal/platform/result"
)

const (
	retryCount   = 2
	retryWait    = 200 * time.Millisecond
	retryMaxWait = 2 * time.Second
	maxErrorBody = 256
)

// NewClient returns a JSON client for baseURL that retries transport errors
// and 5xx responses.
func NewClient(baseURL string, timeout time.Duration) *resty.Client {
	return resty.New().
		SetBaseURL(strings.TrimSuffix(baseURL, "/")).
		SetTimeout(timeout).
		SetHeader("Accept", "application/json").
		SetRetryCount(retryCount).
		SetRetryWaitTime(retryWait).
		SetRetryMaxWaitTime(retryMaxWait).
		AddRetryCondition(func(r *resty.Response, err error) bool {
			return err != nil || (r != nil && r.StatusCode() >= http.StatusInternalServerError)
		})
}

// Check converts a resty outcome into a result error for svc. It returns nil
// for 2xx responses.
func Check(resp *resty.Response, err error, svc result.Service) error {
	if err != nil {
		return result.Upstream(svc, fmt.Sprintf("unable to reach %s", svc), err)
	}
	code := resp.StatusCode()
	switch {
	case code >= 200 && code < 300:
		return nil
	case code == http.StatusNotFound:
		return result.NotFound(svc, "%s returned not found", svc)
	case code >= 500:
		return result.Upstream(svc, fmt.Sprintf("%s unavailable (status %d)", svc, code), nil)
	default:
		return result.Upstream(svc, fmt.Sprintf("%s rejected request (status %d): %s", svc, code, body(resp)), nil)
	}
}

func body(resp *resty.Response) string {
	s := strings.TrimSpace(resp.String())
	if len(s) <= maxErrorBody {
		return s
	}
	cut := maxErrorBody
	for cut > 0 && !utf8.RuneStart(s[cut]) {
		cut--
	}
	return s[:cut]
}
