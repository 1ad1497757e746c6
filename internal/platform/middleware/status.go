package middleware

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/healthgateway/gateway/internal/platform/result"
)

// statusOf predicts the status the error handler will write for err.
func statusOf(err error) int {
	var he *echo.HTTPError
	if errors.As(err, &he) {
		return he.Code
	}
	if _, ok := result.As(err); ok {
		return result.StatusCode(err)
	}
	return http.StatusInternalServerError
}
