package result

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"
)

// ProblemDetails is the RFC 7807 body returned for failed requests.
type ProblemDetails struct {
	Type      string `json:"type"`
	Title     string `json:"title"`
	Status    int    `json:"status"`
	Detail    string `json:"detail,omitempty"`
	Instance  string `json:"instance"`
	TraceID   string `json:"trace_id,omitempty"`
	ErrorCode string `json:"error_code,omitempty"`
}

// HTTPErrorHandler replaces echo's default error handler. ActionRequired
// errors are answered as a RequestResult so clients can prompt the user.
func HTTPErrorHandler(logger zerolog.Logger) echo.HTTPErrorHandler {
	return func(err error, c echo.Context) {
		if c.Response().Committed {
			return
		}

		if re, ok := As(err); ok && re.Kind == KindActionRequired {
			if werr := Respond(c, Failure[any](re)); werr != nil {
				logger.Error().Err(werr).Msg("write action required result")
			}
			return
		}

		pd := problemFor(err)
		pd.Instance = c.Request().URL.Path
		pd.TraceID = requestID(c)

		evt := logger.Warn()
		if pd.Status >= http.StatusInternalServerError {
			evt = logger.Error()
		}
		evt.Err(err).
			Str("request_id", pd.TraceID).
			Int("status", pd.Status).
			Str("error_code", pd.ErrorCode).
			Msg("request failed")

		var werr error
		if c.Request().Method == http.MethodHead {
			werr = c.NoContent(pd.Status)
		} else {
			werr = c.JSON(pd.Status, pd)
		}
		if werr != nil {
			logger.Error().Err(werr).Msg("write problem details")
		}
	}
}

func problemFor(err error) ProblemDetails {
	var re *Error
	var he *echo.HTTPError
	switch {
	case errors.As(err, &re):
		status := StatusCode(re)
		detail := re.Message
		if re.Kind == KindDatabase {
			detail = "a database error occurred"
		}
		return ProblemDetails{
			Type:      problemType(status),
			Title:     re.Kind.String(),
			Status:    status,
			Detail:    detail,
			ErrorCode: re.Code(),
		}
	case errors.As(err, &he):
		return ProblemDetails{
			Type:   problemType(he.Code),
			Title:  http.StatusText(he.Code),
			Status: he.Code,
			Detail: fmt.Sprint(he.Message),
		}
	default:
		return ProblemDetails{
			Type:   problemType(http.StatusInternalServerError),
			Title:  http.StatusText(http.StatusInternalServerError),
			Status: http.StatusInternalServerError,
			Detail: "an unexpected error occurred",
		}
	}
}

func problemType(status int) string {
	return fmt.Sprintf("https://httpstatuses.io/%d", status)
}
