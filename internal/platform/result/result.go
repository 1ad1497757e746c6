package result

import (
	"net/http"

	"github.com/labstack/echo/v4"
)

type ResultType int

const (
	ResultTypeError          ResultType = 0
	ResultTypeSuccess        ResultType = 1
	ResultTypeActionRequired ResultType = 2
)

type ResultError struct {
	ResultMessage string     `json:"result_message"`
	ErrorCode     string     `json:"error_code"`
	TraceID       string     `json:"trace_id,omitempty"`
	ActionCode    ActionType `json:"action_code,omitempty"`
}

// RequestResult is the envelope every partner-backed endpoint answers with.
type RequestResult[T any] struct {
	ResourcePayload  T            `json:"resource_payload"`
	TotalResultCount int          `json:"total_result_count"`
	PageIndex        int          `json:"page_index"`
	PageSize         int          `json:"page_size"`
	ResultStatus     ResultType   `json:"result_status"`
	ResultError      *ResultError `json:"result_error,omitempty"`
}

func Success[T any](payload T) RequestResult[T] {
	return RequestResult[T]{ResourcePayload: payload, TotalResultCount: 1, ResultStatus: ResultTypeSuccess}
}

func SuccessPage[T any](payload T, total, pageIndex, pageSize int) RequestResult[T] {
	return RequestResult[T]{
		ResourcePayload:  payload,
		TotalResultCount: total,
		PageIndex:        pageIndex,
		PageSize:         pageSize,
		ResultStatus:     ResultTypeSuccess,
	}
}

func ActionRequiredResult[T any](action ActionType, message string) RequestResult[T] {
	return Failure[T](ActionRequired(action, message))
}

// Failure converts err into an Error or ActionRequired envelope.
func Failure[T any](err error) RequestResult[T] {
	re, ok := As(err)
	if !ok {
		re = &Error{Kind: KindInvalidState, Service: ServiceGateway, Message: "an unexpected error occurred", Err: err}
	}
	r := RequestResult[T]{
		ResultStatus: ResultTypeError,
		ResultError: &ResultError{
			ResultMessage: re.Message,
			ErrorCode:     re.Code(),
			ActionCode:    re.Action,
		},
	}
	if re.Kind == KindActionRequired {
		r.ResultStatus = ResultTypeActionRequired
	}
	return r
}

// Respond writes r with status 200 and stamps the request id on any error.
func Respond[T any](c echo.Context, r RequestResult[T]) error {
	if r.ResultError != nil {
		r.ResultError.TraceID = requestID(c)
	}
	return c.JSON(http.StatusOK, r)
}

func requestID(c echo.Context) string {
	if rid, ok := c.Get("request_id").(string); ok && rid != "" {
		return rid
	}
	return c.Response().Header().Get(echo.HeaderXRequestID)
}
