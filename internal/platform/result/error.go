package result

import (
	"errors"
	"fmt"
	"net/http"
	"sort"
	"strings"

	"github.com/healthgateway/gateway/internal/platform/db"
)

// Kind classifies an Error for status mapping and error codes.
type Kind int

const (
	KindValidation Kind = iota + 1
	KindNotFound
	KindForbidden
	KindAlreadyExists
	KindConflict
	KindInvalidState
	KindUpstream
	KindDatabase
	KindActionRequired
)

var kindInfo = map[Kind]struct {
	code   string
	title  string
	status int
}{
	KindValidation:     {"VAL", "Validation Error", http.StatusBadRequest},
	KindNotFound:       {"NF", "Not Found", http.StatusNotFound},
	KindForbidden:      {"FB", "Forbidden", http.StatusForbidden},
	KindAlreadyExists:  {"AE", "Already Exists", http.StatusConflict},
	KindConflict:       {"CC", "Concurrency Conflict", http.StatusConflict},
	KindInvalidState:   {"IS", "Invalid State", http.StatusUnprocessableEntity},
	KindUpstream:       {"CE", "Upstream Error", http.StatusBadGateway},
	KindDatabase:       {"DB", "Database Error", http.StatusInternalServerError},
	KindActionRequired: {"AR", "Action Required", http.StatusOK},
}

func (k Kind) String() string {
	if info, ok := kindInfo[k]; ok {
		return info.title
	}
	return "Internal Server Error"
}

// Service names the system an error originated in.
type Service string

const (
	ServiceDatabase   Service = "DB"
	ServiceODR        Service = "ODR"
	ServicePHSA       Service = "PHSA"
	ServiceSalesforce Service = "SF"
	ServicePatient    Service = "PAT"
	ServiceQueue      Service = "MQ"
	ServiceGateway    Service = "GW"
)

// ActionType tells the client what it must do before retrying.
type ActionType string

const (
	ActionProtected  ActionType = "PROTECTED"
	ActionValidation ActionType = "VALIDATION"
	ActionRefresh    ActionType = "REFRESH"
)

type Error struct {
	Kind    Kind
	Service Service
	Message string
	Action  ActionType
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *Error) Unwrap() error { return e.Err }

// Code renders the client-facing error code, e.g. server-CE-ODR.
func (e *Error) Code() string {
	info, ok := kindInfo[e.Kind]
	code := "IS"
	if ok {
		code = info.code
	}
	svc := e.Service
	if svc == "" {
		svc = ServiceGateway
	}
	return fmt.Sprintf("server-%s-%s", code, svc)
}

func Validation(format string, args ...any) *Error {
	return &Error{Kind: KindValidation, Service: ServiceGateway, Message: fmt.Sprintf(format, args...)}
}

func NotFound(svc Service, format string, args ...any) *Error {
	return &Error{Kind: KindNotFound, Service: svc, Message: fmt.Sprintf(format, args...)}
}

func Forbidden(format string, args ...any) *Error {
	return &Error{Kind: KindForbidden, Service: ServiceGateway, Message: fmt.Sprintf(format, args...)}
}

func AlreadyExists(format string, args ...any) *Error {
	return &Error{Kind: KindAlreadyExists, Service: ServiceDatabase, Message: fmt.Sprintf(format, args...)}
}

func Conflict(format string, args ...any) *Error {
	return &Error{Kind: KindConflict, Service: ServiceDatabase, Message: fmt.Sprintf(format, args...)}
}

func InvalidState(format string, args ...any) *Error {
	return &Error{Kind: KindInvalidState, Service: ServiceGateway, Message: fmt.Sprintf(format, args...)}
}

func Upstream(svc Service, message string, err error) *Error {
	return &Error{Kind: KindUpstream, Service: svc, Message: message, Err: err}
}

func Database(message string, err error) *Error {
	return &Error{Kind: KindDatabase, Service: ServiceDatabase, Message: message, Err: err}
}

func ActionRequired(action ActionType, message string) *Error {
	return &Error{Kind: KindActionRequired, Service: ServiceGateway, Message: message, Action: action}
}

// FromDB translates a delegate error: missing rows become NotFound with the
// given message, stale versions Conflict, unique violations AlreadyExists,
// anything else Database.
func FromDB(err error, what string) error {
	if err == nil {
		return nil
	}
	var re *Error
	if errors.As(err, &re) {
		return err
	}
	switch {
	case db.IsNotFound(err):
		return NotFound(ServiceDatabase, "%s not found", what)
	case errors.Is(err, db.ErrStaleVersion):
		return Conflict("%s was changed by another request", what)
	case db.IsUniqueViolation(err):
		return AlreadyExists("%s already exists", what)
	default:
		return Database(fmt.Sprintf("%s: database error", what), err)
	}
}

// As returns the *Error in err's chain.
func As(err error) (*Error, bool) {
	var re *Error
	ok := errors.As(err, &re)
	return re, ok
}

// KindOf returns 0 for errors that are not *Error.
func KindOf(err error) Kind {
	if re, ok := As(err); ok {
		return re.Kind
	}
	return 0
}

// StatusCode maps an error to the HTTP status the gateway answers with.
func StatusCode(err error) int {
	if re, ok := As(err); ok {
		if info, ok := kindInfo[re.Kind]; ok {
			return info.status
		}
	}
	return http.StatusInternalServerError
}

// FieldErrors joins per-field messages into one Validation error.
func FieldErrors(fields map[string]string) *Error {
	parts := make([]string, 0, len(fields))
	for _, name := range sortedKeys(fields) {
		parts = append(parts, name+": "+fields[name])
	}
	return Validation("%s", strings.Join(parts, "; "))
}

func sortedKeys(m map[string]string) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
