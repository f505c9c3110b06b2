package errs

import (
	"errors"
	"fmt"
	"net/http"
)

type Kind string

const (
	KindInvalidArgument Kind = "invalid_argument"
	KindInvalidSource   Kind = "invalid_source"
	KindProviderTimeout Kind = "provider_timeout"
	KindEmbedding       Kind = "embedding_provider"
	KindCompletion      Kind = "completion_provider"
	KindSchema          Kind = "schema"
	KindQuery           Kind = "query"
	KindNotFound        Kind = "not_found"
	KindConflict        Kind = "conflict"
)

// Error carries the failure kind plus the operation and tenant that hit it,
// so operator logs can be diagnosed without grepping for stack traces.
type Error struct {
	Kind      Kind
	Operation string
	TenantKey string
	Message   string
	Cause     error
}

func (e *Error) Error() string {
	if e == nil {
		return "operation failed"
	}
	msg := e.Message
	if msg == "" && e.Cause != nil {
		msg = e.Cause.Error()
	}
	if e.TenantKey != "" {
		return fmt.Sprintf("%s failed (kind=%s tenant=%s): %s", e.Operation, e.Kind, e.TenantKey, msg)
	}
	return fmt.Sprintf("%s failed (kind=%s): %s", e.Operation, e.Kind, msg)
}

func (e *Error) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Cause
}

func E(kind Kind, op string, msg string, cause error) error {
	return &Error{Kind: kind, Operation: op, Message: msg, Cause: cause}
}

func Tenant(kind Kind, op string, tenantKey string, msg string, cause error) error {
	return &Error{Kind: kind, Operation: op, TenantKey: tenantKey, Message: msg, Cause: cause}
}

// KindOf walks the error chain for the first typed error and returns its kind.
// Untyped errors report as KindQuery zero value "".
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) && e != nil {
		return e.Kind
	}
	return ""
}

func Is(err error, kind Kind) bool {
	return KindOf(err) == kind
}

func HTTPStatus(err error) int {
	switch KindOf(err) {
	case KindInvalidArgument, KindInvalidSource:
		return http.StatusBadRequest
	case KindNotFound:
		return http.StatusNotFound
	case KindConflict:
		return http.StatusConflict
	case KindProviderTimeout:
		return http.StatusGatewayTimeout
	case KindEmbedding, KindCompletion:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}
