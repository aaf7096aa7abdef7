package errors

import (
	stdErrors "errors"
	"fmt"
	"net/http"
)

type Code string

const (
	CodeValidation   Code = "VALIDATION_ERROR"
	CodeUnauthorized Code = "UNAUTHORIZED"
	CodeNotFound     Code = "NOT_FOUND"
	CodeConfig       Code = "CONFIGURATION_ERROR"
	CodeUpstreamAuth Code = "UPSTREAM_AUTH_FAILED"
	CodeUpstream     Code = "UPSTREAM_REQUEST_FAILED"
	CodeInternal     Code = "INTERNAL_ERROR"
	CodeDependency   Code = "DEPENDENCY_ERROR"
)

type Metadata struct {
	HTTPStatus     int
	Retryable      bool
	PublicMessage  string
	DetailsAllowed bool
}

var metadataByCode = map[Code]Metadata{
	CodeValidation: {
		HTTPStatus:     http.StatusBadRequest,
		Retryable:      false,
		PublicMessage:  "validation failed",
		DetailsAllowed: true,
	},
	CodeUnauthorized: {
		HTTPStatus:     http.StatusUnauthorized,
		Retryable:      false,
		PublicMessage:  "authentication required",
		DetailsAllowed: false,
	},
	CodeNotFound: {
		HTTPStatus:     http.StatusNotFound,
		Retryable:      false,
		PublicMessage:  "resource not found",
		DetailsAllowed: false,
	},
	CodeConfig: {
		HTTPStatus:     http.StatusUnprocessableEntity,
		Retryable:      false,
		PublicMessage:  "tenant configuration incomplete",
		DetailsAllowed: true,
	},
	CodeUpstreamAuth: {
		HTTPStatus:     http.StatusBadGateway,
		Retryable:      true,
		PublicMessage:  "marketplace rejected the credential exchange",
		DetailsAllowed: true,
	},
	CodeUpstream: {
		HTTPStatus:     http.StatusBadGateway,
		Retryable:      true,
		PublicMessage:  "marketplace request failed",
		DetailsAllowed: true,
	},
	CodeInternal: {
		HTTPStatus:     http.StatusInternalServerError,
		Retryable:      true,
		PublicMessage:  "internal server error",
		DetailsAllowed: false,
	},
	CodeDependency: {
		HTTPStatus:     http.StatusServiceUnavailable,
		Retryable:      true,
		PublicMessage:  "dependency unavailable",
		DetailsAllowed: true,
	},
}

func MetadataFor(code Code) Metadata {
	if meta, ok := metadataByCode[code]; ok {
		return meta
	}
	return metadataByCode[CodeInternal]
}

// Error is the typed error carried across the bridge. Upstream failures
// additionally hold the marketplace's HTTP status and response body so
// callers can report them verbatim.
type Error struct {
	code           Code
	message        string
	details        any
	cause          error
	upstreamStatus int
	upstreamBody   string
}

func New(code Code, message string) *Error {
	return &Error{code: code, message: message}
}

func Wrap(code Code, err error, message string) *Error {
	if err == nil {
		return New(code, message)
	}
	return &Error{code: code, message: message, cause: err}
}

func (e *Error) Code() Code {
	if e == nil {
		return CodeInternal
	}
	return e.code
}

func (e *Error) Message() string {
	if e == nil {
		return ""
	}
	return e.message
}

func (e *Error) Details() any {
	if e == nil {
		return nil
	}
	return e.details
}

func (e *Error) WithDetails(details any) *Error {
	if e == nil {
		return nil
	}
	e.details = details
	return e
}

// WithUpstream attaches the status code and raw body returned by the
// marketplace to the error.
func (e *Error) WithUpstream(status int, body string) *Error {
	if e == nil {
		return nil
	}
	e.upstreamStatus = status
	e.upstreamBody = body
	return e
}

// UpstreamStatus returns the HTTP status the marketplace answered with,
// or zero when the failure happened before a response arrived.
func (e *Error) UpstreamStatus() int {
	if e == nil {
		return 0
	}
	return e.upstreamStatus
}

// UpstreamBody returns the raw marketplace response body, if any.
func (e *Error) UpstreamBody() string {
	if e == nil {
		return ""
	}
	return e.upstreamBody
}

func (e *Error) Error() string {
	if e == nil {
		return ""
	}
	if e.upstreamStatus != 0 {
		return fmt.Sprintf("%s: %s (upstream %d)", e.code, e.message, e.upstreamStatus)
	}
	return fmt.Sprintf("%s: %s", e.code, e.message)
}

func (e *Error) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.cause
}

func As(err error) *Error {
	if err == nil {
		return nil
	}
	var typed *Error
	if stdErrors.As(err, &typed) {
		return typed
	}
	return nil
}

// IsCode reports whether err carries the given code.
func IsCode(err error, code Code) bool {
	typed := As(err)
	return typed != nil && typed.Code() == code
}
