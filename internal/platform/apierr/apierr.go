package apierr

import (
	"errors"
	"fmt"
	"net/http"
)

// Codes returned to clients. The handler layer maps Status to the HTTP
// response; Code is the short machine-readable reason.
const (
	CodeConfig        = "config_error"
	CodeUnauthorized  = "unauthenticated"
	CodeThrottled     = "throttled_upstream"
	CodeInvalidOutput = "invalid_model_output"
	CodeQuotaExceeded = "quota_exceeded"
	CodeLockHeld      = "generation_in_progress"
	CodeUpstream      = "upstream_error"
	CodeBadRequest    = "bad_request"
	CodeNotFound      = "not_found"
)

type Error struct {
	Status int
	Code   string
	Err    error
}

func (e *Error) Error() string {
	if e == nil {
		return ""
	}
	if e.Err != nil {
		return e.Err.Error()
	}
	if e.Code != "" {
		return e.Code
	}
	if e.Status != 0 {
		return fmt.Sprintf("api error (%d)", e.Status)
	}
	return "api error"
}

func (e *Error) Unwrap() error { return e.Err }

func New(status int, code string, err error) *Error {
	return &Error{Status: status, Code: code, Err: err}
}

func Config(err error) *Error {
	return New(http.StatusInternalServerError, CodeConfig, err)
}

func Unauthorized(err error) *Error {
	return New(http.StatusUnauthorized, CodeUnauthorized, err)
}

func Throttled(err error) *Error {
	return New(http.StatusInternalServerError, CodeThrottled, err)
}

func InvalidOutput(err error) *Error {
	return New(http.StatusInternalServerError, CodeInvalidOutput, err)
}

func QuotaExceeded(err error) *Error {
	return New(http.StatusTooManyRequests, CodeQuotaExceeded, err)
}

func LockHeld(err error) *Error {
	return New(http.StatusConflict, CodeLockHeld, err)
}

func Upstream(err error) *Error {
	return New(http.StatusInternalServerError, CodeUpstream, err)
}

// From extracts an *Error, wrapping unknown failures as 500 upstream errors.
func From(err error) *Error {
	var ae *Error
	if errors.As(err, &ae) {
		return ae
	}
	return Upstream(err)
}
