package usecase

import (
	"errors"
	"fmt"
)

// ErrorCode classifies why a completion produced no answer.
type ErrorCode string

const (
	// ErrorRateLimited: the completion API answered 429.
	ErrorRateLimited ErrorCode = "RATE_LIMITED"
	// ErrorUnauthorized: the API key was rejected (401/403).
	ErrorUnauthorized ErrorCode = "UNAUTHORIZED"
	// ErrorUpstream: any other upstream or transport failure.
	ErrorUpstream ErrorCode = "UPSTREAM_ERROR"
	// ErrorMalformedResponse: the completion succeeded but held no usable text.
	ErrorMalformedResponse ErrorCode = "MALFORMED_RESPONSE"
)

// detailer is implemented by upstream errors that can report the provider's
// own message apart from our wrapping.
type detailer interface {
	Detail() string
}

// Error is a classified completion failure. Code and Reason go to the logs;
// Detail is what the user sees.
type Error struct {
	Code   ErrorCode
	Reason string
	Err    error
}

func (e *Error) Error() string {
	if e == nil {
		return ""
	}
	if e.Err == nil {
		return fmt.Sprintf("usecase: completion %s (%s)", e.Code, e.Reason)
	}
	return fmt.Sprintf("usecase: completion %s (%s): %v", e.Code, e.Reason, e.Err)
}

func (e *Error) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

// Detail returns the provider's error text when the cause carries one, else
// the cause's own text. It is empty when there is no cause.
func (e *Error) Detail() string {
	if e == nil || e.Err == nil {
		return ""
	}
	var d detailer
	if errors.As(e.Err, &d) {
		return d.Detail()
	}
	return e.Err.Error()
}

func newError(code ErrorCode, reason string, err error) *Error {
	return &Error{Code: code, Reason: reason, Err: err}
}
