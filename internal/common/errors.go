package common

import (
	"errors"
	"fmt"
	"net/http"
)

// Kind classifies a failure so callers can branch without matching on text.
type Kind string

const (
	KindValidation      Kind = "validation"
	KindNotConfigured   Kind = "not_configured"
	KindSubmission      Kind = "submission"
	KindProviderFailure Kind = "provider_failure"
	KindTimeout         Kind = "timeout"
	KindTransient       Kind = "transient"
	KindCanceled        Kind = "canceled"
)

// Error is the domain error carried from provider clients to the HTTP facade.
// Message is what the caller sees; Err keeps the underlying cause for logs.
type Error struct {
	Kind       Kind
	Provider   string
	StatusCode int
	Message    string
	Err        error
}

func (e *Error) Error() string {
	if e.Message != "" {
		return e.Message
	}
	if e.Err != nil {
		return e.Err.Error()
	}
	return string(e.Kind)
}

func (e *Error) Unwrap() error { return e.Err }

func Validation(provider, format string, args ...any) *Error {
	return &Error{Kind: KindValidation, Provider: provider, Message: fmt.Sprintf(format, args...)}
}

func NotConfigured(provider string) *Error {
	return &Error{
		Kind:     KindNotConfigured,
		Provider: provider,
		Message:  fmt.Sprintf("%s: not configured, add an API key", provider),
	}
}

// KindOf returns the Kind of err, or "" when err is not an *Error.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return ""
}

// IsRetryableStatus reports whether an upstream status code is worth another
// attempt: 429 and 5xx.
func IsRetryableStatus(code int) bool {
	return code == http.StatusTooManyRequests || code >= 500
}
