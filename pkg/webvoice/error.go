package webvoice

import (
	"errors"
	"fmt"
	"net/http"
)

// Error is a non-2xx response from the web voice API.
type Error struct {
	// HTTPStatus is the response status code.
	HTTPStatus int `json:"-"`

	// Message is the server-supplied explanation, if any.
	Message string `json:"error"`

	// Code is an optional machine readable error code.
	Code string `json:"code,omitempty"`
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("webvoice: HTTP %d", e.HTTPStatus)
	}
	return fmt.Sprintf("webvoice: %s (HTTP %d)", e.Message, e.HTTPStatus)
}

// IsUnauthorized reports whether the bearer token was rejected.
func (e *Error) IsUnauthorized() bool {
	return e.HTTPStatus == http.StatusUnauthorized
}

// IsNotConfigured reports whether the tenant has no usable agent.
func (e *Error) IsNotConfigured() bool {
	return e.HTTPStatus == http.StatusBadRequest
}

// IsBillingLimit reports whether the tenant is out of credit.
func (e *Error) IsBillingLimit() bool {
	return e.HTTPStatus == http.StatusPaymentRequired
}

// Retryable reports whether repeating the request may succeed.
func (e *Error) Retryable() bool {
	return e.HTTPStatus == http.StatusTooManyRequests || e.HTTPStatus >= 500
}

// AsError extracts *Error from an error chain.
func AsError(err error) (*Error, bool) {
	var e *Error
	if errors.As(err, &e) {
		return e, true
	}
	return nil, false
}
