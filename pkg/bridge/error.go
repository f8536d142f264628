package bridge

import (
	"errors"
	"net/http"

	"github.com/callwaiting/voxbridge/pkg/webvoice"
)

// Kind classifies bridge errors.
type Kind int

const (
	// KindConfiguration means required local settings are missing.
	KindConfiguration Kind = iota + 1
	// KindAuthentication means the token was rejected.
	KindAuthentication
	// KindBilling means the tenant may not start sessions right now.
	KindBilling
	// KindTransport covers channel failures, timeouts and abrupt closes.
	KindTransport
	// KindProtocol covers frames the client could not interpret.
	KindProtocol
	// KindDevice covers audio capture and playback failures.
	KindDevice
	// KindServer is a fatal error reported by the bridge itself.
	KindServer
)

func (k Kind) String() string {
	switch k {
	case KindConfiguration:
		return "configuration"
	case KindAuthentication:
		return "authentication"
	case KindBilling:
		return "billing"
	case KindTransport:
		return "transport"
	case KindProtocol:
		return "protocol"
	case KindDevice:
		return "device"
	case KindServer:
		return "server"
	default:
		return "unknown"
	}
}

// Fallback copy shown when the server does not explain itself.
const (
	msgOrgNotValidated    = "Organization not validated. Please refresh the page and try again."
	msgNotAuthenticated   = "Not authenticated. Please sign in and try again."
	msgAgentNotConfigured = "Agent not configured. Please configure your agent before starting a session."
	msgBillingLimit       = "Billing limit reached. Please top up your balance to continue."
	msgStartFailed        = "Failed to start voice session."
	msgConnectTimeout     = "Connection timeout. Please check your network and try again."
	msgConnectionError    = "Connection error. Please try again."
	msgServerError        = "The voice session ended unexpectedly."
	msgRecordingFailed    = "Could not start recording. Please check your microphone."
	msgPlaybackFailed     = "Could not open the audio output."
)

var (
	// ErrNotConnected is returned by operations that need an open,
	// authenticated channel.
	ErrNotConnected = errors.New("bridge: not connected")

	// ErrClosed is returned by Connect after Close.
	ErrClosed = errors.New("bridge: manager closed")
)

// Error is a classified, human readable bridge error.
type Error struct {
	Kind Kind

	// Message is safe to show to the user.
	Message string

	// HTTPStatus is set for errors from the initiation endpoint.
	HTTPStatus int

	// Err is the underlying cause, if any.
	Err error
}

// Error returns the human readable message.
func (e *Error) Error() string {
	return e.Message
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Retryable reports whether the connection may recover on its own.
func (e *Error) Retryable() bool {
	return e.Kind == KindTransport
}

func newError(kind Kind, message string, cause error) *Error {
	return &Error{Kind: kind, Message: message, Err: cause}
}

// AsError extracts *Error from an error chain.
func AsError(err error) (*Error, bool) {
	var e *Error
	if errors.As(err, &e) {
		return e, true
	}
	return nil, false
}

// IsKind reports whether err is a bridge error of kind k.
func IsKind(err error, k Kind) bool {
	e, ok := AsError(err)
	return ok && e.Kind == k
}

// initiationError maps a failed initiation call onto the taxonomy,
// preferring the server's wording.
func initiationError(err error) *Error {
	apiErr, ok := webvoice.AsError(err)
	if !ok {
		return newError(KindTransport, msgStartFailed, err)
	}
	pick := func(fallback string) string {
		if apiErr.Message != "" {
			return apiErr.Message
		}
		return fallback
	}

	var e *Error
	switch apiErr.HTTPStatus {
	case http.StatusUnauthorized:
		e = newError(KindAuthentication, msgNotAuthenticated, err)
	case http.StatusBadRequest:
		e = newError(KindBilling, pick(msgAgentNotConfigured), err)
	case http.StatusPaymentRequired:
		e = newError(KindBilling, pick(msgBillingLimit), err)
	default:
		e = newError(KindTransport, pick(msgStartFailed), err)
	}
	e.HTTPStatus = apiErr.HTTPStatus
	return e
}
