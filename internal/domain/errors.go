package domain

import (
	"errors"
	"net/http"
)

var (
	// ErrMissingAPIKey means no upstream key is configured for the backend.
	ErrMissingAPIKey  = errors.New("api key not configured")
	ErrUnknownBackend = errors.New("unknown image backend")
)

// Messages surfaced verbatim to callers of the proxy and to the user.
const (
	MsgPromptRequired   = "Prompt is required"
	MsgAPIKeyMissing    = "API key not configured"
	MsgPaymentRequired  = "Payment required. Please add credits to your workspace."
	MsgRateLimited      = "Rate limit exceeded. Please try again later."
	MsgTimedOut         = "Request timed out"
	MsgNoImages         = "No images returned"
	MsgGenerationFailed = "Failed to generate image"
	MsgBusy             = "A generation is already in progress"
)

// ErrorKind classifies an expected generation failure.
type ErrorKind string

const (
	KindNone            ErrorKind = ""
	KindValidation      ErrorKind = "validation"
	KindConfiguration   ErrorKind = "configuration"
	KindUpstream        ErrorKind = "upstream"
	KindRateLimited     ErrorKind = "rate_limited"
	KindPaymentRequired ErrorKind = "payment_required"
	KindTimeout         ErrorKind = "timeout"
	KindTransport       ErrorKind = "transport"
	KindBusy            ErrorKind = "busy"
)

// HTTPStatus maps the kind onto the proxy's response status. Timeouts stay
// in the 500 class and are told apart by their message.
func (k ErrorKind) HTTPStatus() int {
	switch k {
	case KindNone:
		return http.StatusOK
	case KindValidation:
		return http.StatusBadRequest
	case KindPaymentRequired:
		return http.StatusPaymentRequired
	case KindRateLimited:
		return http.StatusTooManyRequests
	default:
		return http.StatusInternalServerError
	}
}

// KindFromStatus is the inverse used by clients reading a proxy response.
func KindFromStatus(status int) ErrorKind {
	switch {
	case status >= 200 && status < 300:
		return KindNone
	case status == http.StatusBadRequest:
		return KindValidation
	case status == http.StatusPaymentRequired:
		return KindPaymentRequired
	case status == http.StatusTooManyRequests:
		return KindRateLimited
	default:
		return KindUpstream
	}
}
