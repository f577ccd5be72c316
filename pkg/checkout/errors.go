package checkout

import (
	"encoding/json"
	"errors"
	"fmt"
)

var (
	// ErrInvalidArgument is returned before any network activity when the
	// caller passes something the Connector cannot act on.
	ErrInvalidArgument = errors.New("checkout: invalid argument")
	// ErrMalformedResponse is returned when a successful response body cannot
	// be decoded into the resource.
	ErrMalformedResponse = errors.New("checkout: bad format on response content")
	// ErrRedirectLoop is returned when redirect following revisits a URL.
	ErrRedirectLoop = errors.New("checkout: infinite redirect loop detected")
)

const genericStatusMessage = "HTTP Error"

var statusMessages = map[int]string{
	400: "Bad Request",
	401: "Unauthorized",
	402: "PaymentRequired",
	403: "Forbidden",
	404: "Not Found",
	500: "Internal Server Error",
	502: "Service temporarily overloaded",
	503: "Gateway timeout",
}

// StatusMessage returns the reason phrase reported for code.
func StatusMessage(code int) string {
	if msg, ok := statusMessages[code]; ok {
		return msg
	}
	return genericStatusMessage
}

// StatusError reports a response whose status code is outside the success range.
type StatusError struct {
	Code    int
	Message string
	// InternalMessage is taken from a JSON error document in the body, if any.
	InternalMessage string
	Payload         []byte
}

func newStatusError(code int, payload []byte) *StatusError {
	e := &StatusError{
		Code:    code,
		Message: StatusMessage(code),
		Payload: payload,
	}
	var doc struct {
		InternalMessage string `json:"internal_message"`
	}
	if len(payload) > 0 && json.Unmarshal(payload, &doc) == nil {
		e.InternalMessage = doc.InternalMessage
	}
	return e
}

func (e *StatusError) Error() string {
	if e.InternalMessage != "" {
		return fmt.Sprintf("checkout: status %d %s: %s", e.Code, e.Message, e.InternalMessage)
	}
	return fmt.Sprintf("checkout: status %d %s", e.Code, e.Message)
}

// IsClientError reports whether the failure was a 4xx.
func (e *StatusError) IsClientError() bool { return e.Code >= 400 && e.Code < 500 }

// IsServerError reports whether the failure was a 5xx.
func (e *StatusError) IsServerError() bool { return e.Code >= 500 && e.Code < 600 }
