package chatapi

import (
	"fmt"

	"github.com/pkg/errors"
)

var (
	// ErrThreadUnavailable is returned when create-thread failed or returned no thread id.
	ErrThreadUnavailable = errors.New("thread unavailable")
	// ErrDeliveryFailed is returned when send-message failed.
	ErrDeliveryFailed = errors.New("delivery failed")
	// ErrResponseFailed is returned when get-response failed.
	ErrResponseFailed = errors.New("response failed")
)

// CallError classifies a failed backend call. Kind is one of the sentinel errors
// above and Err is the underlying transport, status or decoding error.
type CallError struct {
	Kind error
	Call string
	Err  error
}

func (e *CallError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("%s: %s", e.Call, e.Kind)
	}
	return fmt.Sprintf("%s: %s: %s", e.Call, e.Kind, e.Err)
}

func (e *CallError) Unwrap() []error {
	if e.Err == nil {
		return []error{e.Kind}
	}
	return []error{e.Kind, e.Err}
}

// StatusError is the cause of a CallError when the backend answered with a non-2xx status.
type StatusError struct {
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("unexpected status %d", e.StatusCode)
	}
	return fmt.Sprintf("unexpected status %d: %s", e.StatusCode, e.Body)
}

func newCallError(kind error, call string, err error) error {
	return &CallError{Kind: kind, Call: call, Err: err}
}
