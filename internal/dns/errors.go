package dns

import (
	"errors"
	"fmt"
)

// ErrorKind classifies a failed provider call.
type ErrorKind int

const (
	KindUnauthorized ErrorKind = iota + 1
	KindNoZones
	KindHTTPError
	KindTransportError
)

func (k ErrorKind) String() string {
	switch k {
	case KindUnauthorized:
		return "unauthorized"
	case KindNoZones:
		return "no_zones"
	case KindHTTPError:
		return "http_error"
	case KindTransportError:
		return "transport_error"
	default:
		return "unknown"
	}
}

// UnknownErrorMessage is reported when the provider gave no error detail.
const UnknownErrorMessage = "Unknown error"

// Error is the structured outcome of a failed provider call.
type Error struct {
	Kind       ErrorKind
	Op         string // "list_zones", "create_record"
	StatusCode int    // 0 when no HTTP response was received
	Message    string // first error message reported by the provider, if any
	Err        error  // underlying transport or decode error
}

func (e *Error) Error() string {
	switch {
	case e.Err != nil:
		return fmt.Sprintf("%s: %s: %v", e.Op, e.Kind, e.Err)
	case e.StatusCode != 0 && e.Message != "":
		return fmt.Sprintf("%s: %s (status %d): %s", e.Op, e.Kind, e.StatusCode, e.Message)
	case e.StatusCode != 0:
		return fmt.Sprintf("%s: %s (status %d)", e.Op, e.Kind, e.StatusCode)
	default:
		return fmt.Sprintf("%s: %s", e.Op, e.Kind)
	}
}

func (e *Error) Unwrap() error { return e.Err }

// Detail returns the text shown to a user: the raw error for transport
// failures, otherwise the provider's message or UnknownErrorMessage.
func (e *Error) Detail() string {
	if e.Kind == KindTransportError && e.Err != nil {
		return e.Err.Error()
	}
	if e.Message != "" {
		return e.Message
	}
	return UnknownErrorMessage
}

// KindOf returns the kind of a provider error, or 0 if err is not one.
func KindOf(err error) ErrorKind {
	var pe *Error
	if errors.As(err, &pe) {
		return pe.Kind
	}
	return 0
}

// Detail returns the user-facing detail of err. Errors that did not come
// from a provider are reported verbatim.
func Detail(err error) string {
	var pe *Error
	if errors.As(err, &pe) {
		return pe.Detail()
	}
	if err == nil {
		return UnknownErrorMessage
	}
	return err.Error()
}
