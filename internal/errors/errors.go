package errors

import (
	"errors"
	"fmt"
)

// Sentinel errors for resolution and configuration failures. These are all
// detected synchronously, before any network resource is touched.
var (
	// ErrServiceNotFound is returned when no registered service matches the
	// requested name.
	ErrServiceNotFound = errors.New("service not found")

	// ErrOperationNotFound is returned when the service exists but has no
	// operation with the requested name.
	ErrOperationNotFound = errors.New("operation not found")

	// ErrNoMatchingOverload is returned when the operation exists but the
	// request document matched none of its overloads.
	ErrNoMatchingOverload = errors.New("no matching overload")

	// ErrNotConfigured is returned when a service resolved but no endpoint
	// URL is configured for it.
	ErrNotConfigured = errors.New("no endpoint configured for service")
)

// BindingError reports a request field that was present but could not be
// converted to its parameter's declared kind. A missing field is never a
// BindingError; only a wrong-typed one is.
type BindingError struct {
	Service   string
	Operation string
	Field     string
	Kind      string // the parameter kind the value failed to convert to
	Value     any
	Reason    string
}

func (e *BindingError) Error() string {
	return fmt.Sprintf("bind %s.%s: field %q: cannot convert %v to %s: %s",
		e.Service, e.Operation, e.Field, e.Value, e.Kind, e.Reason)
}

// RemoteFault reports a service-side failure: the remote call completed, and
// the service signaled an error of its own.
type RemoteFault struct {
	Code    string
	Message string
	Details string // rich fault details, newline-separated sections
	Err     error
}

func (e *RemoteFault) Error() string {
	if e.Code != "" {
		return fmt.Sprintf("remote fault (%s): %s", e.Code, e.Message)
	}
	return "remote fault: " + e.Message
}

// Unwrap returns the underlying error.
func (e *RemoteFault) Unwrap() error {
	return e.Err
}

// TransportError reports a network or transport-level failure, including a
// cancellation-induced abort.
type TransportError struct {
	Op        string // the lifecycle phase that failed: open, invoke, close
	Cancelled bool
	Err       error
}

func (e *TransportError) Error() string {
	if e.Cancelled {
		return fmt.Sprintf("transport %s: call cancelled: %v", e.Op, e.Err)
	}
	return fmt.Sprintf("transport %s: %v", e.Op, e.Err)
}

// Unwrap returns the underlying error.
func (e *TransportError) Unwrap() error {
	return e.Err
}
