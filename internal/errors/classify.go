package errors

import (
	"context"
	"errors"
)

// Classify folds a raw error from the call path into one of the surfaced
// error kinds. Errors that are already classified pass through unchanged;
// context errors become cancellation-flavored transport errors; anything
// else becomes a plain transport failure for the given phase.
func Classify(op string, err error) error {
	if err == nil {
		return nil
	}

	var (
		bindErr      *BindingError
		remoteFault  *RemoteFault
		transportErr *TransportError
	)
	switch {
	case errors.As(err, &bindErr),
		errors.As(err, &remoteFault),
		errors.As(err, &transportErr):
		return err
	case errors.Is(err, ErrServiceNotFound),
		errors.Is(err, ErrOperationNotFound),
		errors.Is(err, ErrNoMatchingOverload),
		errors.Is(err, ErrNotConfigured):
		return err
	}

	switch {
	case errors.Is(err, context.Canceled):
		return &TransportError{Op: op, Cancelled: true, Err: err}
	case errors.Is(err, context.DeadlineExceeded):
		return &TransportError{Op: op, Err: err}
	}

	return &TransportError{Op: op, Err: err}
}
