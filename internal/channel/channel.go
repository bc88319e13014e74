// Package channel owns the network-facing half of the bridge: a process-wide
// cache of expensive channel factories, and the per-call lifecycle of the
// channels they produce (open, late-bound invoke, orderly close or abort).
package channel

import (
	"context"

	"github.com/shhac/soapbridge/internal/domain"
)

// State represents the lifecycle state of a remote channel
type State int

const (
	StateCreated State = iota
	StateCalling
	StateFaulted
	StateClosed
	StateAborted
)

// String returns a human-readable representation of the channel state
func (s State) String() string {
	switch s {
	case StateCreated:
		return "Created"
	case StateCalling:
		return "Calling"
	case StateFaulted:
		return "Faulted"
	case StateClosed:
		return "Closed"
	case StateAborted:
		return "Aborted"
	default:
		return "Unknown"
	}
}

// Terminal reports whether the state is one of the two terminal states.
// No channel transitions out of Closed or Aborted.
func (s State) Terminal() bool {
	return s == StateClosed || s == StateAborted
}

// RemoteChannel is one logical connection handle, used for exactly one call.
// Invoke dispatches the operation chosen at resolution time. Close attempts
// an orderly shutdown; Abort hard-terminates, abandoning any in-flight
// exchange, and never reports an error.
type RemoteChannel interface {
	Invoke(ctx context.Context, op domain.Operation, args []any) (any, error)
	Close() error
	Abort()
	State() State
}

// Factory produces channels for one (contract, endpoint, transport
// configuration) triple. Factories are expensive: they are constructed once
// per unique key, cached, and shared by all concurrent calls for that key.
type Factory interface {
	NewChannel() (RemoteChannel, error)
	Close() error
}

// FactoryBuilder constructs a factory for a contract at an endpoint. The
// cache calls it at most once per unique key.
type FactoryBuilder func(contract, endpoint string, cfg domain.TransportConfig) (Factory, error)
