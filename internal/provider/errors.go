package provider

import (
	"errors"
	"fmt"
)

var (
	// ErrUnknownChain is returned when no chain with the requested id has
	// been registered.
	ErrUnknownChain = errors.New("provider: unknown chain")
	// ErrDuplicateChain is returned when registering a chain id that
	// already exists without requesting an overwrite.
	ErrDuplicateChain = errors.New("provider: chain already registered")
)

// TransportError wraps connection, timeout and HTTP-level failures of a
// JSON-RPC request. These never carry a JSON-RPC error object.
type TransportError struct {
	Method string
	// Status is the HTTP status code when the upstream answered with a
	// non-success status, zero otherwise.
	Status int
	Err    error
}

func (e *TransportError) Error() string {
	if e.Status != 0 {
		return fmt.Sprintf("provider: %s failed with HTTP status %d: %v", e.Method, e.Status, e.Err)
	}
	return fmt.Sprintf("provider: %s transport failure: %v", e.Method, e.Err)
}

func (e *TransportError) Unwrap() error { return e.Err }

// RPCError is an application-level JSON-RPC error returned by the node.
type RPCError struct {
	Method  string
	Code    int
	Message string
}

func (e *RPCError) Error() string {
	return fmt.Sprintf("provider: %s returned JSON-RPC error %d: %s", e.Method, e.Code, e.Message)
}
