package engine

import (
	"context"
	"errors"
	"fmt"
	"net"
)

// ConfigurationError means the website descriptor is unusable, it aborts the
// session before any request is sent.
type ConfigurationError struct {
	Field string
	Value string
	Err   error
}

func (e *ConfigurationError) Error() string {
	return fmt.Sprintf("invalid %s %q: %s", e.Field, e.Value, e.Err)
}

func (e *ConfigurationError) Unwrap() error {
	return e.Err
}

// TransportError is a request that never produced a response.
type TransportError struct {
	Op      string
	Timeout bool
	Err     error
}

func newTransportError(op string, err error) *TransportError {
	var netErr net.Error
	timeout := errors.Is(err, context.DeadlineExceeded) ||
		(errors.As(err, &netErr) && netErr.Timeout())
	return &TransportError{Op: op, Timeout: timeout, Err: err}
}

// Reason is the short form used in results, "timeout" for timeouts and the
// underlying error text otherwise.
func (e *TransportError) Reason() string {
	if e.Timeout {
		return "timeout"
	}
	return e.Err.Error()
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("%s: transport: %s", e.Op, e.Reason())
}

func (e *TransportError) Unwrap() error {
	return e.Err
}

// AuthenticationError is a login the site rejected by status, or a login
// request that could not be sent at all (Err is then a *TransportError).
type AuthenticationError struct {
	Status int
	Err    error
}

func (e *AuthenticationError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("authentication failed: %s", e.Err)
	}
	return fmt.Sprintf("authentication failed: status %d", e.Status)
}

func (e *AuthenticationError) Unwrap() error {
	return e.Err
}

const reasonNotConnected = "not-connected"

// ProtocolError means the session could not be confirmed after login.
type ProtocolError struct {
	Reason string
	Status int
	Err    error
}

func (e *ProtocolError) Error() string {
	switch {
	case e.Err != nil:
		return fmt.Sprintf("protocol: %s: %s", e.Reason, e.Err)
	case e.Status != 0:
		return fmt.Sprintf("protocol: %s: status %d", e.Reason, e.Status)
	}
	return fmt.Sprintf("protocol: %s", e.Reason)
}

func (e *ProtocolError) Unwrap() error {
	return e.Err
}

// PreconditionError is an operation called from a state it is not allowed in.
type PreconditionError struct {
	Op    string
	State StateKind
}

func (e *PreconditionError) Error() string {
	return fmt.Sprintf("%s: not allowed in state %s", e.Op, e.State)
}

// BusinessError is an action the site answered with a non 2xx status.
type BusinessError struct {
	Status       int
	AlreadyActed bool
	Notice       string
}

func (e *BusinessError) Error() string {
	msg := fmt.Sprintf("action rejected: status %d", e.Status)
	if e.AlreadyActed {
		msg += " (already acted)"
	}
	if e.Notice != "" {
		msg += fmt.Sprintf(": %s", e.Notice)
	}
	return msg
}
