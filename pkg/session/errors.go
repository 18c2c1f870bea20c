package session

import (
	"errors"
	"fmt"
)

// ErrDecode marks a result set that was returned but could not be decoded.
// Callers treat it as "no rows to display" rather than a failure.
var ErrDecode = errors.New("result could not be decoded")

// ConnectionError is returned when a session cannot be established. It is
// fatal for a run: no statement executes after it.
type ConnectionError struct {
	Type    string
	Address string
	Err     error
}

func (e *ConnectionError) Error() string {
	if e.Address == "" {
		return fmt.Sprintf("failed to connect to %s: %v", e.Type, e.Err)
	}
	return fmt.Sprintf("failed to connect to %s at %s: %v", e.Type, e.Address, e.Err)
}

func (e *ConnectionError) Unwrap() error { return e.Err }

// ExecutionError is returned when a single statement fails.
type ExecutionError struct {
	Statement string
	Err       error
}

func (e *ExecutionError) Error() string {
	return e.Err.Error()
}

func (e *ExecutionError) Unwrap() error { return e.Err }

// DecodeError wraps the underlying failure of reading a row set.
type DecodeError struct {
	Err error
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("%v: %v", ErrDecode, e.Err)
}

func (e *DecodeError) Unwrap() error { return e.Err }

// Is makes errors.Is(err, ErrDecode) match any DecodeError.
func (e *DecodeError) Is(target error) bool {
	return target == ErrDecode
}

// UnknownTypeError is returned when an unregistered backend type is requested.
type UnknownTypeError struct {
	Type      string
	Available []string
}

func (e *UnknownTypeError) Error() string {
	return fmt.Sprintf("unknown session type %q\nAvailable types: %v\nHint: Check target.type in wq.yaml or WQ_TARGET_TYPE", e.Type, e.Available)
}
