package veostub

import (
	"errors"
	"fmt"
)

// ErrorCode categorizes the failure kinds a context or process handle
// can report internally (spec §7).
type ErrorCode string

const (
	ErrCodePeerLost        ErrorCode = "peer lost"
	ErrCodeProtocol        ErrorCode = "protocol violation"
	ErrCodeResource        ErrorCode = "resource failure"
	ErrCodeOffloadedFault  ErrorCode = "offloaded code fault"
	ErrCodeInvalidArgument ErrorCode = "invalid argument"
	ErrCodeNotFound        ErrorCode = "not found"
)

// Error is veostub's structured error type. ContextOpen is the only
// public function that returns one (for a nil handle or a failed
// dial); the other operations report failure through the documented
// sentinels instead (spec §7). The communicator and GetContextState
// do not use it.
type Error struct {
	Op    string // operation that failed, e.g. "CallSync", "ContextOpen"
	Code  ErrorCode
	Msg   string
	Inner error
}

func (e *Error) Error() string {
	msg := e.Msg
	if msg == "" {
		msg = string(e.Code)
	}
	if e.Op != "" {
		return fmt.Sprintf("veostub: %s: %s", e.Op, msg)
	}
	return fmt.Sprintf("veostub: %s", msg)
}

func (e *Error) Unwrap() error {
	return e.Inner
}

func (e *Error) Is(target error) bool {
	if target == nil {
		return false
	}
	te, ok := target.(*Error)
	if !ok {
		return false
	}
	return e.Code == te.Code
}

// NewError creates a new structured error.
func NewError(op string, code ErrorCode, msg string) *Error {
	return &Error{Op: op, Code: code, Msg: msg}
}

// WrapError wraps an existing error under op, preserving an inner
// *Error's code or defaulting to ErrCodeResource.
func WrapError(op string, inner error) *Error {
	if inner == nil {
		return nil
	}
	if ve, ok := inner.(*Error); ok {
		return &Error{Op: op, Code: ve.Code, Msg: ve.Msg, Inner: ve.Inner}
	}
	return &Error{Op: op, Code: ErrCodeResource, Msg: inner.Error(), Inner: inner}
}

// IsCode reports whether err is a *Error with the given code.
func IsCode(err error, code ErrorCode) bool {
	var ve *Error
	if errors.As(err, &ve) {
		return ve.Code == code
	}
	return false
}
