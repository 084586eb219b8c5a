package veo

import (
	"errors"
	"fmt"
)

type ErrorCode string

const (
	// ErrCodeState indicates an operation was invoked out of sequence.
	ErrCodeState ErrorCode = "state"

	// ErrCodeArgument indicates a nil, negative or out of range parameter.
	ErrCodeArgument ErrorCode = "argument"

	// ErrCodeNotFound indicates a missing template, data file, credential or encoding template.
	ErrCodeNotFound ErrorCode = "not_found"

	// ErrCodeIO indicates a read, write or seek failure.
	ErrCodeIO ErrorCode = "io"

	// ErrCodeCrypto indicates a key retrieval, signing or digest failure.
	ErrCodeCrypto ErrorCode = "crypto"

	// ErrCodeSyntax indicates a template substitution could not be parsed.
	// It is the only recoverable code: the substitution is logged and dropped.
	ErrCodeSyntax ErrorCode = "syntax"
)

// Error is the error returned by every operation involved in building a VEO.
// Apart from ErrCodeSyntax, an Error is fatal to the VEO being built.
type Error struct {

	// code classifies the failure
	code ErrorCode

	// op names the operation that failed, e.g. "generator.StartRecord"
	op string

	// message is a human-readable error message
	message string

	// wrapped is the optional underlying error
	wrapped error
}

func (e *Error) Error() string {
	msg := e.message
	if e.op != "" {
		msg = e.op + ": " + msg
	}
	if e.wrapped != nil {
		return fmt.Sprintf("%s: %v", msg, e.wrapped)
	}
	return msg
}

func (e *Error) Code() ErrorCode { return e.code }
func (e *Error) Op() string      { return e.op }
func (e *Error) Unwrap() error   { return e.wrapped }

// NewStateError creates an error for an operation called out of sequence.
// msg should name the call that was expected first.
func NewStateError(op, msg string) error {
	return &Error{code: ErrCodeState, op: op, message: msg}
}

// NewArgumentError creates an error for an invalid parameter
// (revision id, column index, signature reference, nil template ...).
func NewArgumentError(op, msg string) error {
	return &Error{code: ErrCodeArgument, op: op, message: msg}
}

// NewNotFoundError creates an error for a missing file or template.
func NewNotFoundError(op, msg string) error {
	return &Error{code: ErrCodeNotFound, op: op, message: msg}
}

// WrapNotFoundError wraps an underlying error (usually fs.ErrNotExist) as not found.
func WrapNotFoundError(err error, op, msg string) error {
	return &Error{code: ErrCodeNotFound, op: op, message: msg, wrapped: err}
}

// NewIOError creates an I/O failure error.
func NewIOError(op, msg string) error {
	return &Error{code: ErrCodeIO, op: op, message: msg}
}

// WrapIOError wraps an error returned by a read, write, seek or close.
func WrapIOError(err error, op, msg string) error {
	return &Error{code: ErrCodeIO, op: op, message: msg, wrapped: err}
}

// NewCryptoError creates a crypto failure error.
func NewCryptoError(op, msg string) error {
	return &Error{code: ErrCodeCrypto, op: op, message: msg}
}

// WrapCryptoError wraps an error from key loading, signing or hashing.
func WrapCryptoError(err error, op, msg string) error {
	return &Error{code: ErrCodeCrypto, op: op, message: msg, wrapped: err}
}

// NewSyntaxError creates a template syntax error. op is the template location.
func NewSyntaxError(op, msg string) error {
	return &Error{code: ErrCodeSyntax, op: op, message: msg}
}

// CodeOf returns the code of the first *Error in err's chain, or "" if there is none.
func CodeOf(err error) ErrorCode {
	var e *Error
	if errors.As(err, &e) {
		return e.code
	}
	return ""
}
