package session

import (
	"errors"
	"fmt"
)

// Error is a failure raised by a session call.
//
// Error carries a Code for programmatic handling and wraps the underlying
// driver error, so errors.Is and errors.As see through it.
type Error struct {
	// Code identifies the error category.
	Code ErrorCode

	// Op is the operation name of the failing call.
	Op string

	// Message is a human-readable description.
	Message string

	// Err is the underlying cause, if any.
	Err error
}

// ErrorCode categorizes session errors.
type ErrorCode string

const (
	// CodeConnectionFailed: a connection could not be acquired or the
	// identity context could not be applied. Not retried.
	CodeConnectionFailed ErrorCode = "CONNECTION_FAILED"

	// CodeExecutionFailed: the engine rejected the statement, or failed
	// while rows were being fetched.
	CodeExecutionFailed ErrorCode = "EXECUTION_FAILED"

	// CodeMappingFailed: a row could not be converted to the target type.
	CodeMappingFailed ErrorCode = "MAPPING_FAILED"

	// CodeCompositionFailed: the statement rendered empty or is malformed.
	CodeCompositionFailed ErrorCode = "COMPOSITION_FAILED"

	// CodeSessionClosed: the session was used after Close.
	CodeSessionClosed ErrorCode = "SESSION_CLOSED"

	// CodeTxActive: Begin was called while a transaction is active.
	CodeTxActive ErrorCode = "TX_ACTIVE"

	// CodeNoTx: Commit or Rollback was called without a transaction.
	CodeNoTx ErrorCode = "NO_TX"
)

// Error implements the error interface.
func (e *Error) Error() string {
	msg := fmt.Sprintf("%s: %s", e.Code, e.Message)
	if e.Op != "" {
		msg = fmt.Sprintf("%s: %s (op=%s)", e.Code, e.Message, e.Op)
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

// Unwrap returns the underlying cause.
func (e *Error) Unwrap() error {
	return e.Err
}

func newError(code ErrorCode, op, message string, err error) *Error {
	return &Error{Code: code, Op: op, Message: message, Err: err}
}

// CodeOf returns the code of the first *Error in err's chain, or "".
func CodeOf(err error) ErrorCode {
	var se *Error
	if errors.As(err, &se) {
		return se.Code
	}
	return ""
}

// IsConnectionError reports whether err is a connection failure.
func IsConnectionError(err error) bool {
	return CodeOf(err) == CodeConnectionFailed
}

// IsExecutionError reports whether err is an execution failure.
func IsExecutionError(err error) bool {
	return CodeOf(err) == CodeExecutionFailed
}

// IsMappingError reports whether err is a row mapping failure.
func IsMappingError(err error) bool {
	return CodeOf(err) == CodeMappingFailed
}

// IsCompositionError reports whether err is a composition failure.
func IsCompositionError(err error) bool {
	return CodeOf(err) == CodeCompositionFailed
}
