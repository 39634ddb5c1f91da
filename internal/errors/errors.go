package errors

import (
	stderrors "errors"
	"fmt"
)

// ErrorCode represents a bitext error code.
type ErrorCode string

const (
	ErrInvalidRequest ErrorCode = "INVALID_REQUEST" // 400
	ErrNotFound       ErrorCode = "NOT_FOUND"       // 404
	ErrFileNotFound   ErrorCode = "FILE_NOT_FOUND"  // 404
	ErrConflict       ErrorCode = "CONFLICT"        // 409
	ErrInvalidState   ErrorCode = "INVALID_STATE"   // 409
	ErrSessionClosed  ErrorCode = "SESSION_CLOSED"  // 410
	ErrPattern        ErrorCode = "PATTERN_ERROR"   // 422
	ErrImportIO       ErrorCode = "IMPORT_IO"       // 422
	ErrCancelled      ErrorCode = "CANCELLED"       // 499
	ErrPersistence    ErrorCode = "PERSISTENCE"     // 500
	ErrInternal       ErrorCode = "INTERNAL"        // 500
)

// Error represents a structured error with code, status, and details.
type Error struct {
	Code    ErrorCode
	Status  int
	Message string
	Details map[string]any

	// cause is the underlying error, if any. Not exposed to callers.
	cause error
}

// Error implements the error interface.
func (e *Error) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Unwrap returns the underlying cause.
func (e *Error) Unwrap() error {
	return e.cause
}

// NewInvalidRequest creates a 400 error for invalid request parameters.
func NewInvalidRequest(msg string) *Error {
	return &Error{
		Code:    ErrInvalidRequest,
		Status:  400,
		Message: msg,
	}
}

// NewNotFound creates a 404 error for a missing entity.
func NewNotFound(kind, identifier string) *Error {
	return &Error{
		Code:    ErrNotFound,
		Status:  404,
		Message: fmt.Sprintf("%s not found: %s", kind, identifier),
		Details: map[string]any{"kind": kind, "identifier": identifier},
	}
}

// NewFileNotFound creates a 404 error for a missing file on disk.
func NewFileNotFound(path string) *Error {
	return &Error{
		Code:    ErrFileNotFound,
		Status:  404,
		Message: fmt.Sprintf("file not found: %s", path),
		Details: map[string]any{"path": path},
	}
}

// NewConflict creates a 409 error for general conflicts.
func NewConflict(msg string) *Error {
	return &Error{
		Code:    ErrConflict,
		Status:  409,
		Message: msg,
	}
}

// NewInvalidState creates a 409 error for an operation that is not allowed
// in the session's current mode (e.g. editing text while browsing).
func NewInvalidState(op, msg string) *Error {
	return &Error{
		Code:    ErrInvalidState,
		Status:  409,
		Message: fmt.Sprintf("%s: %s", op, msg),
		Details: map[string]any{"operation": op},
	}
}

// NewSessionClosed creates a 410 error for calls on a closed session.
func NewSessionClosed(filePairID string) *Error {
	return &Error{
		Code:    ErrSessionClosed,
		Status:  410,
		Message: fmt.Sprintf("session closed for file pair %s", filePairID),
		Details: map[string]any{"file_pair_id": filePairID},
	}
}

// NewPattern creates a 422 error for a segmentation rule whose regular
// expression does not compile.
func NewPattern(ruleIndex int, ruleID, pattern string, err error) *Error {
	return &Error{
		Code:    ErrPattern,
		Status:  422,
		Message: fmt.Sprintf("rule %d has an invalid pattern %q: %v", ruleIndex, pattern, err),
		Details: map[string]any{"rule_index": ruleIndex, "rule_id": ruleID, "pattern": pattern},
		cause:   err,
	}
}

// NewImportIO creates a 422 error for a source or target file that could not
// be read during import.
func NewImportIO(path string, err error) *Error {
	return &Error{
		Code:    ErrImportIO,
		Status:  422,
		Message: fmt.Sprintf("cannot read %s: %v", path, err),
		Details: map[string]any{"path": path},
		cause:   err,
	}
}

// NewCancelled creates a 499 error when an operation is cancelled.
func NewCancelled(op string) *Error {
	return &Error{
		Code:    ErrCancelled,
		Status:  499,
		Message: fmt.Sprintf("%s cancelled", op),
		Details: map[string]any{"operation": op},
	}
}

// NewPersistence creates a 500 error for a failed store call. The session
// that hit it is left dirty and is not rolled back.
func NewPersistence(op string, err error) *Error {
	msg := op + " failed"
	if err != nil {
		msg = fmt.Sprintf("%s failed: %v", op, err)
	}
	return &Error{
		Code:    ErrPersistence,
		Status:  500,
		Message: msg,
		Details: map[string]any{"operation": op},
		cause:   err,
	}
}

// NewInternal creates a 500 error for unexpected internal errors.
func NewInternal(err error) *Error {
	msg := "internal error"
	if err != nil {
		msg = err.Error()
	}
	return &Error{
		Code:    ErrInternal,
		Status:  500,
		Message: msg,
		cause:   err,
	}
}

// Is checks if err is, or wraps, an *Error with the given code.
func Is(err error, code ErrorCode) bool {
	var e *Error
	if stderrors.As(err, &e) {
		return e.Code == code
	}
	return false
}

// As extracts the *Error from err, if any.
func As(err error) (*Error, bool) {
	var e *Error
	if stderrors.As(err, &e) {
		return e, true
	}
	return nil, false
}
