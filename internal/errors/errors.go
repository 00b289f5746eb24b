package errors

import (
	stderrors "errors"
	"fmt"
)

// ErrorCode represents a dirdump error code.
type ErrorCode string

const (
	ErrInvalidRequest ErrorCode = "INVALID_REQUEST" // 400
	ErrNotFound       ErrorCode = "NOT_FOUND"       // 404
	ErrFileNotFound   ErrorCode = "FILE_NOT_FOUND"  // 404
	ErrCancelled      ErrorCode = "CANCELLED"       // 499
	ErrFilesystem     ErrorCode = "FILESYSTEM"      // 500
	ErrInternal       ErrorCode = "INTERNAL"        // 500
)

// DumpError represents a structured error with code, status, and details.
type DumpError struct {
	Code    ErrorCode
	Status  int
	Message string
	Details map[string]any

	// Err is the underlying cause, if any. It is never shown to MCP clients.
	Err error
}

// Error implements the error interface.
func (e *DumpError) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Unwrap returns the underlying cause so errors.Is(err, fs.ErrPermission) keeps working.
func (e *DumpError) Unwrap() error {
	return e.Err
}

// NewInvalidRequest creates a 400 error for invalid request parameters.
func NewInvalidRequest(msg string) *DumpError {
	return &DumpError{
		Code:    ErrInvalidRequest,
		Status:  400,
		Message: msg,
	}
}

// NewNotFound creates a 404 error for when an artifact record cannot be found.
func NewNotFound(identifier string) *DumpError {
	return &DumpError{
		Code:    ErrNotFound,
		Status:  404,
		Message: fmt.Sprintf("artifact not found: %s", identifier),
		Details: map[string]any{"identifier": identifier},
	}
}

// NewFileNotFound creates a 404 error for a file missing on disk.
func NewFileNotFound(path string) *DumpError {
	return &DumpError{
		Code:    ErrFileNotFound,
		Status:  404,
		Message: fmt.Sprintf("file not found: %s", path),
		Details: map[string]any{"path": path},
	}
}

// NewCancelled creates a 499 error for an operation stopped by its context.
func NewCancelled(op string) *DumpError {
	return &DumpError{
		Code:    ErrCancelled,
		Status:  499,
		Message: fmt.Sprintf("%s cancelled", op),
		Details: map[string]any{"operation": op},
	}
}

// NewFilesystem creates a 500 error for a failed filesystem mutation.
// These are fatal for the capture being persisted and are never retried.
func NewFilesystem(op, path string, err error) *DumpError {
	return &DumpError{
		Code:    ErrFilesystem,
		Status:  500,
		Message: fmt.Sprintf("%s %s: %v", op, path, err),
		Details: map[string]any{"operation": op, "path": path},
		Err:     err,
	}
}

// NewInternal creates a 500 error for unexpected internal errors.
// The message stays generic; the cause is kept in Details for logging.
func NewInternal(err error) *DumpError {
	details := map[string]any{}
	if err != nil {
		details["internal_error"] = err.Error()
	}
	return &DumpError{
		Code:    ErrInternal,
		Status:  500,
		Message: "an internal error occurred",
		Details: details,
		Err:     err,
	}
}

// Is checks if an error is (or wraps) a DumpError with the given code.
func Is(err error, code ErrorCode) bool {
	var dErr *DumpError
	if stderrors.As(err, &dErr) {
		return dErr.Code == code
	}
	return false
}
