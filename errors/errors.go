package errors

import (
	"fmt"
)

// AppError is the unified error type returned by streamkit.
type AppError struct {
	// Code is a machine-readable error code.
	Code ErrorCode `json:"code"`
	// Message is a human-readable error message.
	Message string `json:"message"`
	// Details contains additional context for the error.
	Details map[string]any `json:"details,omitempty"`
	// Cause is the underlying error that caused this error.
	Cause error `json:"-"`
}

// Error returns the string representation of the error.
func (e *AppError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s (cause: %v)", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Unwrap returns the underlying cause of the error.
func (e *AppError) Unwrap() error { return e.Cause }

// Is reports whether target is an AppError with the same code, so that
// errors.Is(err, errors.Terminated()) works across instances.
func (e *AppError) Is(target error) bool {
	t, ok := target.(*AppError)
	if !ok || t == nil {
		return false
	}
	return e.Code == t.Code
}

// WithCause sets the underlying cause of the error and returns the receiver.
func (e *AppError) WithCause(cause error) *AppError {
	e.Cause = cause
	return e
}

// WithDetails merges the provided details into the error and returns the receiver.
func (e *AppError) WithDetails(details map[string]any) *AppError {
	if e.Details == nil {
		e.Details = make(map[string]any)
	}
	for k, v := range details {
		e.Details[k] = v
	}
	return e
}

// WithDetail sets a single detail key-value pair and returns the receiver.
func (e *AppError) WithDetail(key string, value any) *AppError {
	if e.Details == nil {
		e.Details = make(map[string]any)
	}
	e.Details[key] = value
	return e
}

// New creates a new AppError.
func New(code ErrorCode, message string) *AppError {
	return &AppError{Code: code, Message: message}
}

// --- Common Error Constructors ---

// InvalidArgument creates a new AppError for a rejected argument.
func InvalidArgument(field, reason string) *AppError {
	details := make(map[string]any)
	if field != "" {
		details["field"] = field
	}
	return &AppError{
		Code: ErrCodeInvalidArgument, Message: fmt.Sprintf("Invalid argument: %s", reason),
		Details: details,
	}
}

// Validation creates a new AppError for struct validation errors.
func Validation(message string) *AppError {
	return &AppError{Code: ErrCodeInvalidArgument, Message: message}
}

// InvalidState creates a new AppError for an operation attempted in the wrong state.
func InvalidState(operation, reason string) *AppError {
	return &AppError{
		Code: ErrCodeInvalidState, Message: fmt.Sprintf("Cannot %s: %s", operation, reason),
		Details: map[string]any{"operation": operation},
	}
}

// AlgorithmFailure creates a new AppError for a user algorithm that panicked.
func AlgorithmFailure(algorithm string, cause error) *AppError {
	return &AppError{
		Code: ErrCodeAlgorithmFailure, Message: fmt.Sprintf("The %s algorithm failed.", algorithm),
		Details: map[string]any{"algorithm": algorithm}, Cause: cause,
	}
}

// Terminated creates a new AppError for a stream terminated by its controller.
func Terminated() *AppError {
	return &AppError{Code: ErrCodeTerminated, Message: "The stream has been terminated."}
}

// Aborted creates a new AppError used when a writable is aborted without a reason.
func Aborted() *AppError {
	return &AppError{Code: ErrCodeAborted, Message: "The stream was aborted."}
}

// Canceled creates a new AppError used when a readable is canceled without a reason.
func Canceled() *AppError {
	return &AppError{Code: ErrCodeCanceled, Message: "The stream was canceled."}
}

// Internal creates a new AppError for an internal error.
func Internal(cause error) *AppError {
	return &AppError{
		Code: ErrCodeInternal, Message: "An unexpected error occurred.", Cause: cause,
	}
}

// Wrap converts any error into an AppError. AppErrors anywhere in the chain
// are returned as-is; anything else becomes an internal error.
func Wrap(err error) *AppError {
	if err == nil {
		return nil
	}
	if appErr, ok := AsAppError(err); ok {
		return appErr
	}
	return Internal(err)
}
