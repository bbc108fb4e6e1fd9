package errors

// ErrorCode represents a machine-readable error code.
type ErrorCode string

// Caller errors
const (
	// ErrCodeInvalidArgument indicates a malformed argument such as a negative
	// high-water mark or a reserved transformer field.
	ErrCodeInvalidArgument ErrorCode = "INVALID_ARGUMENT"
	// ErrCodeInvalidState indicates an operation the stream can no longer accept.
	ErrCodeInvalidState ErrorCode = "INVALID_STATE"
)

// Lifecycle errors
const (
	// ErrCodeTerminated indicates the transform was terminated by its controller.
	ErrCodeTerminated ErrorCode = "TERMINATED"
	// ErrCodeAborted is the default reason of an abort without one.
	ErrCodeAborted ErrorCode = "ABORTED"
	// ErrCodeCanceled is the default reason of a cancel without one.
	ErrCodeCanceled ErrorCode = "CANCELED"
)

// Internal errors
const (
	// ErrCodeAlgorithmFailure indicates a user algorithm panicked.
	ErrCodeAlgorithmFailure ErrorCode = "ALGORITHM_FAILURE"
	// ErrCodeInternal indicates an internal error.
	ErrCodeInternal ErrorCode = "INTERNAL_ERROR"
)

// terminalCodes are the codes that describe how a stream ended rather than
// a mistake made by the caller.
var terminalCodes = map[ErrorCode]bool{
	ErrCodeTerminated: true,
	ErrCodeAborted:    true,
	ErrCodeCanceled:   true,
}

// IsTerminalCode reports whether the code describes an ended stream.
func IsTerminalCode(code ErrorCode) bool {
	return terminalCodes[code]
}
