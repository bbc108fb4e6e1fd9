// Package errors provides the structured error type used across streamkit.
// Every failure raised by the library itself is an *AppError carrying a
// machine-readable code; errors returned by user algorithms are passed
// through unchanged.
package errors
