package errors

import (
	stderrors "errors"
	"fmt"
	"strings"
	"testing"
)

func TestAppError_New_Success(t *testing.T) {
	err := New(ErrCodeInvalidState, "closed")
	if err.Code != ErrCodeInvalidState {
		t.Errorf("expected code %s, got %s", ErrCodeInvalidState, err.Code)
	}
	if err.Message != "closed" {
		t.Errorf("expected message 'closed', got %q", err.Message)
	}
}

func TestAppError_InvalidArgument_Success(t *testing.T) {
	err := InvalidArgument("highWaterMark", "must not be negative")
	if err.Code != ErrCodeInvalidArgument {
		t.Errorf("expected INVALID_ARGUMENT, got %s", err.Code)
	}
	if err.Details["field"] != "highWaterMark" {
		t.Errorf("expected field=highWaterMark, got %v", err.Details["field"])
	}
	if !strings.Contains(err.Message, "must not be negative") {
		t.Errorf("expected reason in message, got %q", err.Message)
	}
}

func TestAppError_InvalidArgument_EmptyField(t *testing.T) {
	err := InvalidArgument("", "bad")
	if _, ok := err.Details["field"]; ok {
		t.Error("expected no 'field' key in details when field is empty")
	}
}

func TestAppError_InvalidState_Success(t *testing.T) {
	err := InvalidState("enqueue", "the readable side is closed")
	if err.Code != ErrCodeInvalidState {
		t.Errorf("expected INVALID_STATE, got %s", err.Code)
	}
	if err.Details["operation"] != "enqueue" {
		t.Errorf("expected operation=enqueue, got %v", err.Details["operation"])
	}
}

func TestAppError_AlgorithmFailure_Success(t *testing.T) {
	cause := fmt.Errorf("boom")
	err := AlgorithmFailure("transform", cause)
	if err.Code != ErrCodeAlgorithmFailure {
		t.Errorf("expected ALGORITHM_FAILURE, got %s", err.Code)
	}
	if err.Cause != cause {
		t.Error("expected cause to be set")
	}
	if err.Details["algorithm"] != "transform" {
		t.Errorf("expected algorithm=transform, got %v", err.Details["algorithm"])
	}
}

func TestAppError_Is_ByCode(t *testing.T) {
	err := fmt.Errorf("write failed: %w", Terminated())
	if !stderrors.Is(err, Terminated()) {
		t.Error("expected errors.Is to match a fresh Terminated error")
	}
	if stderrors.Is(err, Aborted()) {
		t.Error("expected errors.Is not to match a different code")
	}
	var nilErr *AppError
	if Terminated().Is(nilErr) {
		t.Error("expected Is(nil AppError) to be false")
	}
}

func TestAppError_WithCause_Chain(t *testing.T) {
	cause := fmt.Errorf("root cause")
	err := InvalidState("write", "closed").WithCause(cause)
	if err.Cause != cause {
		t.Error("expected cause to be set via WithCause")
	}
	if !strings.Contains(err.Error(), "root cause") {
		t.Errorf("Error() should contain cause, got %q", err.Error())
	}
}

func TestAppError_WithDetails_Merge(t *testing.T) {
	err := InvalidState("close", "already closing").WithDetails(map[string]any{
		"extra": "info",
	})
	if err.Details["extra"] != "info" {
		t.Errorf("expected extra=info in details")
	}
	if err.Details["operation"] != "close" {
		t.Error("expected original details to be preserved")
	}

	// Test merging into existing details
	err.WithDetails(map[string]any{
		"another": "detail",
	})
	if err.Details["another"] != "detail" {
		t.Error("expected another=detail to be merged")
	}
	if err.Details["extra"] != "info" {
		t.Error("expected extra=info to be preserved after second merge")
	}
}

func TestAppError_WithDetails_Nil(t *testing.T) {
	err := Internal(nil).WithDetails(nil)
	if err.Details == nil {
		t.Fatal("expected Details map to be initialized even with nil input")
	}
}

func TestAppError_WithDetail_NilMap(t *testing.T) {
	err := &AppError{}
	err.WithDetail("key", "value")
	if err.Details["key"] != "value" {
		t.Errorf("expected key=value, got %v", err.Details["key"])
	}

	err.WithDetail("key", "other")
	if err.Details["key"] != "other" {
		t.Errorf("expected key=other after overwrite")
	}
}

func TestAppError_Error_Format(t *testing.T) {
	s := Terminated().Error()
	if !strings.Contains(s, "TERMINATED") {
		t.Errorf("expected error string to contain code, got %q", s)
	}
	if !strings.Contains(s, "terminated") {
		t.Errorf("expected error string to contain message, got %q", s)
	}
}

func TestAppError_Unwrap_Success(t *testing.T) {
	cause := fmt.Errorf("underlying")
	if Internal(cause).Unwrap() != cause {
		t.Error("Unwrap should return the cause")
	}
	if Aborted().Unwrap() != nil {
		t.Error("Unwrap should return nil when no cause")
	}
}

func TestAppError_Constructors_Table(t *testing.T) {
	tests := []struct {
		name     string
		err      *AppError
		code     ErrorCode
		terminal bool
	}{
		{"Terminated", Terminated(), ErrCodeTerminated, true},
		{"Aborted", Aborted(), ErrCodeAborted, true},
		{"Canceled", Canceled(), ErrCodeCanceled, true},
		{"Validation", Validation("bad input"), ErrCodeInvalidArgument, false},
		{"InvalidState", InvalidState("read", "errored"), ErrCodeInvalidState, false},
		{"Internal", Internal(nil), ErrCodeInternal, false},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if tc.err.Code != tc.code {
				t.Errorf("expected code %s, got %s", tc.code, tc.err.Code)
			}
			if IsTerminalCode(tc.err.Code) != tc.terminal {
				t.Errorf("expected terminal=%v for %s", tc.terminal, tc.err.Code)
			}
		})
	}
}

func TestAppError_IsAppError_Success(t *testing.T) {
	appErr := Terminated()
	if !IsAppError(appErr) {
		t.Error("expected IsAppError to return true for AppError")
	}

	wrapped := fmt.Errorf("wrapped: %w", appErr)
	if !IsAppError(wrapped) {
		t.Error("expected IsAppError to return true for wrapped AppError")
	}

	if IsAppError(fmt.Errorf("plain error")) {
		t.Error("expected IsAppError to return false for plain error")
	}
}

func TestAppError_AsAppError_Success(t *testing.T) {
	wrapped := fmt.Errorf("wrap: %w", Internal(nil))

	got, ok := AsAppError(wrapped)
	if !ok {
		t.Fatal("expected AsAppError to succeed for wrapped AppError")
	}
	if got.Code != ErrCodeInternal {
		t.Errorf("expected INTERNAL_ERROR, got %s", got.Code)
	}

	if _, ok = AsAppError(fmt.Errorf("not an app error")); ok {
		t.Error("expected AsAppError to return false for non-AppError")
	}
}

func TestIsCode_NestedCause(t *testing.T) {
	err := AlgorithmFailure("flush", Terminated())
	if !IsCode(err, ErrCodeAlgorithmFailure) {
		t.Error("expected outer code to match")
	}
	if !IsCode(err, ErrCodeTerminated) {
		t.Error("expected nested cause code to match")
	}
	if IsCode(err, ErrCodeAborted) {
		t.Error("expected unrelated code not to match")
	}
	if IsCode(nil, ErrCodeInternal) {
		t.Error("expected nil error not to match")
	}
}

func TestCodeOf_Success(t *testing.T) {
	if got := CodeOf(fmt.Errorf("x: %w", Canceled())); got != ErrCodeCanceled {
		t.Errorf("expected CANCELED, got %s", got)
	}
	if got := CodeOf(fmt.Errorf("plain")); got != "" {
		t.Errorf("expected empty code, got %s", got)
	}
}

func TestWrap_NilReturnsNil(t *testing.T) {
	if Wrap(nil) != nil {
		t.Error("Wrap(nil) should return nil")
	}
}

func TestWrap_AppErrorPassthrough(t *testing.T) {
	orig := Terminated()
	if Wrap(orig) != orig {
		t.Error("Wrap should return the original AppError unchanged")
	}
}

func TestWrap_PlainError(t *testing.T) {
	plain := fmt.Errorf("something broke")
	got := Wrap(plain)
	if got.Code != ErrCodeInternal {
		t.Errorf("expected INTERNAL_ERROR, got %s", got.Code)
	}
	if got.Cause != plain {
		t.Error("expected cause to be the original error")
	}
}
