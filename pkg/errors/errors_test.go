package errors

import (
	"errors"
	"net/http"
	"testing"
)

func TestNew(t *testing.T) {
	err := New(CodeValidation, "validation failed", http.StatusUnprocessableEntity)

	if err.Code != CodeValidation {
		t.Errorf("expected code %s, got %s", CodeValidation, err.Code)
	}
	if err.Message != "validation failed" {
		t.Errorf("expected message 'validation failed', got %s", err.Message)
	}
	if err.HTTPStatus != http.StatusUnprocessableEntity {
		t.Errorf("expected status %d, got %d", http.StatusUnprocessableEntity, err.HTTPStatus)
	}
}

func TestWrap(t *testing.T) {
	originalErr := errors.New("storage write failed")
	wrapped := Wrap(originalErr, CodeInternal, "internal error", http.StatusInternalServerError)

	if wrapped.Err != originalErr {
		t.Errorf("expected wrapped error to contain original error")
	}
	if !errors.Is(wrapped, originalErr) {
		t.Errorf("expected errors.Is to see through the wrapper")
	}
}

func TestAppError_Error(t *testing.T) {
	tests := []struct {
		name     string
		appErr   *AppError
		expected string
	}{
		{
			name: "without underlying error",
			appErr: &AppError{
				Code:    CodeNotFound,
				Message: "intent not found",
			},
			expected: "NOT_FOUND: intent not found",
		},
		{
			name: "with underlying error",
			appErr: &AppError{
				Code:    CodeInternal,
				Message: "storage failure",
				Err:     errors.New("connection reset"),
			},
			expected: "INTERNAL_ERROR: storage failure (caused by: connection reset)",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.appErr.Error(); got != tt.expected {
				t.Errorf("Error() = %q, want %q", got, tt.expected)
			}
		})
	}
}

func TestConflictStatusCodes(t *testing.T) {
	tests := []struct {
		name       string
		appErr     *AppError
		wantCode   string
		wantStatus int
	}{
		{"locked by other", ConflictLocked(45), CodeConflictLocked, http.StatusConflict},
		{"existing booking", ConflictBooked(), CodeConflictBooked, http.StatusConflict},
		{"stale state", StaleState("state changed"), CodeStaleState, http.StatusConflict},
		{"already terminal", AlreadyTerminal("intent is cancelled"), CodeAlreadyDone, http.StatusConflict},
		{"expired", Expired("reservation timed out"), CodeExpired, http.StatusGone},
		{"materialization", Materialization("booking missing", nil), CodeMaterialize, http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.appErr.Code != tt.wantCode {
				t.Errorf("code = %s, want %s", tt.appErr.Code, tt.wantCode)
			}
			if tt.appErr.StatusCode() != tt.wantStatus {
				t.Errorf("status = %d, want %d", tt.appErr.StatusCode(), tt.wantStatus)
			}
		})
	}
}

func TestConflictLockedCarriesRetryAfter(t *testing.T) {
	err := ConflictLocked(120)

	retry, ok := err.Details["retry_after_seconds"]
	if !ok {
		t.Fatalf("expected retry_after_seconds detail")
	}
	if retry != 120 {
		t.Errorf("retry_after_seconds = %v, want 120", retry)
	}
}

func TestAsAppError(t *testing.T) {
	appErr := NotFound("Intent")
	if got := AsAppError(appErr); got != appErr {
		t.Errorf("expected AsAppError to return the same *AppError")
	}

	plain := errors.New("boom")
	converted := AsAppError(plain)
	if converted.Code != CodeInternal {
		t.Errorf("expected plain errors to convert to %s, got %s", CodeInternal, converted.Code)
	}
	if !errors.Is(converted, plain) {
		t.Errorf("expected converted error to wrap the original")
	}
}
