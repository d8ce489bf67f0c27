package errors

import (
	"encoding/json"
	"fmt"
	"net/http"
)

const (
	CodeNotFound     = "NOT_FOUND"
	CodeValidation   = "VALIDATION_ERROR"
	CodeInvalidInput = "INVALID_INPUT"
	CodeForbidden    = "FORBIDDEN"
	CodeConflict     = "CONFLICT"
	CodeInternal     = "INTERNAL_ERROR"
	CodeTimeout      = "TIMEOUT"
	CodeUnavailable  = "SERVICE_UNAVAILABLE"

	// Intent lifecycle codes. Conflicts are split so clients can tell a
	// retryable lock apart from a permanently booked range.
	CodeConflictLocked = "CONFLICT_LOCKED"
	CodeConflictBooked = "CONFLICT_BOOKED"
	CodeStaleState     = "STALE_STATE"
	CodeExpired        = "EXPIRED"
	CodeAlreadyDone    = "ALREADY_TERMINAL"
	CodeMaterialize    = "MATERIALIZATION_FAILURE"
)

type AppError struct {
	Code       string         `json:"code"`
	Message    string         `json:"message"`
	HTTPStatus int            `json:"-"`
	Details    map[string]any `json:"details,omitempty"`
	Err        error          `json:"-"`
}

func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s (caused by: %v)", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *AppError) Unwrap() error {
	return e.Err
}

func (e *AppError) StatusCode() int {
	return e.HTTPStatus
}

func (e *AppError) WithDetails(details map[string]any) *AppError {
	e.Details = details
	return e
}

func (e *AppError) ToJSON() []byte {
	data, _ := json.Marshal(ErrorResponse{
		Code:    e.Code,
		Message: e.Message,
		Details: e.Details,
	})
	return data
}

type ErrorResponse struct {
	Code    string         `json:"code"`
	Message string         `json:"message"`
	Details map[string]any `json:"details,omitempty"`
}

func New(code, message string, httpStatus int) *AppError {
	return &AppError{
		Code:       code,
		Message:    message,
		HTTPStatus: httpStatus,
	}
}

func Wrap(err error, code, message string, httpStatus int) *AppError {
	return &AppError{
		Code:       code,
		Message:    message,
		HTTPStatus: httpStatus,
		Err:        err,
	}
}

func NotFound(resource string) *AppError {
	return &AppError{
		Code:       CodeNotFound,
		Message:    fmt.Sprintf("%s not found", resource),
		HTTPStatus: http.StatusNotFound,
	}
}

func NotFoundWithID(resource, id string) *AppError {
	return &AppError{
		Code:       CodeNotFound,
		Message:    fmt.Sprintf("%s not found", resource),
		HTTPStatus: http.StatusNotFound,
		Details: map[string]any{
			"resource": resource,
			"id":       id,
		},
	}
}

func Validation(message string, details map[string]any) *AppError {
	return &AppError{
		Code:       CodeValidation,
		Message:    message,
		HTTPStatus: http.StatusUnprocessableEntity,
		Details:    details,
	}
}

func InvalidInput(message string) *AppError {
	return &AppError{
		Code:       CodeInvalidInput,
		Message:    message,
		HTTPStatus: http.StatusBadRequest,
	}
}

func Forbidden(message string) *AppError {
	return &AppError{
		Code:       CodeForbidden,
		Message:    message,
		HTTPStatus: http.StatusForbidden,
	}
}

func Conflict(message string) *AppError {
	return &AppError{
		Code:       CodeConflict,
		Message:    message,
		HTTPStatus: http.StatusConflict,
	}
}

// ConflictLocked reports a range held by another customer's active intent.
// retryAfterSeconds tells the client when the lock lease lapses.
func ConflictLocked(retryAfterSeconds int) *AppError {
	return &AppError{
		Code:       CodeConflictLocked,
		Message:    "These dates are currently being booked by another customer. Please try again shortly.",
		HTTPStatus: http.StatusConflict,
		Details: map[string]any{
			"retry_after_seconds": retryAfterSeconds,
		},
	}
}

// ConflictBooked reports a range already covered by a confirmed booking.
// Unlike a lock conflict this is not retryable.
func ConflictBooked() *AppError {
	return &AppError{
		Code:       CodeConflictBooked,
		Message:    "These dates are already booked.",
		HTTPStatus: http.StatusConflict,
	}
}

// StaleState reports a lost compare-and-swap race. The caller should re-read
// the intent before deciding whether to retry.
func StaleState(message string) *AppError {
	return &AppError{
		Code:       CodeStaleState,
		Message:    message,
		HTTPStatus: http.StatusConflict,
	}
}

// Expired reports a confirmation attempt on a lapsed lease. The client must
// restart the booking flow.
func Expired(message string) *AppError {
	return &AppError{
		Code:       CodeExpired,
		Message:    message,
		HTTPStatus: http.StatusGone,
	}
}

// AlreadyTerminal reports a transition on an intent already in an absorbing
// state.
func AlreadyTerminal(message string) *AppError {
	return &AppError{
		Code:       CodeAlreadyDone,
		Message:    message,
		HTTPStatus: http.StatusConflict,
	}
}

// Materialization reports a confirmed intent without its booking record.
// This indicates the transactional invariant was violated or storage is
// down; it must be alerted on, never swallowed.
func Materialization(message string, err error) *AppError {
	return &AppError{
		Code:       CodeMaterialize,
		Message:    message,
		HTTPStatus: http.StatusInternalServerError,
		Err:        err,
	}
}

func Internal(message string, err error) *AppError {
	return &AppError{
		Code:       CodeInternal,
		Message:    message,
		HTTPStatus: http.StatusInternalServerError,
		Err:        err,
	}
}

func Timeout(message string) *AppError {
	return &AppError{
		Code:       CodeTimeout,
		Message:    message,
		HTTPStatus: http.StatusGatewayTimeout,
	}
}

func Unavailable(service string) *AppError {
	return &AppError{
		Code:       CodeUnavailable,
		Message:    fmt.Sprintf("%s is temporarily unavailable", service),
		HTTPStatus: http.StatusServiceUnavailable,
	}
}

func IsAppError(err error) bool {
	_, ok := err.(*AppError)
	return ok
}

func AsAppError(err error) *AppError {
	if appErr, ok := err.(*AppError); ok {
		return appErr
	}
	return Internal("An unexpected error occurred", err)
}
