package errors

import (
	"errors"
	"fmt"
	"net/http"
)

// Error is the typed error carried from services to the HTTP layer.
// Code is a stable machine-readable identifier, Status the HTTP status
// the handler should respond with.
type Error struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Status  int    `json:"status"`
	Err     error  `json:"-"`
}

func (e *Error) Error() string {
	if e == nil {
		return "<nil>"
	}
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *Error) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

// New builds a fresh Error value.
func New(code string, status int, message string) *Error {
	return &Error{Code: code, Status: status, Message: message}
}

// Wrap attaches a typed code and message to an underlying error.
func Wrap(err error, code string, status int, message string) *Error {
	return &Error{Code: code, Status: status, Message: message, Err: err}
}

// Sentinel errors shared across the API. Services return copies via
// Clone so the sentinels themselves are never mutated.
var (
	ErrInvalidCredentials = New("INVALID_CREDENTIALS", http.StatusUnauthorized, "invalid email or password")
	ErrInactiveAccount    = New("ACCOUNT_INACTIVE", http.StatusForbidden, "account is inactive")
	ErrNotFound           = New("NOT_FOUND", http.StatusNotFound, "resource not found")
	ErrForbidden          = New("FORBIDDEN", http.StatusForbidden, "forbidden")
	ErrUnauthorized       = New("UNAUTHORIZED", http.StatusUnauthorized, "unauthorized")
	ErrConflict           = New("CONFLICT", http.StatusConflict, "conflict")
	ErrPreconditionFailed = New("PRECONDITION_FAILED", http.StatusPreconditionFailed, "precondition failed")
	ErrValidation         = New("VALIDATION_ERROR", http.StatusBadRequest, "validation failed")
	ErrInternal           = New("INTERNAL_ERROR", http.StatusInternalServerError, "internal server error")
	ErrConfiguration      = New("CONFIGURATION_ERROR", http.StatusUnprocessableEntity, "invalid academic configuration")
	ErrStateTransition    = New("STATE_TRANSITION", http.StatusConflict, "illegal grade state transition")
	ErrCacheMiss          = New("CACHE_MISS", http.StatusNotFound, "cache entry not found")
)

// Enrollment eligibility rejections. Codes match the blocking reasons
// reported by the eligibility check so clients see a single vocabulary.
var (
	ErrAlreadyEnrolled     = New("ALREADY_ENROLLED", http.StatusConflict, "student already enrolled in this offering")
	ErrOfferingFull        = New("OFFERING_FULL", http.StatusConflict, "course offering has no remaining seats")
	ErrOfferingInactive    = New("OFFERING_INACTIVE", http.StatusPreconditionFailed, "course offering is not open for enrollment")
	ErrRepeatLimitExceeded = New("REPEAT_LIMIT_EXCEEDED", http.StatusConflict, "maximum attempts for this course reached")
	ErrPrerequisiteNotMet  = New("PREREQUISITE_NOT_MET", http.StatusPreconditionFailed, "course prerequisites not satisfied")
)

// FromError coerces any error to an *Error. Unknown errors map to
// ErrInternal so handlers never leak raw error text.
func FromError(err error) *Error {
	if err == nil {
		return nil
	}
	var e *Error
	if errors.As(err, &e) {
		return e
	}
	return Wrap(err, ErrInternal.Code, ErrInternal.Status, ErrInternal.Message)
}

// Clone copies a sentinel, optionally overriding its message.
func Clone(err *Error, message string) *Error {
	if err == nil {
		return nil
	}
	clone := *err
	if message != "" {
		clone.Message = message
	}
	return &clone
}
