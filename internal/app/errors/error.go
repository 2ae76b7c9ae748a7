package errors

import (
	stderrors "errors"
	"fmt"
	"net/http"
	"reflect"

	"github.com/sirupsen/logrus"
)

type Kind string

const (
	KindValidation       Kind = "VALIDATION_ERROR"
	KindUnauthorized     Kind = "UNAUTHORIZED"
	KindForbidden        Kind = "FORBIDDEN"
	KindNotFound         Kind = "NOT_FOUND"
	KindConflict         Kind = "CONFLICT"
	KindExhausted        Kind = "EXHAUSTED"
	KindScopeMismatch    Kind = "SCOPE_MISMATCH"
	KindTooManyRequests  Kind = "TOO_MANY_REQUESTS"
	KindStoreUnavailable Kind = "STORE_UNAVAILABLE"
	KindInternal         Kind = "INTERNAL_ERROR"
)

type AppError struct {
	StatusCode int
	Kind       Kind
	Message    string
	Err        error
	Details    map[string]interface{}
}

func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *AppError) Unwrap() error {
	return e.Err
}

func NewAppError(statusCode int, kind Kind, message string) *AppError {
	return &AppError{
		StatusCode: statusCode,
		Kind:       kind,
		Message:    message,
	}
}

// WithCause attaches the underlying error without changing what the client sees.
func (e *AppError) WithCause(err error) *AppError {
	e.Err = err
	return e
}

func (e *AppError) WithDetails(details map[string]interface{}) *AppError {
	e.Details = details
	return e
}

func NewBadRequestError(message string) *AppError {
	return NewAppError(http.StatusBadRequest, KindValidation, message)
}

// NewValidationError is an alias kept for readability at call sites that check admin input.
func NewValidationError(message string) *AppError {
	return NewBadRequestError(message)
}

func NewUnauthorizedError(message ...string) *AppError {
	if len(message) > 0 {
		return NewAppError(http.StatusUnauthorized, KindUnauthorized, message[0])
	}
	return NewAppError(http.StatusUnauthorized, KindUnauthorized, "Unauthorized")
}

func NewForbiddenError(message string) *AppError {
	return NewAppError(http.StatusForbidden, KindForbidden, message)
}

func NewNotFoundError(message string) *AppError {
	return NewAppError(http.StatusNotFound, KindNotFound, message)
}

func NewConflictError(message string) *AppError {
	return NewAppError(http.StatusConflict, KindConflict, message)
}

func NewExhaustedError(message string) *AppError {
	return NewAppError(http.StatusGone, KindExhausted, message)
}

func NewScopeMismatchError(message string) *AppError {
	return NewAppError(http.StatusUnprocessableEntity, KindScopeMismatch, message)
}

func NewTooManyRequestsError(message string, limit int, reset int64) *AppError {
	return NewAppError(http.StatusTooManyRequests, KindTooManyRequests, message).
		WithDetails(map[string]interface{}{
			"limit": limit,
			"reset": reset,
		})
}

// NewStoreUnavailableError reports a transient store failure. Callers may retry:
// the store guarantees nothing was partially applied.
func NewStoreUnavailableError(originalError error, message string) *AppError {
	logrus.Errorf("[store] %s: %v", message, originalError)
	return NewAppError(http.StatusServiceUnavailable, KindStoreUnavailable, message).WithCause(originalError)
}

func NewInternalServerError(originalError error, message string) *AppError {
	if originalError != nil {
		logrus.Errorf("[%s] %s", reflect.TypeOf(originalError).String(), originalError)
	}
	return NewAppError(http.StatusInternalServerError, KindInternal, message).WithCause(originalError)
}

// KindOf returns the kind of the first AppError in err's chain, or KindInternal.
func KindOf(err error) Kind {
	var appErr *AppError
	if stderrors.As(err, &appErr) {
		return appErr.Kind
	}
	return KindInternal
}

func IsKind(err error, kind Kind) bool {
	if err == nil {
		return false
	}
	return KindOf(err) == kind
}

func IsNotFound(err error) bool {
	return IsKind(err, KindNotFound)
}

func IsConflict(err error) bool {
	return IsKind(err, KindConflict)
}

func IsExhausted(err error) bool {
	return IsKind(err, KindExhausted)
}

func IsScopeMismatch(err error) bool {
	return IsKind(err, KindScopeMismatch)
}

func IsValidation(err error) bool {
	return IsKind(err, KindValidation)
}

func IsStoreUnavailable(err error) bool {
	return IsKind(err, KindStoreUnavailable)
}
