package errors

import (
	"fmt"
	"net/http"

	"github.com/cockroachdb/errors"
)

// Common error types that can be used across the application
var (
	ErrNotFound         = new(ErrCodeNotFound, "resource not found")
	ErrAlreadyExists    = new(ErrCodeAlreadyExists, "resource already exists")
	ErrVersionConflict  = new(ErrCodeVersionConflict, "version conflict")
	ErrValidation       = new(ErrCodeValidation, "validation error")
	ErrInvalidOperation = new(ErrCodeInvalidOperation, "invalid operation")
	ErrPermissionDenied = new(ErrCodePermissionDenied, "permission denied")
	ErrRateLimited      = new(ErrCodeRateLimited, "rate limited")
	ErrDatabase         = new(ErrCodeDatabase, "database error")
	ErrCache            = new(ErrCodeCache, "cache error")
	ErrBroker           = new(ErrCodeBroker, "message broker error")
	ErrSystem           = new(ErrCodeSystemError, "system error")

	// Soft delete lifecycle
	ErrAlreadyDeleted         = new(ErrCodeAlreadyDeleted, "record already deleted")
	ErrNotDeleted             = new(ErrCodeNotDeleted, "record not deleted")
	ErrForbiddenFieldMutation = new(ErrCodeForbiddenFieldMutation, "forbidden field mutation")

	// maps errors to http status codes
	statusCodeMap = map[error]int{
		ErrDatabase:               http.StatusInternalServerError,
		ErrCache:                  http.StatusInternalServerError,
		ErrBroker:                 http.StatusInternalServerError,
		ErrNotFound:               http.StatusNotFound,
		ErrAlreadyExists:          http.StatusConflict,
		ErrVersionConflict:        http.StatusConflict,
		ErrValidation:             http.StatusBadRequest,
		ErrInvalidOperation:       http.StatusBadRequest,
		ErrPermissionDenied:       http.StatusForbidden,
		ErrRateLimited:            http.StatusTooManyRequests,
		ErrSystem:                 http.StatusInternalServerError,
		ErrAlreadyDeleted:         http.StatusConflict,
		ErrNotDeleted:             http.StatusConflict,
		ErrForbiddenFieldMutation: http.StatusUnprocessableEntity,
	}
)

const (
	ErrCodeSystemError            = "system_error"
	ErrCodeNotFound               = "not_found"
	ErrCodeAlreadyExists          = "already_exists"
	ErrCodeVersionConflict        = "version_conflict"
	ErrCodeValidation             = "validation_error"
	ErrCodeInvalidOperation       = "invalid_operation"
	ErrCodePermissionDenied       = "permission_denied"
	ErrCodeRateLimited            = "rate_limited"
	ErrCodeDatabase               = "database_error"
	ErrCodeCache                  = "cache_error"
	ErrCodeBroker                 = "broker_error"
	ErrCodeAlreadyDeleted         = "already_deleted"
	ErrCodeNotDeleted             = "not_deleted"
	ErrCodeForbiddenFieldMutation = "forbidden_field_mutation"
)

// InternalError represents a domain error
type InternalError struct {
	Code    string // Machine-readable error code
	Message string // Human-readable error message
	Op      string // Logical operation name
	Err     error  // Underlying error
}

func (e *InternalError) Error() string {
	if e.Err == nil {
		return e.DisplayError()
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Err.Error())
}

func (e *InternalError) DisplayError() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *InternalError) Unwrap() error {
	return e.Err
}

// Is implements error matching for wrapped errors
func (e *InternalError) Is(target error) bool {
	if target == nil {
		return false
	}

	t, ok := target.(*InternalError)
	if !ok {
		return errors.Is(e.Err, target)
	}

	return e.Code == t.Code
}

func new(code string, message string) *InternalError {
	return &InternalError{
		Code:    code,
		Message: message,
	}
}

func As(err error, target any) bool {
	return errors.As(err, target)
}

func Is(err, reference error) bool {
	return errors.Is(err, reference)
}

// IsNotFound checks if an error is a not found error
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}

// IsAlreadyExists checks if an error is an already exists error
func IsAlreadyExists(err error) bool {
	return errors.Is(err, ErrAlreadyExists)
}

// IsVersionConflict checks if an error is a version conflict error
func IsVersionConflict(err error) bool {
	return errors.Is(err, ErrVersionConflict)
}

// IsValidation checks if an error is a validation error
func IsValidation(err error) bool {
	return errors.Is(err, ErrValidation)
}

// IsInvalidOperation checks if an error is an invalid operation error
func IsInvalidOperation(err error) bool {
	return errors.Is(err, ErrInvalidOperation)
}

// IsPermissionDenied checks if an error is a permission denied error
func IsPermissionDenied(err error) bool {
	return errors.Is(err, ErrPermissionDenied)
}

// IsDatabase checks if an error came from the document store
func IsDatabase(err error) bool {
	return errors.Is(err, ErrDatabase)
}

// IsAlreadyDeleted checks if a soft delete hit a record that is already deleted
func IsAlreadyDeleted(err error) bool {
	return errors.Is(err, ErrAlreadyDeleted)
}

// IsNotDeleted checks if a restore hit a live record
func IsNotDeleted(err error) bool {
	return errors.Is(err, ErrNotDeleted)
}

// IsForbiddenFieldMutation checks if a write tried to change protected state
func IsForbiddenFieldMutation(err error) bool {
	return errors.Is(err, ErrForbiddenFieldMutation)
}

// Code returns the machine-readable code of the first sentinel the error is
// marked with, or ErrCodeSystemError.
func Code(err error) string {
	for _, sentinel := range sentinels {
		if errors.Is(err, sentinel) {
			return sentinel.Code
		}
	}
	return ErrCodeSystemError
}

// sentinels is ordered from most to least specific so Code is deterministic
var sentinels = []*InternalError{
	ErrAlreadyDeleted,
	ErrNotDeleted,
	ErrForbiddenFieldMutation,
	ErrVersionConflict,
	ErrNotFound,
	ErrAlreadyExists,
	ErrValidation,
	ErrInvalidOperation,
	ErrPermissionDenied,
	ErrRateLimited,
	ErrDatabase,
	ErrCache,
	ErrBroker,
	ErrSystem,
}

func HTTPStatusFromErr(err error) int {
	for e, status := range statusCodeMap {
		if errors.Is(err, e) {
			return status
		}
	}
	return http.StatusInternalServerError
}
