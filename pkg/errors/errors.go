package errors

import (
	"errors"
	"fmt"
)

// ErrorCode represents a unique error code
type ErrorCode int

// AppError represents an application error
type AppError struct {
	Code    ErrorCode `json:"code"`
	Message string    `json:"message"`
	Err     error     `json:"-"`
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

// Common error codes
const (
	ErrNotFound ErrorCode = iota + 1000
	ErrBadRequest
	ErrInternal
	ErrValidation
	ErrStorageUnavailable
	ErrPermissionDenied
	ErrDuplicateSession
	ErrPhotoRequired
)

// Error constructors
func NewNotFound(resource string, err error) *AppError {
	return &AppError{
		Code:    ErrNotFound,
		Message: fmt.Sprintf("%s not found", resource),
		Err:     err,
	}
}

func NewBadRequest(message string, err error) *AppError {
	return &AppError{
		Code:    ErrBadRequest,
		Message: message,
		Err:     err,
	}
}

func NewInternal(err error) *AppError {
	return &AppError{
		Code:    ErrInternal,
		Message: "internal server error",
		Err:     err,
	}
}

// Validation rejects a malformed medicine or request at construction.
func Validation(message string, err error) *AppError {
	return &AppError{
		Code:    ErrValidation,
		Message: message,
		Err:     err,
	}
}

// StorageUnavailable marks a load/save failure. Callers degrade to the
// in-memory store rather than abort the session.
func StorageUnavailable(err error) *AppError {
	return &AppError{
		Code:    ErrStorageUnavailable,
		Message: "storage unavailable",
		Err:     err,
	}
}

// PermissionDenied surfaces a refused capability (camera, notifications).
func PermissionDenied(capability string, err error) *AppError {
	return &AppError{
		Code:    ErrPermissionDenied,
		Message: fmt.Sprintf("%s permission denied", capability),
		Err:     err,
	}
}

// DuplicateSession marks an attempt to open a second reminder session for a
// medicine that already has one open. It is ignored, never surfaced to the
// user.
func DuplicateSession(medicine string) *AppError {
	return &AppError{
		Code:    ErrDuplicateSession,
		Message: fmt.Sprintf("reminder session already open for %s", medicine),
	}
}

// PhotoRequired rejects a positive confirmation without proof of action.
func PhotoRequired() *AppError {
	return &AppError{
		Code:    ErrPhotoRequired,
		Message: "a photo is required to confirm the dose",
	}
}

// IsCode reports whether err is an AppError carrying the given code.
func IsCode(err error, code ErrorCode) bool {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Code == code
	}
	return false
}
