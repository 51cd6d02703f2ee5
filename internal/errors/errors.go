/*
Copyright 2026 Prameya LLC.

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

    http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/

// Package errors provides the structured error taxonomy used across the
// ingestion core. Every internal error boundary returns an *AppError
// instead of a bare error so that callers can branch on Type without
// string matching.
package errors

import (
	"fmt"
	"net/http"
)

// ErrorType tags the class of failure.
type ErrorType string

const (
	ErrorTypeTransient  ErrorType = "transient"
	ErrorTypeRateLimit  ErrorType = "rate_limited"
	ErrorTypeValidation ErrorType = "validation"
	ErrorTypePermanent  ErrorType = "permanent"
	ErrorTypeCancelled  ErrorType = "cancelled"
	ErrorTypeAuth       ErrorType = "auth"
	ErrorTypeNotFound   ErrorType = "not_found"
	ErrorTypeConflict   ErrorType = "conflict"
	ErrorTypeTimeout    ErrorType = "timeout"
	ErrorTypeDatabase   ErrorType = "database"
	ErrorTypeNetwork    ErrorType = "network"
	ErrorTypeInternal   ErrorType = "internal"
)

var statusCodes = map[ErrorType]int{
	ErrorTypeTransient:  http.StatusBadGateway,
	ErrorTypeRateLimit:  http.StatusTooManyRequests,
	ErrorTypeValidation: http.StatusBadRequest,
	ErrorTypePermanent:  http.StatusUnprocessableEntity,
	ErrorTypeCancelled:  http.StatusRequestTimeout,
	ErrorTypeAuth:       http.StatusUnauthorized,
	ErrorTypeNotFound:   http.StatusNotFound,
	ErrorTypeConflict:   http.StatusConflict,
	ErrorTypeTimeout:    http.StatusRequestTimeout,
	ErrorTypeDatabase:   http.StatusInternalServerError,
	ErrorTypeNetwork:    http.StatusInternalServerError,
	ErrorTypeInternal:   http.StatusInternalServerError,
}

// AppError is the concrete error type carried across every core boundary.
type AppError struct {
	Type       ErrorType
	Message    string
	Details    string
	StatusCode int
	Cause      error

	// Family, Window, and ID identify the offending work item where
	// applicable.
	Family string
	Window string
	ID     string
}

// New creates an AppError with no cause.
func New(t ErrorType, message string) *AppError {
	return &AppError{Type: t, Message: message, StatusCode: statusCodeFor(t)}
}

// Newf creates an AppError with a formatted message.
func Newf(t ErrorType, format string, args ...any) *AppError {
	return New(t, fmt.Sprintf(format, args...))
}

// Wrap creates an AppError that carries an underlying cause.
func Wrap(cause error, t ErrorType, message string) *AppError {
	err := New(t, message)
	err.Cause = cause
	return err
}

// Wrapf creates an AppError with a formatted message and an underlying cause.
func Wrapf(cause error, t ErrorType, format string, args ...any) *AppError {
	return Wrap(cause, t, fmt.Sprintf(format, args...))
}

// WithDetails attaches free-form details and returns the same error (modifies in place).
func (e *AppError) WithDetails(details string) *AppError {
	e.Details = details
	return e
}

// WithDetailsf attaches formatted details and returns the same error.
func (e *AppError) WithDetailsf(format string, args ...any) *AppError {
	return e.WithDetails(fmt.Sprintf(format, args...))
}

// WithContext attaches the offending family/window/id for diagnostics.
func (e *AppError) WithContext(family, window, id string) *AppError {
	e.Family = family
	e.Window = window
	e.ID = id
	return e
}

func (e *AppError) Error() string {
	if e.Details != "" {
		return fmt.Sprintf("%s: %s (%s)", e.Type, e.Message, e.Details)
	}
	return fmt.Sprintf("%s: %s", e.Type, e.Message)
}

// Unwrap exposes the wrapped cause to errors.Is / errors.As.
func (e *AppError) Unwrap() error {
	return e.Cause
}

func statusCodeFor(t ErrorType) int {
	if code, ok := statusCodes[t]; ok {
		return code
	}
	return http.StatusInternalServerError
}

// IsType reports whether err is an *AppError of the given type.
func IsType(err error, t ErrorType) bool {
	appErr, ok := err.(*AppError)
	if !ok {
		return false
	}
	return appErr.Type == t
}

// Predefined constructors mirroring the common cases used throughout the core.

func NewValidationError(message string) *AppError {
	return New(ErrorTypeValidation, message)
}

func NewTransientError(op string, cause error) *AppError {
	return Wrapf(cause, ErrorTypeTransient, "transient failure: %s", op)
}

func NewRateLimitedError(op string, cause error) *AppError {
	return Wrapf(cause, ErrorTypeRateLimit, "rate limited: %s", op)
}

func NewPermanentError(op string, cause error) *AppError {
	return Wrapf(cause, ErrorTypePermanent, "permanent failure: %s", op)
}

func NewCancelledError(op string) *AppError {
	return New(ErrorTypeCancelled, fmt.Sprintf("cancelled: %s", op))
}

func NewTimeoutError(op string) *AppError {
	return New(ErrorTypeTimeout, fmt.Sprintf("operation timed out: %s", op))
}

func NewDatabaseError(op string, cause error) *AppError {
	return Wrapf(cause, ErrorTypeDatabase, "store operation failed: %s", op)
}
