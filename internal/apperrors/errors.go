// Package apperrors defines the error taxonomy shared by the storage,
// protocol and HTTP layers. Expected outcomes (validation failures, missing
// records, forbidden interactions, rejected content) carry a Code so callers
// can map them onto error events or HTTP statuses without string matching.
package apperrors

import (
	"errors"
	"fmt"
)

type Code string

const (
	CodeValidation      Code = "VALIDATION"
	CodeNotFound        Code = "NOT_FOUND"
	CodeForbidden       Code = "FORBIDDEN"
	CodeContentRejected Code = "CONTENT_REJECTED"
	CodeInternal        Code = "INTERNAL"
)

type AppError struct {
	Code       Code     `json:"code"`
	Message    string   `json:"message"`
	Violations []string `json:"violations,omitempty"`
	Cause      error    `json:"-"`
}

func (e *AppError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Cause)
	}
	return e.Message
}

func (e *AppError) Unwrap() error { return e.Cause }

func New(code Code, message string) error {
	return &AppError{Code: code, Message: message}
}

func Wrap(code Code, message string, cause error) error {
	return &AppError{Code: code, Message: message, Cause: cause}
}

func Validation(msg string) error {
	return New(CodeValidation, msg)
}

func NotFound(msg string) error {
	return New(CodeNotFound, msg)
}

func Forbidden(msg string) error {
	return New(CodeForbidden, msg)
}

func Internal(msg string) error {
	return New(CodeInternal, msg)
}

// CodeOf extracts the Code from err, or CodeInternal for unclassified errors.
func CodeOf(err error) Code {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Code
	}
	return CodeInternal
}

// IsExpected reports whether err is a locally handled business outcome
// rather than an operational fault.
func IsExpected(err error) bool {
	switch CodeOf(err) {
	case CodeValidation, CodeNotFound, CodeForbidden, CodeContentRejected:
		return true
	}
	return false
}
