package domain

import (
	"errors"
	"fmt"
	"strings"
)

// ErrorCode standardizes failure semantics across the core services.
type ErrorCode string

const (
	// CodeValidation marks caller input rejected before any storage access.
	CodeValidation ErrorCode = "validation"
	// CodeCapabilityUnavailable marks a single query tier failing because the
	// storage backend lacks an optional function, table or column. It is
	// carried as the cause of a service_degraded error, never returned on
	// its own: individual tier misses are handled by advancing the tier list.
	CodeCapabilityUnavailable ErrorCode = "capability_unavailable"
	// CodeServiceDegraded marks total exhaustion of a degradation tier list.
	CodeServiceDegraded ErrorCode = "service_degraded"
	// CodeDataIntegrity marks an unexpected write failure that must not be retried.
	CodeDataIntegrity ErrorCode = "data_integrity"
	// CodeInternal marks any other unexpected storage failure.
	CodeInternal ErrorCode = "internal"
)

// Error is the canonical error wrapper carried across service boundaries.
type Error struct {
	Code    ErrorCode
	Op      string
	Message string
	Cause   error
}

func (e *Error) Error() string {
	if e == nil {
		return "<nil>"
	}
	op := strings.TrimSpace(e.Op)
	msg := strings.TrimSpace(e.Message)
	switch {
	case op != "" && msg != "":
		return fmt.Sprintf("%s: %s (%s)", op, msg, e.Code)
	case op != "":
		return fmt.Sprintf("%s (%s)", op, e.Code)
	case msg != "":
		return fmt.Sprintf("%s (%s)", msg, e.Code)
	default:
		return string(e.Code)
	}
}

func (e *Error) Unwrap() error { return e.Cause }

// NewError builds an error with an explicit code and operation.
func NewError(code ErrorCode, op, message string, cause error) error {
	return &Error{
		Code:    code,
		Op:      strings.TrimSpace(op),
		Message: strings.TrimSpace(message),
		Cause:   cause,
	}
}

// Wrap annotates an existing error with a code and operation.
func Wrap(code ErrorCode, op string, err error) error {
	if err == nil {
		return nil
	}
	return NewError(code, op, err.Error(), err)
}

// IsCode reports whether err (or any wrapped error) carries the given code.
func IsCode(err error, code ErrorCode) bool {
	var domErr *Error
	if !errors.As(err, &domErr) {
		return false
	}
	return domErr.Code == code
}

// CodeOf extracts the error code when available.
func CodeOf(err error) ErrorCode {
	var domErr *Error
	if !errors.As(err, &domErr) {
		return ""
	}
	return domErr.Code
}
