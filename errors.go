package filterdetect

import (
	"context"
	"errors"
	"fmt"
)

// ErrorType represents the category of error
type ErrorType string

const (
	ErrorTypeValidation    ErrorType = "validation"
	ErrorTypeNotFound      ErrorType = "not_found"
	ErrorTypeInternal      ErrorType = "internal"
	ErrorTypePackage       ErrorType = "package"
	ErrorTypeConfiguration ErrorType = "configuration"
	ErrorTypeRuntime       ErrorType = "runtime"
)

// FilterError is the structured error returned by detection, cache and store code.
type FilterError struct {
	Type    ErrorType      `json:"type"`
	Code    string         `json:"code"`
	Message string         `json:"message"`
	Field   string         `json:"field,omitempty"`
	Details map[string]any `json:"details,omitempty"`
	Cause   error          `json:"-"`
}

func (e *FilterError) Error() string {
	if e.Field != "" {
		return fmt.Sprintf("[%s:%s] field '%s': %s", e.Type, e.Code, e.Field, e.Message)
	}
	if e.Cause != nil {
		return fmt.Sprintf("[%s:%s] %s: %v", e.Type, e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("[%s:%s] %s", e.Type, e.Code, e.Message)
}

func (e *FilterError) Unwrap() error {
	return e.Cause
}

// WithDetail adds a single detail to a FilterError
func (e *FilterError) WithDetail(key string, value any) *FilterError {
	if e.Details == nil {
		e.Details = make(map[string]any)
	}
	e.Details[key] = value
	return e
}

// WithCause adds a cause to a FilterError
func (e *FilterError) WithCause(cause error) *FilterError {
	e.Cause = cause
	return e
}

// WithField adds field context to a FilterError
func (e *FilterError) WithField(field string) *FilterError {
	e.Field = field
	return e
}

const (
	ErrCodeValidationFailed  = "VALIDATION_FAILED"
	ErrCodeNodeNotFound      = "NODE_NOT_FOUND"
	ErrCodeStoreUnavailable  = "STORE_UNAVAILABLE"
	ErrCodeInvalidDocument   = "INVALID_DOCUMENT"
	ErrCodeNotPackage        = "NOT_PACKAGE"
	ErrCodeBrokenPackage     = "BROKEN_PACKAGE"
	ErrCodeUnknownStoreKind  = "UNKNOWN_STORE_KIND"
	ErrCodeInternalError     = "INTERNAL_ERROR"
	ErrCodeRuntimeFailure    = "RUNTIME_FAILURE"
	ErrCodePackageTooLarge   = "PACKAGE_TOO_LARGE"
	ErrCodeUnsupportedDriver = "UNSUPPORTED_DRIVER"
)

// Sentinels used with errors.Is.
var (
	ErrNotPackage       = errors.New("stream is not a zip package")
	ErrNodeNotFound     = errors.New("configuration node not found")
	ErrStoreUnavailable = errors.New("configuration store unavailable")
)

// NewFilterError creates a new FilterError
func NewFilterError(errorType ErrorType, code, message string) *FilterError {
	return &FilterError{
		Type:    errorType,
		Code:    code,
		Message: message,
		Details: make(map[string]any),
	}
}

// NewValidationError creates a validation error
func NewValidationError(field, message string) *FilterError {
	return &FilterError{
		Type:    ErrorTypeValidation,
		Code:    ErrCodeValidationFailed,
		Message: message,
		Field:   field,
		Details: make(map[string]any),
	}
}

// NewNodeNotFoundError reports a configuration node that a store does not hold.
func NewNodeNotFoundError(nodePath string) *FilterError {
	return &FilterError{
		Type:    ErrorTypeNotFound,
		Code:    ErrCodeNodeNotFound,
		Message: "configuration node not found: " + nodePath,
		Cause:   ErrNodeNotFound,
		Details: map[string]any{"node_path": nodePath},
	}
}

// NewStoreUnavailableError reports a store that could not be read.
func NewStoreUnavailableError(message string, cause error) *FilterError {
	return &FilterError{
		Type:    ErrorTypeConfiguration,
		Code:    ErrCodeStoreUnavailable,
		Message: message,
		Cause:   errors.Join(ErrStoreUnavailable, cause),
		Details: make(map[string]any),
	}
}

// NewInvalidDocumentError reports a configuration document that failed to parse or validate.
func NewInvalidDocumentError(source string, cause error) *FilterError {
	return &FilterError{
		Type:    ErrorTypeConfiguration,
		Code:    ErrCodeInvalidDocument,
		Message: "invalid configuration document " + source,
		Cause:   cause,
		Details: map[string]any{"source": source},
	}
}

// NewInternalError creates an internal error
func NewInternalError(message string, cause error) *FilterError {
	return &FilterError{
		Type:    ErrorTypeInternal,
		Code:    ErrCodeInternalError,
		Message: message,
		Cause:   cause,
		Details: make(map[string]any),
	}
}

// ============================================================================
// Package and runtime errors
// ============================================================================

// ZipIOError reports a zip container whose structure or content is corrupted.
type ZipIOError struct {
	Message string
	Cause   error
}

func (e *ZipIOError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("zip io error: %s: %v", e.Message, e.Cause)
	}
	return "zip io error: " + e.Message
}

func (e *ZipIOError) Unwrap() error {
	return e.Cause
}

// WrappedTargetError carries the failure of an underlying component in Target.
type WrappedTargetError struct {
	Message string
	Target  error
}

func (e *WrappedTargetError) Error() string {
	if e.Target == nil {
		return e.Message
	}
	return fmt.Sprintf("%s: %v", e.Message, e.Target)
}

func (e *WrappedTargetError) Unwrap() error {
	return e.Target
}

// RuntimeError is a severe failure. Detection and cache construction never swallow it.
type RuntimeError struct {
	Message string
	Cause   error
}

func (e *RuntimeError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("runtime error: %s: %v", e.Message, e.Cause)
	}
	return "runtime error: " + e.Message
}

func (e *RuntimeError) Unwrap() error {
	return e.Cause
}

// NewRuntimeError creates a RuntimeError
func NewRuntimeError(message string, cause error) *RuntimeError {
	return &RuntimeError{Message: message, Cause: cause}
}

// NewBrokenPackageError wraps a zip failure the way the package layer reports it.
func NewBrokenPackageError(message string, cause error) *WrappedTargetError {
	return &WrappedTargetError{
		Message: "broken package",
		Target:  &ZipIOError{Message: message, Cause: cause},
	}
}

// ============================================================================
// Error checking utilities
// ============================================================================

// IsSevere reports whether err must be propagated instead of swallowed.
func IsSevere(err error) bool {
	if err == nil {
		return false
	}
	var rt *RuntimeError
	if errors.As(err, &rt) {
		return true
	}
	return errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded)
}

// BrokenPackageCause returns the ZipIOError carried by a WrappedTargetError, if any.
func BrokenPackageCause(err error) (*ZipIOError, bool) {
	var wrapped *WrappedTargetError
	if !errors.As(err, &wrapped) {
		return nil, false
	}
	var zipErr *ZipIOError
	if wrapped.Target == nil || !errors.As(wrapped.Target, &zipErr) {
		return nil, false
	}
	return zipErr, true
}

// IsNodeNotFound checks if an error reports a missing configuration node
func IsNodeNotFound(err error) bool {
	return errors.Is(err, ErrNodeNotFound)
}

// IsValidationError checks if an error is a validation error
func IsValidationError(err error) bool {
	var fe *FilterError
	if errors.As(err, &fe) {
		return fe.Type == ErrorTypeValidation
	}
	return false
}
