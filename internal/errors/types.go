package errors

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

// ErrorType represents different categories of errors.
type ErrorType string

const (
	ErrorTypeValidation ErrorType = "validation"
	ErrorTypeNetwork    ErrorType = "network"
	ErrorTypeTemplate   ErrorType = "template"
	ErrorTypeConfig     ErrorType = "config"
	ErrorTypeInternal   ErrorType = "internal"
)

// Common error codes.
const (
	ErrCodeElementNotFound  = "ERR_ELEMENT_NOT_FOUND"
	ErrCodeParentNotFound   = "ERR_PARENT_NOT_FOUND"
	ErrCodeMissingID        = "ERR_MISSING_ID"
	ErrCodeFragmentFetch    = "ERR_FRAGMENT_FETCH"
	ErrCodeResourceLoad     = "ERR_RESOURCE_LOAD"
	ErrCodeTemplate         = "ERR_TEMPLATE"
	ErrCodeImport           = "ERR_IMPORT"
	ErrCodeUnknownHandler   = "ERR_UNKNOWN_HANDLER"
	ErrCodeConfigInvalid    = "ERR_CONFIG_INVALID"
	ErrCodeInternalError    = "ERR_INTERNAL"
	ErrCodeNestingTooDeep   = "ERR_NESTING_TOO_DEEP"
	ErrCodeComponentMissing = "ERR_COMPONENT_NOT_FOUND"
)

// Error is a structured error type with context.
type Error struct {
	Type        ErrorType
	Code        string
	Message     string
	Cause       error
	Context     map[string]interface{}
	Component   string
	Path        string
	Recoverable bool
}

// Error implements the error interface.
func (e *Error) Error() string {
	var parts []string

	if e.Code != "" {
		parts = append(parts, fmt.Sprintf("[%s]", e.Code))
	}

	if e.Component != "" {
		parts = append(parts, "component:"+e.Component)
	}

	if e.Path != "" {
		parts = append(parts, e.Path)
	}

	parts = append(parts, e.Message)

	result := strings.Join(parts, " ")

	if e.Cause != nil {
		result += fmt.Sprintf(": %v", e.Cause)
	}

	return result
}

// Unwrap returns the underlying cause error.
func (e *Error) Unwrap() error {
	return e.Cause
}

// Is implements error comparison.
func (e *Error) Is(target error) bool {
	var t *Error
	if errors.As(target, &t) {
		return e.Type == t.Type && e.Code == t.Code
	}

	return false
}

// WithContext adds context information to the error.
func (e *Error) WithContext(key string, value interface{}) *Error {
	if e.Context == nil {
		e.Context = make(map[string]interface{})
	}
	e.Context[key] = value

	return e
}

// WithComponent adds component context.
func (e *Error) WithComponent(id string) *Error {
	e.Component = id

	return e
}

// WithPath records the fragment or resource path involved.
func (e *Error) WithPath(path string) *Error {
	e.Path = path

	return e
}

// NewValidationError creates a validation error.
func NewValidationError(code, message string) *Error {
	return &Error{
		Type:        ErrorTypeValidation,
		Code:        code,
		Message:     message,
		Recoverable: true,
	}
}

// NewNetworkError creates a transport error. Network errors are retryable.
func NewNetworkError(code, message string, cause error) *Error {
	return &Error{
		Type:        ErrorTypeNetwork,
		Code:        code,
		Message:     message,
		Cause:       cause,
		Recoverable: true,
	}
}

// NewTemplateError creates a template compilation error.
func NewTemplateError(message string, cause error) *Error {
	return &Error{
		Type:        ErrorTypeTemplate,
		Code:        ErrCodeTemplate,
		Message:     message,
		Cause:       cause,
		Recoverable: false,
	}
}

// NewConfigError creates a configuration error.
func NewConfigError(code, message string) *Error {
	return &Error{
		Type:        ErrorTypeConfig,
		Code:        code,
		Message:     message,
		Recoverable: false,
	}
}

// NewInternalError creates an internal error.
func NewInternalError(code, message string, cause error) *Error {
	return &Error{
		Type:        ErrorTypeInternal,
		Code:        code,
		Message:     message,
		Cause:       cause,
		Recoverable: false,
	}
}

// IsRecoverable checks if an error is recoverable.
func IsRecoverable(err error) bool {
	var e *Error
	if errors.As(err, &e) {
		return e.Recoverable
	}

	return false
}

// HasCode reports whether err carries the given code anywhere in its chain.
func HasCode(err error, code string) bool {
	var e *Error
	if errors.As(err, &e) {
		return e.Code == code
	}

	return false
}

// Logger interface for error logging.
type Logger interface {
	Error(ctx context.Context, err error, msg string, fields ...interface{})
	Warn(ctx context.Context, err error, msg string, fields ...interface{})
}

// Handler provides centralized error handling.
type Handler struct {
	logger Logger
}

// NewHandler creates a new error handler.
func NewHandler(logger Logger) *Handler {
	return &Handler{logger: logger}
}

// Handle logs err at a level matching its category. Recoverable
// validation errors are warnings; everything else is logged as an error.
// fields are appended after the error's type and code.
func (h *Handler) Handle(ctx context.Context, err error, fields ...interface{}) {
	if err == nil || h.logger == nil {
		return
	}

	var e *Error
	if !errors.As(err, &e) {
		h.logger.Error(ctx, err, "Unhandled error occurred", fields...)
		return
	}

	attrs := append([]interface{}{"type", e.Type, "code", e.Code}, fields...)
	switch e.Type {
	case ErrorTypeValidation:
		h.logger.Warn(ctx, err, "Validation error occurred", attrs...)
	case ErrorTypeNetwork:
		h.logger.Error(ctx, err, "Network error occurred", attrs...)
	default:
		h.logger.Error(ctx, err, "Error occurred", attrs...)
	}
}

// SeverityOf maps err onto the severity shown in the error overlay:
// recoverable errors are warnings, the rest are errors.
func SeverityOf(err error) ErrorSeverity {
	if IsRecoverable(err) {
		return ErrorSeverityWarning
	}
	return ErrorSeverityError
}

// ErrElementNotFound creates a missing target element error.
func ErrElementNotFound(id string) *Error {
	return NewValidationError(
		ErrCodeElementNotFound,
		fmt.Sprintf("element #%s not found in the document", id),
	).WithComponent(id)
}

// ErrParentNotFound creates a missing parent element error.
func ErrParentNotFound(id string) *Error {
	return NewValidationError(
		ErrCodeParentNotFound,
		fmt.Sprintf("parent element with ID %s not found", id),
	).WithComponent(id)
}

// ErrMissingID creates a malformed marker error.
func ErrMissingID(path string) *Error {
	return NewValidationError(
		ErrCodeMissingID,
		"component element must have an ID attribute",
	).WithPath(path)
}

// ErrFragmentFetch creates a fragment fetch failure.
func ErrFragmentFetch(path string, cause error) *Error {
	return NewNetworkError(
		ErrCodeFragmentFetch,
		"failed to load component",
		cause,
	).WithPath(path)
}

// ErrResourceLoad creates a resource load failure for a confirmed resource.
func ErrResourceLoad(url string, cause error) *Error {
	return NewNetworkError(
		ErrCodeResourceLoad,
		"failed to load resource",
		cause,
	).WithPath(url)
}

// Is, As, Join and New forward to the standard library so callers need a
// single errors import.
func Is(err, target error) bool { return errors.Is(err, target) }

func As(err error, target any) bool { return errors.As(err, target) }

func Join(errs ...error) error { return errors.Join(errs...) }

func New(text string) error { return errors.New(text) }
