// internal/utils/errors.go

// Package utils provides logging and structured error utilities
// shared by every FormScrapexter component.
package utils

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// ErrorCode represents predefined error codes for categorization
type ErrorCode string

const (
	// Configuration related errors
	ErrCodeInvalidConfig ErrorCode = "INVALID_CONFIG"
	ErrCodeMissingConfig ErrorCode = "MISSING_CONFIG"
	ErrCodeConfigSyntax  ErrorCode = "CONFIG_SYNTAX"

	// Input related errors
	ErrCodeInvalidInput ErrorCode = "INVALID_INPUT"

	// Browser related errors
	ErrCodeNavigationTimeout ErrorCode = "NAVIGATION_TIMEOUT"
	ErrCodeSessionInvalid    ErrorCode = "SESSION_INVALID"
	ErrCodeBrowserFailed     ErrorCode = "BROWSER_FAILED"

	// Extraction related errors
	ErrCodeParsingError ErrorCode = "PARSING_ERROR"

	// Output related errors
	ErrCodeOutputFailed   ErrorCode = "OUTPUT_FAILED"
	ErrCodeFilePermission ErrorCode = "FILE_PERMISSION"
	ErrCodeDatabaseError  ErrorCode = "DATABASE_ERROR"
	ErrCodeCheckpoint     ErrorCode = "CHECKPOINT_FAILED"

	// Generic errors
	ErrCodeInternal   ErrorCode = "INTERNAL_ERROR"
	ErrCodeValidation ErrorCode = "VALIDATION_ERROR"
)

// StructuredError carries a code, context and cause alongside the message
type StructuredError struct {
	Code        ErrorCode              `json:"code"`
	Message     string                 `json:"message"`
	Context     map[string]interface{} `json:"context,omitempty"`
	Cause       error                  `json:"-"`
	Timestamp   time.Time              `json:"timestamp"`
	Retryable   bool                   `json:"retryable"`
	UserMessage string                 `json:"user_message,omitempty"`
}

// Error implements the error interface
func (e *StructuredError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s (caused by: %v)", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Unwrap returns the underlying cause for error unwrapping
func (e *StructuredError) Unwrap() error {
	return e.Cause
}

// Is checks if the error matches a target error code
func (e *StructuredError) Is(target error) bool {
	if se, ok := target.(*StructuredError); ok {
		return e.Code == se.Code
	}
	return false
}

// WithContext adds contextual information to the error
func (e *StructuredError) WithContext(key string, value interface{}) *StructuredError {
	if e.Context == nil {
		e.Context = make(map[string]interface{})
	}
	e.Context[key] = value
	return e
}

// ErrorBuilder provides a fluent interface for creating structured errors
type ErrorBuilder struct {
	err *StructuredError
}

// NewError starts building a structured error
func NewError(code ErrorCode, message string) *ErrorBuilder {
	return &ErrorBuilder{
		err: &StructuredError{
			Code:      code,
			Message:   message,
			Timestamp: time.Now(),
		},
	}
}

// WithCause sets the underlying cause
func (eb *ErrorBuilder) WithCause(cause error) *ErrorBuilder {
	eb.err.Cause = cause
	return eb
}

// WithContext adds a context key/value pair
func (eb *ErrorBuilder) WithContext(key string, value interface{}) *ErrorBuilder {
	eb.err.WithContext(key, value)
	return eb
}

// WithRetryable marks whether the failed operation may be retried
func (eb *ErrorBuilder) WithRetryable(retryable bool) *ErrorBuilder {
	eb.err.Retryable = retryable
	return eb
}

// WithUserMessage sets the message shown to CLI users
func (eb *ErrorBuilder) WithUserMessage(message string) *ErrorBuilder {
	eb.err.UserMessage = message
	return eb
}

// Build returns the structured error
func (eb *ErrorBuilder) Build() *StructuredError {
	return eb.err
}

// IsRetryableError checks if an error should be retried
func IsRetryableError(err error) bool {
	if err == nil {
		return false
	}
	var structErr *StructuredError
	if errors.As(err, &structErr) {
		return structErr.Retryable
	}

	// Browser drivers report dead sessions only through their messages
	errorStr := strings.ToLower(err.Error())
	for _, pattern := range []string{"session", "browser"} {
		if strings.Contains(errorStr, pattern) {
			return true
		}
	}
	return false
}

// WrapError wraps an existing error in a structured error
func WrapError(err error, code ErrorCode, message string) *StructuredError {
	return NewError(code, message).WithCause(err).Build()
}

// GetUserFriendlyMessage extracts a user-friendly message from an error
func GetUserFriendlyMessage(err error) string {
	var structErr *StructuredError
	if !errors.As(err, &structErr) {
		return "An error occurred. Please try again."
	}
	if structErr.UserMessage != "" {
		return structErr.UserMessage
	}

	switch structErr.Code {
	case ErrCodeInvalidConfig, ErrCodeConfigSyntax, ErrCodeMissingConfig:
		return "The configuration could not be used. Run 'formscrapexter validate' for details."
	case ErrCodeInvalidInput:
		return "The URL list could not be read."
	case ErrCodeBrowserFailed:
		return "The browser could not be started. Check that Chrome or Chromium is installed."
	case ErrCodeOutputFailed, ErrCodeFilePermission:
		return "Failed to save the results. Please check file permissions and available disk space."
	case ErrCodeDatabaseError:
		return "Failed to write results to the database. Check the connection string."
	default:
		return "An unexpected error occurred. Please try again or contact support if the problem persists."
	}
}
