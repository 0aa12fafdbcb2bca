// Package errors provides structured error handling for skim operations.
// It defines error codes and the error types that cross package boundaries:
// configuration failures raised before a scan starts, probe failures that stay
// inside the prober, report write failures and database failures.
package errors

import (
	"errors"
	"fmt"
)

// ErrorCode represents different types of errors that can occur.
type ErrorCode string

const (
	// General errors.
	CodeUnknown       ErrorCode = "UNKNOWN"
	CodeValidation    ErrorCode = "VALIDATION"
	CodeConfiguration ErrorCode = "CONFIGURATION"
	CodeTimeout       ErrorCode = "TIMEOUT"
	CodeCanceled      ErrorCode = "CANCELED"

	// Network and scanning errors.
	CodeTargetInvalid     ErrorCode = "TARGET_INVALID"
	CodeConnRefused       ErrorCode = "CONNECTION_REFUSED"
	CodeResourceExhausted ErrorCode = "RESOURCE_EXHAUSTED"
	CodeBannerFailed      ErrorCode = "BANNER_FAILED"
	CodeTLSFailed         ErrorCode = "TLS_FAILED"
	CodeScanFailed        ErrorCode = "SCAN_FAILED"

	// Report errors.
	CodeFileWrite ErrorCode = "FILE_WRITE"

	// Database errors.
	CodeDatabaseConnection ErrorCode = "DATABASE_CONNECTION"
	CodeDatabaseQuery      ErrorCode = "DATABASE_QUERY"
	CodeDatabaseMigration  ErrorCode = "DATABASE_MIGRATION"
)

// ErrUserAbort is returned when a scan run is interrupted before every probe
// has completed. Partial results are discarded.
var ErrUserAbort = &ScanError{Code: CodeCanceled, Message: "scan aborted by user"}

// ScanError represents an error that occurred while probing a target.
type ScanError struct {
	Code      ErrorCode
	Message   string
	Target    string
	Port      uint16
	Operation string
	Cause     error
}

// Error implements the error interface.
func (e *ScanError) Error() string {
	switch {
	case e.Target != "" && e.Port > 0:
		return fmt.Sprintf("[%s] %s (target: %s:%d)", e.Code, e.Message, e.Target, e.Port)
	case e.Target != "":
		return fmt.Sprintf("[%s] %s (target: %s)", e.Code, e.Message, e.Target)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// Unwrap returns the underlying error for error unwrapping.
func (e *ScanError) Unwrap() error {
	return e.Cause
}

// WrapScanErrorWithPort wraps an error with target and port information.
func WrapScanErrorWithPort(code ErrorCode, op, target string, port uint16, err error) *ScanError {
	return &ScanError{
		Code:      code,
		Message:   op + " failed",
		Target:    target,
		Port:      port,
		Operation: op,
		Cause:     err,
	}
}

// ConfigError represents configuration-related errors. A ConfigError is
// always raised before any probe is dispatched.
type ConfigError struct {
	Code    ErrorCode
	Message string
	Field   string
	Value   interface{}
	Cause   error
}

// Error implements the error interface.
func (e *ConfigError) Error() string {
	msg := fmt.Sprintf("[%s] %s", e.Code, e.Message)
	if e.Field != "" {
		msg = fmt.Sprintf("%s (field: %s)", msg, e.Field)
	}
	if e.Cause != nil {
		msg = fmt.Sprintf("%s: %v", msg, e.Cause)
	}
	return msg
}

// Unwrap returns the underlying error.
func (e *ConfigError) Unwrap() error {
	return e.Cause
}

// NewConfigFieldError creates a configuration error for a specific field.
func NewConfigFieldError(code ErrorCode, message, field string, value interface{}) *ConfigError {
	return &ConfigError{
		Code:    code,
		Message: message,
		Field:   field,
		Value:   value,
	}
}

// WrapConfigError wraps an existing error as a configuration error.
func WrapConfigError(code ErrorCode, message string, err error) *ConfigError {
	return &ConfigError{
		Code:    code,
		Message: message,
		Cause:   err,
	}
}

// ReportError is returned when a finished report cannot be persisted. The
// in-memory report stays valid.
type ReportError struct {
	Code  ErrorCode
	Path  string
	Cause error
}

// Error implements the error interface.
func (e *ReportError) Error() string {
	return fmt.Sprintf("[%s] failed to write report to %s: %v", e.Code, e.Path, e.Cause)
}

// Unwrap returns the underlying error.
func (e *ReportError) Unwrap() error {
	return e.Cause
}

// DatabaseError represents database-related errors.
type DatabaseError struct {
	Code      ErrorCode
	Message   string
	Operation string
	Cause     error
}

// Error implements the error interface.
func (e *DatabaseError) Error() string {
	if e.Operation != "" {
		return fmt.Sprintf("[%s] %s (operation: %s)", e.Code, e.Message, e.Operation)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// Unwrap returns the underlying error.
func (e *DatabaseError) Unwrap() error {
	return e.Cause
}

// WrapDatabaseError wraps an existing error as a database error.
func WrapDatabaseError(code ErrorCode, message string, err error) *DatabaseError {
	return &DatabaseError{
		Code:    code,
		Message: message,
		Cause:   err,
	}
}

// GetCode extracts the error code from an error if it has one.
func GetCode(err error) ErrorCode {
	var scanErr *ScanError
	if errors.As(err, &scanErr) {
		return scanErr.Code
	}
	var cfgErr *ConfigError
	if errors.As(err, &cfgErr) {
		return cfgErr.Code
	}
	var reportErr *ReportError
	if errors.As(err, &reportErr) {
		return reportErr.Code
	}
	var dbErr *DatabaseError
	if errors.As(err, &dbErr) {
		return dbErr.Code
	}
	return CodeUnknown
}

// IsCode checks if an error has a specific error code.
func IsCode(err error, code ErrorCode) bool {
	return err != nil && GetCode(err) == code
}

// IsFatal reports whether an error must stop the run before or during a scan.
// Report and database errors are warnings.
func IsFatal(err error) bool {
	switch GetCode(err) {
	case CodeConfiguration, CodeValidation, CodeTargetInvalid, CodeCanceled:
		return true
	default:
		return false
	}
}

// ErrInvalidTarget creates an error for a target that failed validation or resolution.
func ErrInvalidTarget(target string, err error) *ConfigError {
	return &ConfigError{
		Code:    CodeTargetInvalid,
		Message: "invalid or unresolvable target",
		Field:   "target",
		Value:   target,
		Cause:   err,
	}
}

// ErrConfigInvalid creates an error for invalid configuration.
func ErrConfigInvalid(field string, value interface{}) *ConfigError {
	return NewConfigFieldError(CodeValidation, "Invalid configuration value", field, value)
}

// ErrReportWrite creates an error for a report that could not be written.
func ErrReportWrite(path string, err error) *ReportError {
	return &ReportError{Code: CodeFileWrite, Path: path, Cause: err}
}

// ErrDatabaseConnection creates an error for database connection failures.
func ErrDatabaseConnection(err error) *DatabaseError {
	return WrapDatabaseError(CodeDatabaseConnection, "Failed to connect to database", err)
}
