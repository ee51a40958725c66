// Package errors defines the categorized error types used across the ledger
// service.
//
// Every failure that crosses a package boundary is a *LedgerError carrying a
// category, a machine-readable code, an operator-facing suggestion and an
// optional context map. Categories map to process exit codes so the CLI can
// signal the kind of failure to calling scripts.
package errors

import (
	"fmt"

	"github.com/pkg/errors"
)

// ErrorCategory groups errors by the subsystem that produced them.
type ErrorCategory string

const (
	CategoryFile          ErrorCategory = "file"
	CategoryParse         ErrorCategory = "parse"
	CategoryValidation    ErrorCategory = "validation"
	CategoryConfiguration ErrorCategory = "configuration"
	CategoryIngest        ErrorCategory = "ingest"
	CategoryStorage       ErrorCategory = "storage"
	CategoryInternal      ErrorCategory = "internal"
)

// ErrorCode identifies a specific failure within a category.
type ErrorCode string

const (
	// File errors
	CodeFileNotFound   ErrorCode = "file_not_found"
	CodeFilePermission ErrorCode = "file_permission"
	CodeFileCorrupted  ErrorCode = "file_corrupted"

	// Parse errors
	CodeInvalidFormat  ErrorCode = "invalid_format"
	CodeShortHeader    ErrorCode = "short_header"
	CodeInvalidData    ErrorCode = "invalid_data"
	CodeEncodingError  ErrorCode = "encoding_error"
	CodeNoValidRecords ErrorCode = "no_valid_records"

	// Validation errors
	CodeInvalidAmount ErrorCode = "invalid_amount"
	CodeInvalidDate   ErrorCode = "invalid_date"
	CodeMissingField  ErrorCode = "missing_field"

	// Configuration errors
	CodeInvalidConfig ErrorCode = "invalid_config"
	CodeMissingConfig ErrorCode = "missing_config"

	// Ingest errors
	CodeBatchFailed     ErrorCode = "batch_failed"
	CodeScheduleFailed  ErrorCode = "schedule_failed"
	CodeProcessingError ErrorCode = "processing_error"

	// Storage errors
	CodeConnectionFailed ErrorCode = "connection_failed"
	CodeMigrationFailed  ErrorCode = "migration_failed"
	CodeSwapFailed       ErrorCode = "swap_failed"
	CodeQueryFailed      ErrorCode = "query_failed"

	// Internal errors
	CodeUnexpectedError ErrorCode = "unexpected_error"
)

// LedgerError is the base error type for all application errors.
type LedgerError struct {
	Category   ErrorCategory     `json:"category"`
	Code       ErrorCode         `json:"code"`
	Message    string            `json:"message"`
	Suggestion string            `json:"suggestion,omitempty"`
	Context    Context           `json:"context,omitempty"`
	Cause      error             `json:"-"`
	StackTrace errors.StackTrace `json:"-"`
}

// Context carries additional key/value information about the error.
type Context map[string]interface{}

func (e *LedgerError) Error() string {
	if e.Suggestion != "" {
		return fmt.Sprintf("%s (suggestion: %s)", e.Message, e.Suggestion)
	}
	return e.Message
}

// Unwrap returns the underlying cause error.
func (e *LedgerError) Unwrap() error {
	return e.Cause
}

// GetExitCode maps the error category to a process exit code.
func (e *LedgerError) GetExitCode() int {
	switch e.Category {
	case CategoryFile:
		return 2
	case CategoryParse, CategoryValidation:
		return 3
	case CategoryConfiguration:
		return 4
	case CategoryIngest, CategoryInternal:
		return 5
	case CategoryStorage:
		return 6
	default:
		return 1
	}
}

// WithContext adds context information to the error.
func (e *LedgerError) WithContext(key string, value interface{}) *LedgerError {
	if e.Context == nil {
		e.Context = make(Context)
	}
	e.Context[key] = value
	return e
}

// WithSuggestion adds an operator-facing suggestion for fixing the error.
func (e *LedgerError) WithSuggestion(suggestion string) *LedgerError {
	e.Suggestion = suggestion
	return e
}

// New creates a new LedgerError.
func New(category ErrorCategory, code ErrorCode, message string) *LedgerError {
	return &LedgerError{
		Category:   category,
		Code:       code,
		Message:    message,
		StackTrace: errors.New("").(stackTracer).StackTrace(),
	}
}

// Wrap wraps an existing error with LedgerError context.
func Wrap(err error, category ErrorCategory, code ErrorCode, message string) *LedgerError {
	if err == nil {
		return nil
	}

	return &LedgerError{
		Category:   category,
		Code:       code,
		Message:    message,
		Cause:      err,
		StackTrace: errors.WithStack(err).(stackTracer).StackTrace(),
	}
}

type stackTracer interface {
	StackTrace() errors.StackTrace
}

// FileError creates a file-related error.
func FileError(code ErrorCode, path string, err error) *LedgerError {
	var message, suggestion string

	switch code {
	case CodeFileNotFound:
		message = fmt.Sprintf("file not found: %s", path)
		suggestion = "check that the export file path is correct and the file exists"
	case CodeFilePermission:
		message = fmt.Sprintf("permission denied accessing file: %s", path)
		suggestion = "check file permissions and ensure you have read access"
	case CodeFileCorrupted:
		message = fmt.Sprintf("file appears to be corrupted: %s", path)
		suggestion = "re-export the file from the source system"
	default:
		message = fmt.Sprintf("file error: %s", path)
		suggestion = "check the file and try again"
	}

	return build(err, CategoryFile, code, message).
		WithSuggestion(suggestion).
		WithContext("file_path", path)
}

// ParseError creates a parsing-related error.
func ParseError(code ErrorCode, file string, line int, field, value string, err error) *LedgerError {
	var message, suggestion string

	switch code {
	case CodeShortHeader:
		message = fmt.Sprintf("header row in %s has too few columns", file)
		suggestion = "verify the export uses the expected column layout and ';' as delimiter"
	case CodeInvalidFormat:
		message = fmt.Sprintf("invalid format in %s at line %d, field '%s': '%s'", file, line, field, value)
		suggestion = "check that the row matches the configured column layout"
	case CodeInvalidData:
		message = fmt.Sprintf("invalid data in %s at line %d, field '%s': '%s'", file, line, field, value)
		suggestion = "correct the cell value or remove the row from the export"
	case CodeEncodingError:
		message = fmt.Sprintf("encoding error in %s at line %d", file, line)
		suggestion = "save the export in UTF-8 encoding"
	case CodeNoValidRecords:
		message = fmt.Sprintf("no valid records survived parsing of %s", file)
		suggestion = "inspect the skipped-row diagnostics; the file layout may not match the configured one"
	default:
		message = fmt.Sprintf("parse error in %s at line %d", file, line)
		suggestion = "check the file format and data integrity"
	}

	return build(err, CategoryParse, code, message).
		WithSuggestion(suggestion).
		WithContext("file", file).
		WithContext("line", line).
		WithContext("field", field)
}

// ValidationError creates a validation-related error.
func ValidationError(code ErrorCode, field string, value interface{}, err error) *LedgerError {
	var message, suggestion string

	switch code {
	case CodeInvalidAmount:
		message = fmt.Sprintf("invalid amount in field '%s': %v", field, value)
		suggestion = "amounts must be non-negative decimal numbers"
	case CodeInvalidDate:
		message = fmt.Sprintf("invalid date in field '%s': %v", field, value)
		suggestion = "use DD.MM.YYYY or YYYY-MM-DD"
	case CodeMissingField:
		message = fmt.Sprintf("required field '%s' is missing or empty", field)
		suggestion = "provide a value for this required field"
	default:
		message = fmt.Sprintf("validation error in field '%s': %v", field, value)
		suggestion = "check the field value and format"
	}

	return build(err, CategoryValidation, code, message).
		WithSuggestion(suggestion).
		WithContext("field", field).
		WithContext("value", value)
}

// ConfigurationError creates a configuration-related error.
func ConfigurationError(code ErrorCode, setting string, value interface{}, err error) *LedgerError {
	var message, suggestion string

	switch code {
	case CodeInvalidConfig:
		message = fmt.Sprintf("invalid configuration for '%s': %v", setting, value)
		suggestion = "check the configuration documentation for valid values"
	case CodeMissingConfig:
		message = fmt.Sprintf("missing required configuration: %s", setting)
		suggestion = "provide this setting via flag, environment or config file"
	default:
		message = fmt.Sprintf("configuration error: %s", setting)
		suggestion = "check your configuration and try again"
	}

	return build(err, CategoryConfiguration, code, message).
		WithSuggestion(suggestion).
		WithContext("setting", setting)
}

// IngestError creates an ingestion-pipeline error.
func IngestError(code ErrorCode, operation string, err error) *LedgerError {
	var message, suggestion string

	switch code {
	case CodeBatchFailed:
		message = fmt.Sprintf("ingestion batch failed during %s", operation)
		suggestion = "previously loaded data was left untouched; fix the input and re-run"
	case CodeScheduleFailed:
		message = fmt.Sprintf("schedule generation failed during %s", operation)
		suggestion = "check the per-period amount columns of the contract export"
	case CodeProcessingError:
		message = fmt.Sprintf("processing error during %s", operation)
		suggestion = "check the logs for the offending records"
	default:
		message = fmt.Sprintf("ingest error during %s", operation)
		suggestion = "review the input data and configuration"
	}

	return build(err, CategoryIngest, code, message).
		WithSuggestion(suggestion).
		WithContext("operation", operation)
}

// StorageError creates a persistence-related error.
func StorageError(code ErrorCode, operation string, err error) *LedgerError {
	var message, suggestion string

	switch code {
	case CodeConnectionFailed:
		message = fmt.Sprintf("database connection failed during %s", operation)
		suggestion = "check the DSN and that the database is reachable"
	case CodeMigrationFailed:
		message = fmt.Sprintf("schema migration failed during %s", operation)
		suggestion = "check the database user has DDL privileges"
	case CodeSwapFailed:
		message = fmt.Sprintf("atomic reload failed during %s", operation)
		suggestion = "the transaction was rolled back; prior data is intact"
	case CodeQueryFailed:
		message = fmt.Sprintf("query failed during %s", operation)
		suggestion = "check the database logs"
	default:
		message = fmt.Sprintf("storage error during %s", operation)
		suggestion = "check the database state"
	}

	return build(err, CategoryStorage, code, message).
		WithSuggestion(suggestion).
		WithContext("operation", operation)
}

// InternalError creates an internal error for unexpected conditions.
func InternalError(code ErrorCode, component string, err error) *LedgerError {
	message := fmt.Sprintf("internal error in %s", component)
	return build(err, CategoryInternal, code, message).
		WithSuggestion("this is likely a bug; report it with the log output").
		WithContext("component", component)
}

func build(err error, category ErrorCategory, code ErrorCode, message string) *LedgerError {
	if err != nil {
		return Wrap(err, category, code, message)
	}
	return New(category, code, message)
}

// AsLedgerError extracts a *LedgerError from an error chain.
func AsLedgerError(err error) (*LedgerError, bool) {
	for err != nil {
		if le, ok := err.(*LedgerError); ok {
			return le, true
		}
		unwrapper, ok := err.(interface{ Unwrap() error })
		if !ok {
			break
		}
		err = unwrapper.Unwrap()
	}
	return nil, false
}

// IsCategory reports whether err belongs to the given category.
func IsCategory(err error, category ErrorCategory) bool {
	if le, ok := AsLedgerError(err); ok {
		return le.Category == category
	}
	return false
}

// GetExitCode returns the exit code for any error, zero for nil.
func GetExitCode(err error) int {
	if err == nil {
		return 0
	}
	if le, ok := AsLedgerError(err); ok {
		return le.GetExitCode()
	}
	return 1
}
