// Package errors defines the coded errors fortdeps reports at its CLI boundary.
package errors

import (
	stderrors "errors"
	"fmt"
)

// ErrorCode is a stable identifier for a failure mode.
type ErrorCode string

const (
	// SourceNotFound indicates a source file or scan root could not be opened
	SourceNotFound ErrorCode = "SOURCE_NOT_FOUND"
	// ParseFailed indicates a source ended in the middle of a statement
	ParseFailed ErrorCode = "PARSE_FAILED"
	// ConfigInvalid indicates .fortdeps/config.json failed to load or validate
	ConfigInvalid ErrorCode = "CONFIG_INVALID"
	// DeclarationInvalid indicates FORTRAN.toml failed to parse or validate
	DeclarationInvalid ErrorCode = "DECLARATION_INVALID"
	// CacheUnavailable indicates the result database could not be used
	CacheUnavailable ErrorCode = "CACHE_UNAVAILABLE"
	// DependencyCycle indicates modules use each other in a loop
	DependencyCycle ErrorCode = "DEPENDENCY_CYCLE"
	// Timeout indicates the scan deadline expired
	Timeout ErrorCode = "TIMEOUT"
	// InternalError indicates a broken invariant
	InternalError ErrorCode = "INTERNAL_ERROR"
)

// FixActionType represents the type of fix action
type FixActionType string

const (
	// RunCommand suggests running a command
	RunCommand FixActionType = "run-command"
	// EditFile suggests editing a file
	EditFile FixActionType = "edit-file"
)

// FixAction represents a suggested fix for an error
type FixAction struct {
	Type        FixActionType `json:"type" yaml:"type"`
	Command     string        `json:"command,omitempty" yaml:"command,omitempty"`
	Path        string        `json:"path,omitempty" yaml:"path,omitempty"`
	Description string        `json:"description,omitempty" yaml:"description,omitempty"`
}

// Error is a coded error with suggested fixes.
type Error struct {
	Code           ErrorCode   `json:"code" yaml:"code"`
	Message        string      `json:"message" yaml:"message"`
	Details        interface{} `json:"details,omitempty" yaml:"details,omitempty"`
	SuggestedFixes []FixAction `json:"suggestedFixes,omitempty" yaml:"suggestedFixes,omitempty"`
	cause          error
}

// New creates an Error carrying the default fixes for code.
func New(code ErrorCode, message string, cause error) *Error {
	return &Error{
		Code:           code,
		Message:        message,
		SuggestedFixes: GetSuggestedFixes(code),
		cause:          cause,
	}
}

// Newf is New with a formatted message and no cause.
func Newf(code ErrorCode, format string, args ...any) *Error {
	return New(code, fmt.Sprintf(format, args...), nil)
}

// Error implements the error interface
func (e *Error) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Code, e.Message, e.cause)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// Unwrap returns the underlying error
func (e *Error) Unwrap() error {
	return e.cause
}

// WithDetails adds details to the error
func (e *Error) WithDetails(details interface{}) *Error {
	e.Details = details
	return e
}

// WithFix appends a fix ahead of the defaults.
func (e *Error) WithFix(fix FixAction) *Error {
	e.SuggestedFixes = append([]FixAction{fix}, e.SuggestedFixes...)
	return e
}

// CodeOf returns the code of the first *Error in err's chain, or InternalError.
func CodeOf(err error) ErrorCode {
	var e *Error
	if stderrors.As(err, &e) {
		return e.Code
	}
	return InternalError
}

// ErrorActions maps error codes to suggested fix actions
var ErrorActions = map[ErrorCode][]FixAction{
	ConfigInvalid: {
		{
			Type:        EditFile,
			Path:        ".fortdeps/config.json",
			Description: "Fix or remove the config file; fortdeps init rewrites defaults",
		},
	},
	DeclarationInvalid: {
		{
			Type:        EditFile,
			Path:        "FORTRAN.toml",
			Description: "Check the TOML syntax and the [[source]] patterns",
		},
	},
	CacheUnavailable: {
		{
			Type:        RunCommand,
			Command:     "fortdeps cache clear",
			Description: "Drop the result database and rescan",
		},
		{
			Type:        RunCommand,
			Command:     "fortdeps deps --no-cache",
			Description: "Scan without the cache",
		},
	},
	ParseFailed: {
		{
			Type:        RunCommand,
			Command:     "fortdeps statements ${file}",
			Description: "Show the statements read before the failure",
		},
	},
	Timeout: {
		{
			Type:        RunCommand,
			Command:     "FORTDEPS_SCAN_TIMEOUTMS=0 fortdeps deps",
			Description: "Rerun without a scan deadline",
		},
	},
}

// GetSuggestedFixes returns suggested fixes for an error code
func GetSuggestedFixes(code ErrorCode) []FixAction {
	fixes, ok := ErrorActions[code]
	if !ok {
		return nil
	}
	return append([]FixAction(nil), fixes...)
}
