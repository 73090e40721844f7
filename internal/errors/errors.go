package errors

import (
	"fmt"
)

// ErrorCode represents stable error codes for all failure modes
type ErrorCode string

const (
	// FileUnreadable indicates a source file could not be read
	FileUnreadable ErrorCode = "FILE_UNREADABLE"
	// InvalidEncoding indicates file content is not valid UTF-8
	InvalidEncoding ErrorCode = "INVALID_ENCODING"
	// GitUnavailable indicates git is missing or the path is not a repository
	GitUnavailable ErrorCode = "GIT_UNAVAILABLE"
	// GitObjectMissing indicates a ref, commit or blob could not be resolved
	GitObjectMissing ErrorCode = "GIT_OBJECT_MISSING"
	// ExtractorSetup indicates an extractor could not be constructed
	ExtractorSetup ErrorCode = "EXTRACTOR_SETUP"
	// Timeout indicates an external command timed out
	Timeout ErrorCode = "TIMEOUT"
	// StateCorrupt indicates a persisted snapshot could not be decoded
	StateCorrupt ErrorCode = "STATE_CORRUPT"
	// InternalError indicates unexpected error
	InternalError ErrorCode = "INTERNAL_ERROR"
)

// FixActionType represents the type of fix action
type FixActionType string

const (
	// RunCommand suggests running a command
	RunCommand FixActionType = "run-command"
	// InstallTool suggests installing a tool
	InstallTool FixActionType = "install-tool"
)

// FixAction represents a suggested fix for an error
type FixAction struct {
	Type        FixActionType `json:"type"`
	Command     string        `json:"command,omitempty"`
	Safe        bool          `json:"safe,omitempty"`
	Description string        `json:"description,omitempty"`
	Tool        string        `json:"tool,omitempty"`
}

// RouteError carries a stable code, a message and an optional cause
type RouteError struct {
	Code           ErrorCode   `json:"code"`
	Message        string      `json:"message"`
	Details        interface{} `json:"details,omitempty"`
	SuggestedFixes []FixAction `json:"suggestedFixes,omitempty"`
	cause          error       // Underlying error (not exported to JSON)
}

// NewRouteError creates a new RouteError with the default fixes for its code
func NewRouteError(code ErrorCode, message string, cause error) *RouteError {
	return &RouteError{
		Code:           code,
		Message:        message,
		cause:          cause,
		SuggestedFixes: GetSuggestedFixes(code),
	}
}

// Error implements the error interface
func (e *RouteError) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Code, e.Message, e.cause)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// Unwrap returns the underlying error
func (e *RouteError) Unwrap() error {
	return e.cause
}

// WithDetails adds details to the error
func (e *RouteError) WithDetails(details interface{}) *RouteError {
	e.Details = details
	return e
}

// Is reports whether err (or anything it wraps) is a RouteError with code.
func Is(err error, code ErrorCode) bool {
	for err != nil {
		if re, ok := err.(*RouteError); ok && re.Code == code {
			return true
		}
		u, ok := err.(interface{ Unwrap() error })
		if !ok {
			return false
		}
		err = u.Unwrap()
	}
	return false
}

// ErrorActions maps error codes to suggested fix actions
var ErrorActions = map[ErrorCode][]FixAction{
	GitUnavailable: {
		{
			Type:        InstallTool,
			Tool:        "git",
			Description: "Install git and run from inside a repository",
		},
	},
	StateCorrupt: {
		{
			Type:        RunCommand,
			Command:     "routewatch discover --reset",
			Safe:        true,
			Description: "Rebuild endpoint state from a full scan",
		},
	},
}

// GetSuggestedFixes returns suggested fixes for an error code
func GetSuggestedFixes(code ErrorCode) []FixAction {
	if fixes, ok := ErrorActions[code]; ok {
		return fixes
	}
	return nil
}
