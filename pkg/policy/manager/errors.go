package manager

import (
	"fmt"
	"strings"
)

// LoadError represents an error that occurred during policy loading.
// This includes file system errors like "file not found" or errors
// related to file size limits and encoding validation.
type LoadError struct {
	// FilePath is the path to the file that failed to load
	FilePath string

	// Message describes the error
	Message string

	// Cause is the underlying error that caused this load error
	Cause error
}

// Error implements the error interface.
func (e *LoadError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("failed to load policy file %q: %s: %v", e.FilePath, e.Message, e.Cause)
	}
	return fmt.Sprintf("failed to load policy file %q: %s", e.FilePath, e.Message)
}

// Unwrap implements the errors.Unwrap interface for error chain support.
func (e *LoadError) Unwrap() error {
	return e.Cause
}

// ParseError represents an error that occurred during YAML parsing or
// policy validation of a file's contents.
type ParseError struct {
	// FilePath is the path to the file that failed to parse
	FilePath string

	// Message describes the parsing error
	Message string

	// Cause is the underlying parser or validation error
	Cause error
}

// Error implements the error interface.
func (e *ParseError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("parse error in %q: %s: %v", e.FilePath, e.Message, e.Cause)
	}
	return fmt.Sprintf("parse error in %q: %s", e.FilePath, e.Message)
}

// Unwrap implements the errors.Unwrap interface for error chain support.
func (e *ParseError) Unwrap() error {
	return e.Cause
}

// ErrorList contains multiple errors that occurred during policy
// operations. It is used when loading a directory where some files
// may succeed and others fail.
type ErrorList struct {
	Errors []error
}

// Error implements the error interface.
func (e *ErrorList) Error() string {
	if len(e.Errors) == 0 {
		return "no errors"
	}
	if len(e.Errors) == 1 {
		return e.Errors[0].Error()
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("%d errors occurred:\n", len(e.Errors)))
	for i, err := range e.Errors {
		sb.WriteString(fmt.Sprintf("  %d. %v\n", i+1, err))
	}
	return sb.String()
}

// Add adds an error to the list.
func (e *ErrorList) Add(err error) {
	if err != nil {
		e.Errors = append(e.Errors, err)
	}
}

// HasErrors returns true if the list contains any errors.
func (e *ErrorList) HasErrors() bool {
	return len(e.Errors) > 0
}

// ToError returns nil if there are no errors, the single error if
// there is one, or the ErrorList itself if there are multiple errors.
func (e *ErrorList) ToError() error {
	if len(e.Errors) == 0 {
		return nil
	}
	if len(e.Errors) == 1 {
		return e.Errors[0]
	}
	return e
}
