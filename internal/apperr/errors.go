// Package apperr defines the error kinds shared across ont packages.
//
// Callers classify failures with errors.Is; packages wrap these sentinels
// with context using fmt.Errorf("pkg: ...: %w", ...).
package apperr

import "errors"

var (
	// ErrStructural covers bad filenames, bad headlines, extensionless
	// files and inconsistent indentation. Always detected before any
	// destructive filesystem action.
	ErrStructural = errors.New("structural validation failed")
	// ErrParse marks text that cannot be parsed as an outline.
	ErrParse = errors.New("parse failure")
	// ErrMalformed marks an attribute value that is present but cannot be
	// decoded into the requested type.
	ErrMalformed = errors.New("malformed attribute value")
	// ErrExecution marks a weave script that exited unsuccessfully.
	ErrExecution = errors.New("script execution failed")

	ErrNotFound  = errors.New("not found")
	ErrConflict  = errors.New("conflict")
	ErrForbidden = errors.New("forbidden")
)
